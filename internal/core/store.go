package core

import (
	"context"
	"time"
)

// Store is one live connection to the product table.
// Implementations hold exactly one underlying connection.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx is a transaction on a Store. Savepoints let a single record's failure
// be undone without aborting the rest of the transaction.
type Tx interface {
	// Upsert inserts p, or overwrites every non-key column of the existing row
	// with the same code. at stamps updated_at always and created_at on insert only.
	Upsert(ctx context.Context, p Product, at time.Time) error

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connector opens the Store used for one run.
type Connector func(ctx context.Context) (Store, error)
