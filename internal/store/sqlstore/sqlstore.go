// Package sqlstore implements core.Store on top of database/sql for the
// backends whose drivers plug into it (MySQL, SQLite, SQL Server).
//
// A Store pins one *sql.Conn for its lifetime so the run uses exactly one
// connection. Backends differ only in their Dialect: the upsert statement,
// argument encoding and savepoint syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/importer/internal/core"
)

// Dialect holds the backend-specific SQL.
type Dialect struct {
	Name string

	// UpsertSQL inserts or updates one product keyed on product_code.
	UpsertSQL string

	// Args encodes p and the timestamp in the order UpsertSQL expects.
	Args func(p core.Product, at time.Time) []any

	// Savepoint statements. An empty result means the step is a no-op.
	Savepoint  func(name string) string
	RollbackTo func(name string) string
	Release    func(name string) string
}

// Store is a core.Store backed by a single pinned database/sql connection.
type Store struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
}

var _ core.Store = (*Store)(nil)

// Open opens driverName/dsn, pins one connection and verifies it with a ping.
func Open(ctx context.Context, driverName, dsn string, d Dialect) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: connect: %w", d.Name, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}

	return &Store{db: db, conn: conn, dialect: d}, nil
}

// Exec runs a statement outside any transaction on the pinned connection.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", s.dialect.Name, err)
	}
	return nil
}

// Begin starts a transaction on the pinned connection.
func (s *Store) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, dialect: s.dialect}, nil
}

// Close releases the connection and the handle.
func (s *Store) Close(ctx context.Context) error {
	return errors.Join(s.conn.Close(), s.db.Close())
}

// Tx is a core.Tx over *sql.Tx.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// Upsert writes one product.
func (t *Tx) Upsert(ctx context.Context, p core.Product, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.UpsertSQL, t.dialect.Args(p, at)...)
	return err
}

// Savepoint marks a point the transaction can roll back to.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	return t.exec(ctx, t.dialect.Savepoint(name))
}

// RollbackTo undoes everything after the named savepoint.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	return t.exec(ctx, t.dialect.RollbackTo(name))
}

// Release discards the named savepoint.
func (t *Tx) Release(ctx context.Context, name string) error {
	return t.exec(ctx, t.dialect.Release(name))
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, stmt string) error {
	if stmt == "" {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, stmt)
	return err
}

// QuoteIdent quotes a possibly schema-qualified identifier with the given
// delimiters, doubling any closing delimiter inside a part.
func QuoteIdent(name, open, close string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = open + strings.ReplaceAll(p, close, close+close) + close
	}
	return strings.Join(parts, ".")
}

// DateArg returns the date as time.Time, or nil when absent.
func DateArg(p core.Product) any {
	if !p.ManufactureDate.Valid {
		return nil
	}
	return p.ManufactureDate.Time
}

// PriceArg returns the price as plain decimal text.
func PriceArg(p core.Product) any {
	return core.NumericString(p.Price)
}
