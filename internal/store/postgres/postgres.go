// Package postgres registers the PostgreSQL backend for "postgres://" and
// "postgresql://" connection strings.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/importer/internal/core"
	"github.com/JonMunkholm/importer/internal/store"
)

func init() {
	store.Register("postgres", Open)
	store.Register("postgresql", Open)
}

// Store holds one pgx connection for the whole run.
type Store struct {
	conn      *pgx.Conn
	upsertSQL string
}

var _ core.Store = (*Store)(nil)

// Open connects with the URL in cfg and pings the server.
func Open(ctx context.Context, cfg store.Config) (core.Store, error) {
	conn, err := pgx.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{conn: conn, upsertSQL: UpsertSQL(cfg.Table)}, nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, upsertSQL: s.upsertSQL}, nil
}

// Close closes the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// Tx wraps pgx.Tx.
type Tx struct {
	tx        pgx.Tx
	upsertSQL string
}

func (t *Tx) Upsert(ctx context.Context, p core.Product, at time.Time) error {
	_, err := t.tx.Exec(ctx, t.upsertSQL,
		p.Code, p.Name, p.Category, p.Price, p.Quantity, p.ManufactureDate, p.Active, at)
	return err
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "SAVEPOINT "+ident(name))
	return err
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+ident(name))
	return err
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+ident(name))
	return err
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// UpsertSQL builds the insert-or-update statement for table, which may be
// schema-qualified. created_at is written on insert only.
func UpsertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (product_code, product_name, category, price, quantity, manufacture_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (product_code) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			manufacture_date = EXCLUDED.manufacture_date,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`, tableIdent(table))
}

func tableIdent(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
