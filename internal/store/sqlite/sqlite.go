// Package sqlite registers the SQLite backend for "sqlite://path" and
// "sqlite:path" connection strings, using the pure-Go modernc driver.
//
// SQLite has no native DATE or DECIMAL type, so dates are stored as
// YYYY-MM-DD text, prices as their decimal text and timestamps as UTC text.
package sqlite

import (
	"context"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/importer/internal/core"
	"github.com/JonMunkholm/importer/internal/store"
	"github.com/JonMunkholm/importer/internal/store/sqlstore"
)

// TimestampFormat is how created_at and updated_at are written.
const TimestampFormat = "2006-01-02 15:04:05.000000"

func init() {
	store.Register("sqlite", Open)
}

// Open opens the database file named in cfg.URL.
func Open(ctx context.Context, cfg store.Config) (core.Store, error) {
	path := store.TrimScheme(cfg.URL)
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path must not be empty")
	}

	s, err := sqlstore.Open(ctx, "sqlite", path, Dialect(cfg.Table))
	if err != nil {
		return nil, err
	}
	if err := s.Exec(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Dialect returns the SQLite statements for table.
func Dialect(table string) sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:      "sqlite",
		UpsertSQL: upsertSQL(sqlstore.QuoteIdent(table, `"`, `"`)),
		Args: func(p core.Product, at time.Time) []any {
			var date any
			if p.ManufactureDate.Valid {
				date = p.ManufactureDate.Time.Format("2006-01-02")
			}
			ts := at.UTC().Format(TimestampFormat)
			return []any{
				p.Code, p.Name, p.Category, sqlstore.PriceArg(p), p.Quantity,
				date, p.Active, ts, ts,
			}
		},
		Savepoint:  func(name string) string { return "SAVEPOINT " + name },
		RollbackTo: func(name string) string { return "ROLLBACK TO " + name },
		Release:    func(name string) string { return "RELEASE " + name },
	}
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (product_code, product_name, category, price, quantity, manufacture_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_code) DO UPDATE SET
			product_name = excluded.product_name,
			category = excluded.category,
			price = excluded.price,
			quantity = excluded.quantity,
			manufacture_date = excluded.manufacture_date,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`, table)
}

// Schema is a reference DDL for the products table.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	product_code     TEXT    NOT NULL UNIQUE CHECK (product_code <> ''),
	product_name     TEXT    NOT NULL,
	category         TEXT    NOT NULL,
	price            TEXT    NOT NULL,
	quantity         INTEGER NOT NULL,
	manufacture_date TEXT,
	is_active        INTEGER NOT NULL,
	created_at       TEXT    NOT NULL,
	updated_at       TEXT    NOT NULL
)`
