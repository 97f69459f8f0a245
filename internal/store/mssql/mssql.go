// Package mssql registers the SQL Server backend for "sqlserver://"
// connection strings. The URL is handed to go-mssqldb unchanged.
//
// SQL Server has no INSERT ... ON CONFLICT, so the upsert is a single-row
// MERGE, and savepoints use SAVE TRANSACTION. There is no RELEASE; a saved
// point simply lapses at commit.
package mssql

import (
	"context"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/JonMunkholm/importer/internal/core"
	"github.com/JonMunkholm/importer/internal/store"
	"github.com/JonMunkholm/importer/internal/store/sqlstore"
)

func init() {
	store.Register("sqlserver", Open)
}

// Open connects to SQL Server.
func Open(ctx context.Context, cfg store.Config) (core.Store, error) {
	if _, err := msdsn.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("mssql: parse dsn: %w", err)
	}
	return sqlstore.Open(ctx, "sqlserver", cfg.URL, Dialect(cfg.Table))
}

// Dialect returns the SQL Server statements for table.
func Dialect(table string) sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:      "mssql",
		UpsertSQL: upsertSQL(sqlstore.QuoteIdent(table, "[", "]")),
		Args: func(p core.Product, at time.Time) []any {
			return []any{
				p.Code, p.Name, p.Category, sqlstore.PriceArg(p), p.Quantity,
				sqlstore.DateArg(p), p.Active, at,
			}
		},
		Savepoint:  func(name string) string { return "SAVE TRANSACTION " + name },
		RollbackTo: func(name string) string { return "ROLLBACK TRANSACTION " + name },
		Release:    func(string) string { return "" },
	}
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`
		MERGE INTO %s WITH (HOLDLOCK) AS target
		USING (SELECT @p1 AS product_code) AS source
			ON target.product_code = source.product_code
		WHEN MATCHED THEN UPDATE SET
			product_name = @p2,
			category = @p3,
			price = @p4,
			quantity = @p5,
			manufacture_date = @p6,
			is_active = @p7,
			updated_at = @p8
		WHEN NOT MATCHED THEN
			INSERT (product_code, product_name, category, price, quantity, manufacture_date, is_active, created_at, updated_at)
			VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p8);`, table)
}
