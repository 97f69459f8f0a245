package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/importer/internal/core"
	"github.com/JonMunkholm/importer/internal/store"
)

const csvHeader = "product_code,product_name,category,price,quantity,manufacture_date,is_active\n"

// newDatabase creates a database file with the products table and returns
// its connection string and a separate handle for assertions.
func newDatabase(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return "sqlite://" + path, db
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func newImporter(url string, batchSize int, now time.Time) *core.Importer {
	im := core.NewImporter(store.Connector(store.Config{URL: url}), batchSize)
	im.Now = func() time.Time { return now }
	return im
}

type productRow struct {
	name, category, price string
	quantity             int
	date                 sql.NullString
	active               bool
	createdAt, updatedAt string
}

func loadProduct(t *testing.T, db *sql.DB, code string) productRow {
	t.Helper()
	var r productRow
	err := db.QueryRow(`
		SELECT product_name, category, price, quantity, manufacture_date, is_active, created_at, updated_at
		FROM products WHERE product_code = ?`, code).
		Scan(&r.name, &r.category, &r.price, &r.quantity, &r.date, &r.active, &r.createdAt, &r.updatedAt)
	if err != nil {
		t.Fatalf("load %s: %v", code, err)
	}
	return r
}

func countProducts(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestImportWritesProduct(t *testing.T) {
	url, db := newDatabase(t)
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	path := writeCSV(t, csvHeader+"ABC123,Widget,Tools,12.50,100,2024-01-15,true\n")
	result, err := newImporter(url, 100, at).Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", result.SuccessCount, result.FailedCount)
	}

	got := loadProduct(t, db, "ABC123")
	if got.name != "Widget" || got.category != "Tools" || got.price != "12.50" || got.quantity != 100 {
		t.Errorf("row = %+v", got)
	}
	if !got.date.Valid || got.date.String != "2024-01-15" {
		t.Errorf("manufacture_date = %+v, want 2024-01-15", got.date)
	}
	if !got.active {
		t.Error("is_active = false, want true")
	}
	want := at.Format(TimestampFormat)
	if got.createdAt != want || got.updatedAt != want {
		t.Errorf("timestamps = %s / %s, want %s", got.createdAt, got.updatedAt, want)
	}
}

func TestImportUpsertKeepsCreatedAt(t *testing.T) {
	url, db := newDatabase(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	path := writeCSV(t, csvHeader+"U1,Old name,Cat,1.00,1,,true\n")
	if _, err := newImporter(url, 100, first).Import(context.Background(), path); err != nil {
		t.Fatalf("first Import() error: %v", err)
	}

	path = writeCSV(t, csvHeader+"U1,New name,Cat,2.00,5,NULL,false\n")
	if _, err := newImporter(url, 100, second).Import(context.Background(), path); err != nil {
		t.Fatalf("second Import() error: %v", err)
	}

	if n := countProducts(t, db); n != 1 {
		t.Fatalf("products = %d, want 1", n)
	}

	got := loadProduct(t, db, "U1")
	if got.name != "New name" || got.price != "2.00" || got.quantity != 5 || got.active {
		t.Errorf("row not overwritten: %+v", got)
	}
	if got.date.Valid {
		t.Errorf("manufacture_date = %q, want NULL", got.date.String)
	}
	if got.createdAt != first.Format(TimestampFormat) {
		t.Errorf("created_at = %s, want %s", got.createdAt, first.Format(TimestampFormat))
	}
	if got.updatedAt != second.Format(TimestampFormat) {
		t.Errorf("updated_at = %s, want %s", got.updatedAt, second.Format(TimestampFormat))
	}
}

func TestImportRecordFailureDoesNotAbortChunk(t *testing.T) {
	url, db := newDatabase(t)

	// An empty code parses but violates the table's CHECK constraint
	path := writeCSV(t, csvHeader+
		"K1,First,Cat,1,1,,true\n"+
		",Nameless,Cat,1,1,,true\n"+
		"K3,Third,Cat,1,1,,true\n")

	result, err := newImporter(url, 100, time.Now()).Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", result.SuccessCount, result.FailedCount)
	}
	if n := countProducts(t, db); n != 2 {
		t.Errorf("products = %d, want 2", n)
	}

	e := result.Errors[0]
	if e.RowNumber != 3 || !strings.HasPrefix(e.Message, "write failed: ") {
		t.Errorf("error = %+v", e)
	}
}

func TestImportDuplicateCodesLastWins(t *testing.T) {
	url, db := newDatabase(t)

	path := writeCSV(t, csvHeader+
		"D1,First,Cat,1,1,,true\n"+
		"D1,Second,Cat,2,2,,true\n")

	result, err := newImporter(url, 1, time.Now()).Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if result.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", result.SuccessCount)
	}
	if got := loadProduct(t, db, "D1"); got.name != "Second" {
		t.Errorf("name = %q, want Second", got.name)
	}
}

func TestImportMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	csv := writeCSV(t, csvHeader+"Z1,Zed,Cat,1,1,,true\n")

	result, err := newImporter("sqlite://"+path, 100, time.Now()).Import(context.Background(), csv)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if result.FailedCount != 1 || !strings.Contains(result.Errors[0].Message, "no such table") {
		t.Errorf("result = %+v, want one no such table failure", result)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), store.Config{URL: "sqlite://"}); err == nil {
		t.Error("Open() with empty path should fail")
	}
}
