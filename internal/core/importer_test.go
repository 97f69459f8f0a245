package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// countingConnector returns store on every call and counts the calls.
func countingConnector(store Store, calls *int) Connector {
	return func(ctx context.Context) (Store, error) {
		*calls++
		return store, nil
	}
}

func TestImportMissingFile(t *testing.T) {
	calls := 0
	im := NewImporter(countingConnector(newMemStore(), &calls), 100)

	result, err := im.Import(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("Import() error = %v, want ErrInputNotFound", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if calls != 0 {
		t.Errorf("connector called %d times, want 0", calls)
	}
}

func TestImportSingleValidRow(t *testing.T) {
	store := newMemStore()
	calls := 0
	im := NewImporter(countingConnector(store, &calls), 100)

	path := writeCSV(t, header+"ABC123,Widget,Tools,12.50,100,2024-01-15,true\n")
	result, err := im.Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if result.TotalRows != 1 || result.SuccessCount != 1 || result.FailedCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0", result.TotalRows, result.SuccessCount, result.FailedCount)
	}
	if result.Elapsed <= 0 {
		t.Error("Elapsed not stamped")
	}

	p, ok := store.rows["ABC123"]
	if !ok {
		t.Fatal("ABC123 not stored")
	}
	if p.Name != "Widget" || p.Category != "Tools" || NumericString(p.Price) != "12.50" ||
		p.Quantity != 100 || p.ManufactureDate.Time.Format("2006-01-02") != "2024-01-15" || !p.Active {
		t.Errorf("stored product = %+v", p)
	}
	if !store.closed {
		t.Error("store was not closed")
	}
}

func TestImportMixedRows(t *testing.T) {
	store := newMemStore()
	calls := 0
	im := NewImporter(countingConnector(store, &calls), 100)

	path := writeCSV(t, header+
		"A1,One,Cat,1.00,1,,true\n"+
		"A2,Two,Cat,abc,2,,true\n"+
		"A3,Three,Cat,3.00,3,,false\n")

	result, err := im.Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if result.TotalRows != 3 || result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", result.TotalRows, result.SuccessCount, result.FailedCount)
	}
	if result.Errors[0].RowNumber != 3 {
		t.Errorf("RowNumber = %d, want 3", result.Errors[0].RowNumber)
	}
	if _, ok := store.rows["A2"]; ok {
		t.Error("invalid row was written")
	}
	if !result.HasFailures() {
		t.Error("HasFailures() = false")
	}
}

func TestImportHeaderOnlySkipsStore(t *testing.T) {
	calls := 0
	im := NewImporter(countingConnector(newMemStore(), &calls), 100)

	result, err := im.Import(context.Background(), writeCSV(t, header))
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if result.TotalRows != 0 || result.SuccessCount != 0 || result.FailedCount != 0 {
		t.Errorf("result = %+v, want zeros", result)
	}
	if calls != 0 {
		t.Errorf("connector called %d times, want 0", calls)
	}
}

func TestImportEmptyFile(t *testing.T) {
	calls := 0
	im := NewImporter(countingConnector(newMemStore(), &calls), 100)

	_, err := im.Import(context.Background(), writeCSV(t, ""))
	if !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("Import() error = %v, want ErrMissingHeader", err)
	}
}

func TestImportCancelledBeforeStart(t *testing.T) {
	calls := 0
	im := NewImporter(countingConnector(newMemStore(), &calls), 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := im.Import(ctx, writeCSV(t, header+"A1,One,Cat,1,1,,true\n"))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Import() error = %v, want ErrCancelled", err)
	}
	if result == nil {
		t.Fatal("partial result should be returned with ErrCancelled")
	}
	if calls != 0 {
		t.Errorf("connector called %d times, want 0 (nothing written before parse completes)", calls)
	}
}

func TestImportConnectFailure(t *testing.T) {
	im := NewImporter(func(ctx context.Context) (Store, error) {
		return nil, errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	}, 100)

	result, err := im.Import(context.Background(), writeCSV(t, header+"A1,One,Cat,1,1,,true\n"))
	if err == nil {
		t.Fatal("Import() expected error")
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("connect failure reported as cancellation: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "connect store: ") {
		t.Errorf("error = %q, want connect store prefix", err)
	}
	if result == nil || result.TotalRows != 1 {
		t.Errorf("result = %+v, want parse counts preserved", result)
	}
}

func TestImportRerunIsIdempotent(t *testing.T) {
	store := newMemStore()
	calls := 0
	im := NewImporter(countingConnector(store, &calls), 2)

	path := writeCSV(t, header+
		"R1,One,Cat,1,1,,true\n"+
		"R2,Two,Cat,2,2,,true\n"+
		"R3,Three,Cat,3,3,,true\n")

	for run := 1; run <= 2; run++ {
		result, err := im.Import(context.Background(), path)
		if err != nil {
			t.Fatalf("run %d: Import() error: %v", run, err)
		}
		if result.SuccessCount != 3 {
			t.Errorf("run %d: SuccessCount = %d, want 3", run, result.SuccessCount)
		}
	}

	if len(store.rows) != 3 {
		t.Errorf("stored %d rows after two runs, want 3", len(store.rows))
	}
	if store.begins != 4 {
		t.Errorf("begins = %d, want 4 (two chunks per run)", store.begins)
	}
}
