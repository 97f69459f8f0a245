package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/JonMunkholm/importer/internal/core"
)

func init() {
	color.NoColor = true
}

func resultWithErrors(n int) *core.ImportResult {
	r := &core.ImportResult{TotalRows: 1500 + n, SuccessCount: 1500, Elapsed: 1234 * time.Millisecond}
	for i := 0; i < n; i++ {
		r.RecordFailure(core.RowError{
			RowNumber: i + 2,
			RawData:   fmt.Sprintf("C%d,Name", i),
			Message:   "price: invalid decimal \"x\"",
		})
	}
	return r
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, resultWithErrors(12), 10)
	out := buf.String()

	for _, want := range []string{
		"Total rows: 1,512",
		"Succeeded:  1,500",
		"Failed:     12",
		"Elapsed:    1.23s",
		"Errors (first 10 of 12):",
		"Row 2: price: invalid decimal",
		"... 2 more",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Row 12:") {
		t.Errorf("summary shows more than the preview:\n%s", out)
	}
}

func TestPrintSummaryNoErrors(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &core.ImportResult{TotalRows: 3, SuccessCount: 3}, 10)

	if strings.Contains(buf.String(), "Errors") {
		t.Errorf("summary lists errors for a clean run:\n%s", buf.String())
	}
}

func TestErrorLogName(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	if got := ErrorLogName(now); got != "import_errors_20250203_040506.log" {
		t.Errorf("ErrorLogName() = %q", got)
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	r := resultWithErrors(2)
	r.RecordFailure(core.RowError{RowNumber: 9, Message: "transaction rolled back: commit: boom"})

	path, err := WriteErrorLog(dir, r, "run-1", now)
	if err != nil {
		t.Fatalf("WriteErrorLog() error: %v", err)
	}
	if filepath.Base(path) != "import_errors_20250203_040506.log" {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)

	want := "CSV Import Error Log - 2025-02-03 04:05:06 (run run-1)\n" +
		strings.Repeat("=", 60) + "\n\n" +
		"Row: 2\nError: price: invalid decimal \"x\"\nData: C0,Name\n" + strings.Repeat("-", 40) + "\n" +
		"Row: 3\nError: price: invalid decimal \"x\"\nData: C1,Name\n" + strings.Repeat("-", 40) + "\n" +
		"Row: 9\nError: transaction rolled back: commit: boom\n" + strings.Repeat("-", 40) + "\n"
	if content != want {
		t.Errorf("log content:\n%s\nwant:\n%s", content, want)
	}
}

func TestWriteErrorLogBadDir(t *testing.T) {
	_, err := WriteErrorLog(filepath.Join(t.TempDir(), "missing"), resultWithErrors(1), "r", time.Now())
	if err == nil {
		t.Error("WriteErrorLog() into a missing directory should fail")
	}
}
