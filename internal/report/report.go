// Package report renders an ImportResult for people: a console summary and
// the per-run error log file.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/JonMunkholm/importer/internal/core"
)

const (
	titleRule = 60
	entryRule = 40
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// PrintSummary writes totals, elapsed time and up to preview row errors.
// Colour follows color.NoColor, which is off when stdout is not a terminal.
func PrintSummary(w io.Writer, r *core.ImportResult, preview int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Import summary")
	fmt.Fprintf(w, "  Total rows: %s\n", humanize.Comma(int64(r.TotalRows)))
	fmt.Fprintf(w, "  Succeeded:  %s\n", okColor.Sprint(humanize.Comma(int64(r.SuccessCount))))

	failed := humanize.Comma(int64(r.FailedCount))
	if r.HasFailures() {
		failed = failColor.Sprint(failed)
	}
	fmt.Fprintf(w, "  Failed:     %s\n", failed)
	fmt.Fprintf(w, "  Elapsed:    %.2fs\n", r.Elapsed.Seconds())

	if len(r.Errors) == 0 || preview <= 0 {
		return
	}

	shown := r.Errors
	if len(shown) > preview {
		shown = shown[:preview]
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, warnColor.Sprintf("Errors (first %d of %s):", len(shown), humanize.Comma(int64(len(r.Errors)))))
	for _, e := range shown {
		fmt.Fprintf(w, "  Row %d: %s\n", e.RowNumber, e.Message)
	}
	if rest := len(r.Errors) - len(shown); rest > 0 {
		fmt.Fprintf(w, "  ... %s more\n", humanize.Comma(int64(rest)))
	}
}

// ErrorLogName is the file name of the error log for a run started at now.
func ErrorLogName(now time.Time) string {
	return "import_errors_" + now.Format("20060102_150405") + ".log"
}

// WriteErrorLog writes every row error to a timestamped file in dir and
// returns its path.
func WriteErrorLog(dir string, r *core.ImportResult, runID string, now time.Time) (string, error) {
	path := filepath.Join(dir, ErrorLogName(now))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create error log: %w", err)
	}

	bw := bufio.NewWriter(f)
	WriteErrors(bw, r.Errors, runID, now)

	if err := bw.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("write error log: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close error log: %w", err)
	}
	return path, nil
}

// WriteErrors renders the error log body.
func WriteErrors(w io.Writer, errs []core.RowError, runID string, now time.Time) {
	fmt.Fprintf(w, "CSV Import Error Log - %s (run %s)\n", now.Format("2006-01-02 15:04:05"), runID)
	fmt.Fprintln(w, strings.Repeat("=", titleRule))
	fmt.Fprintln(w)

	for _, e := range errs {
		fmt.Fprintf(w, "Row: %d\n", e.RowNumber)
		fmt.Fprintf(w, "Error: %s\n", e.Message)
		if e.RawData != "" {
			fmt.Fprintf(w, "Data: %s\n", e.RawData)
		}
		fmt.Fprintln(w, strings.Repeat("-", entryRule))
	}
}
