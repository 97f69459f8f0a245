package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/JonMunkholm/importer/internal/logging"
)

// Importer runs the two-phase import: parse the whole file, then write the
// valid rows chunk by chunk. No write happens until parsing has finished, so
// a cancelled parse leaves the store untouched.
type Importer struct {
	Connect   Connector
	BatchSize int
	Now       func() time.Time
}

// NewImporter returns an Importer that opens its store through connect.
func NewImporter(connect Connector, batchSize int) *Importer {
	return &Importer{Connect: connect, BatchSize: batchSize, Now: time.Now}
}

// Import reads the CSV at path and upserts every valid row.
//
// Row and chunk failures are reported in the result, not as an error. The
// error is non-nil only for run-level faults: ErrInputNotFound,
// ErrMissingHeader, ErrCancelled or a store connection failure. On
// ErrCancelled the partial result is returned as well.
func (im *Importer) Import(ctx context.Context, path string) (*ImportResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)
	result := &ImportResult{}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	logger.Info("import started", "file", path, "bytes", info.Size())

	valid, err := im.parse(ctx, path, info.Size(), result)
	if err != nil {
		result.Elapsed = time.Since(start)
		return result, err
	}

	logger.Info("parse complete",
		"rows", result.TotalRows,
		"valid", len(valid),
		"rejected", result.FailedCount,
	)

	if len(valid) > 0 {
		if err := im.write(ctx, valid, result); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}
	}

	result.Elapsed = time.Since(start)

	logger.Info("import complete",
		"total", result.TotalRows,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"elapsed_seconds", fmt.Sprintf("%.2f", result.Elapsed.Seconds()),
	)

	return result, nil
}

// parse runs the parse phase and returns the valid rows in input order.
func (im *Importer) parse(ctx context.Context, path string, size int64, result *ImportResult) ([]ParsedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r, counter := wrapInput(f, size)
	parser := NewParser(r, result, logging.FromContext(ctx))

	valid, err := parser.ParseAll(ctx)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("input consumed", "bytes", counter.BytesRead, "percent", counter.Percent())
	return valid, nil
}

// write opens the store and runs the write phase. The store is closed on
// every exit path.
func (im *Importer) write(ctx context.Context, rows []ParsedRow, result *ImportResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: before connecting: %w", ErrCancelled, err)
	}

	store, err := im.Connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: while connecting: %w", ErrCancelled, err)
		}
		return fmt.Errorf("connect store: %w", err)
	}
	defer func() {
		if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil {
			logging.FromContext(ctx).Warn("closing store", "error", cerr)
		}
	}()

	w := NewWriter(im.BatchSize, logging.FromContext(ctx))
	if im.Now != nil {
		w.Now = im.Now
	}
	return w.Write(ctx, store, rows, result)
}
