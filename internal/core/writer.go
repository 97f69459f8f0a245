package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 100

// Writer persists parsed rows in fixed-size chunks, one transaction per chunk.
//
// Within a chunk every record runs inside its own savepoint, so a record that
// violates a constraint is rolled back alone and the chunk carries on. A
// failure of the transaction itself (begin, savepoint handling, commit) rolls
// back the whole chunk and every record in it is reported as failed.
type Writer struct {
	BatchSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewWriter returns a Writer with the given chunk size (DefaultBatchSize if <= 0).
func NewWriter(batchSize int, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{BatchSize: batchSize, Logger: logger, Now: time.Now}
}

// Write persists rows through store, recording outcomes on result.
//
// Cancellation is checked before each chunk. A chunk that has started always
// runs to commit or rollback. The returned error is nil or wraps ErrCancelled.
func (w *Writer) Write(ctx context.Context, store Store, rows []ParsedRow, result *ImportResult) error {
	size := w.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	chunk := 0
	for start := 0; start < len(rows); start += size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: stopped before chunk %d of %d: %w",
				ErrCancelled, chunk+1, chunkCount(len(rows), size), err)
		}

		end := min(start+size, len(rows))
		chunk++
		w.writeChunk(context.WithoutCancel(ctx), store, chunk, rows[start:end], result)
	}
	return nil
}

// writeChunk runs one chunk to commit or rollback.
func (w *Writer) writeChunk(ctx context.Context, store Store, chunk int, rows []ParsedRow, result *ImportResult) {
	failed := make(map[int]bool, len(rows))
	succeeded := make(map[int]bool, len(rows))

	tx, err := store.Begin(ctx)
	if err != nil {
		w.abandonChunk(chunk, rows, failed, succeeded, fmt.Errorf("begin transaction: %w", err), result)
		return
	}

	chunkErr := w.upsertRows(ctx, tx, rows, failed, succeeded, result)

	if chunkErr == nil {
		if err := tx.Commit(ctx); err != nil {
			chunkErr = fmt.Errorf("commit: %w", err)
		}
	}

	if chunkErr != nil {
		if err := tx.Rollback(ctx); err != nil {
			w.Logger.Warn("chunk rollback failed", "chunk", chunk, "error", err)
		}
		w.abandonChunk(chunk, rows, failed, succeeded, chunkErr, result)
		return
	}

	w.Logger.Debug("chunk committed",
		"chunk", chunk,
		"records", len(rows),
		"failed", len(failed),
	)
}

// upsertRows writes each record under its own savepoint. Record-level
// failures are recorded and skipped; the returned error is transaction-level.
func (w *Writer) upsertRows(ctx context.Context, tx Tx, rows []ParsedRow, failed, succeeded map[int]bool, result *ImportResult) error {
	for i, row := range rows {
		sp := fmt.Sprintf("sp_%d", i)
		if err := tx.Savepoint(ctx, sp); err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}

		if err := tx.Upsert(ctx, *row.Product, w.Now()); err != nil {
			failed[row.RowNumber] = true
			result.RecordFailure(RowError{
				RowNumber: row.RowNumber,
				RawData:   row.Product.Code + "," + row.Product.Name,
				Message:   fmt.Sprintf("write failed: %v", err),
			})
			w.Logger.Warn("record write failed",
				"row", row.RowNumber,
				"product_code", row.Product.Code,
				"error", err,
			)

			if err := tx.RollbackTo(ctx, sp); err != nil {
				return fmt.Errorf("rollback to savepoint: %w", err)
			}
			continue
		}

		succeeded[row.RowNumber] = true
		result.RecordSuccess()

		if err := tx.Release(ctx, sp); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
	}
	return nil
}

// abandonChunk reports every record of a rolled-back chunk that is not
// already a failure. Records counted as successes are reclassified.
func (w *Writer) abandonChunk(chunk int, rows []ParsedRow, failed, succeeded map[int]bool, cause error, result *ImportResult) {
	w.Logger.Error("chunk rolled back", "chunk", chunk, "records", len(rows), "error", cause)

	msg := fmt.Sprintf("transaction rolled back: %v", cause)
	for _, row := range rows {
		if failed[row.RowNumber] {
			continue
		}
		rowErr := RowError{RowNumber: row.RowNumber, Message: msg}
		if succeeded[row.RowNumber] {
			result.RecordRolledBack(rowErr)
		} else {
			result.RecordFailure(rowErr)
		}
	}
}

func chunkCount(n, size int) int {
	return (n + size - 1) / size
}
