// Package core implements the product CSV import pipeline.
//
// The package has no knowledge of any particular database or of the CLI.
// Stores are reached through the [Store] and [Tx] interfaces, which the
// backends under internal/store implement.
//
// # Pipeline
//
// An [Importer] runs in two strictly sequential phases:
//
//  1. Parse. A [Parser] reads the whole file row by row. Rows that convert
//     cleanly are kept; rows that do not are recorded as [RowError] values
//     and skipped. Nothing is written yet, so cancelling here leaves the
//     store untouched.
//  2. Write. A [Writer] splits the valid rows into chunks of
//     [DefaultBatchSize] and upserts each chunk in its own transaction, one
//     savepoint per record.
//
// # Failure handling
//
// Failures are scoped:
//
//   - Row conversion errors and single-record write errors are recorded in
//     the [ImportResult] and the run continues.
//   - A transaction-level failure rolls back its chunk; every record of that
//     chunk is recorded as failed and the next chunk proceeds.
//   - [ErrInputNotFound], [ErrMissingHeader], [ErrCancelled] and connection
//     failures end the run and are returned to the caller.
//
// After a completed run TotalRows == SuccessCount + FailedCount.
package core
