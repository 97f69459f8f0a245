package core

import "time"

// RowError describes why one input row could not be imported.
type RowError struct {
	RowNumber int    // 1-based, header is row 1
	RawData   string // best-effort original text, may be empty
	Message   string
}

// ImportResult accumulates counts and row errors for a single run.
//
// The parser and the writer share one ImportResult. Both only increment
// counters and append errors, so failures from either phase are merged in
// discovery order.
type ImportResult struct {
	TotalRows    int
	SuccessCount int
	FailedCount  int
	Errors       []RowError
	Elapsed      time.Duration
}

// RecordTotal counts one row seen by the parser.
func (r *ImportResult) RecordTotal() {
	r.TotalRows++
}

// RecordSuccess counts one record persisted without error.
func (r *ImportResult) RecordSuccess() {
	r.SuccessCount++
}

// RecordFailure counts one failed row and keeps its error.
func (r *ImportResult) RecordFailure(e RowError) {
	r.FailedCount++
	r.Errors = append(r.Errors, e)
}

// RecordRolledBack turns a record already counted as a success into a
// failure because the transaction holding it was rolled back.
func (r *ImportResult) RecordRolledBack(e RowError) {
	r.SuccessCount--
	r.RecordFailure(e)
}

// HasFailures reports whether any row failed.
func (r *ImportResult) HasFailures() bool {
	return r.FailedCount > 0
}
