package core

import "errors"

// Run-level faults. Row- and chunk-scoped problems never surface as errors;
// they are absorbed into the ImportResult.
var (
	// ErrInputNotFound is returned when the input path does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrMissingHeader is returned when the input has no header row.
	ErrMissingHeader = errors.New("input has no header row")

	// ErrCancelled is returned when the run's context is cancelled.
	// The partial ImportResult is returned alongside it.
	ErrCancelled = errors.New("import cancelled")
)
