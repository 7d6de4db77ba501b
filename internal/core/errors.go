package core

import "errors"

// Error kinds. Every failure surfaced by the engine wraps exactly one of
// these, so callers can map outcomes with errors.Is (the CLI translates
// them to exit codes 2, 3, and 4).
var (
	// ErrValidation marks malformed input caught before any year is
	// projected. No partial output is produced.
	ErrValidation = errors.New("validation error")

	// ErrConfig marks a missing tax-table entry for a requested
	// year and filing status.
	ErrConfig = errors.New("config error")

	// ErrNumeric marks overflow or a non-finite intermediate value.
	ErrNumeric = errors.New("numeric error")
)
