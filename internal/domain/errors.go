package domain

import "errors"

// Failure kinds. Concrete errors wrap one of these with fmt.Errorf("...: %w").
var (
	// ErrInvalidInput marks empty, oversized or malformed input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage marks persistence, encryption or decryption failures.
	ErrStorage = errors.New("storage failure")
	// ErrConfiguration marks configuration that must be rejected at load time.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing session or record.
	ErrNotFound = errors.New("not found")
)
