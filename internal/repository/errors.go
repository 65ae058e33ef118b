// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// points service to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a unique key
// (for example an email that is already registered).
var ErrDuplicate = errors.New("duplicate")

// ErrInvalidDelta is returned by the ledger when asked to append a zero
// delta. Zero entries carry no information and are never stored.
var ErrInvalidDelta = errors.New("ledger delta must be nonzero")

// ErrMissingCounterparty is returned when a transfer entry is appended
// without naming the other account.
var ErrMissingCounterparty = errors.New("transfer entry requires a counterparty")

// ErrInvalidTag is returned when an entry carries an unknown tag.
var ErrInvalidTag = errors.New("unknown ledger tag")
