package internal

import "errors"

// Failure classes for the intake pipeline. Callers classify wrapped errors
// with errors.Is; the distinction matters because only ErrStoreUnavailable
// must abort a whole scan cycle.
var (
	// ErrInvalidIdentifier marks a caller bug: an empty or whitespace-only
	// file identifier. Never retried.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrHashingUnavailable marks a startup-time configuration problem with
	// the digest primitive. Fatal.
	ErrHashingUnavailable = errors.New("hashing unavailable")

	// ErrStoreUnavailable marks any failure of the shared semaphore store:
	// connectivity loss, timeout, or a corrupt entry. It must reach the
	// scheduler; a claim decision can never be guessed while the store is
	// unreachable.
	ErrStoreUnavailable = errors.New("semaphore store unavailable")
)
