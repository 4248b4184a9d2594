package domain

import "errors"

// Error kinds surfaced by the engines (spec §7). Handlers map these to HTTP
// status via errors.Is; engines wrap a sentinel with context using fmt.Errorf's
// %w verb so both a human message and a branchable kind survive the call.
var (
	// ErrInvalidInput means the caller supplied arguments that can never
	// succeed: unknown product, insufficient stock, a hold that is not
	// pending. Maps to HTTP 422.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the requested entity does not exist for a read.
	// Maps to HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a unique-violation the caller should not retry
	// verbatim, e.g. two distinct idempotency keys racing to park an early
	// webhook for the same hold. Maps to HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrStorage means a transient or fatal infrastructure failure. Engines
	// let it abort the transaction; handlers map it to HTTP 500 without
	// leaking driver detail to the client.
	ErrStorage = errors.New("storage error")
)
