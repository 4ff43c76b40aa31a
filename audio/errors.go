package audio

import "errors"

// Sentinel errors for audio package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrNodeCreateFailed indicates the synthesis backend could not
	// construct a node. This is the pool's only failure mode: exhaustion
	// of the backend itself, not of the idle lists.
	ErrNodeCreateFailed = errors.New("node construction failed")

	// ErrNilBackend indicates a pool was created without a backend.
	ErrNilBackend = errors.New("nil synthesis backend")
)
