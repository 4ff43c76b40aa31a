package synth

import "errors"

// Sentinel errors for synth package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrBackendClosed indicates an operation on a closed backend.
	ErrBackendClosed = errors.New("backend is closed")

	// ErrUnknownNodeKind indicates a node kind the backend cannot construct.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrUnknownParam indicates a parameter name the node does not expose.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrNotSource indicates Start or Stop was called on a non-source node.
	ErrNotSource = errors.New("node is not a source")

	// ErrSourceSpent indicates a restart of a single-use source that has
	// already been started or stopped.
	ErrSourceSpent = errors.New("source already used")

	// ErrNotStarted indicates Stop was called on a source that never started.
	ErrNotStarted = errors.New("source not started")

	// ErrNilNode indicates a nil node was passed where one is required.
	ErrNilNode = errors.New("nil node")

	// ErrNodeDisposed indicates an operation on a node whose backend has
	// been closed.
	ErrNodeDisposed = errors.New("node disposed")

	// ErrSelfConnection indicates a node was connected to itself.
	ErrSelfConnection = errors.New("node cannot connect to itself")
)
