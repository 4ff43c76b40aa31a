package synth

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultSampleRate is used when a backend is created with a non-positive rate.
const DefaultSampleRate = 44100.0

// renderChunk is the frame count per render iteration.
const renderChunk = 512

// OfflineBackend is a pure software synthesis backend. It renders the graph
// into sample buffers on demand instead of streaming to hardware, which
// makes it suitable for tests, golden renders, and WAV export.
type OfflineBackend struct {
	mu    sync.Mutex
	eng   *engine
	state ContextState
}

// NewOfflineBackend creates an offline backend in the running state.
func NewOfflineBackend(sampleRate float64) *OfflineBackend {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewOfflineBackend",
		"sample_rate": sampleRate,
	}).Info("Creating offline synthesis backend")

	return &OfflineBackend{
		eng:   newEngine(sampleRate),
		state: StateRunning,
	}
}

// CurrentTime returns the monotonic audio clock in seconds. The offline
// clock advances only when Render consumes frames.
func (b *OfflineBackend) CurrentTime() float64 {
	return b.eng.currentTime()
}

// State returns the output-readiness state.
func (b *OfflineBackend) State() ContextState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Suspend pauses output readiness without discarding the graph.
func (b *OfflineBackend) Suspend() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateRunning {
		b.state = StateSuspended
	}
}

// Resume restores output readiness after a Suspend.
func (b *OfflineBackend) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateSuspended {
		b.state = StateRunning
	}
}

// CreateNode constructs a fresh node of the given kind.
func (b *OfflineBackend) CreateNode(kind NodeKind) (Node, error) {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	if state == StateClosed {
		return nil, ErrBackendClosed
	}
	return b.eng.createNode(kind)
}

// Destination returns the terminal output node.
func (b *OfflineBackend) Destination() Node {
	return b.eng.dest
}

// SampleRate returns the render sample rate in Hz.
func (b *OfflineBackend) SampleRate() float64 {
	return b.eng.sampleRate
}

// Render synthesizes the next stretch of output, advancing the audio clock
// by the requested duration in seconds.
func (b *OfflineBackend) Render(seconds float64) ([]float32, error) {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	if state == StateClosed {
		return nil, ErrBackendClosed
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: render duration %v", ErrUnknownParam, seconds)
	}

	total := int(seconds * b.eng.sampleRate)
	out := make([]float32, total)
	for off := 0; off < total; off += renderChunk {
		end := off + renderChunk
		if end > total {
			end = total
		}
		b.eng.renderFrames(out[off:end])
	}

	logrus.WithFields(logrus.Fields{
		"function": "Render",
		"frames":   total,
		"seconds":  seconds,
	}).Debug("Rendered offline audio")

	return out, nil
}

// Close shuts the backend down permanently.
func (b *OfflineBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return nil
	}
	b.state = StateClosed
	b.eng.close()

	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Offline synthesis backend closed")
	return nil
}
