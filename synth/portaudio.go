//go:build cgo

package synth

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// streamFrames is the PortAudio callback buffer size. Small enough for
// responsive pointer feedback, large enough to avoid underruns.
const streamFrames = 1024

// PortAudioBackend streams the synthesis graph to the default output device
// through PortAudio. The render path is the same software engine the offline
// backend uses; only frame delivery differs.
type PortAudioBackend struct {
	mu     sync.Mutex
	eng    *engine
	stream *portaudio.Stream
	state  ContextState
}

// NewPortAudioBackend initializes PortAudio, opens the default mono output
// stream, and starts it. The returned backend is in the running state.
func NewPortAudioBackend(sampleRate float64) (*PortAudioBackend, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewPortAudioBackend",
		"sample_rate": sampleRate,
	}).Info("Creating PortAudio synthesis backend")

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio initialization failed: %w", err)
	}

	b := &PortAudioBackend{
		eng:   newEngine(sampleRate),
		state: StateSuspended,
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, streamFrames, b.streamCallback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	b.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}
	b.state = StateRunning

	logrus.WithFields(logrus.Fields{
		"function":      "NewPortAudioBackend",
		"frames_buffer": streamFrames,
	}).Info("PortAudio backend streaming")

	return b, nil
}

// streamCallback pulls the next frames from the graph engine.
func (b *PortAudioBackend) streamCallback(out []float32) {
	b.eng.renderFrames(out)
}

// CurrentTime returns the monotonic audio clock in seconds.
func (b *PortAudioBackend) CurrentTime() float64 {
	return b.eng.currentTime()
}

// State returns the output-readiness state.
func (b *PortAudioBackend) State() ContextState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CreateNode constructs a fresh node of the given kind.
func (b *PortAudioBackend) CreateNode(kind NodeKind) (Node, error) {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	if state == StateClosed {
		return nil, ErrBackendClosed
	}
	return b.eng.createNode(kind)
}

// Destination returns the terminal output node.
func (b *PortAudioBackend) Destination() Node {
	return b.eng.dest
}

// SampleRate returns the stream sample rate in Hz.
func (b *PortAudioBackend) SampleRate() float64 {
	return b.eng.sampleRate
}

// Close stops the stream and tears down PortAudio. Safe to call twice.
func (b *PortAudioBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return nil
	}
	b.state = StateClosed
	b.eng.close()

	var firstErr error
	if b.stream != nil {
		if err := b.stream.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := b.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.stream = nil
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Close",
		"error":    firstErr,
	}).Info("PortAudio backend closed")

	return firstErr
}
