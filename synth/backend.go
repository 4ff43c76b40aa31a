package synth

// NodeKind identifies the synthesis role of a node. The kind is carried by
// the node handle itself so callers never need runtime type inspection to
// classify a node they hold.
type NodeKind int

const (
	// KindOscillator is a signal source. Oscillators are single-use: once
	// stopped they cannot be restarted and must be constructed fresh.
	KindOscillator NodeKind = iota
	// KindGain is a volume-scaling stage with schedulable automation.
	KindGain
	// KindFilter is a lowpass timbre-shaping stage.
	KindFilter
	// KindDestination is the terminal output node owned by the backend.
	KindDestination
)

// String returns a human-readable node kind description.
func (k NodeKind) String() string {
	switch k {
	case KindOscillator:
		return "oscillator"
	case KindGain:
		return "gain"
	case KindFilter:
		return "filter"
	case KindDestination:
		return "destination"
	default:
		return "unknown"
	}
}

// SingleUse reports whether nodes of this kind are one-shot by backend
// semantics. Single-use nodes must never be recycled.
func (k NodeKind) SingleUse() bool {
	return k == KindOscillator
}

// ContextState represents the output-readiness state of a backend.
type ContextState int

const (
	// StateSuspended indicates the backend exists but is not producing output.
	StateSuspended ContextState = iota
	// StateRunning indicates the backend is producing output.
	StateRunning
	// StateClosed indicates the backend has been shut down permanently.
	StateClosed
)

// String returns a human-readable context state description.
func (s ContextState) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Waveform selects an oscillator timbre.
type Waveform int

const (
	// WaveSine is a pure tone.
	WaveSine Waveform = iota
	// WaveSquare has a hollow, clipped character.
	WaveSquare
	// WaveSawtooth is bright and buzzy.
	WaveSawtooth
	// WaveTriangle is soft with odd harmonics.
	WaveTriangle
)

// String returns a human-readable waveform description.
func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSquare:
		return "square"
	case WaveSawtooth:
		return "sawtooth"
	case WaveTriangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// Parameter names accepted by SetParam, ScheduleParam, and RampParam.
// Each node kind exposes a fixed subset.
const (
	// ParamFrequency is the oscillator pitch in Hz.
	ParamFrequency = "frequency"
	// ParamDetune is the oscillator detune offset in cents.
	ParamDetune = "detune"
	// ParamGain is the gain-stage multiplier (0 = silence, 1 = unity).
	ParamGain = "gain"
	// ParamCutoff is the filter lowpass cutoff in Hz.
	ParamCutoff = "cutoff"
)

// Backend is the narrow audio-graph capability set the admission subsystem
// depends on: node construction, graph wiring, parameter automation at
// explicit time offsets, source start/stop, an output-readiness state, and
// a monotonic audio clock.
type Backend interface {
	// CurrentTime returns the monotonic audio clock in seconds.
	CurrentTime() float64

	// State returns the output-readiness state of the backend.
	State() ContextState

	// CreateNode constructs a fresh node of the given kind.
	CreateNode(kind NodeKind) (Node, error)

	// Destination returns the terminal output node of the graph.
	Destination() Node

	// Close shuts the backend down permanently.
	Close() error
}

// Node is a handle to a signal-generating or signal-shaping element in the
// synthesis graph. Ownership semantics: the holder of a Node has exclusive
// use of it until it is released back to a pool or disconnected and dropped.
type Node interface {
	// Kind returns the synthesis role tag carried by this handle.
	Kind() NodeKind

	// Connect routes this node's output into dst.
	Connect(dst Node) error

	// Disconnect removes this node's output routing.
	Disconnect() error

	// SetParam sets a parameter's base value immediately.
	SetParam(name string, value float64) error

	// ScheduleParam sets a parameter to value at the given audio-clock time.
	ScheduleParam(name string, value float64, at float64) error

	// RampParam linearly ramps a parameter to target, arriving at the given
	// audio-clock time.
	RampParam(name string, target float64, at float64) error

	// Start begins signal generation at the given audio-clock time.
	// Only sources support Start; a started source cannot start again.
	Start(at float64) error

	// Stop ends signal generation at the given audio-clock time. Stopping
	// is a one-way transition: a stopped source is spent.
	Stop(at float64) error

	// Reset restores all mutable parameters to neutral defaults and clears
	// scheduled automation. Used before a node is recycled.
	Reset() error
}

// WaveformNode is the optional capability of selecting an oscillator timbre.
// Callers assert this capability once when they obtain the node, not at
// every call site.
type WaveformNode interface {
	Node
	SetWaveform(w Waveform) error
}
