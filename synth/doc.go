// Package synth defines the audio-graph boundary the sound-admission
// subsystem depends on, and provides two implementations of it.
//
// The Backend interface is deliberately narrow: node construction, graph
// wiring, parameter automation at explicit audio-clock offsets, source
// start/stop, an output-readiness state, and a monotonic clock. Everything
// the admission pipeline needs, nothing more.
//
// Node handles carry their NodeKind tag, so pools and facades classify a
// node they hold without runtime type inspection. Single-use semantics are
// a property of the kind: oscillators cannot be restarted once stopped and
// are never recycled.
//
// Two backends share one software render engine:
//
//   - OfflineBackend renders the graph into sample buffers on demand, for
//     tests and WAV export.
//   - PortAudioBackend streams the same graph to the default output device.
//
// Parameter automation follows the familiar audio-graph model: ScheduleParam
// sets a value at a future clock time, RampParam interpolates linearly from
// the previous automation point. Volume envelopes built from ramps avoid the
// audible clicks an instantaneous jump would produce.
package synth
