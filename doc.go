// Package orbaudio provides the adaptive sound-admission subsystem for an
// interactive 3D object that answers pointer gestures with synthesized
// audio feedback.
//
// The package composes three cooperating components over a narrow
// synthesis-backend interface:
//
//	backend := synth.NewOfflineBackend(44100)
//	sys, err := orbaudio.New(backend, nil)
//	if err != nil {
//		// nil backend is the only construction failure
//	}
//	defer sys.Shutdown()
//
//	sys.PlayPositionalTone(0.4, 0.8) // drag feedback
//	sys.PlayFacetTone(17, 0.5)       // facet sweep
//	sys.PlayClickTone()              // discrete press
//
// Every trigger runs the same pipeline: admission check through the
// scheduler, node acquisition through the pool, deterministic parameter
// configuration, a ramped volume envelope on the audio clock, scheduled
// cleanup, and outcome reporting to the circuit breaker. No trigger ever
// returns an error: a denied or failed sound is a silent no-op, and
// repeated failures degrade the quality level instead of the session.
//
// Diagnostics consumers read GetAudioStatus for an aggregate snapshot of
// quality level, failure mode, active node count, and current throughput.
// They mutate nothing except through the explicit Initialize reset.
package orbaudio
