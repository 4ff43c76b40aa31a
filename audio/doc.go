// Package audio implements the adaptive real-time sound-admission pipeline:
// admission control, resource recycling, and failure-responsive quality
// degradation for synthesized interaction feedback.
//
// Three components cooperate, composed by the facade in the root package:
//
//   - SoundScheduler decides, per candidate trigger event, whether synthesis
//     may proceed right now, and keeps a bounded rolling history of admitted
//     events for diagnostics and rate accounting. Admission denial is a
//     normal silent outcome, never an error.
//
//   - NodePool leases and recycles signal-shaping nodes with a bounded
//     per-kind idle list, avoiding allocation storms under high trigger
//     rates. Single-use source nodes are always constructed fresh: their
//     backend semantics forbid restarting, so recycling one is a
//     programming error the pool must never induce.
//
//   - CircuitBreaker watches synthesis failures. Three failures within ten
//     seconds are treated as a pattern: the quality level steps down one
//     notch and a recovery attempt is scheduled. Recovery exits failure
//     mode but never restores fidelity; that requires an explicit reset.
//
// The breaker's quality-change callback is the sole channel by which it
// influences the scheduler's rate ceiling. There is no reverse dependency.
//
// Nothing in this package propagates a failure to the input layer. The
// worst user-visible effect of any internal fault is a missing sound or a
// reduced quality level: audio is a non-essential enhancement, so the rest
// of the system must never depend on its health.
package audio
