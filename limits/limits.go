// Package limits provides centralized tuning constants for the sound-admission
// subsystem. This ensures consistent rate ceilings, pool bounds, and timing
// windows across different components of the system.
package limits

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxEventsPerSecond is the baseline admission ceiling at high quality.
	// Tuned so a continuous drag gesture stays audible without staccato bursts.
	DefaultMaxEventsPerSecond = 12

	// MinRateCeiling is the lowest admission ceiling the scheduler accepts.
	// A ceiling of zero would silence the subsystem entirely, which is a
	// quality-controller decision, not a scheduler configuration.
	MinRateCeiling = 1

	// MaxRateCeiling is the highest admission ceiling the scheduler accepts.
	// Beyond this rate individual sounds are no longer perceptually distinct.
	MaxRateCeiling = 64

	// DefaultMaxIdleNodes caps the per-kind idle list in the node pool.
	DefaultMaxIdleNodes = 8

	// MaxIdleNodesCeiling is the absolute maximum idle-list size per kind.
	// This prevents unbounded memory growth from misconfiguration.
	MaxIdleNodesCeiling = 64
)

const (
	// RateWindow is the accounting window for the admission ceiling.
	RateWindow = time.Second

	// HistoryWindow is the trailing window for the scheduler's event history.
	HistoryWindow = 3 * time.Second

	// FailureThreshold is the number of synthesis failures within
	// FailureWindow that triggers quality degradation.
	FailureThreshold = 3

	// FailureWindow is the window within which failures are considered a
	// pattern rather than isolated glitches.
	FailureWindow = 10 * time.Second

	// RecoveryDelay is how long the circuit breaker waits before attempting
	// to exit failure mode.
	RecoveryDelay = 5 * time.Second

	// MaxRecoveryAttempts bounds automatic recovery. Exceeding it leaves the
	// breaker degraded until an explicit reset.
	MaxRecoveryAttempts = 3
)

const (
	// EnvelopeAttack is the ramp-up time for the volume envelope. Ramping
	// instead of jumping avoids audible clicks at sound onset.
	EnvelopeAttack = 15 * time.Millisecond

	// EnvelopeSustain is how long the envelope holds its peak.
	EnvelopeSustain = 60 * time.Millisecond

	// EnvelopeRelease is the ramp-down time back to silence.
	EnvelopeRelease = 120 * time.Millisecond

	// CleanupSlack is added to the envelope total before node cleanup runs,
	// so the release ramp always completes before nodes are disconnected.
	CleanupSlack = 50 * time.Millisecond
)

const (
	// MinToneFrequency and MaxToneFrequency bound the positional pitch
	// mapping: normalized x linearly maps into this range.
	MinToneFrequency = 220.0
	MaxToneFrequency = 660.0

	// FacetBaseFrequency is the root pitch for facet tones before the
	// per-facet detune offset is applied.
	FacetBaseFrequency = 330.0

	// ClickFrequency and ReleaseFrequency are the fixed pitches for the
	// discrete one-shot sounds.
	ClickFrequency   = 880.0
	ReleaseFrequency = 440.0

	// MinToneVolume and MaxToneVolume bound the positional volume mapping:
	// normalized y linearly maps into this range.
	MinToneVolume = 0.05
	MaxToneVolume = 0.30

	// FacetDetuneSteps is the modulo base for the deterministic
	// facet-identity to detune mapping (one octave of semitones).
	FacetDetuneSteps = 12

	// CentsPerStep is the detune applied per facet step, in cents.
	CentsPerStep = 100.0
)

// Per-quality throughput fractions applied to the configured base ceiling
// when the circuit breaker demotes the quality level.
const (
	MediumQualityRateFactor = 0.6
	LowQualityRateFactor    = 0.3
)

// Per-quality lowpass cutoffs in Hz. Lower quality trades timbre richness
// for cheaper synthesis.
const (
	HighQualityCutoff   = 8000.0
	MediumQualityCutoff = 4000.0
	LowQualityCutoff    = 2000.0
)

var (
	// ErrRateCeilingOutOfRange indicates an admission ceiling outside
	// [MinRateCeiling, MaxRateCeiling].
	ErrRateCeilingOutOfRange = errors.New("rate ceiling out of range")

	// ErrPoolSizeOutOfRange indicates an idle-pool bound outside
	// [1, MaxIdleNodesCeiling].
	ErrPoolSizeOutOfRange = errors.New("pool size out of range")
)

// ValidateRateCeiling validates an admission ceiling against the allowed range.
// Returns an error with context including the actual and allowed values.
func ValidateRateCeiling(n int) error {
	if n < MinRateCeiling || n > MaxRateCeiling {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrRateCeilingOutOfRange, n, MinRateCeiling, MaxRateCeiling)
	}
	return nil
}

// ValidatePoolSize validates a per-kind idle-list bound.
// Returns an error with context if the bound is non-positive or exceeds the ceiling.
func ValidatePoolSize(n int) error {
	if n < 1 || n > MaxIdleNodesCeiling {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPoolSizeOutOfRange, n, MaxIdleNodesCeiling)
	}
	return nil
}

// ClampUnit clamps a normalized coordinate into [0, 1]. Pointer positions
// from the input layer may briefly leave the unit range during fast drags.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampRateCeiling clamps an admission ceiling into the allowed range.
func ClampRateCeiling(n int) int {
	if n < MinRateCeiling {
		return MinRateCeiling
	}
	if n > MaxRateCeiling {
		return MaxRateCeiling
	}
	return n
}
