package audio

import "time"

// QualityLevel is a discrete degradation tier controlling downstream
// throughput and synthesis richness when the system is under stress.
type QualityLevel int

const (
	// QualityHigh is full fidelity, the initial level.
	QualityHigh QualityLevel = iota
	// QualityMedium is one degradation step down.
	QualityMedium
	// QualityLow is the floor; further demotion stays here.
	QualityLow
)

// String returns a human-readable quality level description.
func (q QualityLevel) String() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityMedium:
		return "medium"
	case QualityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Demote returns the next lower quality level. Demotion is always exactly
// one step; QualityLow demotes to itself.
func (q QualityLevel) Demote() QualityLevel {
	switch q {
	case QualityHigh:
		return QualityMedium
	default:
		return QualityLow
	}
}

// SoundCategory tags a trigger event with the gesture class it belongs to.
// The adaptive admission policy treats continuous-gesture categories more
// permissively than discrete one-shots.
type SoundCategory int

const (
	// CategoryPositional is continuous pointer-position feedback.
	CategoryPositional SoundCategory = iota
	// CategoryFacet is per-facet feedback while sweeping across the surface.
	CategoryFacet
	// CategoryClick is a discrete press one-shot.
	CategoryClick
	// CategoryRelease is a discrete release one-shot.
	CategoryRelease
)

// String returns a human-readable category description.
func (c SoundCategory) String() string {
	switch c {
	case CategoryPositional:
		return "positional"
	case CategoryFacet:
		return "facet"
	case CategoryClick:
		return "click"
	case CategoryRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Continuous reports whether the category belongs to a continuous gesture
// (drag, hover sweep) rather than a discrete one-shot.
func (c SoundCategory) Continuous() bool {
	return c == CategoryPositional || c == CategoryFacet
}

// SourceNone marks a trigger with no source identity. Source-aware
// admission checks are skipped for such events.
const SourceNone = -1

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// timerFunc schedules fn after d and returns a cancel function. Tests
// replace it to fire delayed callbacks deterministically.
type timerFunc func(d time.Duration, fn func()) (cancel func() bool)

// defaultTimer schedules through time.AfterFunc.
func defaultTimer(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
