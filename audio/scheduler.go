package audio

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orbsound/orbaudio/limits"
)

// SchedulerPolicy selects the admission decision rule.
type SchedulerPolicy int

const (
	// PolicyStrict is the baseline hard ceiling: at most the configured
	// number of events per rolling one-second window, regardless of
	// category or source.
	PolicyStrict SchedulerPolicy = iota

	// PolicyAdaptive is category- and source-aware: continuous-gesture
	// categories get a shorter per-source cooldown and a relaxed global
	// ceiling, discrete one-shots get the base ceiling. This keeps drag
	// feedback smooth without machine-gun retriggering of one source.
	PolicyAdaptive

	// PolicyContinuous admits every sound while the scheduler is enabled.
	// Retained as an explicit compatibility mode only; selecting it makes
	// the rate ceiling inert.
	PolicyContinuous
)

// String returns a human-readable policy description.
func (p SchedulerPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyAdaptive:
		return "adaptive"
	case PolicyContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// SchedulerConfig defines admission policy parameters.
type SchedulerConfig struct {
	// MaxEventsPerSecond is the base admission ceiling.
	MaxEventsPerSecond int

	// Policy selects the admission decision rule.
	Policy SchedulerPolicy

	// ContinuousSourceCooldown is the minimum re-trigger interval for one
	// source identity in a continuous-gesture category.
	ContinuousSourceCooldown time.Duration

	// DiscreteSourceCooldown is the minimum re-trigger interval for one
	// source identity in a discrete category.
	DiscreteSourceCooldown time.Duration

	// ContinuousCeilingFactor relaxes the global ceiling for continuous
	// categories under the adaptive policy.
	ContinuousCeilingFactor int
}

// DefaultSchedulerConfig returns configuration with the adaptive policy and
// cooldowns tuned for smooth drag feedback.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		MaxEventsPerSecond:       limits.DefaultMaxEventsPerSecond,
		Policy:                   PolicyAdaptive,
		ContinuousSourceCooldown: 45 * time.Millisecond,
		DiscreteSourceCooldown:   150 * time.Millisecond,
		ContinuousCeilingFactor:  2,
	}
}

// soundEvent is one admitted event in the rolling history.
type soundEvent struct {
	at       time.Time
	sourceID int
}

// SchedulerStatus is a read-only snapshot of scheduler state for diagnostics.
type SchedulerStatus struct {
	Enabled          bool
	Policy           SchedulerPolicy
	RateCeiling      int
	EventsThisSecond int
	RecentEvents     int
	RecentSources    int
}

// SoundScheduler is the admission-control policy point: it decides, for
// every candidate trigger event, whether synthesis may proceed right now,
// and records admitted events into a bounded rolling history.
//
// The scheduler never returns errors; denial is a normal silent outcome.
type SoundScheduler struct {
	mu     sync.Mutex
	config *SchedulerConfig

	ceiling          int
	eventsThisSecond int
	windowStart      time.Time
	history          []soundEvent
	lastBySource     map[int]time.Time
	enabled          bool

	timeProvider TimeProvider
}

// NewSoundScheduler creates and initializes a scheduler. A nil config uses
// defaults; an out-of-range ceiling is clamped. The config is copied, so the
// caller's struct is never written to.
func NewSoundScheduler(config *SchedulerConfig) *SoundScheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	} else {
		cfg := *config
		config = &cfg
	}
	if err := limits.ValidateRateCeiling(config.MaxEventsPerSecond); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewSoundScheduler",
			"ceiling":  config.MaxEventsPerSecond,
			"error":    err,
		}).Warn("Invalid rate ceiling, clamping")
		config.MaxEventsPerSecond = limits.ClampRateCeiling(config.MaxEventsPerSecond)
	}

	s := &SoundScheduler{
		config:       config,
		timeProvider: DefaultTimeProvider{},
	}
	s.Initialize()

	logrus.WithFields(logrus.Fields{
		"function": "NewSoundScheduler",
		"ceiling":  config.MaxEventsPerSecond,
		"policy":   config.Policy.String(),
	}).Info("Sound scheduler created")

	return s
}

// SetTimeProvider sets the time provider for deterministic testing.
func (s *SoundScheduler) SetTimeProvider(tp TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeProvider = tp
}

// Initialize resets all counters, clears history, and enables admission.
// Idempotent: calling it repeatedly yields the same state as calling it once.
func (s *SoundScheduler) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ceiling = s.config.MaxEventsPerSecond
	s.eventsThisSecond = 0
	s.windowStart = s.timeProvider.Now()
	s.history = s.history[:0]
	s.lastBySource = make(map[int]time.Time)
	s.enabled = true
}

// rotateWindow resets the per-second counter once the rate window elapses.
// Caller holds s.mu.
func (s *SoundScheduler) rotateWindow(now time.Time) {
	if now.Sub(s.windowStart) >= limits.RateWindow {
		s.eventsThisSecond = 0
		s.windowStart = now
	}
}

// ShouldAllowSound is the admission decision point. Denial is not an error;
// it is the normal outcome of the configured policy under load. A disposed
// scheduler denies everything.
func (s *SoundScheduler) ShouldAllowSound(sourceID int, category SoundCategory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return false
	}

	now := s.timeProvider.Now()
	s.rotateWindow(now)

	switch s.config.Policy {
	case PolicyContinuous:
		return true
	case PolicyAdaptive:
		return s.allowAdaptive(now, sourceID, category)
	default:
		return s.eventsThisSecond < s.ceiling
	}
}

// allowAdaptive applies the category- and source-aware rule. Caller holds s.mu.
func (s *SoundScheduler) allowAdaptive(now time.Time, sourceID int, category SoundCategory) bool {
	limit := s.ceiling
	cooldown := s.config.DiscreteSourceCooldown
	if category.Continuous() {
		limit *= s.config.ContinuousCeilingFactor
		cooldown = s.config.ContinuousSourceCooldown
	}

	if s.eventsThisSecond >= limit {
		return false
	}

	if sourceID != SourceNone {
		if last, ok := s.lastBySource[sourceID]; ok && now.Sub(last) < cooldown {
			return false
		}
	}
	return true
}

// RecordSoundPlayed appends the event to the rolling history, prunes entries
// older than the history window, updates the per-source trigger map, and
// counts the event against the current rate window. The return value reports
// whether the scheduler was enabled; false is a no-op signal, not an error.
func (s *SoundScheduler) RecordSoundPlayed(sourceID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return false
	}

	now := s.timeProvider.Now()
	s.rotateWindow(now)

	s.history = append(s.history, soundEvent{at: now, sourceID: sourceID})
	s.pruneHistory(now)

	if sourceID != SourceNone {
		s.lastBySource[sourceID] = now
	}
	s.eventsThisSecond++
	return true
}

// pruneHistory drops events and source entries older than the history
// window. Caller holds s.mu.
func (s *SoundScheduler) pruneHistory(now time.Time) {
	cutoff := now.Add(-limits.HistoryWindow)

	drop := 0
	for drop < len(s.history) && s.history[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		s.history = append(s.history[:0], s.history[drop:]...)
	}

	for id, last := range s.lastBySource {
		if last.Before(cutoff) {
			delete(s.lastBySource, id)
		}
	}
}

// SetRateCeiling adjusts the effective admission ceiling. This is the sole
// channel by which the quality controller influences admission; values are
// clamped into the allowed range.
func (s *SoundScheduler) SetRateCeiling(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clamped := limits.ClampRateCeiling(n)
	if clamped != s.ceiling {
		logrus.WithFields(logrus.Fields{
			"function":    "SetRateCeiling",
			"old_ceiling": s.ceiling,
			"new_ceiling": clamped,
		}).Info("Admission ceiling adjusted")
	}
	s.ceiling = clamped
}

// GetStatus returns a read-only snapshot of all counters. The snapshot
// reflects window expiry without mutating scheduler state.
func (s *SoundScheduler) GetStatus() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeProvider.Now()
	events := s.eventsThisSecond
	if now.Sub(s.windowStart) >= limits.RateWindow {
		events = 0
	}

	cutoff := now.Add(-limits.HistoryWindow)
	recent := 0
	for _, ev := range s.history {
		if !ev.at.Before(cutoff) {
			recent++
		}
	}

	return SchedulerStatus{
		Enabled:          s.enabled,
		Policy:           s.config.Policy,
		RateCeiling:      s.ceiling,
		EventsThisSecond: events,
		RecentEvents:     recent,
		RecentSources:    len(s.lastBySource),
	}
}

// Dispose disables the scheduler and clears all state. After disposal,
// ShouldAllowSound denies everything and RecordSoundPlayed is a no-op.
func (s *SoundScheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = false
	s.eventsThisSecond = 0
	s.history = nil
	s.lastBySource = make(map[int]time.Time)

	logrus.WithFields(logrus.Fields{
		"function": "Dispose",
	}).Info("Sound scheduler disposed")
}
