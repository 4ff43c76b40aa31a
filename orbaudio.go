package orbaudio

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orbsound/orbaudio/audio"
	"github.com/orbsound/orbaudio/limits"
	"github.com/orbsound/orbaudio/synth"
)

// Config aggregates configuration for the audio subsystem components.
type Config struct {
	// Scheduler configures the admission policy. Nil uses defaults.
	Scheduler *audio.SchedulerConfig

	// Breaker configures the failure-responsive quality governor.
	// Nil uses defaults.
	Breaker *audio.BreakerConfig

	// MaxIdleNodes caps the per-kind idle list in the node pool.
	MaxIdleNodes int

	// MasterVolume scales every synthesized sound (0 = silence, 1 = unity).
	MasterVolume float64
}

// DefaultConfig returns the standard subsystem configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduler:    audio.DefaultSchedulerConfig(),
		Breaker:      audio.DefaultBreakerConfig(),
		MaxIdleNodes: limits.DefaultMaxIdleNodes,
		MasterVolume: 1.0,
	}
}

// AudioStatus is an aggregate diagnostics snapshot across all components.
type AudioStatus struct {
	BackendState     synth.ContextState
	Quality          audio.QualityLevel
	InFailureMode    bool
	ActiveNodes      int
	EventsThisSecond int
	RecentEvents     int
	RateCeiling      int
	Policy           audio.SchedulerPolicy
}

// AudioSubsystem owns one scheduler, one node pool, and one circuit breaker
// over a synthesis backend, and exposes the externally-triggered sound
// operations. Construct it once per session and pass it by reference; there
// is no package-level state.
//
// No trigger operation ever returns an error to the caller. A missed sound
// is acceptable; a crashed session is not.
type AudioSubsystem struct {
	backend   synth.Backend
	pool      *audio.NodePool
	scheduler *audio.SoundScheduler
	breaker   *audio.CircuitBreaker
	config    *Config

	// Injectable cleanup timer for deterministic tests.
	timer func(d time.Duration, fn func()) (cancel func() bool)
}

// New composes the admission pipeline over the given backend. The breaker's
// quality-change callback is wired to the scheduler's rate ceiling here:
// this is the sole channel between the two, established at composition time.
// The config is copied; the caller's struct is never written to.
func New(backend synth.Backend, config *Config) (*AudioSubsystem, error) {
	if backend == nil {
		return nil, audio.ErrNilBackend
	}
	if config == nil {
		config = DefaultConfig()
	} else {
		cfg := *config
		config = &cfg
	}
	if config.Scheduler == nil {
		config.Scheduler = audio.DefaultSchedulerConfig()
	}
	if config.Breaker == nil {
		config.Breaker = audio.DefaultBreakerConfig()
	}
	if config.MasterVolume <= 0 || config.MasterVolume > 1 {
		config.MasterVolume = 1.0
	}

	pool, err := audio.NewNodePool(backend, config.MaxIdleNodes)
	if err != nil {
		return nil, err
	}

	s := &AudioSubsystem{
		backend:   backend,
		pool:      pool,
		scheduler: audio.NewSoundScheduler(config.Scheduler),
		breaker:   audio.NewCircuitBreaker(config.Breaker),
		config:    config,
		timer: func(d time.Duration, fn func()) func() bool {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
	}

	baseCeiling := config.Scheduler.MaxEventsPerSecond
	s.breaker.RegisterCallbacks(audio.BreakerCallbacks{
		OnQualityChange: func(q audio.QualityLevel) {
			s.scheduler.SetRateCeiling(ceilingForQuality(baseCeiling, q))
		},
	})

	logrus.WithFields(logrus.Fields{
		"function":      "New",
		"policy":        config.Scheduler.Policy.String(),
		"base_ceiling":  baseCeiling,
		"max_idle":      config.MaxIdleNodes,
		"master_volume": config.MasterVolume,
	}).Info("Audio subsystem composed")

	return s, nil
}

// ceilingForQuality maps a quality level to an effective admission ceiling.
func ceilingForQuality(base int, q audio.QualityLevel) int {
	switch q {
	case audio.QualityMedium:
		return limits.ClampRateCeiling(int(float64(base) * limits.MediumQualityRateFactor))
	case audio.QualityLow:
		return limits.ClampRateCeiling(int(float64(base) * limits.LowQualityRateFactor))
	default:
		return limits.ClampRateCeiling(base)
	}
}

// cutoffForQuality maps a quality level to the filter cutoff used for new
// sounds. Lower quality trades timbre richness for cheaper synthesis.
func cutoffForQuality(q audio.QualityLevel) float64 {
	switch q {
	case audio.QualityMedium:
		return limits.MediumQualityCutoff
	case audio.QualityLow:
		return limits.LowQualityCutoff
	default:
		return limits.HighQualityCutoff
	}
}

// Initialize resets every component to its startup state: scheduler counters
// cleared and enabled, breaker back to normal high quality. The explicit
// escape hatch from a terminal degraded state.
func (s *AudioSubsystem) Initialize() {
	s.scheduler.Initialize()
	s.breaker.Initialize()
}

// GetAudioStatus returns an aggregate read-only snapshot for diagnostics.
func (s *AudioSubsystem) GetAudioStatus() AudioStatus {
	sched := s.scheduler.GetStatus()
	brk := s.breaker.GetStatus()

	return AudioStatus{
		BackendState:     s.backend.State(),
		Quality:          brk.Quality,
		InFailureMode:    brk.InFailureMode,
		ActiveNodes:      s.pool.ActiveCount(),
		EventsThisSecond: sched.EventsThisSecond,
		RecentEvents:     sched.RecentEvents,
		RateCeiling:      sched.RateCeiling,
		Policy:           sched.Policy,
	}
}

// Scheduler exposes the admission scheduler for diagnostics consumers.
func (s *AudioSubsystem) Scheduler() *audio.SoundScheduler { return s.scheduler }

// Breaker exposes the quality governor for diagnostics consumers.
func (s *AudioSubsystem) Breaker() *audio.CircuitBreaker { return s.breaker }

// Pool exposes the node pool for diagnostics consumers.
func (s *AudioSubsystem) Pool() *audio.NodePool { return s.pool }

// Shutdown disposes the scheduler, cancels breaker timers, and clears the
// pool. The backend is left to its owner.
func (s *AudioSubsystem) Shutdown() {
	s.scheduler.Dispose()
	s.breaker.Dispose()
	s.pool.ReleaseAll()

	logrus.WithFields(logrus.Fields{
		"function": "Shutdown",
	}).Info("Audio subsystem shut down")
}
