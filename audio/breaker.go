package audio

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orbsound/orbaudio/limits"
)

// BreakerConfig defines the failure-pattern and recovery parameters.
type BreakerConfig struct {
	// FailureThreshold is how many failures within FailureWindow count as a
	// pattern rather than isolated glitches.
	FailureThreshold int

	// FailureWindow is the span within which failures accumulate. A failure
	// arriving after a longer gap restarts the count.
	FailureWindow time.Duration

	// RecoveryDelay is the wait before a scheduled recovery attempt.
	RecoveryDelay time.Duration

	// MaxRecoveryAttempts bounds automatic recovery per failure-mode entry.
	// Exceeding it leaves the breaker degraded until an explicit reset.
	MaxRecoveryAttempts int
}

// DefaultBreakerConfig returns the standard failure-pattern parameters.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold:    limits.FailureThreshold,
		FailureWindow:       limits.FailureWindow,
		RecoveryDelay:       limits.RecoveryDelay,
		MaxRecoveryAttempts: limits.MaxRecoveryAttempts,
	}
}

// BreakerCallbacks is the optional-capability table a composition registers
// once. Nil fields mean the capability is absent; presence is decided here,
// not probed at every call site.
type BreakerCallbacks struct {
	// OnQualityChange is invoked synchronously at the moment the quality
	// level changes, with the new level. This is the breaker's only
	// outbound notification channel.
	OnQualityChange func(QualityLevel)

	// OnRecoveryProbe, when present, is consulted by a recovery attempt.
	// Returning false keeps the breaker in failure mode and schedules
	// another attempt, bounded by MaxRecoveryAttempts. When absent,
	// recovery attempts succeed unconditionally.
	OnRecoveryProbe func() bool
}

// BreakerStatus is a read-only snapshot of breaker state for diagnostics.
type BreakerStatus struct {
	FailureCount     int
	RecoveryAttempts int
	InFailureMode    bool
	Terminal         bool
	Quality          QualityLevel
	LastFailure      time.Time
}

// CircuitBreaker is the failure-responsive governor: it counts synthesis
// failures and, upon a repeated pattern within a short window, demotes the
// quality level one notch and schedules an automatic recovery attempt.
// Repeated recovery failure leaves it degraded until an explicit reset.
//
// Quality is monotonically non-increasing between resets: recovery exits
// failure mode but never restores fidelity. Restoring fidelity requires an
// explicit Initialize.
type CircuitBreaker struct {
	mu     sync.Mutex
	config *BreakerConfig

	failureCount     int
	recoveryAttempts int
	lastFailure      time.Time
	inFailureMode    bool
	terminal         bool
	quality          QualityLevel

	callbacks BreakerCallbacks

	timeProvider   TimeProvider
	timer          timerFunc
	cancelRecovery func() bool
}

// NewCircuitBreaker creates a breaker in the normal high-quality state.
// A nil config uses defaults.
func NewCircuitBreaker(config *BreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}

	logrus.WithFields(logrus.Fields{
		"function":          "NewCircuitBreaker",
		"failure_threshold": config.FailureThreshold,
		"failure_window":    config.FailureWindow,
		"recovery_delay":    config.RecoveryDelay,
		"max_attempts":      config.MaxRecoveryAttempts,
	}).Info("Circuit breaker created")

	return &CircuitBreaker{
		config:       config,
		quality:      QualityHigh,
		timeProvider: DefaultTimeProvider{},
		timer:        defaultTimer,
	}
}

// SetTimeProvider sets the time provider for deterministic testing.
func (b *CircuitBreaker) SetTimeProvider(tp TimeProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeProvider = tp
}

// RegisterCallbacks merges the non-nil entries of cb into the callback
// table. Capabilities are fixed at composition time.
func (b *CircuitBreaker) RegisterCallbacks(cb BreakerCallbacks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb.OnQualityChange != nil {
		b.callbacks.OnQualityChange = cb.OnQualityChange
	}
	if cb.OnRecoveryProbe != nil {
		b.callbacks.OnRecoveryProbe = cb.OnRecoveryProbe
	}
}

// RecordFailure counts one synthesis failure. Failures separated by more
// than the failure window restart the count. Reaching the threshold while
// not already degraded enters failure mode: quality steps down exactly one
// notch, the quality-change callback fires synchronously, and a recovery
// attempt is scheduled.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()

	now := b.timeProvider.Now()
	if !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.config.FailureWindow {
		b.failureCount = 0
	}
	b.failureCount++
	b.lastFailure = now

	logrus.WithFields(logrus.Fields{
		"function":      "RecordFailure",
		"failure_count": b.failureCount,
		"in_failure":    b.inFailureMode,
	}).Debug("Synthesis failure recorded")

	if b.failureCount < b.config.FailureThreshold || b.inFailureMode {
		b.mu.Unlock()
		return
	}

	b.inFailureMode = true
	b.recoveryAttempts = 0
	oldQuality := b.quality
	b.quality = b.quality.Demote()
	newQuality := b.quality

	b.scheduleRecoveryLocked()

	var notify func(QualityLevel)
	if newQuality != oldQuality {
		notify = b.callbacks.OnQualityChange
	}
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":    "RecordFailure",
		"old_quality": oldQuality.String(),
		"new_quality": newQuality.String(),
	}).Warn("Entering failure mode, quality degraded")

	if notify != nil {
		notify(newQuality)
	}
}

// scheduleRecoveryLocked arms the recovery timer. Caller holds b.mu.
func (b *CircuitBreaker) scheduleRecoveryLocked() {
	if b.cancelRecovery != nil {
		b.cancelRecovery()
	}
	b.cancelRecovery = b.timer(b.config.RecoveryDelay, b.AttemptRecovery)
}

// AttemptRecovery is the scheduled recovery check. It is a no-op outside
// failure mode. Each attempt is counted; exceeding the attempt cap leaves
// the breaker degraded permanently, with no further automatic attempts,
// until Initialize is called. A successful attempt exits failure mode at
// the same, already-lowered quality level.
func (b *CircuitBreaker) AttemptRecovery() {
	b.mu.Lock()

	if !b.inFailureMode {
		b.mu.Unlock()
		return
	}

	b.recoveryAttempts++
	if b.recoveryAttempts > b.config.MaxRecoveryAttempts {
		b.terminal = true
		attempts := b.recoveryAttempts
		b.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "AttemptRecovery",
			"attempts": attempts,
		}).Error("Recovery attempts exhausted, remaining degraded until reset")
		return
	}

	if probe := b.callbacks.OnRecoveryProbe; probe != nil {
		b.mu.Unlock()
		healthy := probe()
		b.mu.Lock()
		if !b.inFailureMode {
			b.mu.Unlock()
			return
		}
		if !healthy {
			b.scheduleRecoveryLocked()
			attempts := b.recoveryAttempts
			b.mu.Unlock()

			logrus.WithFields(logrus.Fields{
				"function": "AttemptRecovery",
				"attempt":  attempts,
			}).Warn("Recovery probe failed, staying in failure mode")
			return
		}
	}

	b.inFailureMode = false
	b.failureCount = 0
	quality := b.quality
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "AttemptRecovery",
		"quality":  quality.String(),
	}).Info("Recovered from failure mode, quality remains lowered")
}

// Initialize force-resets to the normal high-quality state unconditionally.
// Used both at startup and as the explicit escape hatch from the terminal
// degraded sub-state. If the reset raises the quality level, the
// quality-change callback fires.
func (b *CircuitBreaker) Initialize() {
	b.mu.Lock()

	if b.cancelRecovery != nil {
		b.cancelRecovery()
		b.cancelRecovery = nil
	}

	oldQuality := b.quality
	b.failureCount = 0
	b.recoveryAttempts = 0
	b.lastFailure = time.Time{}
	b.inFailureMode = false
	b.terminal = false
	b.quality = QualityHigh

	var notify func(QualityLevel)
	if oldQuality != QualityHigh {
		notify = b.callbacks.OnQualityChange
	}
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Initialize",
	}).Info("Circuit breaker reset to normal high quality")

	if notify != nil {
		notify(QualityHigh)
	}
}

// Dispose cancels any pending recovery timer. State remains queryable.
func (b *CircuitBreaker) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelRecovery != nil {
		b.cancelRecovery()
		b.cancelRecovery = nil
	}
}

// IsInFailureMode reports whether the breaker is currently degraded.
func (b *CircuitBreaker) IsInFailureMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFailureMode
}

// GetQualityLevel returns the current quality level.
func (b *CircuitBreaker) GetQualityLevel() QualityLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quality
}

// GetStatus returns a read-only snapshot of breaker state.
func (b *CircuitBreaker) GetStatus() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStatus{
		FailureCount:     b.failureCount,
		RecoveryAttempts: b.recoveryAttempts,
		InFailureMode:    b.inFailureMode,
		Terminal:         b.terminal,
		Quality:          b.quality,
		LastFailure:      b.lastFailure,
	}
}
