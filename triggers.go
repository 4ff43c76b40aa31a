package orbaudio

import (
	"github.com/sirupsen/logrus"

	"github.com/orbsound/orbaudio/audio"
	"github.com/orbsound/orbaudio/limits"
	"github.com/orbsound/orbaudio/synth"
)

// facetWaveforms is the deterministic identity-to-timbre mapping: the same
// facet always sounds the same.
var facetWaveforms = [4]synth.Waveform{
	synth.WaveSine,
	synth.WaveTriangle,
	synth.WaveSquare,
	synth.WaveSawtooth,
}

// toneSpec fully describes one synthesized sound before any backend work.
type toneSpec struct {
	sourceID  int
	category  audio.SoundCategory
	frequency float64
	detune    float64
	volume    float64
	waveform  synth.Waveform
}

// PlayPositionalTone synthesizes continuous pointer feedback. The x
// coordinate maps linearly to pitch, the y coordinate to volume; both are
// normalized and clamped into [0, 1].
func (s *AudioSubsystem) PlayPositionalTone(x, y float64) {
	x = limits.ClampUnit(x)
	y = limits.ClampUnit(y)

	s.trigger(toneSpec{
		sourceID:  audio.SourceNone,
		category:  audio.CategoryPositional,
		frequency: limits.MinToneFrequency + x*(limits.MaxToneFrequency-limits.MinToneFrequency),
		volume:    limits.MinToneVolume + y*(limits.MaxToneVolume-limits.MinToneVolume),
		waveform:  synth.WaveSine,
	})
}

// PlayFacetTone synthesizes feedback for one facet of the surface. The
// facet identity modulo-maps to a detune step and waveform, so a given
// facet always produces the same timbre. The y coordinate maps to volume.
func (s *AudioSubsystem) PlayFacetTone(facetID int, y float64) {
	if facetID < 0 {
		facetID = -facetID
	}
	y = limits.ClampUnit(y)

	s.trigger(toneSpec{
		sourceID:  facetID,
		category:  audio.CategoryFacet,
		frequency: limits.FacetBaseFrequency,
		detune:    float64(facetID%limits.FacetDetuneSteps) * limits.CentsPerStep,
		volume:    limits.MinToneVolume + y*(limits.MaxToneVolume-limits.MinToneVolume),
		waveform:  facetWaveforms[facetID%len(facetWaveforms)],
	})
}

// PlayClickTone synthesizes the discrete press one-shot.
func (s *AudioSubsystem) PlayClickTone() {
	s.trigger(toneSpec{
		sourceID:  audio.SourceNone,
		category:  audio.CategoryClick,
		frequency: limits.ClickFrequency,
		volume:    limits.MaxToneVolume,
		waveform:  synth.WaveSquare,
	})
}

// PlayReleaseTone synthesizes the discrete release one-shot.
func (s *AudioSubsystem) PlayReleaseTone() {
	s.trigger(toneSpec{
		sourceID:  audio.SourceNone,
		category:  audio.CategoryRelease,
		frequency: limits.ReleaseFrequency,
		volume:    limits.MaxToneVolume * 0.7,
		waveform:  synth.WaveSine,
	})
}

// trigger runs the full admission pipeline for one sound: precondition,
// admission, acquisition, synthesis, scheduled cleanup, outcome reporting.
// It never propagates a failure to the caller; synthesis faults are
// suppressed after being reported to the circuit breaker.
func (s *AudioSubsystem) trigger(spec toneSpec) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "trigger",
				"category": spec.category.String(),
				"panic":    r,
			}).Warn("Synthesis panicked, reporting failure")
			s.breaker.RecordFailure()
		}
	}()

	if s.backend.State() != synth.StateRunning {
		logrus.WithFields(logrus.Fields{
			"function": "trigger",
			"state":    s.backend.State().String(),
		}).Debug("Backend not running, skipping sound")
		return
	}

	if !s.scheduler.ShouldAllowSound(spec.sourceID, spec.category) {
		return
	}

	gain, filter, ok := s.acquireShaping(spec)
	if !ok {
		return
	}

	osc, err := s.pool.Acquire(synth.KindOscillator)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "trigger",
			"category": spec.category.String(),
			"error":    err,
		}).Warn("Oscillator construction failed, aborting sound")
		s.pool.Release(filter)
		s.pool.Release(gain)
		s.breaker.RecordFailure()
		return
	}

	if err := s.synthesize(spec, osc, filter, gain); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "trigger",
			"category": spec.category.String(),
			"error":    err,
		}).Warn("Synthesis failed, aborting sound")
		s.pool.Release(osc)
		s.pool.Release(filter)
		s.pool.Release(gain)
		s.breaker.RecordFailure()
		return
	}

	s.scheduleCleanup(osc, filter, gain)
	s.scheduler.RecordSoundPlayed(spec.sourceID)
}

// acquireShaping leases the poolable units. If any required unit cannot be
// acquired the sound is abandoned whole: no partial synthesis.
func (s *AudioSubsystem) acquireShaping(spec toneSpec) (gain, filter synth.Node, ok bool) {
	gain, err := s.pool.Acquire(synth.KindGain)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "acquireShaping",
			"category": spec.category.String(),
			"error":    err,
		}).Warn("Gain acquisition failed, aborting sound")
		s.breaker.RecordFailure()
		return nil, nil, false
	}

	filter, err = s.pool.Acquire(synth.KindFilter)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "acquireShaping",
			"category": spec.category.String(),
			"error":    err,
		}).Warn("Filter acquisition failed, aborting sound")
		s.pool.Release(gain)
		s.breaker.RecordFailure()
		return nil, nil, false
	}

	return gain, filter, true
}

// synthesize configures the chain deterministically from the spec and
// starts the source with a ramped volume envelope. All parameter changes
// are scheduled relative to the audio clock; the gain never jumps.
func (s *AudioSubsystem) synthesize(spec toneSpec, osc, filter, gain synth.Node) error {
	if err := osc.SetParam(synth.ParamFrequency, spec.frequency); err != nil {
		return err
	}
	if err := osc.SetParam(synth.ParamDetune, spec.detune); err != nil {
		return err
	}
	if wn, isWaveform := osc.(synth.WaveformNode); isWaveform {
		if err := wn.SetWaveform(spec.waveform); err != nil {
			return err
		}
	}
	if err := filter.SetParam(synth.ParamCutoff, cutoffForQuality(s.breaker.GetQualityLevel())); err != nil {
		return err
	}

	if err := osc.Connect(filter); err != nil {
		return err
	}
	if err := filter.Connect(gain); err != nil {
		return err
	}
	if err := gain.Connect(s.backend.Destination()); err != nil {
		return err
	}

	now := s.backend.CurrentTime()
	attackEnd := now + limits.EnvelopeAttack.Seconds()
	sustainEnd := attackEnd + limits.EnvelopeSustain.Seconds()
	releaseEnd := sustainEnd + limits.EnvelopeRelease.Seconds()
	peak := spec.volume * s.config.MasterVolume

	if err := gain.ScheduleParam(synth.ParamGain, 0, now); err != nil {
		return err
	}
	if err := gain.RampParam(synth.ParamGain, peak, attackEnd); err != nil {
		return err
	}
	if err := gain.ScheduleParam(synth.ParamGain, peak, sustainEnd); err != nil {
		return err
	}
	if err := gain.RampParam(synth.ParamGain, 0.0001, releaseEnd); err != nil {
		return err
	}

	if err := osc.Start(now); err != nil {
		return err
	}
	if err := osc.Stop(releaseEnd); err != nil {
		return err
	}

	return nil
}

// scheduleCleanup arms a fire-and-forget timer that disconnects the chain
// and returns the shaping units to the pool once the envelope has finished.
// Cleanup faults are logged but never reported to the circuit breaker:
// cleanup issues must not cascade into quality degradation.
func (s *AudioSubsystem) scheduleCleanup(osc, filter, gain synth.Node) {
	delay := limits.EnvelopeAttack + limits.EnvelopeSustain + limits.EnvelopeRelease + limits.CleanupSlack

	s.timer(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"function": "scheduleCleanup",
					"panic":    r,
				}).Warn("Cleanup panicked")
			}
		}()

		if err := osc.Disconnect(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "scheduleCleanup",
				"error":    err,
			}).Debug("Oscillator disconnect failed")
		}
		if err := filter.Disconnect(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "scheduleCleanup",
				"error":    err,
			}).Debug("Filter disconnect failed")
		}
		if err := gain.Disconnect(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "scheduleCleanup",
				"error":    err,
			}).Debug("Gain disconnect failed")
		}

		s.pool.Release(osc)
		s.pool.Release(filter)
		s.pool.Release(gain)
	})
}
