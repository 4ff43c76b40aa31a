package synth

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		name     string
		kind     NodeKind
		expected string
	}{
		{"oscillator kind", KindOscillator, "oscillator"},
		{"gain kind", KindGain, "gain"},
		{"filter kind", KindFilter, "filter"},
		{"destination kind", KindDestination, "destination"},
		{"unknown kind", NodeKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestNodeKindSingleUse(t *testing.T) {
	assert.True(t, KindOscillator.SingleUse())
	assert.False(t, KindGain.SingleUse())
	assert.False(t, KindFilter.SingleUse())
	assert.False(t, KindDestination.SingleUse())
}

func TestOfflineBackendLifecycle(t *testing.T) {
	b := NewOfflineBackend(44100)
	assert.Equal(t, StateRunning, b.State())
	assert.Equal(t, 0.0, b.CurrentTime())

	b.Suspend()
	assert.Equal(t, StateSuspended, b.State())
	b.Resume()
	assert.Equal(t, StateRunning, b.State())

	require.NoError(t, b.Close())
	assert.Equal(t, StateClosed, b.State())

	// Closed backends reject node construction and rendering.
	_, err := b.CreateNode(KindGain)
	assert.True(t, errors.Is(err, ErrBackendClosed))
	_, err = b.Render(0.1)
	assert.True(t, errors.Is(err, ErrBackendClosed))

	// Close is idempotent.
	assert.NoError(t, b.Close())
}

func TestOfflineBackendDefaultSampleRate(t *testing.T) {
	b := NewOfflineBackend(0)
	assert.Equal(t, DefaultSampleRate, b.SampleRate())
}

func TestCreateNodeUnknownKind(t *testing.T) {
	b := NewOfflineBackend(44100)
	_, err := b.CreateNode(KindDestination)
	assert.True(t, errors.Is(err, ErrUnknownNodeKind))
	_, err = b.CreateNode(NodeKind(42))
	assert.True(t, errors.Is(err, ErrUnknownNodeKind))
}

func TestNodeParamValidation(t *testing.T) {
	b := NewOfflineBackend(44100)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)
	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)

	assert.NoError(t, osc.SetParam(ParamFrequency, 330))
	assert.NoError(t, osc.SetParam(ParamDetune, 100))
	assert.True(t, errors.Is(osc.SetParam(ParamGain, 1), ErrUnknownParam))

	assert.NoError(t, gain.SetParam(ParamGain, 0.5))
	assert.True(t, errors.Is(gain.SetParam(ParamCutoff, 100), ErrUnknownParam))
	assert.True(t, errors.Is(gain.ScheduleParam(ParamFrequency, 1, 0), ErrUnknownParam))
}

func TestSourceSingleUse(t *testing.T) {
	b := NewOfflineBackend(44100)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)

	// Stop before start is rejected.
	assert.True(t, errors.Is(osc.Stop(0), ErrNotStarted))

	require.NoError(t, osc.Start(0))
	assert.True(t, errors.Is(osc.Start(0.5), ErrSourceSpent))

	require.NoError(t, osc.Stop(0.2))
	assert.True(t, errors.Is(osc.Stop(0.3), ErrSourceSpent))

	// A used oscillator cannot be reset for reuse.
	assert.True(t, errors.Is(osc.Reset(), ErrSourceSpent))

	// Non-sources reject start/stop outright.
	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)
	assert.True(t, errors.Is(gain.Start(0), ErrNotSource))
	assert.True(t, errors.Is(gain.Stop(0), ErrNotSource))
}

func TestNodeConnectValidation(t *testing.T) {
	b := NewOfflineBackend(44100)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)

	assert.True(t, errors.Is(osc.Connect(nil), ErrNilNode))
	assert.True(t, errors.Is(osc.Connect(osc), ErrSelfConnection))
	assert.NoError(t, osc.Connect(b.Destination()))
	assert.NoError(t, osc.Disconnect())
}

func TestGainReset(t *testing.T) {
	b := NewOfflineBackend(44100)

	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)
	require.NoError(t, gain.SetParam(ParamGain, 0.2))
	require.NoError(t, gain.ScheduleParam(ParamGain, 0.9, 1))
	require.NoError(t, gain.Connect(b.Destination()))

	require.NoError(t, gain.Reset())

	gn := gain.(*graphNode)
	assert.Equal(t, defaultGain, gn.params[ParamGain])
	assert.Empty(t, gn.autos[ParamGain])
	assert.Nil(t, gn.dst)
}

func TestRenderSilenceWithoutSources(t *testing.T) {
	b := NewOfflineBackend(8000)

	out, err := b.Render(0.5)
	require.NoError(t, err)
	assert.Len(t, out, 4000)
	for _, s := range out {
		assert.Zero(t, s)
	}
	assert.InDelta(t, 0.5, b.CurrentTime(), 1e-9)
}

// buildTone wires oscillator → gain → destination with a ramped envelope.
func buildTone(t *testing.T, b *OfflineBackend, freq float64) (Node, Node) {
	t.Helper()

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)
	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)

	require.NoError(t, osc.SetParam(ParamFrequency, freq))
	require.NoError(t, osc.Connect(gain))
	require.NoError(t, gain.Connect(b.Destination()))

	now := b.CurrentTime()
	require.NoError(t, gain.ScheduleParam(ParamGain, 0, now))
	require.NoError(t, gain.RampParam(ParamGain, 0.5, now+0.05))
	require.NoError(t, gain.RampParam(ParamGain, 0.0001, now+0.2))

	require.NoError(t, osc.Start(now))
	require.NoError(t, osc.Stop(now+0.2))
	return osc, gain
}

func TestRenderEnvelopeAvoidsOnsetClick(t *testing.T) {
	b := NewOfflineBackend(44100)
	buildTone(t, b, 440)

	out, err := b.Render(0.25)
	require.NoError(t, err)

	// The attack ramp keeps the onset quiet: no instantaneous jump.
	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, math.Abs(float64(out[i])), 0.02, "sample %d", i)
	}

	// The tone is audible at the envelope peak.
	peak := 0.0
	for _, s := range out {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	assert.Greater(t, peak, 0.2)

	// Output is silent after the source stops.
	tail := out[len(out)-100:]
	for _, s := range tail {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.01)
	}
}

func TestRenderConcurrentWithAutomation(t *testing.T) {
	// The live backend's stream callback renders while other goroutines
	// adjust parameters and recycle shaping nodes. This must be safe under
	// the race detector.
	b := NewOfflineBackend(8000)
	osc, gain := buildTone(t, b, 330)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		v := 0.1
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = gain.SetParam(ParamGain, v)
			_ = gain.RampParam(ParamGain, v/2, b.CurrentTime()+0.01)
			_ = osc.SetParam(ParamFrequency, 300+100*v)
			v += 0.01
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := b.Render(0.01)
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
}

func TestRenderConcurrentWithReset(t *testing.T) {
	// Recycling resets a shaping node while the render loop may be reading
	// it: the cleanup-timer path in a live session.
	b := NewOfflineBackend(8000)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			gain, err := b.CreateNode(KindGain)
			if err != nil {
				return
			}
			osc, err := b.CreateNode(KindOscillator)
			if err != nil {
				return
			}
			now := b.CurrentTime()
			_ = osc.Connect(gain)
			_ = gain.Connect(b.Destination())
			_ = gain.SetParam(ParamGain, 0.2)
			_ = osc.Start(now)
			_ = osc.Stop(now + 0.02)
			_ = gain.Disconnect()
			_ = gain.Reset()
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := b.Render(0.01)
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
}

func TestRenderPrunesSpentSources(t *testing.T) {
	// Each sound uses a fresh single-use oscillator; finished ones must not
	// accumulate in the engine for the life of the session.
	b := NewOfflineBackend(8000)

	for i := 0; i < 20; i++ {
		osc, err := b.CreateNode(KindOscillator)
		require.NoError(t, err)
		now := b.CurrentTime()
		require.NoError(t, osc.Connect(b.Destination()))
		require.NoError(t, osc.Start(now))
		require.NoError(t, osc.Stop(now+0.01))

		_, err = b.Render(0.05)
		require.NoError(t, err)
	}

	// One extra pass after the last stop time sweeps the final source.
	_, err := b.Render(0.05)
	require.NoError(t, err)

	b.eng.mu.Lock()
	remaining := len(b.eng.sources)
	b.eng.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestRenderWiringLoopProducesSilence(t *testing.T) {
	// A chain that loops back into its own source never reaches the
	// destination; it must be skipped, not deadlock the render loop.
	b := NewOfflineBackend(8000)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)
	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)

	require.NoError(t, osc.Connect(gain))
	require.NoError(t, gain.Connect(osc))
	require.NoError(t, osc.Start(0))

	out, err := b.Render(0.05)
	require.NoError(t, err)
	for _, s := range out {
		assert.Zero(t, s)
	}
}

func TestRenderDisconnectedChainIsSilent(t *testing.T) {
	b := NewOfflineBackend(8000)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)
	require.NoError(t, osc.Start(0))

	// A source that never reaches the destination contributes nothing.
	out, err := b.Render(0.1)
	require.NoError(t, err)
	for _, s := range out {
		assert.Zero(t, s)
	}
}

func TestWaveformSelection(t *testing.T) {
	b := NewOfflineBackend(44100)

	osc, err := b.CreateNode(KindOscillator)
	require.NoError(t, err)

	wn, ok := osc.(WaveformNode)
	require.True(t, ok, "offline oscillators support waveform selection")
	assert.NoError(t, wn.SetWaveform(WaveSquare))
	assert.True(t, errors.Is(wn.SetWaveform(Waveform(42)), ErrUnknownParam))

	gain, err := b.CreateNode(KindGain)
	require.NoError(t, err)
	gn := gain.(*graphNode)
	assert.Error(t, gn.SetWaveform(WaveSine))
}

func TestOscSampleShapes(t *testing.T) {
	// Spot checks at quarter-phase points.
	assert.InDelta(t, 0, oscSample(WaveSine, 0), 1e-9)
	assert.InDelta(t, 1, oscSample(WaveSine, 0.25), 1e-9)
	assert.Equal(t, 1.0, oscSample(WaveSquare, 0.25))
	assert.Equal(t, -1.0, oscSample(WaveSquare, 0.75))
	assert.InDelta(t, -1, oscSample(WaveSawtooth, 0), 1e-9)
	assert.InDelta(t, 0, oscSample(WaveSawtooth, 0.5), 1e-9)
	assert.InDelta(t, 0, oscSample(WaveTriangle, 0.25), 1e-9)
	assert.InDelta(t, -1, oscSample(WaveTriangle, 0.5), 1e-9)
}

func TestWriteWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 2, -2}

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, samples, 44100))

	// RIFF header plus 16-bit mono frames.
	data := buf.Bytes()
	require.Greater(t, len(data), 44)
	assert.Equal(t, []byte("RIFF"), data[:4])
	assert.Equal(t, []byte("WAVE"), data[8:12])

	assert.Error(t, WriteWAV(&buf, samples, 0))
}
