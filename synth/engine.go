package synth

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Neutral parameter defaults restored by Reset.
const (
	defaultFrequency = 440.0
	defaultDetune    = 0.0
	defaultGain      = 1.0
	defaultCutoff    = 20000.0
)

// maxChainHops bounds the graph walk from a source toward the destination,
// so a wiring cycle cannot hang the render loop.
const maxChainHops = 8

// engine is the software synthesis graph shared by the offline and
// PortAudio backends. It evaluates oscillator chains sample by sample,
// applying scheduled gain automation and lowpass filtering.
//
// Only sources are tracked; shaping nodes are reached through chain
// pointers during rendering and need no registry. Spent sources are pruned
// on the next render pass, so the registry stays bounded by the number of
// sounds currently audible.
type engine struct {
	mu         sync.Mutex
	sampleRate float64
	clock      float64
	sources    []*graphNode
	dest       *graphNode
	closed     bool
}

func newEngine(sampleRate float64) *engine {
	e := &engine{sampleRate: sampleRate}
	e.dest = &graphNode{eng: e, kind: KindDestination, params: map[string]float64{}}
	return e
}

// autoEvent is one scheduled automation point for a parameter.
type autoEvent struct {
	at    float64
	value float64
	ramp  bool
}

// graphNode implements Node for the software engine.
type graphNode struct {
	eng  *engine
	kind NodeKind

	mu     sync.Mutex
	params map[string]float64
	autos  map[string][]autoEvent
	dst    *graphNode

	waveform Waveform

	// Source lifecycle. Started and stopped are one-way transitions.
	started bool
	stopped bool
	startAt float64
	stopAt  float64

	// Render state.
	phase     float64
	filtState float64
}

// paramsForKind returns the parameter set a node kind exposes.
func paramsForKind(kind NodeKind) map[string]float64 {
	switch kind {
	case KindOscillator:
		return map[string]float64{ParamFrequency: defaultFrequency, ParamDetune: defaultDetune}
	case KindGain:
		return map[string]float64{ParamGain: defaultGain}
	case KindFilter:
		return map[string]float64{ParamCutoff: defaultCutoff}
	default:
		return map[string]float64{}
	}
}

func (e *engine) createNode(kind NodeKind) (Node, error) {
	switch kind {
	case KindOscillator, KindGain, KindFilter:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownNodeKind, kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrBackendClosed
	}

	n := &graphNode{
		eng:    e,
		kind:   kind,
		params: paramsForKind(kind),
		autos:  map[string][]autoEvent{},
	}
	if kind == KindOscillator {
		e.sources = append(e.sources, n)
	}
	return n, nil
}

func (e *engine) currentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

func (e *engine) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.sources = nil
}

// Kind returns the synthesis role tag of the node.
func (n *graphNode) Kind() NodeKind {
	return n.kind
}

// Connect routes this node's output into dst.
func (n *graphNode) Connect(dst Node) error {
	if dst == nil {
		return ErrNilNode
	}
	gn, ok := dst.(*graphNode)
	if !ok {
		return fmt.Errorf("%w: foreign node implementation", ErrNilNode)
	}
	if gn == n {
		return ErrSelfConnection
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.dst = gn
	return nil
}

// Disconnect removes this node's output routing.
func (n *graphNode) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dst = nil
	return nil
}

func (n *graphNode) checkParam(name string) error {
	if _, ok := n.params[name]; !ok {
		return fmt.Errorf("%w: %q on %v node", ErrUnknownParam, name, n.kind)
	}
	return nil
}

// SetParam sets a parameter's base value immediately.
func (n *graphNode) SetParam(name string, value float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkParam(name); err != nil {
		return err
	}
	n.params[name] = value
	return nil
}

// ScheduleParam sets a parameter to value at the given audio-clock time.
func (n *graphNode) ScheduleParam(name string, value float64, at float64) error {
	return n.addAuto(name, autoEvent{at: at, value: value})
}

// RampParam linearly ramps a parameter to target, arriving at the given time.
func (n *graphNode) RampParam(name string, target float64, at float64) error {
	return n.addAuto(name, autoEvent{at: at, value: target, ramp: true})
}

func (n *graphNode) addAuto(name string, ev autoEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkParam(name); err != nil {
		return err
	}
	events := append(n.autos[name], ev)
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })
	n.autos[name] = events
	return nil
}

// Start begins signal generation. Oscillators are single-use: a second
// Start is rejected even before the first Stop.
func (n *graphNode) Start(at float64) error {
	if n.kind != KindOscillator {
		return fmt.Errorf("%w: %v", ErrNotSource, n.kind)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ErrSourceSpent
	}
	n.started = true
	n.startAt = at
	return nil
}

// Stop ends signal generation. A stopped source is spent.
func (n *graphNode) Stop(at float64) error {
	if n.kind != KindOscillator {
		return fmt.Errorf("%w: %v", ErrNotSource, n.kind)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return ErrNotStarted
	}
	if n.stopped {
		return ErrSourceSpent
	}
	n.stopped = true
	n.stopAt = at
	return nil
}

// Reset restores neutral defaults and clears automation, preparing the node
// for recycling. A used oscillator cannot be reset; it is spent.
func (n *graphNode) Reset() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.kind == KindOscillator && n.started {
		return ErrSourceSpent
	}
	n.params = paramsForKind(n.kind)
	n.autos = map[string][]autoEvent{}
	n.dst = nil
	n.filtState = 0
	n.waveform = WaveSine
	return nil
}

// SetWaveform selects the oscillator timbre.
func (n *graphNode) SetWaveform(w Waveform) error {
	if n.kind != KindOscillator {
		return fmt.Errorf("%w: %v", ErrNotSource, n.kind)
	}
	switch w {
	case WaveSine, WaveSquare, WaveSawtooth, WaveTriangle:
	default:
		return fmt.Errorf("%w: waveform %d", ErrUnknownParam, int(w))
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waveform = w
	return nil
}

// valueAt evaluates a parameter's automation at audio-clock time t.
// Scheduled set events take the value immediately at their time; ramp events
// interpolate linearly from the previous event (or the base value).
// Caller holds n.mu.
func (n *graphNode) valueAt(name string, t float64) float64 {
	base := n.params[name]
	events := n.autos[name]
	if len(events) == 0 {
		return base
	}

	prevValue := base
	prevAt := 0.0
	for _, ev := range events {
		if t < ev.at {
			if ev.ramp {
				span := ev.at - prevAt
				if span <= 0 {
					return ev.value
				}
				frac := (t - prevAt) / span
				if frac < 0 {
					frac = 0
				}
				return prevValue + (ev.value-prevValue)*frac
			}
			return prevValue
		}
		prevValue = ev.value
		prevAt = ev.at
	}
	return prevValue
}

// oscSample produces one waveform sample for phase in [0, 1).
func oscSample(w Waveform, phase float64) float64 {
	switch w {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*phase - 1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// renderFrames synthesizes len(out) mono samples, advancing the clock.
// Only chains that terminate at the destination node contribute output.
// Sources whose stop time has passed are dropped from the registry here.
func (e *engine) renderFrames(out []float32) {
	e.mu.Lock()
	clock := e.clock
	e.clock += float64(len(out)) / e.sampleRate
	dest := e.dest

	kept := e.sources[:0]
	for _, n := range e.sources {
		n.mu.Lock()
		spent := n.stopped && clock >= n.stopAt
		n.mu.Unlock()
		if spent {
			continue
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(e.sources); i++ {
		e.sources[i] = nil
	}
	e.sources = kept
	sources := make([]*graphNode, len(kept))
	copy(sources, kept)
	e.mu.Unlock()

	for i := range out {
		out[i] = 0
	}

	for _, src := range sources {
		src.mu.Lock()
		if !src.started {
			src.mu.Unlock()
			continue
		}
		e.renderSource(src, dest, clock, out)
		src.mu.Unlock()
	}

	for i := range out {
		if out[i] > 1 {
			out[i] = 1
		} else if out[i] < -1 {
			out[i] = -1
		}
	}
}

// renderSource mixes one oscillator chain into out. Caller holds src.mu.
// Each shaping stage's lock is held for the whole block, so automation and
// reset writes from other goroutines cannot interleave with the sample loop.
// A terminated chain visits no node twice, so the locks nest without cycles.
func (e *engine) renderSource(src *graphNode, dest *graphNode, clock float64, out []float32) {
	chain, terminated := collectChain(src, dest)
	if !terminated {
		return
	}

	for _, stage := range chain {
		stage.mu.Lock()
	}
	defer func() {
		for _, stage := range chain {
			stage.mu.Unlock()
		}
	}()

	dt := 1.0 / e.sampleRate
	for i := range out {
		t := clock + float64(i)*dt
		if t < src.startAt || (src.stopped && t >= src.stopAt) {
			continue
		}

		freq := src.valueAt(ParamFrequency, t)
		if cents := src.valueAt(ParamDetune, t); cents != 0 {
			freq *= math.Pow(2, cents/1200)
		}
		src.phase += freq * dt
		src.phase -= math.Floor(src.phase)

		sample := oscSample(src.waveform, src.phase)
		for _, stage := range chain {
			sample = stage.process(sample, t, e.sampleRate)
		}
		out[i] += float32(sample)
	}
}

// collectChain walks src's downstream wiring toward dest. Returns the
// intermediate shaping stages and whether the chain reaches the destination.
// Caller holds src.mu, so a wiring loop back into src must bail out before
// touching src's lock again.
func collectChain(src *graphNode, dest *graphNode) ([]*graphNode, bool) {
	chain := make([]*graphNode, 0, 4)
	node := src.dst
	for hops := 0; node != nil && node != src && hops < maxChainHops; hops++ {
		if node == dest {
			return chain, true
		}
		chain = append(chain, node)
		node.mu.Lock()
		next := node.dst
		node.mu.Unlock()
		node = next
	}
	if node != nil {
		logrus.WithFields(logrus.Fields{
			"function": "collectChain",
			"source":   src.kind.String(),
			"hops":     maxChainHops,
		}).Warn("Synthesis chain exceeded hop limit, possible wiring cycle")
	}
	return nil, false
}

// process applies one shaping stage to a sample at audio-clock time t.
// Caller holds n.mu.
func (n *graphNode) process(sample, t, sampleRate float64) float64 {
	switch n.kind {
	case KindGain:
		return sample * n.valueAt(ParamGain, t)
	case KindFilter:
		// One-pole lowpass. Cheap and click-free under parameter changes.
		cutoff := n.valueAt(ParamCutoff, t)
		alpha := 1 - math.Exp(-2*math.Pi*cutoff/sampleRate)
		n.filtState += alpha * (sample - n.filtState)
		return n.filtState
	default:
		return sample
	}
}
