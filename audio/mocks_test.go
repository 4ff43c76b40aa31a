package audio

import (
	"errors"
	"time"

	"github.com/orbsound/orbaudio/synth"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

// fakeNode is a controllable synth.Node for pool tests.
type fakeNode struct {
	kind     synth.NodeKind
	resetErr error
	resets   int
}

func (n *fakeNode) Kind() synth.NodeKind { return n.kind }

func (n *fakeNode) Connect(dst synth.Node) error { return nil }

func (n *fakeNode) Disconnect() error { return nil }

func (n *fakeNode) SetParam(name string, value float64) error { return nil }

func (n *fakeNode) ScheduleParam(name string, v, at float64) error { return nil }

func (n *fakeNode) RampParam(name string, v, at float64) error { return nil }

func (n *fakeNode) Start(at float64) error { return nil }

func (n *fakeNode) Stop(at float64) error { return nil }

func (n *fakeNode) Reset() error {
	n.resets++
	return n.resetErr
}

// fakeBackend is a controllable synth.Backend for pool tests.
type fakeBackend struct {
	state     synth.ContextState
	createErr error
	created   []*fakeNode
	resetErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{state: synth.StateRunning}
}

func (b *fakeBackend) CurrentTime() float64 { return 0 }

func (b *fakeBackend) State() synth.ContextState { return b.state }

func (b *fakeBackend) Destination() synth.Node { return &fakeNode{kind: synth.KindDestination} }

func (b *fakeBackend) Close() error { b.state = synth.StateClosed; return nil }

func (b *fakeBackend) CreateNode(kind synth.NodeKind) (synth.Node, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	n := &fakeNode{kind: kind, resetErr: b.resetErr}
	b.created = append(b.created, n)
	return n, nil
}

var errReset = errors.New("reset failed")
