package audio

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/orbsound/orbaudio/limits"
	"github.com/orbsound/orbaudio/synth"
)

// NodePool leases and recycles short-lived signal-shaping nodes, bounded by
// a maximum idle-list size per node kind. Recycling amortizes the cost of
// repeated node construction under high trigger rates while the per-kind cap
// bounds memory.
//
// Oscillators are excluded from pooling: starting one is a one-time
// irreversible transition, so reuse is a programming error the pool must
// never induce. They are always constructed fresh and left for collection.
type NodePool struct {
	mu      sync.Mutex
	backend synth.Backend
	maxIdle int
	idle    map[synth.NodeKind][]synth.Node
	active  map[synth.NodeKind]int
}

// PoolStatus is a read-only snapshot of pool occupancy for diagnostics.
type PoolStatus struct {
	MaxIdlePerKind int
	ActiveByKind   map[synth.NodeKind]int
	IdleByKind     map[synth.NodeKind]int
}

// NewNodePool creates a pool backed by the given synthesis backend.
// A non-positive or out-of-range maxIdlePerKind falls back to the default.
func NewNodePool(backend synth.Backend, maxIdlePerKind int) (*NodePool, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if err := limits.ValidatePoolSize(maxIdlePerKind); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewNodePool",
			"max_idle": maxIdlePerKind,
			"error":    err,
		}).Warn("Invalid pool size, using default")
		maxIdlePerKind = limits.DefaultMaxIdleNodes
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewNodePool",
		"max_idle": maxIdlePerKind,
	}).Info("Creating node pool")

	return &NodePool{
		backend: backend,
		maxIdle: maxIdlePerKind,
		idle:    make(map[synth.NodeKind][]synth.Node),
		active:  make(map[synth.NodeKind]int),
	}, nil
}

// poolable reports whether the pool recycles nodes of this kind.
func poolable(kind synth.NodeKind) bool {
	return kind == synth.KindGain || kind == synth.KindFilter
}

// Acquire returns an idle node of the given kind, constructing a fresh one
// when the idle list is empty. Single-use kinds are always constructed
// fresh. An unrecognized kind falls back to the gain kind with a warning
// rather than failing the trigger.
func (p *NodePool) Acquire(kind synth.NodeKind) (synth.Node, error) {
	if !kind.SingleUse() && !poolable(kind) {
		logrus.WithFields(logrus.Fields{
			"function": "Acquire",
			"kind":     kind.String(),
		}).Warn("Unrecognized node kind, falling back to gain")
		kind = synth.KindGain
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idle := p.idle[kind]; len(idle) > 0 {
		node := idle[len(idle)-1]
		p.idle[kind] = idle[:len(idle)-1]
		p.active[kind]++
		return node, nil
	}

	node, err := p.backend.CreateNode(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrNodeCreateFailed, kind, err)
	}
	p.active[kind]++
	return node, nil
}

// Release returns a node to the pool. The node's kind tag determines the
// path: single-use nodes only decrement their active counter; poolable nodes
// are reset to neutral defaults and stored unless the idle list is full or
// the reset fails, in which case the node is dropped for collection. A node
// in an unknown state must never be pooled.
func (p *NodePool) Release(node synth.Node) {
	if node == nil {
		return
	}
	kind := node.Kind()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active[kind] > 0 {
		p.active[kind]--
	}

	if kind.SingleUse() {
		return
	}

	if len(p.idle[kind]) >= p.maxIdle {
		logrus.WithFields(logrus.Fields{
			"function": "Release",
			"kind":     kind.String(),
			"max_idle": p.maxIdle,
		}).Debug("Idle list full, dropping node")
		return
	}

	if err := node.Reset(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Release",
			"kind":     kind.String(),
			"error":    err,
		}).Warn("Node reset failed, dropping node instead of pooling")
		return
	}

	p.idle[kind] = append(p.idle[kind], node)
}

// ReleaseAll empties every idle list and zeroes every active counter.
// Used only at teardown; no per-node cleanup is attempted.
func (p *NodePool) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.idle = make(map[synth.NodeKind][]synth.Node)
	p.active = make(map[synth.NodeKind]int)

	logrus.WithFields(logrus.Fields{
		"function": "ReleaseAll",
	}).Info("Node pool cleared")
}

// ActiveCount returns the total number of leased nodes across all kinds.
func (p *NodePool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, n := range p.active {
		total += n
	}
	return total
}

// IdleCount returns the idle-list length for one kind.
func (p *NodePool) IdleCount(kind synth.NodeKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[kind])
}

// GetStatus returns a read-only snapshot of pool occupancy.
func (p *NodePool) GetStatus() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := PoolStatus{
		MaxIdlePerKind: p.maxIdle,
		ActiveByKind:   make(map[synth.NodeKind]int, len(p.active)),
		IdleByKind:     make(map[synth.NodeKind]int, len(p.idle)),
	}
	for kind, n := range p.active {
		status.ActiveByKind[kind] = n
	}
	for kind, nodes := range p.idle {
		status.IdleByKind[kind] = len(nodes)
	}
	return status
}
