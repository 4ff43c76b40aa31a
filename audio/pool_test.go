package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbsound/orbaudio/limits"
	"github.com/orbsound/orbaudio/synth"
)

func TestNewNodePool(t *testing.T) {
	t.Run("nil backend rejected", func(t *testing.T) {
		pool, err := NewNodePool(nil, 4)
		assert.Nil(t, pool)
		assert.True(t, errors.Is(err, ErrNilBackend))
	})

	t.Run("invalid size falls back to default", func(t *testing.T) {
		pool, err := NewNodePool(newFakeBackend(), 0)
		require.NoError(t, err)
		assert.Equal(t, limits.DefaultMaxIdleNodes, pool.maxIdle)
	})

	t.Run("valid size kept", func(t *testing.T) {
		pool, err := NewNodePool(newFakeBackend(), 3)
		require.NoError(t, err)
		assert.Equal(t, 3, pool.maxIdle)
	})
}

func TestNodePoolAcquireRelease(t *testing.T) {
	backend := newFakeBackend()
	pool, err := NewNodePool(backend, 4)
	require.NoError(t, err)

	node, err := pool.Acquire(synth.KindGain)
	require.NoError(t, err)
	assert.Equal(t, synth.KindGain, node.Kind())
	assert.Equal(t, 1, pool.ActiveCount())

	pool.Release(node)
	assert.Equal(t, 0, pool.ActiveCount())
	assert.Equal(t, 1, pool.IdleCount(synth.KindGain))

	// Acquiring again reuses the pooled node instead of constructing.
	constructed := len(backend.created)
	again, err := pool.Acquire(synth.KindGain)
	require.NoError(t, err)
	assert.Same(t, node, again)
	assert.Equal(t, constructed, len(backend.created))
}

func TestNodePoolIdleBound(t *testing.T) {
	// maxSize=2: acquire 3, release all 3, one node is dropped.
	pool, err := NewNodePool(newFakeBackend(), 2)
	require.NoError(t, err)

	nodes := make([]synth.Node, 3)
	for i := range nodes {
		nodes[i], err = pool.Acquire(synth.KindFilter)
		require.NoError(t, err)
	}

	for _, n := range nodes {
		pool.Release(n)
	}

	assert.Equal(t, 2, pool.IdleCount(synth.KindFilter))
	assert.Equal(t, 0, pool.ActiveCount())
}

func TestNodePoolIdleBoundUnderChurn(t *testing.T) {
	// The idle list never exceeds its bound for any acquire/release sequence.
	pool, err := NewNodePool(newFakeBackend(), 3)
	require.NoError(t, err)

	held := make([]synth.Node, 0, 8)
	for round := 0; round < 10; round++ {
		for i := 0; i < 8; i++ {
			n, acquireErr := pool.Acquire(synth.KindGain)
			require.NoError(t, acquireErr)
			held = append(held, n)
		}
		for _, n := range held {
			pool.Release(n)
			assert.LessOrEqual(t, pool.IdleCount(synth.KindGain), 3)
		}
		held = held[:0]
	}
}

func TestNodePoolOscillatorNeverPooled(t *testing.T) {
	backend := newFakeBackend()
	pool, err := NewNodePool(backend, 4)
	require.NoError(t, err)

	first, err := pool.Acquire(synth.KindOscillator)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.ActiveCount())

	pool.Release(first)
	assert.Equal(t, 0, pool.ActiveCount())
	assert.Equal(t, 0, pool.IdleCount(synth.KindOscillator))

	// Every oscillator acquisition constructs a fresh instance.
	second, err := pool.Acquire(synth.KindOscillator)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, len(backend.created))
}

func TestNodePoolUnknownKindFallsBack(t *testing.T) {
	pool, err := NewNodePool(newFakeBackend(), 4)
	require.NoError(t, err)

	node, err := pool.Acquire(synth.KindDestination)
	require.NoError(t, err)
	assert.Equal(t, synth.KindGain, node.Kind())
}

func TestNodePoolResetFailureDropsNode(t *testing.T) {
	backend := newFakeBackend()
	backend.resetErr = errReset
	pool, err := NewNodePool(backend, 4)
	require.NoError(t, err)

	node, err := pool.Acquire(synth.KindGain)
	require.NoError(t, err)

	// A node whose reset fails must never be pooled.
	pool.Release(node)
	assert.Equal(t, 0, pool.IdleCount(synth.KindGain))
	assert.Equal(t, 0, pool.ActiveCount())
}

func TestNodePoolCreateFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("backend exhausted")
	pool, err := NewNodePool(backend, 4)
	require.NoError(t, err)

	node, err := pool.Acquire(synth.KindGain)
	assert.Nil(t, node)
	assert.True(t, errors.Is(err, ErrNodeCreateFailed))
	assert.Equal(t, 0, pool.ActiveCount())
}

func TestNodePoolActiveFloor(t *testing.T) {
	pool, err := NewNodePool(newFakeBackend(), 4)
	require.NoError(t, err)

	// Releasing a node that was never acquired must not drive the counter
	// negative.
	pool.Release(&fakeNode{kind: synth.KindGain})
	pool.Release(nil)
	assert.Equal(t, 0, pool.ActiveCount())
}

func TestNodePoolReleaseAll(t *testing.T) {
	pool, err := NewNodePool(newFakeBackend(), 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		n, acquireErr := pool.Acquire(synth.KindGain)
		require.NoError(t, acquireErr)
		if i > 0 {
			pool.Release(n)
		}
	}
	require.NotZero(t, pool.ActiveCount())

	pool.ReleaseAll()
	assert.Equal(t, 0, pool.ActiveCount())
	assert.Equal(t, 0, pool.IdleCount(synth.KindGain))
}

func TestNodePoolStatus(t *testing.T) {
	pool, err := NewNodePool(newFakeBackend(), 4)
	require.NoError(t, err)

	gain, err := pool.Acquire(synth.KindGain)
	require.NoError(t, err)
	filter, err := pool.Acquire(synth.KindFilter)
	require.NoError(t, err)
	pool.Release(filter)
	_ = gain

	status := pool.GetStatus()
	assert.Equal(t, 4, status.MaxIdlePerKind)
	assert.Equal(t, 1, status.ActiveByKind[synth.KindGain])
	assert.Equal(t, 0, status.ActiveByKind[synth.KindFilter])
	assert.Equal(t, 1, status.IdleByKind[synth.KindFilter])
}
