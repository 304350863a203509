package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chessagent/internal/engine"
	"chessagent/internal/engine/enginetest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ReusesHealthyEngine(t *testing.T) {
	spawned := 0
	pool := engine.NewPool(1, func() (engine.Engine, error) {
		spawned++
		return enginetest.New(), nil
	}, zerolog.Nop())
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	first := lease.Adapter()
	lease.Release()
	lease.Release()

	lease, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, lease.Adapter())
	lease.Release()

	assert.Equal(t, 1, spawned)
	assert.Equal(t, 1, pool.Idle())
	assert.Equal(t, 0, pool.InUse())
}

func TestPool_DiscardClosesEngine(t *testing.T) {
	fake := enginetest.New()
	pool := engine.NewPool(1, fake.Factory(), zerolog.Nop())
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Discard()
	lease.Release()

	assert.True(t, fake.Closed)
	assert.Equal(t, 0, pool.Idle())
}

func TestPool_AcquireBlocksUntilRelease(t *testing.T) {
	pool := engine.NewPool(1, func() (engine.Engine, error) {
		return enginetest.New(), nil
	}, zerolog.Nop())
	defer pool.Close()

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	lease.Release()
	lease, err = pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
}

func TestPool_FactoryErrorFreesSlot(t *testing.T) {
	boom := errors.New("no binary")
	pool := engine.NewPool(1, func() (engine.Engine, error) {
		return nil, boom
	}, zerolog.Nop())

	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, pool.InUse())
}

func TestPool_Closed(t *testing.T) {
	fake := enginetest.New()
	pool := engine.NewPool(2, fake.Factory(), zerolog.Nop())

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	require.NoError(t, pool.Close())
	assert.True(t, fake.Closed)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, engine.ErrPoolClosed)
}

func TestPool_ReleaseRacingCloseClosesEveryEngine(t *testing.T) {
	const size = 8

	for round := 0; round < 50; round++ {
		var (
			mu    sync.Mutex
			fakes []*enginetest.Fake
		)
		pool := engine.NewPool(size, func() (engine.Engine, error) {
			f := enginetest.New()
			mu.Lock()
			fakes = append(fakes, f)
			mu.Unlock()
			return f, nil
		}, zerolog.Nop())

		leases := make([]*engine.Lease, 0, size)
		for i := 0; i < size; i++ {
			lease, err := pool.Acquire(context.Background())
			require.NoError(t, err)
			leases = append(leases, lease)
		}

		var wg sync.WaitGroup
		for _, lease := range leases {
			wg.Add(1)
			go func(l *engine.Lease) {
				defer wg.Done()
				l.Release()
			}(lease)
		}
		require.NoError(t, pool.Close())
		wg.Wait()

		for i, f := range fakes {
			assert.False(t, f.Healthy(), "round %d: engine %d left running", round, i)
		}
		assert.Equal(t, 0, pool.Idle())
	}
}
