package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLocks_SerializesSameTask(t *testing.T) {
	locks := NewTaskLocks()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, "a")
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestTaskLocks_IndependentTasks(t *testing.T) {
	locks := NewTaskLocks()
	ctx := context.Background()

	ua, err := locks.Lock(ctx, "a")
	require.NoError(t, err)
	ub, err := locks.Lock(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 2, locks.Len())
	ua()
	ub()
	assert.Equal(t, 0, locks.Len())
}

func TestTaskLocks_ContextCancel(t *testing.T) {
	locks := NewTaskLocks()
	unlock, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.Len())
}

func TestTaskLocks_UnlockIsIdempotent(t *testing.T) {
	locks := NewTaskLocks()
	unlock, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Equal(t, 0, locks.Len())
}

func TestTaskLocks_ConcurrentTurns(t *testing.T) {
	locks := NewTaskLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), "a")
			if err != nil {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.Len())
}
