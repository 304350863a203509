package processor

import (
	"context"
	"sync"
)

// TaskLocks serializes turns per task id. Entries exist only while a turn
// holds or waits for the lock.
type TaskLocks struct {
	mu    sync.Mutex
	locks map[string]*taskLock
}

type taskLock struct {
	sem  chan struct{}
	refs int
}

func NewTaskLocks() *TaskLocks {
	return &TaskLocks{locks: make(map[string]*taskLock)}
}

// Lock waits for exclusive use of taskID and returns the matching unlock.
func (l *TaskLocks) Lock(ctx context.Context, taskID string) (func(), error) {
	l.mu.Lock()
	tl, ok := l.locks[taskID]
	if !ok {
		tl = &taskLock{sem: make(chan struct{}, 1)}
		l.locks[taskID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(taskID, tl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-tl.sem
			l.release(taskID, tl)
		})
	}, nil
}

func (l *TaskLocks) release(taskID string, tl *taskLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, taskID)
	}
}

// Len returns the number of task ids currently locked or awaited.
func (l *TaskLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
