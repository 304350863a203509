// Package enginetest provides an in-process engine double for tests.
package enginetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"chessagent/internal/engine"
)

var ErrNoScriptedMove = errors.New("no scripted reply left")

// Fake validates moves with the real rules and answers searches from a script.
type Fake struct {
	mu       sync.Mutex
	replies  []string
	Searches int
	Closed   bool
	Broken   bool
	// SearchErr, when set, is returned by every Search call.
	SearchErr error
	// Delay simulates search time; ctx cancellation still applies.
	Delay time.Duration
}

// New returns a fake that plays replies in order.
func New(replies ...string) *Fake {
	return &Fake{replies: replies}
}

func (f *Fake) ApplyIfLegal(fen, move string) (engine.Applied, error) {
	return engine.ApplyIfLegal(fen, move)
}

func (f *Fake) Search(ctx context.Context, fen string, limit time.Duration) (string, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches++
	if f.SearchErr != nil {
		return "", f.SearchErr
	}
	if len(f.replies) == 0 {
		return "", ErrNoScriptedMove
	}
	mv := f.replies[0]
	f.replies = f.replies[1:]
	return mv, nil
}

func (f *Fake) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Broken && !f.Closed
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// SearchCount returns how many searches ran.
func (f *Fake) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Searches
}

// Factory returns a pool factory that always hands out f.
func (f *Fake) Factory() engine.Factory {
	return func() (engine.Engine, error) {
		f.mu.Lock()
		f.Closed = false
		f.mu.Unlock()
		return f, nil
	}
}
