package storage

import (
	"context"
	"fmt"
	"sync"

	"chessagent/internal/core"
	"chessagent/internal/game"
)

// MemoryStore is a process-local session store with the same encoding as RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, taskID string) (*game.Record, error) {
	s.mu.RLock()
	raw, ok := s.records[sessionKey(KeyPrefix, taskID)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	rec, err := game.UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, taskID string, rec game.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[sessionKey(KeyPrefix, taskID)] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, taskID string) error {
	return markCompleted(ctx, s, taskID)
}

func (s *MemoryStore) CurrentState(_ context.Context, taskID string) (core.TaskState, error) {
	s.mu.RLock()
	raw, ok := s.records[sessionKey(KeyPrefix, taskID)]
	s.mu.RUnlock()
	if !ok {
		return core.StateUnknown, nil
	}
	return stateOf(raw), nil
}

func (s *MemoryStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	delete(s.records, sessionKey(KeyPrefix, taskID))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Put stores raw bytes under a task id. Used to seed legacy or corrupt records.
func (s *MemoryStore) Put(taskID string, raw []byte) {
	s.mu.Lock()
	s.records[sessionKey(KeyPrefix, taskID)] = raw
	s.mu.Unlock()
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
