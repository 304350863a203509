// Package storage persists game sessions in a key-value backend and keeps an
// optional SQLite archive of finished turns.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chessagent/internal/core"
	"chessagent/internal/game"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session records: games:<taskId>.
const KeyPrefix = "games"

func sessionKey(prefix, taskID string) string {
	return prefix + ":" + taskID
}

// RedisStore keeps one JSON record per task id. Writes are last-write-wins;
// callers serialize turns per task id.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects using a redis:// URL. A zero ttl keeps records forever.
func NewRedisStore(ctx context.Context, rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: KeyPrefix, ttl: ttl}
}

// Load returns nil without error when no record exists.
func (s *RedisStore) Load(ctx context.Context, taskID string) (*game.Record, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(s.prefix, taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	rec, err := game.UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, taskID string, rec game.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(s.prefix, taskID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving task %s: %w", taskID, err)
	}
	return nil
}

// MarkCompleted is a plain read-modify-write. A missing record is left absent.
func (s *RedisStore) MarkCompleted(ctx context.Context, taskID string) error {
	return markCompleted(ctx, s, taskID)
}

// CurrentState reads only the state field. Missing or unparseable records are unknown.
func (s *RedisStore) CurrentState(ctx context.Context, taskID string) (core.TaskState, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(s.prefix, taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.StateUnknown, nil
	}
	if err != nil {
		return core.StateUnknown, fmt.Errorf("reading state of task %s: %w", taskID, err)
	}
	return stateOf(raw), nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	return s.rdb.Del(ctx, sessionKey(s.prefix, taskID)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

type loadSaver interface {
	Load(ctx context.Context, taskID string) (*game.Record, error)
	Save(ctx context.Context, taskID string, rec game.Record) error
}

func markCompleted(ctx context.Context, s loadSaver, taskID string) error {
	rec, err := s.Load(ctx, taskID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	rec.State = core.StateCompleted
	return s.Save(ctx, taskID, *rec)
}

func stateOf(raw []byte) core.TaskState {
	var partial struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return core.StateUnknown
	}
	return core.ParseTaskState(partial.State)
}
