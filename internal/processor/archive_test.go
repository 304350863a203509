package processor

import (
	"sync"
	"time"

	"chessagent/internal/storage"
)

type recordingArchive struct {
	mu      sync.Mutex
	started []string
	moves   []storage.MoveRecord
	ended   []string
}

func (a *recordingArchive) RecordGameStart(taskID string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = append(a.started, taskID)
	return nil
}

func (a *recordingArchive) RecordMove(rec storage.MoveRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.moves = append(a.moves, rec)
	return nil
}

func (a *recordingArchive) RecordGameEnd(_, _, reason, _ string, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended = append(a.ended, reason)
	return nil
}
