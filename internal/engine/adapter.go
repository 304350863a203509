package engine

import (
	"context"
	"time"
)

// Adapter is what a game session needs from an engine for one turn.
type Adapter interface {
	ApplyIfLegal(fen, move string) (Applied, error)
	Search(ctx context.Context, fen string, limit time.Duration) (string, error)
}

// Engine is a poolable Adapter backed by a closable resource.
type Engine interface {
	Adapter
	Healthy() bool
	Close() error
}

// Handle pairs a UCI process with the rules library.
type Handle struct {
	uci *UCI
}

// NewHandle spawns the engine at path. A negative skill leaves the engine default.
func NewHandle(path string, skill int) (*Handle, error) {
	uci, err := New(path)
	if err != nil {
		return nil, err
	}
	if skill >= 0 {
		if err := uci.SetSkillLevel(skill); err != nil {
			uci.Close()
			return nil, err
		}
	}
	return &Handle{uci: uci}, nil
}

func (h *Handle) ApplyIfLegal(fen, move string) (Applied, error) {
	return ApplyIfLegal(fen, move)
}

func (h *Handle) Search(ctx context.Context, fen string, limit time.Duration) (string, error) {
	if !IsFENSafe(fen) {
		return "", ErrUnsafeFEN
	}
	if err := h.uci.NewGame(ctx); err != nil {
		return "", err
	}
	return h.uci.BestMove(ctx, fen, limit)
}

func (h *Handle) Healthy() bool {
	return h.uci.Healthy()
}

func (h *Handle) Close() error {
	return h.uci.Close()
}
