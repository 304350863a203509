// Package engine wraps an external UCI chess engine and the rules library used
// to validate moves before they reach it.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultPath = "stockfish"

	handshakeTimeout = 5 * time.Second
)

var (
	ErrEngineClosed = errors.New("engine closed unexpectedly")
	ErrNoMove       = errors.New("engine returned no move")
)

// UCI is a single engine process speaking the UCI protocol over stdio.
// It is not safe for concurrent searches; the pool hands one UCI to one turn.
type UCI struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	mu     sync.Mutex
	broken atomic.Bool
}

type SearchResult struct {
	BestMove string
	Score    int
	Depth    int
	IsMate   bool
	MateIn   int
}

// New starts the engine binary at path and completes the UCI handshake.
func New(path string) (*UCI, error) {
	if path == "" {
		path = DefaultPath
	}
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %q: %w", path, err)
	}

	uci := &UCI{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}

	if err := uci.initialize(); err != nil {
		uci.Close()
		return nil, err
	}

	return uci, nil
}

func (u *UCI) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	if err := u.sendCommand("uci"); err != nil {
		return err
	}
	if err := u.readUntil(ctx, func(line string) bool { return line == "uciok" }); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	return u.waitReady(ctx)
}

func (u *UCI) waitReady(ctx context.Context) error {
	if err := u.sendCommand("isready"); err != nil {
		return err
	}
	if err := u.readUntil(ctx, func(line string) bool { return line == "readyok" }); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// readUntil consumes engine output until done returns true. A reader abandoned
// on timeout leaves the stream in an unknown state, so the engine is marked broken.
func (u *UCI) readUntil(ctx context.Context, done func(line string) bool) error {
	result := make(chan error, 1)
	go func() {
		for u.stdout.Scan() {
			if done(u.stdout.Text()) {
				result <- nil
				return
			}
		}
		result <- ErrEngineClosed
	}()

	select {
	case err := <-result:
		if err != nil {
			u.broken.Store(true)
		}
		return err
	case <-ctx.Done():
		u.broken.Store(true)
		return ctx.Err()
	}
}

func (u *UCI) sendCommand(cmd string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, err := fmt.Fprintln(u.stdin, cmd); err != nil {
		u.broken.Store(true)
		return fmt.Errorf("writing %q to engine: %w", cmd, err)
	}
	return nil
}

// SetSkillLevel sets the Stockfish skill level (0-20)
func (u *UCI) SetSkillLevel(level int) error {
	if level < 0 {
		level = 0
	} else if level > 20 {
		level = 20
	}
	return u.sendCommand(fmt.Sprintf("setoption name Skill Level value %d", level))
}

func (u *UCI) NewGame(ctx context.Context) error {
	if err := u.sendCommand("ucinewgame"); err != nil {
		return err
	}
	return u.waitReady(ctx)
}

func (u *UCI) SetPosition(fen string, moves []string) error {
	cmd := fmt.Sprintf("position fen %s", fen)
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return u.sendCommand(cmd)
}

// Search runs "go movetime" and waits for bestmove, bounded by twice the
// movetime plus a second, or by ctx if that ends first.
func (u *UCI) Search(ctx context.Context, movetime time.Duration) (*SearchResult, error) {
	ms := movetime.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if err := u.sendCommand(fmt.Sprintf("go movetime %d", ms)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(ms*2+1000)*time.Millisecond)
	defer cancel()

	result := &SearchResult{}
	err := u.readUntil(ctx, func(line string) bool {
		if strings.HasPrefix(line, "info ") {
			parseInfo(line, result)
			return false
		}
		if move, ok := parseBestMove(line); ok {
			result.BestMove = move
			return true
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for bestmove: %w", err)
	}
	if result.BestMove == "" || result.BestMove == "(none)" {
		return nil, ErrNoMove
	}
	return result, nil
}

// BestMove positions the engine at fen and searches for limit.
func (u *UCI) BestMove(ctx context.Context, fen string, limit time.Duration) (string, error) {
	if err := u.SetPosition(fen, nil); err != nil {
		return "", err
	}
	res, err := u.Search(ctx, limit)
	if err != nil {
		return "", err
	}
	return res.BestMove, nil
}

// Healthy reports whether the process can still serve searches.
func (u *UCI) Healthy() bool {
	if u.broken.Load() {
		return false
	}
	return u.cmd.ProcessState == nil
}

func (u *UCI) Close() error {
	u.sendCommand("quit")
	time.Sleep(100 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- u.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(1 * time.Second):
		return u.cmd.Process.Kill()
	}
}

func parseInfo(line string, result *SearchResult) {
	fields := strings.Fields(line)
	for i := 0; i < len(fields)-1; i++ {
		switch fields[i] {
		case "depth":
			fmt.Sscanf(fields[i+1], "%d", &result.Depth)
		case "cp":
			fmt.Sscanf(fields[i+1], "%d", &result.Score)
			result.IsMate = false
		case "mate":
			fmt.Sscanf(fields[i+1], "%d", &result.MateIn)
			result.IsMate = true
			if result.MateIn > 0 {
				result.Score = 100000 - result.MateIn
			} else {
				result.Score = -100000 - result.MateIn
			}
		}
	}
}

func parseBestMove(line string) (string, bool) {
	if !strings.HasPrefix(line, "bestmove") {
		return "", false
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", true
	}
	return parts[1], true
}
