// Package game holds the in-memory chess session for one task.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chessagent/internal/core"
	"chessagent/internal/engine"

	"github.com/corentings/chess/v2"
)

const DefaultEngineTimeLimit = 0.5

var (
	ErrNoEngine = errors.New("game has no engine attached")
	ErrGameOver = errors.New("game is already over")
)

// InvalidMoveError reports a move that could not be parsed or is not legal.
// The game is left untouched when it is returned.
type InvalidMoveError struct {
	Attempted string
	Err       error
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("invalid move: %s", e.Attempted)
}

func (e *InvalidMoveError) Unwrap() error {
	return e.Err
}

// Game is one chess session. The engine adapter is attached per turn and
// never persisted.
type Game struct {
	board           *chess.Game
	fen             string
	engineTimeLimit float64
	state           core.TaskState
	history         []string
	engine          engine.Adapter
}

// New starts a game from the standard position.
func New(eng engine.Adapter, engineTimeLimit float64) *Game {
	if engineTimeLimit <= 0 {
		engineTimeLimit = DefaultEngineTimeLimit
	}
	board := chess.NewGame()
	return &Game{
		board:           board,
		fen:             board.FEN(),
		engineTimeLimit: engineTimeLimit,
		state:           core.StateUnknown,
		history:         []string{},
		engine:          eng,
	}
}

// Restore rebuilds a game from its persisted record and attaches eng.
// eng may be nil for read-only use.
func Restore(rec Record, eng engine.Adapter) (*Game, error) {
	fen := rec.FEN
	if fen == "" {
		fen = engine.StartingFEN
	}

	var board *chess.Game
	if len(rec.MoveHistory) > 0 {
		if replayed, err := engine.Replay(rec.MoveHistory); err == nil && replayed.FEN() == fen {
			board = replayed
		}
	}
	if board == nil {
		b, err := engine.GameFromFEN(fen)
		if err != nil {
			return nil, fmt.Errorf("restoring game: %w", err)
		}
		board = b
	}

	limit := rec.EngineTimeLimit
	if limit <= 0 {
		limit = DefaultEngineTimeLimit
	}

	history := make([]string, len(rec.MoveHistory))
	copy(history, rec.MoveHistory)

	return &Game{
		board:           board,
		fen:             fen,
		engineTimeLimit: limit,
		state:           core.ParseTaskState(string(rec.State)),
		history:         history,
		engine:          eng,
	}, nil
}

// Attach binds an engine adapter for the current turn.
func (g *Game) Attach(eng engine.Adapter) {
	g.engine = eng
}

func (g *Game) FEN() string {
	return g.fen
}

func (g *Game) State() core.TaskState {
	return g.state
}

func (g *Game) SetState(s core.TaskState) {
	g.state = s
}

func (g *Game) EngineTimeLimit() float64 {
	return g.engineTimeLimit
}

// MoveHistory returns a copy of the UCI move list.
func (g *Game) MoveHistory() []string {
	out := make([]string, len(g.history))
	copy(out, g.history)
	return out
}

// Plies returns the number of half-moves played.
func (g *Game) Plies() int {
	return len(g.history)
}

// ApplyUserMove validates text through the engine adapter and plays it.
// Illegal input returns *InvalidMoveError; other errors come from the adapter.
func (g *Game) ApplyUserMove(text string) error {
	if g.engine == nil {
		return ErrNoEngine
	}

	applied, err := g.engine.ApplyIfLegal(g.fen, text)
	if err != nil {
		if errors.Is(err, engine.ErrIllegalMove) {
			return &InvalidMoveError{Attempted: text, Err: err}
		}
		return err
	}

	if err := g.push(applied.UCI); err != nil {
		return &InvalidMoveError{Attempted: text, Err: err}
	}
	return nil
}

// AIMove asks the engine for a reply within the time budget and plays it.
// State becomes input-required unless the move ends the game.
func (g *Game) AIMove(ctx context.Context) (string, error) {
	if g.engine == nil {
		return "", ErrNoEngine
	}
	if g.IsGameOver() {
		return "", ErrGameOver
	}

	limit := time.Duration(g.engineTimeLimit * float64(time.Second))
	move, err := g.engine.Search(ctx, g.fen, limit)
	if err != nil {
		return "", fmt.Errorf("engine search: %w", err)
	}

	if err := g.push(move); err != nil {
		return "", fmt.Errorf("engine proposed unplayable move %q: %w", move, err)
	}

	if !g.IsGameOver() {
		g.state = core.StateInputRequired
	}
	return move, nil
}

// push plays a UCI move on the board, leaving everything unchanged on failure.
func (g *Game) push(uci string) error {
	if err := g.board.PushNotationMove(uci, chess.UCINotation{}, nil); err != nil {
		return err
	}
	g.history = append(g.history, uci)
	g.fen = g.board.FEN()
	return nil
}

// IsGameOver reports checkmate, stalemate, insufficient material and the
// automatic repetition and move-count draws.
func (g *Game) IsGameOver() bool {
	return g.board.Outcome() != chess.NoOutcome
}

// Outcome describes how the game ended.
type Outcome struct {
	Result string // "1-0", "0-1", "1/2-1/2" or "*"
	Method string
}

func (g *Game) Outcome() Outcome {
	return Outcome{
		Result: string(g.board.Outcome()),
		Method: methodName(g.board.Method()),
	}
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.InsufficientMaterial:
		return "insufficient material"
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return "repetition"
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return "move rule"
	case chess.Resignation:
		return "resignation"
	default:
		return ""
	}
}

// Phase is a coarse stage of the game derived from the move count.
type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseMiddlegame Phase = "middlegame"
	PhaseEndgame    Phase = "endgame"
)

func (g *Game) Phase() Phase {
	switch n := len(g.history); {
	case n < 20:
		return PhaseOpening
	case n < 60:
		return PhaseMiddlegame
	default:
		return PhaseEndgame
	}
}
