// Package processor routes classified user input to game actions and builds
// the A2A result for each turn.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"chessagent/internal/a2a"
	"chessagent/internal/classifier"
	"chessagent/internal/core"
	"chessagent/internal/engine"
	"chessagent/internal/game"
	"chessagent/internal/metrics"
	"chessagent/internal/render"
	"chessagent/internal/storage"

	"github.com/rs/zerolog"
)

// Store is the session persistence the processor needs.
type Store interface {
	Load(ctx context.Context, taskID string) (*game.Record, error)
	Save(ctx context.Context, taskID string, rec game.Record) error
	MarkCompleted(ctx context.Context, taskID string) error
	CurrentState(ctx context.Context, taskID string) (core.TaskState, error)
}

// EnginePool hands out exclusive engine leases.
type EnginePool interface {
	Acquire(ctx context.Context) (*engine.Lease, error)
}

// Archive records finished turns. Failures are logged, never surfaced.
type Archive interface {
	RecordGameStart(taskID string, startedAt time.Time) error
	RecordMove(rec storage.MoveRecord) error
	RecordGameEnd(taskID, result, reason, finalFEN string, endedAt time.Time) error
}

// Deps wires a Processor. Archive and Metrics are optional.
type Deps struct {
	Store           Store
	Engines         EnginePool
	Classifier      classifier.Classifier
	Renderer        render.Renderer
	Archive         Archive
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	EngineTimeLimit float64
}

type Processor struct {
	store      Store
	engines    EnginePool
	classifier classifier.Classifier
	renderer   render.Renderer
	archive    Archive
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	timeLimit  float64
	locks      *TaskLocks
}

func New(d Deps) (*Processor, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("processor: store is required")
	case d.Engines == nil:
		return nil, errors.New("processor: engine pool is required")
	case d.Classifier == nil:
		return nil, errors.New("processor: classifier is required")
	case d.Renderer == nil:
		return nil, errors.New("processor: renderer is required")
	}
	limit := d.EngineTimeLimit
	if limit <= 0 {
		limit = game.DefaultEngineTimeLimit
	}
	return &Processor{
		store:      d.Store,
		engines:    d.Engines,
		classifier: d.Classifier,
		renderer:   d.Renderer,
		archive:    d.Archive,
		metrics:    d.Metrics,
		logger:     d.Logger.With().Str("component", "processor").Logger(),
		timeLimit:  limit,
		locks:      NewTaskLocks(),
	}, nil
}

// Execute runs one turn for taskID. A non-nil error means the turn failed
// internally; user-facing rejections come back as Response.Error.
func (p *Processor) Execute(ctx context.Context, taskID, text string) (*Response, error) {
	start := time.Now()

	unlock, err := p.locks.Lock(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("waiting for task %s: %w", taskID, err)
	}
	defer unlock()

	g, fresh, err := p.loadGame(ctx, taskID)
	if err != nil {
		p.finishTurn(taskID, "load", start, nil, err)
		return nil, err
	}

	cmd, err := p.classifier.Classify(ctx, text, classifier.Context{
		FEN:         g.FEN(),
		MoveHistory: g.MoveHistory(),
		Phase:       string(g.Phase()),
	})
	if err != nil {
		err = fmt.Errorf("classifying input: %w", err)
		p.finishTurn(taskID, "classify", start, nil, err)
		return nil, err
	}

	resp, err := p.route(ctx, taskID, g, fresh, cmd)
	p.finishTurn(taskID, string(cmd.Kind()), start, resp, err)
	return resp, err
}

func (p *Processor) route(ctx context.Context, taskID string, g *game.Game, fresh bool, cmd classifier.Command) (*Response, error) {
	switch c := cmd.(type) {
	case classifier.Resign:
		return p.handleResign(ctx, taskID, g, fresh)
	case classifier.Board:
		return p.handleBoard(ctx, g)
	case classifier.Move:
		return p.handleMove(ctx, taskID, g, fresh, c.Text)
	case classifier.Chat:
		return messageResponse(a2a.TextPart(c.Reply)), nil
	case classifier.Unknown:
		return unknownCommandMessage(c.Message), nil
	case classifier.Invalid:
		return invalidCommandResponse(c.Err), nil
	case classifier.Unsupported:
		return unsupportedCommandResponse(c.Type), nil
	default:
		return unsupportedCommandResponse(string(cmd.Kind())), nil
	}
}

// TaskState backs tasks/get. Tasks never seen report unknown.
func (p *Processor) TaskState(ctx context.Context, taskID string) (*a2a.Task, error) {
	state, err := p.store.CurrentState(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("reading state of task %s: %w", taskID, err)
	}
	task := a2a.NewTask(taskID, state)
	task.Status.Message = a2a.NewAgentMessage(
		a2a.TextPart(fmt.Sprintf("The current task state is %s", state)),
	)
	return task, nil
}

func (p *Processor) loadGame(ctx context.Context, taskID string) (*game.Game, bool, error) {
	rec, err := p.store.Load(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return game.New(nil, p.timeLimit), true, nil
	}
	g, err := game.Restore(*rec, nil)
	if err != nil {
		return nil, false, fmt.Errorf("restoring task %s: %w", taskID, err)
	}
	return g, false, nil
}

func (p *Processor) handleResign(ctx context.Context, taskID string, g *game.Game, fresh bool) (*Response, error) {
	if fresh {
		if err := p.store.Save(ctx, taskID, g.Record()); err != nil {
			return nil, err
		}
	}
	if err := p.store.MarkCompleted(ctx, taskID); err != nil {
		return nil, err
	}
	if g.Plies() > 0 && !g.State().IsTerminal() {
		p.archiveEnd(taskID, "0-1", "resignation", g.FEN())
	}
	return resignationResponse(taskID), nil
}

func (p *Processor) handleBoard(ctx context.Context, g *game.Game) (*Response, error) {
	img, err := p.renderer.Render(ctx, g.FEN())
	if err != nil {
		return nil, fmt.Errorf("rendering board: %w", err)
	}
	return boardStateResponse(img, g.FEN(), g.MoveHistory()), nil
}

func (p *Processor) handleMove(ctx context.Context, taskID string, g *game.Game, fresh bool, text string) (*Response, error) {
	if text == "" {
		return noMoveResponse(), nil
	}
	if !isMoveTextSafe(text) {
		return invalidMoveResponse(text), nil
	}

	newGame := fresh
	if g.State() == core.StateCompleted {
		g = game.New(nil, g.EngineTimeLimit())
		newGame = true
	}

	lease, err := p.engines.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring engine: %w", err)
	}
	defer lease.Release()
	g.Attach(lease.Adapter())

	if err := g.ApplyUserMove(text); err != nil {
		var invalid *game.InvalidMoveError
		if errors.As(err, &invalid) {
			return invalidMoveResponse(invalid.Attempted), nil
		}
		lease.Discard()
		return nil, fmt.Errorf("validating move: %w", err)
	}

	batch := &archiveBatch{start: newGame}
	batch.addMove(taskID, g, storage.ActorUser)

	if g.IsGameOver() {
		return p.finishGame(ctx, taskID, g, "", batch)
	}

	searchStart := time.Now()
	aiMove, err := g.AIMove(ctx)
	p.metrics.ObserveSearch(time.Since(searchStart).Seconds())
	if err != nil {
		lease.Discard()
		return nil, err
	}
	batch.addMove(taskID, g, storage.ActorEngine)

	if g.IsGameOver() {
		return p.finishGame(ctx, taskID, g, aiMove, batch)
	}

	if err := p.store.Save(ctx, taskID, g.Record()); err != nil {
		return nil, err
	}
	p.flushArchive(taskID, batch)

	img, err := p.renderer.Render(ctx, g.FEN())
	if err != nil {
		return nil, fmt.Errorf("rendering board: %w", err)
	}
	return moveResponse(taskID, aiMove, img, g.FEN(), g.MoveHistory()), nil
}

func (p *Processor) finishGame(ctx context.Context, taskID string, g *game.Game, aiMove string, batch *archiveBatch) (*Response, error) {
	g.SetState(core.StateCompleted)
	if err := p.store.Save(ctx, taskID, g.Record()); err != nil {
		return nil, err
	}
	p.flushArchive(taskID, batch)
	outcome := g.Outcome()
	p.archiveEnd(taskID, outcome.Result, outcome.Method, g.FEN())

	img, err := p.renderer.Render(ctx, g.FEN())
	if err != nil {
		return nil, fmt.Errorf("rendering board: %w", err)
	}
	return gameOverResponse(taskID, aiMove, img, g.FEN(), g.MoveHistory()), nil
}

// archiveBatch holds a turn's archive writes until the turn is persisted.
type archiveBatch struct {
	start bool
	moves []storage.MoveRecord
}

func (b *archiveBatch) addMove(taskID string, g *game.Game, actor string) {
	history := g.MoveHistory()
	b.moves = append(b.moves, storage.MoveRecord{
		TaskID:    taskID,
		Ply:       len(history),
		MoveUCI:   history[len(history)-1],
		FENAfter:  g.FEN(),
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	})
}

func (p *Processor) flushArchive(taskID string, b *archiveBatch) {
	if p.archive == nil {
		return
	}
	if b.start {
		if err := p.archive.RecordGameStart(taskID, time.Now().UTC()); err != nil {
			p.logger.Warn().Err(err).Str("task_id", taskID).Msg("archive game start")
		}
	}
	for _, rec := range b.moves {
		if err := p.archive.RecordMove(rec); err != nil {
			p.logger.Warn().Err(err).Str("task_id", taskID).Msg("archive move")
		}
	}
}

func (p *Processor) archiveEnd(taskID, result, reason, fen string) {
	if p.archive == nil {
		return
	}
	if err := p.archive.RecordGameEnd(taskID, result, reason, fen, time.Now().UTC()); err != nil {
		p.logger.Warn().Err(err).Str("task_id", taskID).Msg("archive game end")
	}
}

func (p *Processor) finishTurn(taskID, command string, start time.Time, resp *Response, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case resp != nil && resp.Error != nil:
		outcome = "rejected"
	}
	p.metrics.RecordTurn(command, outcome, elapsed.Seconds())

	ev := p.logger.Info()
	if err != nil {
		ev = p.logger.Error().Err(err)
	}
	ev.Str("task_id", taskID).
		Str("command", command).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("turn")
}

// isMoveTextSafe rejects control characters before the text reaches the engine.
func isMoveTextSafe(text string) bool {
	for _, r := range text {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
