package processor

import (
	"context"
	"errors"
	"testing"

	"chessagent/internal/a2a"
	"chessagent/internal/classifier"
	"chessagent/internal/core"
	"chessagent/internal/engine"
	"chessagent/internal/engine/enginetest"
	"chessagent/internal/game"
	"chessagent/internal/metrics"
	"chessagent/internal/render"
	"chessagent/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	proc    *Processor
	store   *storage.MemoryStore
	engine  *enginetest.Fake
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cls classifier.Classifier, replies ...string) *fixture {
	t.Helper()
	if cls == nil {
		cls = classifier.Rules{}
	}
	fake := enginetest.New(replies...)
	pool := engine.NewPool(1, fake.Factory(), zerolog.Nop())
	t.Cleanup(func() { pool.Close() })

	store := storage.NewMemoryStore()
	m := metrics.New()
	proc, err := New(Deps{
		Store:      store,
		Engines:    pool,
		Classifier: cls,
		Renderer:   render.Inline{},
		Metrics:    m,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return &fixture{proc: proc, store: store, engine: fake, metrics: m}
}

func (f *fixture) record(t *testing.T, taskID string) *game.Record {
	t.Helper()
	rec, err := f.store.Load(context.Background(), taskID)
	require.NoError(t, err)
	return rec
}

func artifactTexts(task *a2a.Task) []string {
	var out []string
	for _, a := range task.Artifacts {
		for _, p := range a.Parts {
			if p.Kind == a2a.KindText {
				out = append(out, p.Text)
			}
		}
	}
	return out
}

// scriptedClassifier returns a fixed command regardless of input.
type scriptedClassifier struct {
	cmd classifier.Command
	err error
}

func (s scriptedClassifier) Classify(context.Context, string, classifier.Context) (classifier.Command, error) {
	return s.cmd, s.err
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestExecute_FreshGameLegalMove(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	ctx := context.Background()

	resp, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Task)

	assert.Equal(t, "t1", resp.Task.ID)
	assert.Equal(t, core.StateInputRequired, resp.Task.Status.State)
	require.Len(t, resp.Task.Artifacts, 2)
	assert.Equal(t, "move", resp.Task.Artifacts[0].Name)
	assert.Equal(t, "AI moved e7e5", resp.Task.Artifacts[0].Parts[0].Text)
	assert.Equal(t, "board", resp.Task.Artifacts[1].Name)
	assert.Equal(t, a2a.KindFile, resp.Task.Artifacts[1].Parts[0].Kind)
	assert.Equal(t, render.MimeSVG, resp.Task.Artifacts[1].Parts[0].File.MimeType)

	rec := f.record(t, "t1")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"e2e4", "e7e5"}, rec.MoveHistory)
	assert.Equal(t, core.StateInputRequired, rec.State)
	assert.Equal(t, rec.FEN, resp.Task.Artifacts[1].Parts[1].Data["fen"])
	assert.Equal(t, 1, f.engine.SearchCount())
}

func TestExecute_IllegalMoveLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, nil, "e7e5")

	resp, err := f.proc.Execute(context.Background(), "t1", "Qh5")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Invalid move: 'Qh5'", resp.Error.Message)
	assert.Equal(t, "'Qh5' is not a valid chess move", resp.Error.Data)

	assert.Nil(t, f.record(t, "t1"))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.engine.SearchCount())
}

func TestExecute_IllegalMoveKeepsExistingRecord(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)
	before := f.record(t, "t1")

	resp, err := f.proc.Execute(ctx, "t1", "Ke3")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)

	assert.Equal(t, before, f.record(t, "t1"))
}

func TestExecute_EmptyMove(t *testing.T) {
	f := newFixture(t, scriptedClassifier{cmd: classifier.Move{}})

	resp, err := f.proc.Execute(context.Background(), "t1", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "No move provided", resp.Error.Message)
	assert.Equal(t, "Move command requires a chess move", resp.Error.Data)
}

func TestExecute_ControlCharactersRejected(t *testing.T) {
	f := newFixture(t, scriptedClassifier{cmd: classifier.Move{Text: "e4\nquit"}})

	resp, err := f.proc.Execute(context.Background(), "t1", "ignored")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, 0, f.engine.SearchCount())
}

func TestExecute_Resign(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)

	resp, err := f.proc.Execute(ctx, "t1", "I resign")
	require.NoError(t, err)
	require.NotNil(t, resp.Task)
	assert.Equal(t, core.StateCompleted, resp.Task.Status.State)
	assert.Equal(t, []string{"Game ended by resignation.\n", "Start a new game by entering a valid move."}, artifactTexts(resp.Task))

	state, err := f.store.CurrentState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, state)
	assert.Equal(t, 1, f.engine.SearchCount())
}

func TestExecute_ResignFreshTask(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, err := f.proc.Execute(ctx, "t1", "resign")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, resp.Task.Status.State)

	state, err := f.store.CurrentState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, state)
	assert.Equal(t, 0, f.engine.SearchCount())
}

func TestExecute_BoardQueryLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)
	before := f.record(t, "t1")

	resp, err := f.proc.Execute(ctx, "t1", "show me the board")
	require.NoError(t, err)
	require.NotNil(t, resp.Message)
	assert.Equal(t, a2a.RoleAgent, resp.Message.Role)
	assert.Equal(t, "Board state is:", resp.Message.Parts[0].Text)
	assert.Equal(t, a2a.KindFile, resp.Message.Parts[1].Kind)

	assert.Equal(t, before, f.record(t, "t1"))
}

func TestExecute_MoveAfterCompletionStartsNewGame(t *testing.T) {
	f := newFixture(t, nil, "e7e5", "d7d5")
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)
	_, err = f.proc.Execute(ctx, "t1", "resign")
	require.NoError(t, err)

	resp, err := f.proc.Execute(ctx, "t1", "d4")
	require.NoError(t, err)
	require.NotNil(t, resp.Task)
	assert.Equal(t, core.StateInputRequired, resp.Task.Status.State)

	rec := f.record(t, "t1")
	assert.Equal(t, []string{"d2d4", "d7d5"}, rec.MoveHistory)
}

func TestExecute_EngineMateEndsGame(t *testing.T) {
	f := newFixture(t, nil, "e7e5", "d8h4")
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "f3")
	require.NoError(t, err)
	resp, err := f.proc.Execute(ctx, "t1", "g4")
	require.NoError(t, err)

	require.NotNil(t, resp.Task)
	assert.Equal(t, core.StateCompleted, resp.Task.Status.State)
	texts := artifactTexts(resp.Task)
	require.NotEmpty(t, texts)
	assert.Equal(t, "Game over. AI moved d8h4", texts[0])
	assert.Contains(t, texts, "Start a new game by entering a valid move")

	state, err := f.store.CurrentState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, state)
}

func TestExecute_UserMateEndsGameWithoutSearch(t *testing.T) {
	f := newFixture(t, nil, "e7e5", "b8c6", "g8f6")
	ctx := context.Background()

	for _, mv := range []string{"e4", "Bc4", "Qh5"} {
		resp, err := f.proc.Execute(ctx, "t1", mv)
		require.NoError(t, err)
		require.Nil(t, resp.Error, mv)
	}

	resp, err := f.proc.Execute(ctx, "t1", "h5f7")
	require.NoError(t, err)
	require.NotNil(t, resp.Task)
	assert.Equal(t, core.StateCompleted, resp.Task.Status.State)
	assert.Equal(t, "Game over.", artifactTexts(resp.Task)[0])
	assert.Equal(t, 3, f.engine.SearchCount())

	rec := f.record(t, "t1")
	assert.Len(t, rec.MoveHistory, 7)
}

func TestExecute_EngineFailureIsInternal(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.SearchErr = errors.New("engine crashed")

	resp, err := f.proc.Execute(context.Background(), "t1", "e4")
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Nil(t, f.record(t, "t1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TurnsTotal.WithLabelValues("move", "error")))
}

func TestExecute_ClassifierFailureIsInternal(t *testing.T) {
	f := newFixture(t, scriptedClassifier{err: errors.New("quota exceeded")})

	_, err := f.proc.Execute(context.Background(), "t1", "e4")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestExecute_PassThroughCommands(t *testing.T) {
	tests := []struct {
		name    string
		cmd     classifier.Command
		message string
		errMsg  string
		errData string
	}{
		{name: "chat", cmd: classifier.Chat{Reply: "Good luck!"}, message: "Good luck!"},
		{name: "unknown with text", cmd: classifier.Unknown{Message: "Did you mean a move?"}, message: "Did you mean a move?"},
		{name: "unknown empty", cmd: classifier.Unknown{}, message: "Unknown command type: 'unknown'. Please try a different command."},
		{name: "invalid", cmd: classifier.Invalid{Err: "gibberish"}, errMsg: "Invalid command", errData: "gibberish"},
		{name: "invalid empty", cmd: classifier.Invalid{}, errMsg: "Invalid command", errData: "Command not recognized"},
		{name: "hint", cmd: classifier.Unsupported{Type: "hint"}, errMsg: "Not implemented", errData: "Hint feature is coming soon."},
		{name: "analysis", cmd: classifier.Unsupported{Type: "analysis"}, errMsg: "Not implemented", errData: "Analysis feature is coming soon."},
		{name: "other", cmd: classifier.Unsupported{Type: "undo"}, errMsg: "Unknown command", errData: "Command 'undo' not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, scriptedClassifier{cmd: tt.cmd})

			resp, err := f.proc.Execute(context.Background(), "t1", "anything")
			require.NoError(t, err)

			if tt.errMsg != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, core.CodeInvalidParams, resp.Error.Code)
				assert.Equal(t, tt.errMsg, resp.Error.Message)
				assert.Equal(t, tt.errData, resp.Error.Data)
				return
			}
			require.NotNil(t, resp.Message)
			assert.Equal(t, tt.message, resp.Message.Parts[0].Text)
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestTaskState(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	ctx := context.Background()

	task, err := f.proc.TaskState(ctx, "never-seen")
	require.NoError(t, err)
	assert.Equal(t, core.StateUnknown, task.Status.State)
	assert.Equal(t, "The current task state is unknown", task.Status.Message.Parts[0].Text)

	_, err = f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)

	task, err = f.proc.TaskState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, core.StateInputRequired, task.Status.State)
}

func TestExecute_ArchivesTurns(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	archive := &recordingArchive{}
	f.proc.archive = archive
	ctx := context.Background()

	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)
	_, err = f.proc.Execute(ctx, "t1", "resign")
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, archive.started)
	require.Len(t, archive.moves, 2)
	assert.Equal(t, storage.ActorUser, archive.moves[0].Actor)
	assert.Equal(t, "e2e4", archive.moves[0].MoveUCI)
	assert.Equal(t, storage.ActorEngine, archive.moves[1].Actor)
	assert.Equal(t, 2, archive.moves[1].Ply)
	assert.Equal(t, []string{"resignation"}, archive.ended)
}

func TestExecute_CoordinateNotationMoves(t *testing.T) {
	f := newFixture(t, nil, "g8f6", "b8c6")
	ctx := context.Background()

	for _, mv := range []string{"g1f3", "b1c3"} {
		resp, err := f.proc.Execute(ctx, "t1", mv)
		require.NoError(t, err)
		require.Nil(t, resp.Error, mv)
	}

	rec := f.record(t, "t1")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"g1f3", "g8f6", "b1c3", "b8c6"}, rec.MoveHistory)
	assert.Equal(t, "r1bqkb1r/pppppppp/2n2n2/8/8/2N2N2/PPPPPPPP/R1BQKB1R w KQkq - 4 3", rec.FEN)
}

func TestExecute_PromotionInCoordinateNotation(t *testing.T) {
	f := newFixture(t, nil, "a2b2")
	f.store.Put("t1", []byte(`{"fen":"8/4P3/8/8/8/8/k7/7K w - - 0 1","engine_time_limit":0.5,"state":"input-required","move_history":[]}`))

	resp, err := f.proc.Execute(context.Background(), "t1", "e7e8q")
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	rec := f.record(t, "t1")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"e7e8q", "a2b2"}, rec.MoveHistory)
	assert.Equal(t, "4Q3/8/8/8/8/8/1k6/7K w - - 1 2", rec.FEN)
}

func TestExecute_FailedTurnIsNotArchived(t *testing.T) {
	f := newFixture(t, nil, "e7e5")
	archive := &recordingArchive{}
	f.proc.archive = archive
	f.engine.SearchErr = errors.New("engine crashed")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.proc.Execute(ctx, "t1", "e4")
		require.Error(t, err)
	}
	assert.Nil(t, f.record(t, "t1"))
	assert.Empty(t, archive.started)
	assert.Empty(t, archive.moves)

	f.engine.SearchErr = nil
	_, err := f.proc.Execute(ctx, "t1", "e4")
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, archive.started)
	require.Len(t, archive.moves, 2)
	assert.Equal(t, 1, archive.moves[0].Ply)
	assert.Equal(t, "e2e4", archive.moves[0].MoveUCI)
	assert.Equal(t, "e7e5", archive.moves[1].MoveUCI)
}
