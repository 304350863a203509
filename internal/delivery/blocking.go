package delivery

import (
	"context"
	"encoding/json"
	"time"

	"chessagent/internal/a2a"

	"github.com/rs/zerolog"
)

// Blocking runs the turn inside the request and returns its result.
type Blocking struct {
	pipeline Pipeline
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewBlocking(p Pipeline, timeout time.Duration, logger zerolog.Logger) *Blocking {
	return &Blocking{
		pipeline: p,
		timeout:  timeout,
		logger:   logger.With().Str("component", "delivery").Str("mode", ModeBlocking).Logger(),
	}
}

func (b *Blocking) PushNotifications() bool { return false }

func (b *Blocking) Send(ctx context.Context, id json.RawMessage, params *a2a.MessageSendParams) *a2a.Response {
	taskID := ResolveTaskID(params.Message)

	ctx, cancel := withDeadline(ctx, b.timeout)
	defer cancel()

	resp, err := b.pipeline.Execute(ctx, taskID, inputText(params))
	if err != nil {
		b.logger.Error().Err(err).Str("task_id", taskID).Msg("turn failed")
	}
	return envelope(id, taskID, resp, err)
}
