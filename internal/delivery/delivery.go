// Package delivery decides how a message/send turn reaches the caller:
// inside the HTTP response, or later through the caller's webhook.
package delivery

import (
	"context"
	"encoding/json"
	"time"

	"chessagent/internal/a2a"
	"chessagent/internal/core"
	"chessagent/internal/processor"
)

const (
	ModeBlocking = "blocking"
	ModeWebhook  = "webhook"

	// DefaultPipelineTimeout bounds one turn from classification to render.
	DefaultPipelineTimeout = 60 * time.Second
)

// Pipeline runs a single turn. *processor.Processor satisfies it.
type Pipeline interface {
	Execute(ctx context.Context, taskID, text string) (*processor.Response, error)
}

// Strategy answers a message/send request.
type Strategy interface {
	Send(ctx context.Context, id json.RawMessage, params *a2a.MessageSendParams) *a2a.Response
	// PushNotifications reports whether results arrive by webhook.
	PushNotifications() bool
}

// ResolveTaskID continues the caller's task or starts a new one.
func ResolveTaskID(msg *a2a.Message) string {
	if msg != nil && msg.TaskID != "" {
		return msg.TaskID
	}
	return a2a.NewID()
}

func inputText(params *a2a.MessageSendParams) string {
	if params == nil || params.Message == nil {
		return ""
	}
	return params.Message.Text()
}

// envelope converts a turn outcome into a JSON-RPC response.
func envelope(id json.RawMessage, taskID string, resp *processor.Response, err error) *a2a.Response {
	if err != nil {
		return a2a.NewError(id, core.NewInternal("Internal error", map[string]any{
			"taskId": taskID,
			"state":  core.StateFailed,
		}))
	}
	if resp.Error != nil {
		return a2a.NewError(id, resp.Error)
	}
	return a2a.NewResult(id, resp.Result())
}

func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultPipelineTimeout
	}
	return context.WithTimeout(ctx, d)
}
