package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"chessagent/internal/a2a"
	"chessagent/internal/core"
	"chessagent/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	SchemeTelexAPIKey = "TelexApiKey"
	SchemeBearer      = "Bearer"

	HeaderTelexAPIKey       = "X-TELEX-API-KEY"
	HeaderNotificationToken = "X-A2A-Notification-Token"

	userAgent = "chess-agent-webhook/1.0"
)

// ErrShutdown rejects turns that arrive after Shutdown began.
var ErrShutdown = errors.New("webhook delivery is shutting down")

// WebhookConfig tunes a Webhook strategy. Zero values use defaults.
type WebhookConfig struct {
	PipelineTimeout time.Duration
	PostTimeout     time.Duration
	Client          *http.Client
	Metrics         *metrics.Metrics
}

// Webhook acknowledges with a working task and posts the real result to
// the caller's push notification URL once the turn finishes. Delivery is
// attempted exactly once.
type Webhook struct {
	pipeline    Pipeline
	client      *http.Client
	timeout     time.Duration
	postTimeout time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	// base outlives individual requests; cancelled by Shutdown.
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewWebhook(p Pipeline, cfg WebhookConfig, logger zerolog.Logger) *Webhook {
	postTimeout := cfg.PostTimeout
	if postTimeout <= 0 {
		postTimeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Webhook{
		pipeline:    p,
		client:      client,
		timeout:     cfg.PipelineTimeout,
		postTimeout: postTimeout,
		metrics:     cfg.Metrics,
		logger:      logger.With().Str("component", "delivery").Str("mode", ModeWebhook).Logger(),
		base:        base,
		cancel:      cancel,
	}
}

func (w *Webhook) PushNotifications() bool { return true }

func (w *Webhook) Send(_ context.Context, id json.RawMessage, params *a2a.MessageSendParams) *a2a.Response {
	push := params.PushConfig()
	if push == nil || push.URL == "" {
		return a2a.NewError(id, core.NewInvalidParams("No webhook URL provided, but is necessary", nil))
	}

	taskID := ResolveTaskID(params.Message)
	text := inputText(params)
	headers := authHeaders(push)

	if err := w.schedule(func(ctx context.Context) {
		w.run(ctx, id, taskID, text, push.URL, headers)
	}); err != nil {
		return a2a.NewError(id, core.NewInternal("Internal error", err.Error()))
	}

	return a2a.NewResult(id, a2a.NewTask(taskID, core.StateWorking))
}

func (w *Webhook) schedule(fn func(ctx context.Context)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closing {
		return ErrShutdown
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := withDeadline(w.base, w.timeout)
		defer cancel()
		fn(ctx)
	}()
	return nil
}

func (w *Webhook) run(ctx context.Context, id json.RawMessage, taskID, text, url string, headers http.Header) {
	log := w.logger.With().Str("task_id", taskID).Str("url", url).Logger()

	resp, err := w.pipeline.Execute(ctx, taskID, text)
	if err != nil {
		log.Error().Err(err).Msg("turn failed, sending error envelope")
	}
	env := envelope(id, taskID, resp, err)

	// Posting uses its own deadline so a turn that timed out can still report.
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.postTimeout)
	defer cancel()

	outcome, err := w.post(postCtx, url, headers, env)
	w.metrics.RecordDelivery(outcome)
	if err != nil {
		log.Warn().Err(err).Str("outcome", outcome).Msg("webhook delivery failed")
		return
	}
	log.Info().Str("outcome", outcome).Msg("webhook delivered")
}

func (w *Webhook) post(ctx context.Context, url string, headers http.Header, env *a2a.Response) (string, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "failed", fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "failed", fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "failed", fmt.Errorf("posting webhook: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "rejected", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return "delivered", nil
}

// Shutdown stops accepting work and waits for in-flight units. When ctx
// expires first, running turns are cancelled.
func (w *Webhook) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-done
		return ctx.Err()
	}
}

func authHeaders(push *a2a.PushNotificationConfig) http.Header {
	h := http.Header{}
	if push.Token != "" {
		h.Set(HeaderNotificationToken, push.Token)
	}
	auth := push.Authentication
	if auth == nil || auth.Credentials == "" {
		return h
	}
	switch {
	case slices.Contains(auth.Schemes, SchemeTelexAPIKey):
		h.Set(HeaderTelexAPIKey, auth.Credentials)
	case slices.Contains(auth.Schemes, SchemeBearer):
		h.Set("Authorization", "Bearer "+auth.Credentials)
	}
	return h
}
