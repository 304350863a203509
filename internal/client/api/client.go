// Package api is a JSON-RPC client for the chess agent.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"chessagent/internal/a2a"
	"chessagent/internal/client/display"
	"chessagent/internal/core"
)

// Envelope is a decoded JSON-RPC response with the result left raw.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *core.RPCError  `json:"error,omitempty"`
}

// Result holds whichever result shape the agent returned.
type Result struct {
	Kind    string       `json:"kind"`
	Task    *a2a.Task    `json:"-"`
	Message *a2a.Message `json:"-"`
}

// Decode splits the result into a task or a message by its kind.
func (e *Envelope) Decode() (*Result, error) {
	if len(e.Result) == 0 {
		return nil, nil
	}
	var r Result
	if err := json.Unmarshal(e.Result, &r); err != nil {
		return nil, err
	}
	switch r.Kind {
	case "task":
		r.Task = &a2a.Task{}
		if err := json.Unmarshal(e.Result, r.Task); err != nil {
			return nil, err
		}
	case "message":
		r.Message = &a2a.Message{}
		if err := json.Unmarshal(e.Result, r.Message); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unexpected result kind %q", r.Kind)
	}
	return &r, nil
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage"`
	Archive string `json:"archive"`
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer

	nextID atomic.Int64
}

func New(baseURL string, out io.Writer) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		Out:        out,
	}
}

// SetBaseURL updates the agent base URL
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

// SendMessage posts message/send, continuing taskID when it is set.
func (c *Client) SendMessage(ctx context.Context, taskID, text string) (*Envelope, error) {
	params := a2a.MessageSendParams{
		Message: &a2a.Message{
			Kind:      "message",
			Role:      a2a.RoleUser,
			Parts:     []a2a.Part{a2a.TextPart(text)},
			MessageID: a2a.NewID(),
			TaskID:    taskID,
		},
	}
	return c.call(ctx, a2a.MethodMessageSend, params)
}

// GetTask posts tasks/get.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Envelope, error) {
	return c.call(ctx, a2a.MethodTasksGet, a2a.TaskQueryParams{ID: taskID})
}

func (c *Client) Card(ctx context.Context) (*a2a.AgentCard, error) {
	var card a2a.AgentCard
	if err := c.doRequest(ctx, http.MethodGet, "/.well-known/agent.json", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RawRPC posts body verbatim to the RPC endpoint.
func (c *Client) RawRPC(ctx context.Context, body string) (*Envelope, error) {
	var env Envelope
	if err := c.doRequest(ctx, http.MethodPost, "/", json.RawMessage(body), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) call(ctx context.Context, method string, params any) (*Envelope, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	id, _ := json.Marshal(c.nextID.Add(1))
	req := a2a.Request{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	}

	var env Envelope
	if err := c.doRequest(ctx, http.MethodPost, "/", req, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
		bodyStr = string(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.out(), "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if c.Verbose && bodyStr != "" {
		fmt.Fprintf(c.out(), "%sRequest Body:%s\n", display.Cyan, display.Reset)
		display.PrettyPrintJSON(c.out(), json.RawMessage(bodyStr))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.out(), "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.out(), "%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if c.Verbose && len(respBody) > 0 {
		fmt.Fprintf(c.out(), "%sResponse Body:%s\n", display.Cyan, display.Reset)
		if json.Valid(respBody) {
			display.PrettyPrintJSON(c.out(), json.RawMessage(respBody))
		} else {
			fmt.Fprintln(c.out(), string(respBody))
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			if resp.StatusCode >= 400 {
				return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			}
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	// RPC errors arrive in the envelope; other endpoints fail on status alone
	if resp.StatusCode >= 400 {
		if env, ok := result.(*Envelope); ok && env.Error != nil {
			return nil
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}
