// Package a2a defines the agent-to-agent JSON-RPC wire types served by the agent.
package a2a

import (
	"encoding/json"
	"strings"
	"time"

	"chessagent/internal/core"

	"github.com/google/uuid"
)

const JSONRPCVersion = "2.0"

// Methods
const (
	MethodMessageSend = "message/send"
	MethodTasksGet    = "tasks/get"
)

// Roles
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Part kinds
const (
	KindText = "text"
	KindFile = "file"
	KindData = "data"
)

// Request is a JSON-RPC request envelope. ID is echoed back verbatim.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response envelope carrying either Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *core.RPCError  `json:"error,omitempty"`
}

// NewResult wraps a successful result for the given request id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: normalizeID(id), Result: result}
}

// NewError wraps an error for the given request id.
func NewError(id json.RawMessage, err *core.RPCError) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: normalizeID(id), Error: err}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// FileContent references a file either by URI or inline base64 bytes.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
}

// Part is one piece of message or artifact content, discriminated by Kind.
type Part struct {
	Kind     string         `json:"kind" validate:"required,oneof=text file data"`
	Text     string         `json:"text,omitempty"`
	File     *FileContent   `json:"file,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func TextPart(text string) Part {
	return Part{Kind: KindText, Text: text}
}

func FilePart(file FileContent) Part {
	return Part{Kind: KindFile, File: &file}
}

func DataPart(data map[string]any) Part {
	return Part{Kind: KindData, Data: data}
}

type Message struct {
	Kind      string         `json:"kind"`
	Role      string         `json:"role" validate:"required,oneof=user agent"`
	Parts     []Part         `json:"parts" validate:"required,min=1,dive"`
	MessageID string         `json:"messageId"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty" validate:"omitempty,max=128"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewAgentMessage builds an agent-authored message with a fresh id.
func NewAgentMessage(parts ...Part) *Message {
	return &Message{
		Kind:      "message",
		Role:      RoleAgent,
		Parts:     parts,
		MessageID: NewID(),
	}
}

// Text returns the trimmed text of the first text part.
func (m *Message) Text() string {
	for _, p := range m.Parts {
		if p.Kind == KindText || (p.Kind == "" && p.Text != "") {
			return strings.TrimSpace(p.Text)
		}
	}
	return ""
}

type TaskStatus struct {
	State     core.TaskState `json:"state"`
	Message   *Message       `json:"message,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewStatus stamps a status with the current UTC time.
func NewStatus(state core.TaskState, msg *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name,omitempty"`
	Parts      []Part `json:"parts"`
}

// NewArtifact builds an artifact with a fresh id. Name may be empty.
func NewArtifact(name string, parts ...Part) Artifact {
	return Artifact{ArtifactID: NewID(), Name: name, Parts: parts}
}

type Task struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	ContextID string         `json:"contextId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTask builds a task projection with the given state.
func NewTask(id string, state core.TaskState, artifacts ...Artifact) *Task {
	return &Task{
		ID:        id,
		Kind:      "task",
		ContextID: uuid.NewString(),
		Status:    NewStatus(state, nil),
		Artifacts: artifacts,
	}
}

type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitempty"`
}

type PushNotificationConfig struct {
	URL            string              `json:"url" validate:"omitempty,url"`
	Token          string              `json:"token,omitempty"`
	Authentication *AuthenticationInfo `json:"authentication,omitempty"`
}

type MessageSendConfiguration struct {
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitempty"`
	HistoryLength          *int                    `json:"historyLength,omitempty" validate:"omitempty,min=0"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
	Blocking               *bool                   `json:"blocking,omitempty"`
}

type MessageSendParams struct {
	Message       *Message                  `json:"message" validate:"required"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

// PushConfig returns the caller's webhook configuration, if any.
func (p *MessageSendParams) PushConfig() *PushNotificationConfig {
	if p.Configuration == nil {
		return nil
	}
	return p.Configuration.PushNotificationConfig
}

type TaskQueryParams struct {
	ID            string         `json:"id" validate:"required,max=128"`
	HistoryLength *int           `json:"historyLength,omitempty" validate:"omitempty,min=0"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewID returns a dash-free random identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
