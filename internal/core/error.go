package core

import "fmt"

// JSON-RPC error codes
const (
	CodeParseError                   = -32700
	CodeInvalidRequest               = -32600
	CodeMethodNotFound               = -32601
	CodeInvalidParams                = -32602
	CodeInternalError                = -32603
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationNotSupported = -32003
	CodeUnsupportedOperation         = -32004
	CodeContentTypeNotSupported      = -32005
)

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newRPCError(code int, message string, data any) *RPCError {
	e := &RPCError{Code: code, Message: message}
	// Keep "data" absent rather than an empty string on the wire
	if s, ok := data.(string); !ok || s != "" {
		e.Data = data
	}
	return e
}

func NewParseError(data any) *RPCError {
	return newRPCError(CodeParseError, "Invalid JSON payload", data)
}

func NewInvalidRequest(data any) *RPCError {
	return newRPCError(CodeInvalidRequest, "Request payload validation error", data)
}

func NewMethodNotFound(method string) *RPCError {
	return newRPCError(CodeMethodNotFound, "Method not found", fmt.Sprintf("method '%s' is not supported", method))
}

func NewInvalidParams(message string, data any) *RPCError {
	if message == "" {
		message = "Invalid parameters"
	}
	return newRPCError(CodeInvalidParams, message, data)
}

func NewInternal(message string, data any) *RPCError {
	if message == "" {
		message = "Internal error"
	}
	return newRPCError(CodeInternalError, message, data)
}

func NewTaskNotFound(taskID string) *RPCError {
	return newRPCError(CodeTaskNotFound, "Task not found", taskID)
}

func NewContentTypeNotSupported(contentType string) *RPCError {
	return newRPCError(CodeContentTypeNotSupported, "Incompatible content types", contentType)
}

func NewUnsupportedOperation(data any) *RPCError {
	return newRPCError(CodeUnsupportedOperation, "This operation is not supported", data)
}
