package http

import (
	"encoding/json"

	"chessagent/internal/a2a"
	"chessagent/internal/core"

	"github.com/gofiber/fiber/v2"
)

// HandleRPC dispatches a JSON-RPC 2.0 request. Protocol errors are answered
// with HTTP 200 and an error member, as clients expect.
func (h *HTTPHandler) HandleRPC(c *fiber.Ctx) error {
	var req a2a.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.JSON(a2a.NewError(nil, core.NewParseError(err.Error())))
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		return c.JSON(a2a.NewError(req.ID, core.NewInvalidRequest("jsonrpc must be \"2.0\" and method is required")))
	}

	switch req.Method {
	case a2a.MethodMessageSend:
		return h.messageSend(c, req)
	case a2a.MethodTasksGet:
		return h.tasksGet(c, req)
	default:
		return c.JSON(a2a.NewError(req.ID, core.NewMethodNotFound(req.Method)))
	}
}

func (h *HTTPHandler) messageSend(c *fiber.Ctx, req a2a.Request) error {
	var params a2a.MessageSendParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return c.JSON(a2a.NewError(req.ID, rpcErr))
	}

	resp := h.delivery.Send(c.UserContext(), req.ID, &params)
	return c.JSON(resp)
}

func (h *HTTPHandler) tasksGet(c *fiber.Ctx, req a2a.Request) error {
	var params a2a.TaskQueryParams
	if rpcErr := decodeParams(req.Params, &params); rpcErr != nil {
		return c.JSON(a2a.NewError(req.ID, rpcErr))
	}

	task, err := h.tasks.TaskState(c.UserContext(), params.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", params.ID).Msg("tasks/get failed")
		return c.JSON(a2a.NewError(req.ID, core.NewInternal("Internal error", nil)))
	}
	return c.JSON(a2a.NewResult(req.ID, task))
}

func decodeParams(raw json.RawMessage, dst any) *core.RPCError {
	if len(raw) == 0 || string(raw) == "null" {
		return core.NewInvalidParams("Invalid params", "params are required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return core.NewInvalidParams("Invalid params", err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return core.NewInvalidParams("Invalid params", describeValidation(err))
	}
	return nil
}
