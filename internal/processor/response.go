package processor

import (
	"fmt"

	"chessagent/internal/a2a"
	"chessagent/internal/core"
	"chessagent/internal/render"
)

// Response is the outcome of one turn: exactly one of Task, Message or Error is set.
type Response struct {
	Task    *a2a.Task
	Message *a2a.Message
	Error   *core.RPCError
}

// Result returns the value to place in a JSON-RPC result member.
func (r *Response) Result() any {
	if r.Task != nil {
		return r.Task
	}
	return r.Message
}

func taskResponse(task *a2a.Task) *Response {
	return &Response{Task: task}
}

func messageResponse(parts ...a2a.Part) *Response {
	return &Response{Message: a2a.NewAgentMessage(parts...)}
}

func errorResponse(message, data string) *Response {
	return &Response{Error: core.NewInvalidParams(message, data)}
}

func boardPart(img render.Image) a2a.Part {
	return a2a.FilePart(a2a.FileContent{
		Name:     img.Name,
		MimeType: img.MimeType,
		URI:      img.URI,
		Bytes:    img.Base64(),
	})
}

func positionPart(fen string, history []string) a2a.Part {
	return a2a.DataPart(map[string]any{
		"fen":         fen,
		"moveHistory": history,
	})
}

func boardStateResponse(img render.Image, fen string, history []string) *Response {
	return messageResponse(
		a2a.TextPart("Board state is:"),
		boardPart(img),
		positionPart(fen, history),
	)
}

func resignationResponse(taskID string) *Response {
	return taskResponse(a2a.NewTask(taskID, core.StateCompleted,
		a2a.NewArtifact("",
			a2a.TextPart("Game ended by resignation.\n"),
			a2a.TextPart("Start a new game by entering a valid move."),
		),
	))
}

func gameOverResponse(taskID, aiMove string, img render.Image, fen string, history []string) *Response {
	headline := "Game over."
	if aiMove != "" {
		headline = fmt.Sprintf("Game over. AI moved %s", aiMove)
	}
	return taskResponse(a2a.NewTask(taskID, core.StateCompleted,
		a2a.NewArtifact("",
			a2a.TextPart(headline),
			boardPart(img),
			a2a.TextPart("Start a new game by entering a valid move"),
			positionPart(fen, history),
		),
	))
}

func moveResponse(taskID, aiMove string, img render.Image, fen string, history []string) *Response {
	return taskResponse(a2a.NewTask(taskID, core.StateInputRequired,
		a2a.NewArtifact("move", a2a.TextPart(fmt.Sprintf("AI moved %s", aiMove))),
		a2a.NewArtifact("board", boardPart(img), positionPart(fen, history)),
	))
}

func noMoveResponse() *Response {
	return errorResponse("No move provided", "Move command requires a chess move")
}

func invalidMoveResponse(move string) *Response {
	return errorResponse(
		fmt.Sprintf("Invalid move: '%s'", move),
		fmt.Sprintf("'%s' is not a valid chess move", move),
	)
}

func invalidCommandResponse(reason string) *Response {
	if reason == "" {
		reason = "Command not recognized"
	}
	return errorResponse("Invalid command", reason)
}

func unsupportedCommandResponse(commandType string) *Response {
	switch commandType {
	case "hint":
		return errorResponse("Not implemented", "Hint feature is coming soon.")
	case "analysis":
		return errorResponse("Not implemented", "Analysis feature is coming soon.")
	default:
		return errorResponse("Unknown command", fmt.Sprintf("Command '%s' not supported", commandType))
	}
}

func unknownCommandMessage(message string) *Response {
	if message == "" {
		message = "Unknown command type: 'unknown'. Please try a different command."
	}
	return messageResponse(a2a.TextPart(message))
}
