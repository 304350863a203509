package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

const systemPrompt = `You are a Chess Agent. You have access to the move history in the game.
Your job is to interpret a user's input and respond with exactly one command:
1. "resign" if the user wants to quit or give up.
2. "board" if the user wants to see the current board state.
3. "move" with a valid chess move in standard algebraic notation (e.g. "e4", "Nf3") in the "move" field.
   For natural language requests such as "make the most popular first move" or "play something aggressive",
   infer the most appropriate move using opening theory and standard practice, and return it in algebraic notation.
4. "chat" with a short reply in "chat_reply" if the user is asking a chess question or making conversation.
5. "hint" or "analysis" if the user asks for a hint or an analysis of the position.
6. "unknown" with a clarifying question in "message" if the intent is unclear.
7. "invalid" with a brief explanation in "error_message" if the input cannot be turned into any action.`

// Gemini classifies input with a Gemini model constrained to a JSON schema.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a classifier backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Classify(ctx context.Context, text string, gc Context) (Command, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      genai.Ptr(float32(0.2)),
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildPrompt(text, gc)}},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return decodeCommand([]byte(sb.String()))
}

func buildPrompt(text string, gc Context) string {
	var sb strings.Builder
	if len(gc.MoveHistory) > 0 {
		fmt.Fprintf(&sb, "Move history (UCI): %s\n", strings.Join(gc.MoveHistory, " "))
	} else {
		sb.WriteString("Move history: none, the game has not started.\n")
	}
	if gc.FEN != "" {
		fmt.Fprintf(&sb, "Current position (FEN): %s\n", gc.FEN)
	}
	if gc.Phase != "" {
		fmt.Fprintf(&sb, "Game phase: %s\n", gc.Phase)
	}
	fmt.Fprintf(&sb, "User input: %s", text)
	return sb.String()
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"command_type": {
				Type:        genai.TypeString,
				Description: "Type of command parsed from user input",
				Enum:        []string{"resign", "board", "move", "chat", "hint", "analysis", "unknown", "invalid"},
			},
			"move": {
				Type:        genai.TypeString,
				Description: "Chess move in algebraic notation, only when command_type is move",
			},
			"chat_reply": {
				Type:        genai.TypeString,
				Description: "Reply to the user, only when command_type is chat",
			},
			"message": {
				Type:        genai.TypeString,
				Description: "Clarifying question, only when command_type is unknown",
			},
			"error_message": {
				Type:        genai.TypeString,
				Description: "Error explanation, only when command_type is invalid",
			},
		},
		Required: []string{"command_type"},
	}
}

type commandResponse struct {
	CommandType  string `json:"command_type"`
	Move         string `json:"move"`
	ChatReply    string `json:"chat_reply"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message"`
}

// decodeCommand maps the model's JSON answer onto the Command union.
func decodeCommand(data []byte) (Command, error) {
	var r commandResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding classifier response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(r.CommandType)) {
	case "resign":
		return Resign{}, nil
	case "board":
		return Board{}, nil
	case "move":
		return Move{Text: strings.TrimSpace(r.Move)}, nil
	case "chat":
		return Chat{Reply: r.ChatReply}, nil
	case "unknown":
		return Unknown{Message: r.Message}, nil
	case "invalid":
		return Invalid{Err: r.ErrorMessage}, nil
	case "":
		return nil, fmt.Errorf("classifier response has no command_type")
	default:
		return Unsupported{Type: r.CommandType}, nil
	}
}
