package classifier

import (
	"context"
	"strings"
)

// Rules is the keyword classifier: resign and board requests are recognized
// anywhere in the text, everything else is treated as a move.
type Rules struct{}

func (Rules) Classify(_ context.Context, text string, _ Context) (Command, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "resign"):
		return Resign{}, nil
	case strings.Contains(lower, "board"):
		return Board{}, nil
	case lower == "hint":
		return Unsupported{Type: "hint"}, nil
	case lower == "analysis" || lower == "analyze" || lower == "analyse":
		return Unsupported{Type: "analysis"}, nil
	default:
		return Move{Text: text}, nil
	}
}
