package http

import (
	"chessagent/internal/a2a"
)

const (
	AgentName    = "Chess Agent"
	AgentVersion = "1.0.0"

	mimeFEN = "application/x-fen"
	mimePNG = "image/png"
)

// CardOptions carries the deployment facts that vary the agent card.
type CardOptions struct {
	// NameSuffix is appended as "_local_<suffix>" when Local is set.
	Local             bool
	NameSuffix        string
	TelexExtensions   bool
	PushNotifications bool
}

func (o CardOptions) name() string {
	if o.Local && o.NameSuffix != "" {
		return AgentName + "_local_" + o.NameSuffix
	}
	return AgentName
}

// BuildCard describes the agent reachable at baseURL.
func BuildCard(baseURL string, o CardOptions) a2a.AgentCard {
	card := a2a.AgentCard{
		Name:        o.name(),
		Description: "An agent that plays chess. Accepts moves in standard notation and returns updated board state as FEN and an image.",
		URL:         baseURL,
		Provider: &a2a.AgentProvider{
			Organization: "Telex",
			URL:          "https://www.telex.im",
		},
		Version:          AgentVersion,
		DocumentationURL: baseURL + "/docs",
		Capabilities: a2a.AgentCapabilities{
			Streaming:              false,
			PushNotifications:      o.PushNotifications,
			StateTransitionHistory: true,
		},
		Authentication:     &a2a.AgentAuthentication{Schemes: []string{"Bearer"}},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{mimeFEN, mimePNG},
		Skills: []a2a.AgentSkill{{
			ID:          "play_move",
			Name:        "Play Move",
			Description: "Plays a move and returns the updated board in FEN format and as an image.",
			Tags:        []string{"chess", "gameplay", "board"},
			Examples:    []string{"e4", "Nf3", "d5"},
			InputModes:  []string{"text/plain"},
			OutputModes: []string{mimeFEN, mimePNG},
		}},
	}

	if o.TelexExtensions {
		card.Skills = append(card.Skills, a2a.AgentSkill{
			ID:          "telex-extensions",
			Name:        "Telex Extensions",
			Description: "This agent supports extra features offered by the telex platform.",
			Tags:        []string{"telex", "telex-extensions"},
		})
	}
	return card
}
