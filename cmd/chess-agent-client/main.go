// Command chess-agent-client is an interactive REPL for talking to a chess agent.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"chessagent/internal/board"
	"chessagent/internal/client/api"
	"chessagent/internal/client/commands"
	"chessagent/internal/client/display"

	"github.com/chzyer/readline"
)

func main() {
	url := flag.String("url", "http://localhost:7000", "Agent base URL")
	token := flag.String("token", "", "Bearer token for authenticated agents")
	flag.Parse()

	s := &commands.Session{
		Client: api.New(*url, os.Stdout),
		Out:    os.Stdout,
	}
	s.Client.SetToken(*token)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_agent_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sChess Agent Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAgent: %s%s\n", display.Cyan, s.Client.BaseURL, display.Reset)
	fmt.Printf("Type a move to start a game, 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if strings.TrimSpace(line) == "quit" {
			break
		}
		if err := registry.Execute(line); errors.Is(err, commands.ErrExit) {
			break
		}
	}
}

func buildPrompt(s *commands.Session) string {
	prompt := "chess"
	if s.TaskID == "" {
		return display.Prompt(prompt)
	}

	id := s.TaskID
	if len(id) > 8 {
		id = id[:8]
	}
	prompt += display.Yellow + " [" + display.White + id + display.Yellow + "]" + display.Reset

	if s.LastState != "" {
		prompt += " " + s.LastState
	}
	if b, err := board.ParseFEN(s.LastFEN); err == nil && s.LastState == "input-required" {
		prompt += " - Turn:" + display.Turn(b.WhiteToMove())
	}
	return display.Prompt(prompt)
}
