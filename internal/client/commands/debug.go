package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chessagent/internal/client/display"
)

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check agent health",
		Usage:       "health",
		Handler:     healthHandler,
	})
	r.Register(&Command{
		Name:        "card",
		ShortName:   "c",
		Description: "Show the agent card",
		Usage:       "card",
		Handler:     cardHandler,
	})
	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or set the agent base URL",
		Usage:       "url [baseUrl]",
		Handler:     urlHandler,
	})
	r.Register(&Command{
		Name:        "token",
		ShortName:   "k",
		Description: "Set or clear the bearer token",
		Usage:       "token [jwt]",
		Handler:     tokenHandler,
	})
	r.Register(&Command{
		Name:        "verbose",
		ShortName:   "v",
		Description: "Toggle request and response dumps",
		Usage:       "verbose",
		Handler:     verboseHandler,
	})
	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Description: "Post a raw JSON-RPC body",
		Usage:       "raw <json-body>",
		RawArgs:     true,
		Handler:     rawHandler,
	})
}

func healthHandler(s *Session, _ []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	resp, err := s.Client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%sAgent Health:%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(s.Out, "  Status:  %s\n", resp.Status)
	fmt.Fprintf(s.Out, "  Time:    %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(s.Out, "  Storage: %s\n", resp.Storage)
	fmt.Fprintf(s.Out, "  Archive: %s\n", resp.Archive)
	return nil
}

func cardHandler(s *Session, _ []string) error {
	ctx, cancel := withTimeout()
	defer cancel()

	card, err := s.Client.Card(ctx)
	if err != nil {
		return err
	}
	display.PrettyPrintJSON(s.Out, card)
	return nil
}

func urlHandler(s *Session, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(s.Out, "Current agent URL: %s\n", s.Client.BaseURL)
		return nil
	}
	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	s.Client.SetBaseURL(url)
	fmt.Fprintf(s.Out, "%sAgent URL set to: %s%s\n", display.Cyan, s.Client.BaseURL, display.Reset)
	return nil
}

func tokenHandler(s *Session, args []string) error {
	if len(args) == 0 {
		s.Client.SetToken("")
		fmt.Fprintf(s.Out, "%sToken cleared%s\n", display.Cyan, display.Reset)
		return nil
	}
	s.Client.SetToken(args[0])
	fmt.Fprintf(s.Out, "%sToken set%s\n", display.Cyan, display.Reset)
	return nil
}

func rawHandler(s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: raw <json-body>")
	}
	ctx, cancel := withTimeout()
	defer cancel()

	env, err := s.Client.RawRPC(ctx, args[0])
	if err != nil {
		return err
	}
	display.PrettyPrintJSON(s.Out, env)
	return nil
}

func verboseHandler(s *Session, _ []string) error {
	s.Verbose = !s.Verbose
	state := "off"
	if s.Verbose {
		state = "on"
	}
	fmt.Fprintf(s.Out, "%sVerbose %s%s\n", display.Cyan, state, display.Reset)
	return nil
}
