package commands

import (
	"errors"
	"fmt"

	"chessagent/internal/a2a"
	"chessagent/internal/board"
	"chessagent/internal/client/api"
	"chessagent/internal/client/display"
)

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "send",
		ShortName:   "s",
		Description: "Send a move or message on the current task",
		Usage:       "send <text>",
		RawArgs:     true,
		Handler:     sendHandler,
	})
	r.Register(&Command{
		Name:        "task",
		ShortName:   "t",
		Description: "Show the current task state",
		Usage:       "task [taskId]",
		Handler:     taskHandler,
	})
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Forget the current task; the next message starts a game",
		Usage:       "new",
		Handler:     newHandler,
	})
	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Continue an existing task",
		Usage:       "join <taskId>",
		Handler:     joinHandler,
	})
	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Redraw the last board received",
		Usage:       "show",
		Handler:     showHandler,
	})
}

func sendHandler(s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: send <text>")
	}
	ctx, cancel := withTimeout()
	defer cancel()

	env, err := s.Client.SendMessage(ctx, s.TaskID, args[0])
	if err != nil {
		return err
	}
	return printEnvelope(s, env)
}

func taskHandler(s *Session, args []string) error {
	id := s.TaskID
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return errors.New("no current task; send a move first or pass a task id")
	}
	ctx, cancel := withTimeout()
	defer cancel()

	env, err := s.Client.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return printEnvelope(s, env)
}

func newHandler(s *Session, _ []string) error {
	s.TaskID, s.LastState, s.LastFEN = "", "", ""
	fmt.Fprintf(s.Out, "%sNext message starts a new task%s\n", display.Cyan, display.Reset)
	return nil
}

func joinHandler(s *Session, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: join <taskId>")
	}
	s.TaskID = args[0]
	fmt.Fprintf(s.Out, "%sCurrent task: %s%s\n", display.Cyan, s.TaskID, display.Reset)
	return nil
}

func showHandler(s *Session, _ []string) error {
	if s.LastFEN == "" {
		return errors.New("no board received yet")
	}
	return printBoard(s, s.LastFEN)
}

// printEnvelope shows an agent reply and remembers the task and position.
func printEnvelope(s *Session, env *api.Envelope) error {
	if env.Error != nil {
		fmt.Fprintf(s.Out, "%s%s (%d)%s\n", display.Red, env.Error.Message, env.Error.Code, display.Reset)
		if env.Error.Data != nil {
			fmt.Fprintf(s.Out, "%s%v%s\n", display.Red, env.Error.Data, display.Reset)
		}
		return nil
	}

	res, err := env.Decode()
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("empty result")
	}

	var parts []a2a.Part
	switch {
	case res.Task != nil:
		s.TaskID = res.Task.ID
		s.LastState = string(res.Task.Status.State)
		fmt.Fprintf(s.Out, "%sTask %s: %s%s\n", display.Magenta, res.Task.ID, res.Task.Status.State, display.Reset)
		if res.Task.Status.Message != nil {
			parts = append(parts, res.Task.Status.Message.Parts...)
		}
		for _, a := range res.Task.Artifacts {
			parts = append(parts, a.Parts...)
		}
	case res.Message != nil:
		parts = res.Message.Parts
	}

	for _, p := range parts {
		switch p.Kind {
		case a2a.KindText:
			fmt.Fprintln(s.Out, p.Text)
		case a2a.KindFile:
			if p.File != nil && p.File.URI != "" {
				fmt.Fprintf(s.Out, "%sImage: %s%s\n", display.Cyan, p.File.URI, display.Reset)
			}
		case a2a.KindData:
			if fen, ok := p.Data["fen"].(string); ok {
				s.LastFEN = fen
				if err := printBoard(s, fen); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func printBoard(s *Session, fen string) error {
	b, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out)
	display.RenderBoard(s.Out, b.ToASCII())
	fmt.Fprintf(s.Out, "%s to move\n", display.Turn(b.WhiteToMove()))
	return nil
}
