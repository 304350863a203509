package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"chessagent/internal/client/api"
	"chessagent/internal/client/display"
)

const requestTimeout = 2 * time.Minute

// Session is the REPL state shared by all commands.
type Session struct {
	Client    *api.Client
	TaskID    string
	LastState string
	LastFEN   string
	Verbose   bool
	Out       io.Writer
}

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	// RawArgs passes the text after the command name unsplit.
	RawArgs bool
	Handler func(*Session, []string) error
}

type Registry struct {
	session  *Session
	commands map[string]*Command
	names    []string
}

// ErrExit asks the REPL loop to stop.
var ErrExit = errors.New("exit")

func NewRegistry(s *Session) *Registry {
	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
	}

	r.registerGameCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})
	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler:     func(*Session, []string) error { return ErrExit },
	})
	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line. Text that is not a command is sent to the
// agent as a message on the current task.
func (r *Registry) Execute(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	name, rest, _ := strings.Cut(input, " ")
	cmd, ok := r.commands[name]
	if !ok {
		cmd, rest = r.commands["send"], input
	}

	r.session.Client.Verbose = r.session.Verbose

	args := strings.Fields(rest)
	if cmd.RawArgs {
		args = nil
		if rest = strings.TrimSpace(rest); rest != "" {
			args = []string{rest}
		}
	}

	err := cmd.Handler(r.session, args)
	if err != nil && !errors.Is(err, ErrExit) {
		fmt.Fprintf(r.session.Out, "%sError: %s%s\n", display.Red, err.Error(), display.Reset)
		return nil
	}
	return err
}

func (r *Registry) helpHandler(s *Session, args []string) error {
	if len(args) > 0 {
		cmd, ok := r.commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(s.Out, "\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(s.Out, "Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		fmt.Fprintf(s.Out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(s.Out, "\n%sAvailable Commands:%s\n\n", display.Cyan, display.Reset)
	names := append([]string(nil), r.names...)
	sort.Strings(names)
	for _, name := range names {
		cmd := r.commands[name]
		short := "   "
		if cmd.ShortName != "" {
			short = fmt.Sprintf("[%s%s%s]", display.Cyan, cmd.ShortName, display.Reset)
		}
		fmt.Fprintf(s.Out, "  %s %-8s %s\n", short, cmd.Name, cmd.Description)
	}
	fmt.Fprintf(s.Out, "\nAnything else is sent to the agent as a move or message\n")
	return nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
