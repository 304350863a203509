// Package cli implements the agent's admin subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"chessagent/internal/storage"

	"github.com/lixenwraith/auth"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// minSecretLen matches the HS256 key length the auth middleware expects.
const minSecretLen = 32

// Run dispatches "db ..." and "token ..." subcommands.
func Run(args []string) error {
	return run(args, os.Stdout)
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("command required: db, token")
	}
	switch args[0] {
	case "db":
		if len(args) < 2 {
			return errors.New("db subcommand required: init, delete, query")
		}
		return runDB(args[1], args[2:], out)
	case "token":
		return runToken(args[1:], out, readSecret)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runDB(sub string, args []string, out io.Writer) error {
	switch sub {
	case "init":
		return runInit(args, out)
	case "delete":
		return runDelete(args, out)
	case "query":
		return runQuery(args, out)
	default:
		return fmt.Errorf("unknown db subcommand: %s", sub)
	}
}

func openArchive(name string, args []string, extra func(*flag.FlagSet)) (*storage.Archive, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("path", "", "Archive database file path (required)")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if *path == "" {
		return nil, nil, errors.New("database path required")
	}
	a, err := storage.OpenArchive(*path, zerolog.Nop())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return a, fs, nil
}

func runInit(args []string, out io.Writer) error {
	a, fs, err := openArchive("db init", args, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(out, "Archive initialized at: %s\n", fs.Lookup("path").Value)
	return nil
}

func runDelete(args []string, out io.Writer) error {
	a, fs, err := openArchive("db delete", args, nil)
	if err != nil {
		return err
	}
	if err := a.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}
	fmt.Fprintf(out, "Archive deleted: %s\n", fs.Lookup("path").Value)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	var taskID *string
	a, _, err := openArchive("db query", args, func(fs *flag.FlagSet) {
		taskID = fs.String("task", "*", "Task ID to filter (* for all)")
	})
	if err != nil {
		return err
	}
	defer a.Close()

	games, err := a.QueryGames(*taskID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Task ID\tStarted\tPlies\tResult\tReason")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, g := range games {
		result, reason := "*", "in progress"
		if g.EndedAt != nil {
			result, reason = g.Result, g.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			shortID(g.TaskID),
			g.StartedAt.Format("2006-01-02 15:04:05"),
			g.Plies,
			result,
			reason,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

func runToken(args []string, out io.Writer, prompt func() ([]byte, error)) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	secret := fs.String("secret", "", "HS256 secret (AUTH_JWT_SECRET); prompted when empty")
	subject := fs.String("sub", "telex", "Token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := []byte(*secret)
	if len(key) == 0 {
		var err error
		if key, err = prompt(); err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
	}
	if len(key) < minSecretLen {
		return fmt.Errorf("secret must be at least %d bytes", minSecretLen)
	}

	token, err := auth.GenerateHS256Token(key, *subject, nil, *ttl)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}

func readSecret() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Enter secret: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	return b, err
}
