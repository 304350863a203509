// Package classifier turns free-form user input into a Command.
package classifier

import "context"

// Kind names a command variant.
type Kind string

const (
	KindResign      Kind = "resign"
	KindBoard       Kind = "board"
	KindMove        Kind = "move"
	KindChat        Kind = "chat"
	KindUnknown     Kind = "unknown"
	KindInvalid     Kind = "invalid"
	KindUnsupported Kind = "unsupported"
)

// Command is a closed union; only the types in this package implement it.
type Command interface {
	Kind() Kind
	command()
}

type Resign struct{}

type Board struct{}

// Move carries the user's move text as typed (SAN or UCI).
type Move struct {
	Text string
}

// Chat carries a reply to pass through to the user.
type Chat struct {
	Reply string
}

// Unknown carries a clarification for input that maps to no action.
type Unknown struct {
	Message string
}

// Invalid carries the classifier's explanation of why the input was rejected.
type Invalid struct {
	Err string
}

// Unsupported is a command type the classifier produced but the agent does not handle.
type Unsupported struct {
	Type string
}

func (Resign) Kind() Kind      { return KindResign }
func (Board) Kind() Kind       { return KindBoard }
func (Move) Kind() Kind        { return KindMove }
func (Chat) Kind() Kind        { return KindChat }
func (Unknown) Kind() Kind     { return KindUnknown }
func (Invalid) Kind() Kind     { return KindInvalid }
func (Unsupported) Kind() Kind { return KindUnsupported }

func (Resign) command()      {}
func (Board) command()       {}
func (Move) command()        {}
func (Chat) command()        {}
func (Unknown) command()     {}
func (Invalid) command()     {}
func (Unsupported) command() {}

// Context is what the classifier may consult about the game in progress.
type Context struct {
	FEN         string
	MoveHistory []string
	Phase       string
}

// Classifier maps user text to a Command.
type Classifier interface {
	Classify(ctx context.Context, text string, gc Context) (Command, error)
}
