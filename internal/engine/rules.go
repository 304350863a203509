package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/corentings/chess/v2"
)

const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrUnsafeFEN   = errors.New("FEN rejected before reaching the engine")
)

// Coordinate moves such as g1f3 or e7e8q.
var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// FEN validation regex
var fenPattern = regexp.MustCompile(`^[rnbqkpRNBQKP1-8/]+ [wb] [KQkq-]+ [a-h1-8-]+ \d+ \d+$`)

// IsFENSafe checks for control characters that could inject UCI commands and
// for the FEN field layout.
func IsFENSafe(fen string) bool {
	for _, r := range fen {
		if unicode.IsControl(r) {
			return false
		}
	}
	return fenPattern.MatchString(fen)
}

// Applied describes a move accepted in a position.
type Applied struct {
	FEN string // position after the move
	UCI string
	SAN string
}

type notatedMove struct {
	notation chess.Notation
	text     string
}

// ApplyIfLegal plays move from fen. Coordinate-shaped input is read only as
// UCI, since the SAN decoder accepts strings like g1f3 as a pawn move to f3.
// Everything else is read as SAN, then as UCI.
// Unparseable or illegal input yields an error wrapping ErrIllegalMove.
func ApplyIfLegal(fen, move string) (Applied, error) {
	move = strings.TrimSpace(move)
	if move == "" {
		return Applied{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}

	lower := strings.ToLower(move)
	notations := []notatedMove{{chess.UCINotation{}, lower}}
	if !uciPattern.MatchString(lower) {
		notations = []notatedMove{
			{chess.AlgebraicNotation{}, move},
			{chess.UCINotation{}, lower},
		}
	}

	for _, n := range notations {
		g, err := GameFromFEN(fen)
		if err != nil {
			return Applied{}, err
		}
		before := g.Position()
		if err := g.PushNotationMove(n.text, n.notation, nil); err != nil {
			continue
		}
		last := lastMove(g)
		if last == nil {
			continue
		}
		return Applied{
			FEN: g.FEN(),
			UCI: last.String(),
			SAN: chess.AlgebraicNotation{}.Encode(before, last),
		}, nil
	}

	return Applied{}, fmt.Errorf("%w: %q", ErrIllegalMove, move)
}

// GameFromFEN builds a rules game positioned at fen.
func GameFromFEN(fen string) (*chess.Game, error) {
	if fen == "" || fen == StartingFEN {
		return chess.NewGame(), nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return chess.NewGame(opt), nil
}

// Replay plays history from the starting position. The replayed game keeps
// the position history that repetition detection needs.
func Replay(history []string) (*chess.Game, error) {
	g := chess.NewGame()
	for i, mv := range history {
		if err := g.PushNotationMove(mv, chess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replaying ply %d (%s): %w", i+1, mv, err)
		}
	}
	return g, nil
}

func lastMove(g *chess.Game) *chess.Move {
	moves := g.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}
