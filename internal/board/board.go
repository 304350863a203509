// Package board parses FEN positions for terminal display.
package board

import (
	"fmt"
	"strconv"
	"strings"
)

const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Board struct {
	squares   [8][8]byte // [rank 8..1][file a..h]
	turn      byte       // 'w' or 'b'
	castling  string
	enPassant string
	halfmove  int
	fullmove  int
}

func ParseFEN(fen string) (*Board, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("invalid FEN: expected 6 fields, got %d", len(fields))
	}

	b := &Board{}
	if err := b.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	if fields[1] != "w" && fields[1] != "b" {
		return nil, fmt.Errorf("invalid FEN: turn must be 'w' or 'b'")
	}
	b.turn = fields[1][0]
	b.castling = fields[2]
	b.enPassant = fields[3]

	var err error
	if b.halfmove, err = strconv.Atoi(fields[4]); err != nil {
		return nil, fmt.Errorf("invalid FEN: halfmove clock %q", fields[4])
	}
	if b.fullmove, err = strconv.Atoi(fields[5]); err != nil {
		return nil, fmt.Errorf("invalid FEN: fullmove number %q", fields[5])
	}
	return b, nil
}

func (b *Board) parsePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid FEN: expected 8 ranks, got %d", len(ranks))
	}
	for r, rank := range ranks {
		file := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				file += int(ch - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", ch):
				if file >= 8 {
					return fmt.Errorf("invalid FEN: too many pieces in rank %d", 8-r)
				}
				b.squares[r][file] = byte(ch)
				file++
			default:
				return fmt.Errorf("invalid FEN: unexpected %q in rank %d", ch, 8-r)
			}
		}
		if file != 8 {
			return fmt.Errorf("invalid FEN: rank %d has %d files", 8-r, file)
		}
	}
	return nil
}

// ToASCII draws the board from White's side with file and rank labels.
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for r := 0; r < 8; r++ {
		fmt.Fprintf(&sb, "%d ", 8-r)
		for f := 0; f < 8; f++ {
			if p := b.squares[r][f]; p != 0 {
				sb.WriteByte(p)
			} else {
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, " %d\n", 8-r)
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

// WhiteToMove reports whose turn it is.
func (b *Board) WhiteToMove() bool {
	return b.turn == 'w'
}

func (b *Board) FullMove() int {
	return b.fullmove
}

// PieceAt returns the FEN letter on square ("e4"), or 0 when empty or invalid.
func (b *Board) PieceAt(square string) byte {
	if len(square) != 2 {
		return 0
	}
	if square[0] < 'a' || square[0] > 'h' || square[1] < '1' || square[1] > '8' {
		return 0
	}
	return b.squares['8'-square[1]][square[0]-'a']
}
