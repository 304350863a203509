package display

import (
	"fmt"
	"io"
	"strings"
)

// RenderBoard prints an ASCII board: white pieces blue, black pieces red,
// coordinates cyan.
func RenderBoard(w io.Writer, ascii string) {
	lines := strings.Split(ascii, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		labelLine := i == 0 || i == len(lines)-1

		var sb strings.Builder
		for _, ch := range line {
			switch {
			case labelLine && ch >= 'a' && ch <= 'h':
				sb.WriteString(Cyan + string(ch) + Reset)
			case ch >= '1' && ch <= '8':
				sb.WriteString(Cyan + string(ch) + Reset)
			case ch >= 'A' && ch <= 'Z':
				sb.WriteString(Blue + string(ch) + Reset)
			case ch >= 'a' && ch <= 'z':
				sb.WriteString(Red + string(ch) + Reset)
			default:
				sb.WriteRune(ch)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// Turn returns a colored side-to-move label.
func Turn(whiteToMove bool) string {
	if whiteToMove {
		return Blue + "White" + Reset
	}
	return Red + "Black" + Reset
}
