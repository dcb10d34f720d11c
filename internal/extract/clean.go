package extract

import (
	"strings"
	"unicode"
)

// Clean normalizes extracted text. Runs of spaces and tabs collapse to one
// space, control and unprintable characters are dropped, lines are trimmed,
// and more than one blank line collapses to a single paragraph break.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out strings.Builder
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		line = cleanLine(line)
		if line == "" {
			blank++
			continue
		}
		if out.Len() > 0 {
			if blank > 0 {
				out.WriteString("\n\n")
			} else {
				out.WriteByte('\n')
			}
		}
		out.WriteString(line)
		blank = 0
	}
	return out.String()
}

func cleanLine(line string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range line {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
