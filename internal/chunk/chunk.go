// Package chunk splits extracted document text into bounded segments for model consumption.
//
// Chunks are contiguous, non-overlapping slices of the input: concatenating
// them reproduces the text exactly. Sizes are measured in characters (runes).
package chunk

import "unicode"

// Options bounds chunk size
type Options struct {
	// MaxSize is the maximum chunk length in characters
	MaxSize int

	// Lookback is how far back from the limit to search for a boundary.
	// Zero selects a tenth of MaxSize.
	Lookback int
}

// Chunk is one segment of the source text
type Chunk struct {
	Index int    // Position in the sequence
	Text  string // Segment text
	Start int    // Rune offset of the first character
	End   int    // Rune offset one past the last character
}

// Split cuts text into chunks of at most opts.MaxSize characters, preferring a
// paragraph break, then a line break, then a sentence end, then any whitespace
// inside the lookback window, and cutting hard at the limit otherwise.
func Split(text string, opts Options) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	maxSize := opts.MaxSize
	if maxSize <= 0 || len(runes) <= maxSize {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: len(runes)}}
	}

	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = maxSize / 10
	}
	if lookback >= maxSize {
		lookback = maxSize - 1
	}

	var chunks []Chunk
	pos := 0
	for pos < len(runes) {
		end := len(runes)
		if end-pos > maxSize {
			end = boundary(runes, pos, pos+maxSize, lookback)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[pos:end]),
			Start: pos,
			End:   end,
		})
		pos = end
	}
	return chunks
}

// Texts returns the text of each chunk
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// boundary picks the cut offset in (pos, limit]. Boundary whitespace stays
// with the preceding chunk.
func boundary(runes []rune, pos, limit, lookback int) int {
	floor := limit - lookback
	if floor <= pos {
		floor = pos + 1
	}

	// Paragraph break
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == '\n' && i > pos && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// Line break
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}

	// Sentence end followed by whitespace
	for i := limit - 2; i >= floor-1 && i > pos; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}

	// Any whitespace
	for i := limit - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
