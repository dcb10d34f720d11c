package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/papersift/internal/chunk"
)

// Scored is a statistical keyword candidate
type Scored struct {
	Term  string
	Score float64
}

// segmentSize bounds the corpus segments used for document frequency
const segmentSize = 1500

// Statistical ranks unigrams and bigrams of text by TF-IDF and returns the top count terms.
// The document is split into segments that act as the corpus.
func Statistical(text string, count int) []string {
	segments := chunk.Texts(chunk.Split(text, chunk.Options{MaxSize: segmentSize, Lookback: segmentSize / 5}))
	scored := TFIDF(segments)

	if count > 0 && len(scored) > count {
		scored = scored[:count]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Term
	}
	return out
}

// TFIDF scores every term of the segments as total term frequency times smoothed
// inverse document frequency, ln((1+N)/(1+df))+1. Results are ordered by score
// descending, then alphabetically.
func TFIDF(segments []string) []Scored {
	tf := make(map[string]int)
	df := make(map[string]int)
	n := 0

	for _, seg := range segments {
		terms := terms(seg)
		if len(terms) == 0 {
			continue
		}
		n++
		seen := make(map[string]bool)
		for _, t := range terms {
			tf[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	scored := make([]Scored, 0, len(tf))
	for term, freq := range tf {
		idf := math.Log(float64(1+n)/float64(1+df[term])) + 1
		scored = append(scored, Scored{Term: term, Score: float64(freq) * idf})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Term < scored[j].Term
	})
	return scored
}

// terms returns the unigrams and bigrams of text. Tokens are lowercase letter
// runs of at least three characters; stopwords are dropped and break bigrams.
func terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var out []string
	prev := ""
	for _, w := range words {
		if len([]rune(w)) < 3 || stopwords[w] {
			prev = ""
			continue
		}
		out = append(out, w)
		if prev != "" {
			out = append(out, prev+" "+w)
		}
		prev = w
	}
	return out
}
