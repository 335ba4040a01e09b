package text

import (
	"strings"
	"unicode"
)

// Segmenter splits text into an ordered sequence of sentences. Joining the
// result with single spaces reconstructs the input modulo whitespace
// normalization.
type Segmenter interface {
	Segment(text string) []string
}

// RuleSegmenter is a rule-based sentence segmenter. A sentence ends at a
// terminator rune (., !, ?, or their common Unicode equivalents) optionally
// followed by closing quotes or brackets, when the next non-space rune starts
// a new sentence.
type RuleSegmenter struct{}

// NewRuleSegmenter creates the default rule-based segmenter.
func NewRuleSegmenter() *RuleSegmenter {
	return &RuleSegmenter{}
}

// terminators end a sentence.
var terminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'…': true, // ellipsis
	'。': true, // ideographic full stop
	'！': true, // fullwidth !
	'？': true, // fullwidth ?
}

// trailers may follow a terminator and still belong to the sentence.
var trailers = map[rune]bool{
	'"': true, '\'': true, ')': true, ']': true,
	'”': true, // right double quote
	'’': true, // right single quote
}

// Segment splits text into sentences. Whitespace runs inside a sentence are
// collapsed to single spaces; empty segments are dropped.
func (s *RuleSegmenter) Segment(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		current.Reset()
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsSpace(r) {
			// Collapse whitespace runs to a single space.
			if current.Len() > 0 {
				current.WriteRune(' ')
			}
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
			continue
		}

		current.WriteRune(r)

		if !terminators[r] {
			continue
		}

		// Consume trailing quotes/brackets into this sentence.
		for i+1 < len(runes) && trailers[runes[i+1]] {
			i++
			current.WriteRune(runes[i])
		}

		// Only break when what follows is whitespace (or end of input), so
		// abbreviations like "3.14" or "e.g.x" stay intact.
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}

	flush()

	return sentences
}
