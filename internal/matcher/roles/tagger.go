package roles

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// WordTagger extracts the significant words of a short piece of text, in
// their original order
type WordTagger interface {
	SignificantWords(text string) ([]string, error)
}

// Tagger extracts significant words using part-of-speech tagging. Nouns,
// proper nouns and adjectives longer than two characters are considered
// significant; everything else is noise for title matching purposes.
type Tagger struct{}

// NewTagger builds a part-of-speech tagger and runs a warm-up document so a
// broken model surfaces at startup rather than on the first request
func NewTagger() (*Tagger, error) {
	t := &Tagger{}
	if _, err := t.SignificantWords("software engineer"); err != nil {
		return nil, fmt.Errorf("failed to initialize POS tagger: %w", err)
	}
	return t, nil
}

// SignificantWords returns the lower-cased noun, proper-noun and adjective
// tokens of text, preserving order
func (t *Tagger) SignificantWords(text string) ([]string, error) {
	doc, err := prose.NewDocument(strings.ToLower(text),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	var words []string
	for _, tok := range doc.Tokens() {
		if len(tok.Text) <= 2 {
			continue
		}
		if strings.HasPrefix(tok.Tag, "NN") || strings.HasPrefix(tok.Tag, "JJ") {
			words = append(words, tok.Text)
		}
	}
	return words, nil
}
