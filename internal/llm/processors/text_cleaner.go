// Package processors prepares job posting text for the match agents.
package processors

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	newlineRegex    = regexp.MustCompile(`\n{3,}`)

	// Boilerplate that job boards embed around descriptions
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bJavaScript\s+is\s+disabled\b.*?enabled\.`),
		regexp.MustCompile(`\bCookies?\s+are\s+disabled\b.*?enabled\.`),
		regexp.MustCompile(`\bPlease\s+enable\s+JavaScript\b.*?`),
		regexp.MustCompile(`\bThis\s+site\s+requires\s+JavaScript\b.*?`),
	}

	removeTags = []string{
		"script", "style", "noscript", "iframe", "object", "embed",
		"form", "input", "button", "select", "textarea",
		"nav", "header", "footer", "aside", "svg",
	}
)

// TextCleaner strips markup and boilerplate from job descriptions so the
// agents score the posting text, not its chrome
type TextCleaner struct{}

// NewTextCleaner creates a new text cleaner instance
func NewTextCleaner() *TextCleaner {
	return &TextCleaner{}
}

// Clean returns the plain text of a job description. HTML descriptions are
// parsed and flattened; plain text passes through with whitespace
// normalization. Cleaning never fails: on a parse error the input is
// returned with markup stripped lexically.
func (tc *TextCleaner) Clean(text string) string {
	if !strings.Contains(text, "<") {
		return tc.normalize(text)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return tc.normalize(tagRegex.ReplaceAllString(text, " "))
	}

	for _, tag := range removeTags {
		doc.Find(tag).Remove()
	}

	flattened := doc.Text()
	if strings.TrimSpace(flattened) == "" {
		flattened = tagRegex.ReplaceAllString(text, " ")
	}

	return tc.normalize(flattened)
}

func (tc *TextCleaner) normalize(text string) string {
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = newlineRegex.ReplaceAllString(text, "\n\n")
	for _, pattern := range noisePatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
