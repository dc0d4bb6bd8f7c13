package roles

import (
	"errors"
	"strings"
	"testing"

	"talentmatch/internal/logging"
)

// stubTagger returns canned significant words per input text so tests do not
// depend on the real POS model
type stubTagger struct {
	words map[string][]string
	fail  map[string]bool
}

func (s *stubTagger) SignificantWords(text string) ([]string, error) {
	if s.fail[text] {
		return nil, errors.New("tagger failure")
	}
	if words, ok := s.words[text]; ok {
		return words, nil
	}
	// Fallback: split on spaces, keep words longer than 2 chars
	var words []string
	for _, w := range strings.Fields(text) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words, nil
}

func testConfig() Config {
	return Config{
		Threshold:           40.0,
		OrderBonus:          20.0,
		CommonOverlapScore:  15.0,
		LengthPenaltyWeight: 10.0,
		GenericWords: []string{
			"engineer", "developer", "manager", "specialist", "analyst",
			"consultant", "architect", "administrator", "coordinator", "director",
			"lead", "senior", "junior", "entry", "level", "principal", "staff",
		},
	}
}

func newTestMatcher(tagger WordTagger) *Matcher {
	return NewMatcher(testConfig(), tagger, logging.NewMultiLogger())
}

func TestMatchTitlesExactMatch(t *testing.T) {
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"Backend Engineer"}, []string{"backend engineer", "frontend developer"})
	if len(got) != 1 || got[0] != "backend engineer" {
		t.Errorf("MatchTitles() = %v, want [backend engineer]", got)
	}
}

func TestMatchTitlesSubstring(t *testing.T) {
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"data engineer"}, []string{"senior data engineer", "data analyst"})
	if len(got) != 1 || got[0] != "senior data engineer" {
		t.Errorf("MatchTitles() = %v, want [senior data engineer]", got)
	}
}

func TestMatchTitlesStrictSubset(t *testing.T) {
	// Frontend must never drift onto backend: the specific word "frontend"
	// is absent from the backend title, so no match is allowed.
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"frontend developer"}, []string{"backend developer"})
	if len(got) != 0 {
		t.Errorf("MatchTitles() = %v, want no matches", got)
	}
}

func TestMatchTitlesSeniorPrefixStripped(t *testing.T) {
	// "senior" is generic, so the specific word "backend" carries the match
	// onto the bare canonical title
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"senior backend engineer"}, []string{"backend engineer", "frontend developer"})
	if len(got) != 1 || got[0] != "backend engineer" {
		t.Errorf("MatchTitles() = %v, want [backend engineer]", got)
	}
}

func TestMatchTitlesInsufficientSignal(t *testing.T) {
	// A role of a single generic word carries no matchable signal
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"engineer"}, []string{"backend engineer", "software engineer"})
	if len(got) != 0 {
		t.Errorf("MatchTitles() = %v, want no matches", got)
	}
}

func TestMatchTitlesEmptyRoleSkipped(t *testing.T) {
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles([]string{"", "  "}, []string{"backend engineer"})
	if len(got) != 0 {
		t.Errorf("MatchTitles() = %v, want no matches", got)
	}
}

func TestMatchTitlesDeduplicates(t *testing.T) {
	m := newTestMatcher(&stubTagger{})

	got := m.MatchTitles(
		[]string{"backend engineer", "Backend Engineer"},
		[]string{"backend engineer"},
	)
	if len(got) != 1 {
		t.Errorf("MatchTitles() = %v, want one entry", got)
	}
}

func TestMatchTitlesTaggerFailureSkipsRole(t *testing.T) {
	m := newTestMatcher(&stubTagger{fail: map[string]bool{"mystery role": true}})

	got := m.MatchTitles(
		[]string{"mystery role", "backend engineer"},
		[]string{"backend engineer"},
	)
	if len(got) != 1 || got[0] != "backend engineer" {
		t.Errorf("MatchTitles() = %v, want [backend engineer]", got)
	}
}

func TestMatchTitlesOrderBonusBreaksTie(t *testing.T) {
	// Both titles contain the role's specific words, but only one preserves
	// their order; the in-order title must win.
	tagger := &stubTagger{words: map[string][]string{
		"machine learning engineer":          {"machine", "learning", "engineer"},
		"machine learning platform engineer": {"machine", "learning", "platform", "engineer"},
		"learning machine systems engineer":  {"learning", "machine", "systems", "engineer"},
	}}
	m := newTestMatcher(tagger)

	got := m.MatchTitles(
		[]string{"machine learning engineer"},
		[]string{"learning machine systems engineer", "machine learning platform engineer"},
	)
	if len(got) != 1 || got[0] != "machine learning platform engineer" {
		t.Errorf("MatchTitles() = %v, want [machine learning platform engineer]", got)
	}
}
