// Package skills scores the overlap between a candidate's explicit skills
// and the skills a job position calls for, using the curated vocabulary
// where the position can be matched to a canonical title and falling back to
// the CV's own job-related skill list where it cannot.
package skills

import (
	"context"
	"math"
	"sort"
	"strings"

	"talentmatch/internal/matcher/vocabulary"
	"talentmatch/pkg/models"
)

// TitleMatcher resolves free-form role titles to canonical vocabulary titles
type TitleMatcher interface {
	MatchTitles(roles []string, titles []string) []string
}

// Matcher computes the deterministic skills component score
type Matcher struct {
	vocab  *vocabulary.Vocabulary
	titles TitleMatcher
}

// NewMatcher builds a skills matcher over the given vocabulary
func NewMatcher(vocab *vocabulary.Vocabulary, titles TitleMatcher) *Matcher {
	return &Matcher{vocab: vocab, titles: titles}
}

// Score computes the skills match between the CV's skill analysis and the
// job position text. The position is first matched against the canonical
// vocabulary titles; when that fails the CV's job-related skill list serves
// as the target set. Scores are weighted by skill importance and capped at 1.
func (m *Matcher) Score(ctx context.Context, analysis models.SkillsAnalysis, jobPositionText string) (*models.SkillsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	explicit := toLowerSet(analysis.ExplicitSkills)

	matchedTitles := m.titles.MatchTitles([]string{jobPositionText}, m.vocab.Titles())

	var (
		matched       map[string]struct{}
		score         float64
		totalJobCount int
	)

	if len(matchedTitles) > 0 {
		positionSkills := m.vocab.SkillsFor(matchedTitles)
		totalJobCount = len(positionSkills)
		matched = intersect(explicit, toLowerSet(positionSkills))

		weights := m.vocab.Weights(positionSkills)
		for skill := range matched {
			score += weights[skill]
		}
	} else if len(analysis.JobRelatedSkills) > 0 {
		jobRelated := toLowerSet(analysis.JobRelatedSkills)
		totalJobCount = len(jobRelated)
		matched = intersect(explicit, jobRelated)

		// Job-related skill lists are uncurated, so every skill counts
		// equally
		weights := vocabulary.UniformWeights(setToSlice(jobRelated))
		for skill := range matched {
			score += weights[skill]
		}
	} else {
		matched = map[string]struct{}{}
	}

	if score > 1.0 {
		score = 1.0
	}

	matchedList := setToSlice(matched)
	sort.Strings(matchedList)

	return &models.SkillsResult{
		MatchScore:    round3(score),
		MatchedSkills: matchedList,
		TotalCVSkills: len(explicit),
		TotalJobSkills: totalJobCount,
	}, nil
}

func toLowerSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for s := range a {
		if _, ok := b[s]; ok {
			out[s] = struct{}{}
		}
	}
	return out
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
