// Package roles matches free-form experience role titles against the
// canonical titles of the skill vocabulary. Matching is deliberately strict:
// every specific word of a role must be present in a candidate title, so
// "Frontend Developer" can never drift onto "Backend Developer".
package roles

import (
	"sort"
	"strings"

	"talentmatch/internal/logging"
)

// Config holds the tuning constants of the title matcher
type Config struct {
	// Threshold is the minimum score a candidate title must reach to be
	// accepted as a match
	Threshold float64
	// OrderBonus is added when the role's specific words appear in the
	// same order within the title
	OrderBonus float64
	// CommonOverlapScore is the per-word score for matches built purely
	// from generic title words
	CommonOverlapScore float64
	// LengthPenaltyWeight scales the penalty for titles much longer than
	// the role
	LengthPenaltyWeight float64
	// GenericWords are title words too generic to carry a match on their
	// own (engineer, senior, lead, ...)
	GenericWords []string
}

// Matcher resolves role titles to canonical vocabulary titles
type Matcher struct {
	cfg     Config
	tagger  WordTagger
	generic map[string]struct{}
	logger  logging.Logger
}

// NewMatcher builds a title matcher with the given tuning constants
func NewMatcher(cfg Config, tagger WordTagger, logger logging.Logger) *Matcher {
	generic := make(map[string]struct{}, len(cfg.GenericWords))
	for _, w := range cfg.GenericWords {
		generic[strings.ToLower(w)] = struct{}{}
	}
	return &Matcher{
		cfg:     cfg,
		tagger:  tagger,
		generic: generic,
		logger:  logger,
	}
}

// MatchTitles matches each role against the canonical titles and returns the
// deduplicated best matches in role order. Roles that produce no confident
// match are skipped rather than guessed.
func (m *Matcher) MatchTitles(rolesList []string, titles []string) []string {
	var matched []string
	seen := make(map[string]struct{})

	add := func(title string) {
		if _, ok := seen[title]; !ok {
			seen[title] = struct{}{}
			matched = append(matched, title)
		}
	}

	titleSet := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		titleSet[strings.ToLower(t)] = struct{}{}
	}

	for _, role := range rolesList {
		roleLower := strings.ToLower(strings.TrimSpace(role))
		if roleLower == "" {
			continue
		}

		// Exact matches bypass scoring entirely
		if _, ok := titleSet[roleLower]; ok {
			add(roleLower)
			continue
		}

		allRoleWords, err := m.tagger.SignificantWords(roleLower)
		if err != nil {
			m.logger.Warn("Failed to tag role title", map[string]interface{}{
				"role":  role,
				"error": err.Error(),
			})
			continue
		}

		specificRoleWords, commonRoleWords := m.split(allRoleWords)

		// A role made only of generic words needs at least two of them to
		// say anything at all
		if len(specificRoleWords) == 0 && len(commonRoleWords) < 2 {
			continue
		}

		bestMatch := ""
		bestScore := 0.0

		for _, title := range titles {
			titleLower := strings.ToLower(title)

			// Substring containment is the strongest signal; shorter
			// titles score higher
			if strings.Contains(titleLower, roleLower) {
				score := 100.0 - float64(len(titleLower)-len(roleLower))
				if score > bestScore {
					bestScore = score
					bestMatch = titleLower
				}
				continue
			}

			allTitleWords, err := m.tagger.SignificantWords(titleLower)
			if err != nil {
				continue
			}
			specificTitleWords, commonTitleWords := m.split(allTitleWords)

			if len(specificRoleWords) > 0 {
				score, ok := m.scoreSpecific(specificRoleWords, commonRoleWords, allRoleWords, specificTitleWords, allTitleWords)
				if ok && score > bestScore && score >= m.cfg.Threshold {
					bestScore = score
					bestMatch = titleLower
				}
			} else if len(commonRoleWords) >= 2 {
				overlap := intersectionSize(commonRoleWords, commonTitleWords)
				if overlap >= 2 {
					score := float64(overlap) * m.cfg.CommonOverlapScore
					if score > bestScore {
						bestScore = score
						bestMatch = titleLower
					}
				}
			}
		}

		if bestMatch != "" && bestScore >= m.cfg.Threshold {
			add(bestMatch)
		}
	}

	return matched
}

// scoreSpecific scores a title against a role that carries specific words.
// Every specific role word must appear in the title; the score rewards
// titles the role covers tightly and in order, and penalizes titles with a
// lot of extra words.
func (m *Matcher) scoreSpecific(specificRoleWords, commonRoleWords, allRoleWords, specificTitleWords, allTitleWords []string) (float64, bool) {
	roleSet := toSet(specificRoleWords)
	titleSet := toSet(specificTitleWords)

	for w := range roleSet {
		if _, ok := titleSet[w]; !ok {
			return 0, false
		}
	}

	orderScore := 0.0
	if len(specificRoleWords) >= 2 {
		positions := make([]int, 0, len(specificRoleWords))
		for _, w := range specificRoleWords {
			if idx := indexOf(specificTitleWords, w); idx >= 0 {
				positions = append(positions, idx)
			}
		}
		if len(positions) == len(specificRoleWords) && sort.IntsAreSorted(positions) {
			orderScore = m.cfg.OrderBonus
		}
	}

	overlapRatio := float64(len(roleSet)) / float64(max(len(titleSet), 1))
	lengthPenalty := float64(len(allTitleWords)-len(allRoleWords)) / float64(max(len(allRoleWords), 1))
	if lengthPenalty < 0 {
		lengthPenalty = 0
	}

	return overlapRatio*60 + orderScore - lengthPenalty*m.cfg.LengthPenaltyWeight, true
}

func (m *Matcher) split(words []string) (specific, common []string) {
	for _, w := range words {
		if _, ok := m.generic[w]; ok {
			common = append(common, w)
		} else {
			specific = append(specific, w)
		}
	}
	return specific, common
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func intersectionSize(a, b []string) int {
	bSet := toSet(b)
	count := 0
	for w := range toSet(a) {
		if _, ok := bSet[w]; ok {
			count++
		}
	}
	return count
}

func indexOf(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
