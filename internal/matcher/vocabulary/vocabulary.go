// Package vocabulary loads the canonical job-title to skill reference table
// consumed by the skill matcher. The table is read-only after load and safe
// for concurrent use.
package vocabulary

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// WeightedSkill is one skill associated with a canonical title, with its
// curated importance weight
type WeightedSkill struct {
	Name   string
	Weight float64
}

// Vocabulary maps canonical job titles to their weighted skill sets
type Vocabulary struct {
	byTitle map[string][]WeightedSkill
	weights map[string]float64 // skill -> curated weight (max across titles)
}

// Load reads the vocabulary from a CSV file with rows of
// title,skill[,weight]. Titles and skills are lower-cased; a missing weight
// defaults to 1.0. Rows with fewer than two columns are rejected.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads vocabulary CSV rows from r
func Parse(r io.Reader) (*Vocabulary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	v := &Vocabulary{
		byTitle: make(map[string][]WeightedSkill),
		weights: make(map[string]float64),
	}

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read vocabulary row %d: %w", line+1, err)
		}
		line++

		// Skip a header row if present
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "title") {
			continue
		}

		if len(record) < 2 {
			return nil, fmt.Errorf("vocabulary row %d: expected title,skill[,weight]", line)
		}

		title := strings.ToLower(strings.TrimSpace(record[0]))
		skill := strings.ToLower(strings.TrimSpace(record[1]))
		if title == "" || skill == "" {
			continue
		}

		weight := 1.0
		if len(record) >= 3 && strings.TrimSpace(record[2]) != "" {
			w, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("vocabulary row %d: bad weight %q", line, record[2])
			}
			weight = w
		}

		v.byTitle[title] = append(v.byTitle[title], WeightedSkill{Name: skill, Weight: weight})
		if weight > v.weights[skill] {
			v.weights[skill] = weight
		}
	}

	if len(v.byTitle) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	return v, nil
}

// Titles returns all canonical titles, sorted for deterministic iteration
func (v *Vocabulary) Titles() []string {
	titles := make([]string, 0, len(v.byTitle))
	for title := range v.byTitle {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// HasTitle reports whether the given (lower-cased) title is canonical
func (v *Vocabulary) HasTitle(title string) bool {
	_, ok := v.byTitle[title]
	return ok
}

// SkillsFor returns the deduplicated union of skills associated with the
// given canonical titles, sorted
func (v *Vocabulary) SkillsFor(titles []string) []string {
	seen := make(map[string]struct{})
	for _, title := range titles {
		for _, ws := range v.byTitle[strings.ToLower(title)] {
			seen[ws.Name] = struct{}{}
		}
	}

	skills := make([]string, 0, len(seen))
	for skill := range seen {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}

// Weights computes per-skill importance weights over a target skill set,
// normalized so the weights sum to 1. Curated weights are used where known;
// skills the vocabulary has never seen fall back to weight 1.0 before
// normalization. An empty target yields an empty map.
func (v *Vocabulary) Weights(skills []string) map[string]float64 {
	if len(skills) == 0 {
		return map[string]float64{}
	}

	raw := make(map[string]float64, len(skills))
	total := 0.0
	for _, skill := range skills {
		w := v.weights[skill]
		if w == 0 {
			w = 1.0
		}
		raw[skill] = w
		total += w
	}

	weights := make(map[string]float64, len(raw))
	for skill, w := range raw {
		weights[skill] = w / total
	}
	return weights
}

// UniformWeights returns equal weights summing to 1 over the given skill
// set. Used for the self-referential fallback where no curated vocabulary
// applies.
func UniformWeights(skills []string) map[string]float64 {
	if len(skills) == 0 {
		return map[string]float64{}
	}

	weights := make(map[string]float64, len(skills))
	w := 1.0 / float64(len(skills))
	for _, skill := range skills {
		weights[skill] = w
	}
	return weights
}
