package matcher

import (
	"context"
	"errors"
	"testing"

	"talentmatch/internal/logging"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

type stubCVStore struct {
	cv  *models.ParsedCV
	ts  string
	err error
}

func (s *stubCVStore) GetParsedCV(ctx context.Context, candidateID, timestamp string) (*models.ParsedCV, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.cv, s.ts, nil
}

type stubArtifactStore struct {
	stored int
	err    error
}

func (s *stubArtifactStore) StoreMatchResult(ctx context.Context, candidateID string, jobID int64, timestamp string, result *models.MatchResult) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.stored++
	return "key", nil
}

type stubScorer struct {
	name  string
	score float64
	err   error
	panic bool
	calls int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(ctx context.Context, jobPositionText string, section map[string]interface{}) (*models.AgentResult, error) {
	s.calls++
	if s.panic {
		panic("scorer exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.AgentResult{MatchScore: s.score, Reasoning: "stub"}, nil
}

type stubSkillScorer struct {
	score float64
	err   error
}

func (s *stubSkillScorer) Score(ctx context.Context, analysis models.SkillsAnalysis, jobPositionText string) (*models.SkillsResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SkillsResult{MatchScore: s.score}, nil
}

func fullCV() *models.ParsedCV {
	return &models.ParsedCV{
		Education:  []models.Education{{Institution: "MIT"}},
		Experience: []models.Experience{{Company: "Acme", Role: "Backend Engineer"}},
		Projects:   []models.Project{{Name: "sideproject"}},
		Certifications: []models.Certification{
			{Name: "CKA"},
		},
		SkillsAnalysis: models.SkillsAnalysis{ExplicitSkills: []string{"go"}},
	}
}

func newTestEngine(cvs storage.CVStore, artifacts storage.ArtifactStore, scorers []ComponentScorer, skills SkillScorer) *Engine {
	weights := map[string]float64{
		models.ComponentEducation:      0.20,
		models.ComponentExperience:     0.40,
		models.ComponentProjects:       0.20,
		models.ComponentCertifications: 0.10,
		models.ComponentSkills:         0.10,
	}
	return NewEngine(weights, cvs, artifacts, scorers, skills, nil, logging.NewMultiLogger())
}

func TestComputeMatchWeightedScore(t *testing.T) {
	artifacts := &stubArtifactStore{}
	engine := newTestEngine(
		&stubCVStore{cv: fullCV(), ts: "20250101_120000"},
		artifacts,
		[]ComponentScorer{&stubScorer{name: models.ComponentExperience, score: 0.8}},
		&stubSkillScorer{score: 0.5},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{
		CandidateID: "cand-1",
		JobID:       42,
		JobTitle:    "Backend Engineer",
	})

	// 0.8*0.4 + 0.5*0.1 = 0.37
	if result.FinalScore != 0.370 {
		t.Errorf("FinalScore = %v, want 0.370", result.FinalScore)
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty", result.Error)
	}
	if result.Metadata.CVTimestamp != "20250101_120000" {
		t.Errorf("CVTimestamp = %q, want snapshot timestamp", result.Metadata.CVTimestamp)
	}
	if artifacts.stored != 1 {
		t.Errorf("artifacts stored = %d, want 1", artifacts.stored)
	}
}

func TestComputeMatchNoCV(t *testing.T) {
	artifacts := &stubArtifactStore{}
	scorer := &stubScorer{name: models.ComponentExperience, score: 0.9}
	engine := newTestEngine(
		&stubCVStore{err: storage.ErrNotFound},
		artifacts,
		[]ComponentScorer{scorer},
		&stubSkillScorer{score: 0.9},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if result.FinalScore != 0.0 {
		t.Errorf("FinalScore = %v, want 0.0", result.FinalScore)
	}
	if result.Error == "" {
		t.Error("expected error message for missing CV")
	}
	if scorer.calls != 0 {
		t.Errorf("scorer called %d times, want 0", scorer.calls)
	}
	if artifacts.stored != 0 {
		t.Errorf("artifacts stored = %d, want 0", artifacts.stored)
	}
}

func TestComputeMatchScorerFailureIsolated(t *testing.T) {
	engine := newTestEngine(
		&stubCVStore{cv: fullCV()},
		nil,
		[]ComponentScorer{
			&stubScorer{name: models.ComponentEducation, err: errors.New("llm unavailable")},
			&stubScorer{name: models.ComponentExperience, score: 0.8},
		},
		&stubSkillScorer{score: 0.5},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if result.ComponentScores[models.ComponentEducation] != 0.0 {
		t.Errorf("failed component score = %v, want 0", result.ComponentScores[models.ComponentEducation])
	}
	if result.ComponentScores[models.ComponentExperience] != 0.8 {
		t.Errorf("healthy component score = %v, want 0.8", result.ComponentScores[models.ComponentExperience])
	}
	if result.FinalScore != 0.370 {
		t.Errorf("FinalScore = %v, want 0.370", result.FinalScore)
	}
	agentResult, ok := result.ComponentResults[models.ComponentEducation].(*models.AgentResult)
	if !ok || agentResult.Error == "" {
		t.Errorf("failed component result = %+v, want error marker", result.ComponentResults[models.ComponentEducation])
	}
}

func TestComputeMatchScorerPanicIsolated(t *testing.T) {
	engine := newTestEngine(
		&stubCVStore{cv: fullCV()},
		nil,
		[]ComponentScorer{
			&stubScorer{name: models.ComponentEducation, panic: true},
			&stubScorer{name: models.ComponentExperience, score: 1.0},
		},
		&stubSkillScorer{},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if result.ComponentScores[models.ComponentEducation] != 0.0 {
		t.Errorf("panicked component score = %v, want 0", result.ComponentScores[models.ComponentEducation])
	}
	if result.ComponentScores[models.ComponentExperience] != 1.0 {
		t.Errorf("healthy component score = %v, want 1.0", result.ComponentScores[models.ComponentExperience])
	}
}

func TestComputeMatchEmptySectionSkipsScorer(t *testing.T) {
	cv := &models.ParsedCV{
		Experience:     []models.Experience{{Company: "Acme"}},
		SkillsAnalysis: models.SkillsAnalysis{},
	}
	eduScorer := &stubScorer{name: models.ComponentEducation, score: 0.9}
	engine := newTestEngine(
		&stubCVStore{cv: cv},
		nil,
		[]ComponentScorer{eduScorer, &stubScorer{name: models.ComponentExperience, score: 0.5}},
		&stubSkillScorer{},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if eduScorer.calls != 0 {
		t.Errorf("education scorer called %d times for empty section, want 0", eduScorer.calls)
	}
	agentResult, ok := result.ComponentResults[models.ComponentEducation].(*models.AgentResult)
	if !ok || agentResult.Reasoning != "No education data found" {
		t.Errorf("empty section result = %+v", result.ComponentResults[models.ComponentEducation])
	}
}

func TestComputeMatchProjectsFallBackToEducation(t *testing.T) {
	cv := &models.ParsedCV{
		Education: []models.Education{{
			Institution:      "MIT",
			AcademicProjects: []models.Project{{Name: "thesis"}},
		}},
	}
	projScorer := &stubScorer{name: models.ComponentProjects, score: 0.6}
	engine := newTestEngine(
		&stubCVStore{cv: cv},
		nil,
		[]ComponentScorer{projScorer},
		&stubSkillScorer{},
	)

	engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if projScorer.calls != 1 {
		t.Errorf("projects scorer called %d times, want 1 (education fallback)", projScorer.calls)
	}
}

func TestComputeMatchArtifactFailureSwallowed(t *testing.T) {
	engine := newTestEngine(
		&stubCVStore{cv: fullCV()},
		&stubArtifactStore{err: errors.New("bucket down")},
		[]ComponentScorer{&stubScorer{name: models.ComponentExperience, score: 0.8}},
		&stubSkillScorer{score: 0.5},
	)

	result := engine.ComputeMatch(context.Background(), MatchParams{CandidateID: "cand-1", JobID: 1})

	if result.FinalScore != 0.370 {
		t.Errorf("FinalScore = %v, want 0.370 despite storage failure", result.FinalScore)
	}
	if result.Error != "" {
		t.Errorf("Error = %q, want empty", result.Error)
	}
}
