// Package matcher contains the match engine: it orchestrates the component
// scorers over a candidate's CV and a job posting and folds their scores
// into the final weighted match score.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentmatch/internal/logging"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

// ComponentScorer scores one CV section against the job position text.
// Implementations are LLM-backed and may fail or panic; the engine isolates
// both.
type ComponentScorer interface {
	Name() string
	Score(ctx context.Context, jobPositionText string, section map[string]interface{}) (*models.AgentResult, error)
}

// SkillScorer computes the deterministic skills component
type SkillScorer interface {
	Score(ctx context.Context, analysis models.SkillsAnalysis, jobPositionText string) (*models.SkillsResult, error)
}

// TextCleaner strips markup and noise from job description text before it is
// handed to the scorers
type TextCleaner interface {
	Clean(text string) string
}

// Engine computes match scores. It never returns an error for a degraded
// analysis: component failures zero out that component and the rest of the
// pipeline continues.
type Engine struct {
	weights   map[string]float64
	cvs       storage.CVStore
	artifacts storage.ArtifactStore
	scorers   []ComponentScorer
	skills    SkillScorer
	cleaner   TextCleaner
	logger    logging.Logger
}

// MatchParams identifies one match computation
type MatchParams struct {
	CandidateID    string
	JobID          int64
	JobTitle       string
	JobDescription string
	CVTimestamp    string
}

// NewEngine builds the match engine. The artifact store may be nil when
// historical result storage is disabled.
func NewEngine(weights map[string]float64, cvs storage.CVStore, artifacts storage.ArtifactStore, scorers []ComponentScorer, skills SkillScorer, cleaner TextCleaner, logger logging.Logger) *Engine {
	return &Engine{
		weights:   weights,
		cvs:       cvs,
		artifacts: artifacts,
		scorers:   scorers,
		skills:    skills,
		cleaner:   cleaner,
		logger:    logger,
	}
}

// ComputeMatch runs the full match analysis for one candidate and job. A
// missing CV yields a zero-score result with an error message rather than a
// failure; artifact storage is best-effort.
func (e *Engine) ComputeMatch(ctx context.Context, params MatchParams) *models.MatchResult {
	e.logger.Info("Calculating match score", map[string]interface{}{
		"candidate_id": params.CandidateID,
		"job_id":       params.JobID,
	})

	cv, cvTimestamp, err := e.cvs.GetParsedCV(ctx, params.CandidateID, params.CVTimestamp)
	if err != nil {
		msg := fmt.Sprintf("Failed to retrieve CV data: %v", err)
		if errors.Is(err, storage.ErrNotFound) {
			msg = "No CV data found. Please upload your CV first."
			e.logger.Warn("No CV data found", map[string]interface{}{
				"candidate_id": params.CandidateID,
			})
		} else {
			e.logger.Error("Error retrieving CV data", map[string]interface{}{
				"candidate_id": params.CandidateID,
				"error":        err.Error(),
			})
		}
		return &models.MatchResult{
			Metadata:         e.metadata(params, ""),
			FinalScore:       0.0,
			Error:            msg,
			ComponentScores:  map[string]float64{},
			ComponentResults: map[string]interface{}{},
		}
	}

	jobPositionText := params.JobTitle
	if params.JobDescription != "" {
		jobPositionText = params.JobDescription
		if e.cleaner != nil {
			jobPositionText = e.cleaner.Clean(jobPositionText)
		}
	}

	componentScores := make(map[string]float64)
	componentResults := make(map[string]interface{})

	for _, scorer := range e.scorers {
		name := scorer.Name()
		section, ok := e.sectionPayload(name, cv)
		if !ok {
			componentScores[name] = 0.0
			componentResults[name] = &models.AgentResult{
				MatchScore: 0.0,
				Reasoning:  fmt.Sprintf("No %s data found", name),
			}
			continue
		}

		result := e.runScorer(ctx, scorer, jobPositionText, section)
		componentScores[name] = result.MatchScore
		componentResults[name] = result
	}

	skillsResult, err := e.skills.Score(ctx, cv.SkillsAnalysis, jobPositionText)
	if err != nil {
		e.logger.Error("Error in skills match", map[string]interface{}{
			"error": err.Error(),
		})
		componentScores[models.ComponentSkills] = 0.0
		componentResults[models.ComponentSkills] = &models.AgentResult{MatchScore: 0.0, Error: err.Error()}
	} else {
		componentScores[models.ComponentSkills] = skillsResult.MatchScore
		componentResults[models.ComponentSkills] = skillsResult
	}

	finalScore, breakdown := Aggregate(componentScores, e.weights)

	e.logger.Info("Match score calculation complete", map[string]interface{}{
		"candidate_id": params.CandidateID,
		"job_id":       params.JobID,
		"final_score":  finalScore,
	})

	result := &models.MatchResult{
		Metadata:         e.metadata(params, cvTimestamp),
		ComponentScores:  componentScores,
		ComponentWeights: e.weights,
		ComponentResults: componentResults,
		ScoreBreakdown:   breakdown,
		FinalScore:       finalScore,
	}

	e.storeArtifact(ctx, params, result)

	return result
}

// runScorer invokes one LLM-backed scorer with panic isolation. A failing
// or panicking scorer contributes a zero score and its error message.
func (e *Engine) runScorer(ctx context.Context, scorer ComponentScorer, jobPositionText string, section map[string]interface{}) (result *models.AgentResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Component scorer panicked", map[string]interface{}{
				"component": scorer.Name(),
				"panic":     fmt.Sprintf("%v", r),
			})
			result = &models.AgentResult{MatchScore: 0.0, Error: fmt.Sprintf("scorer panic: %v", r)}
		}
	}()

	e.logger.Info("Analyzing component match", map[string]interface{}{
		"component": scorer.Name(),
	})

	res, err := scorer.Score(ctx, jobPositionText, section)
	if err != nil {
		e.logger.Error("Error in component match", map[string]interface{}{
			"component": scorer.Name(),
			"error":     err.Error(),
		})
		return &models.AgentResult{MatchScore: 0.0, Error: err.Error()}
	}
	return res
}

// sectionPayload builds the section payload for a component, applying the
// education-nested fallbacks for projects and certifications. ok is false
// when the section carries no data.
func (e *Engine) sectionPayload(component string, cv *models.ParsedCV) (map[string]interface{}, bool) {
	switch component {
	case models.ComponentEducation:
		if len(cv.Education) == 0 {
			return nil, false
		}
		return map[string]interface{}{"education": cv.Education}, true
	case models.ComponentExperience:
		if len(cv.Experience) == 0 {
			return nil, false
		}
		return map[string]interface{}{"experiences": cv.Experience}, true
	case models.ComponentProjects:
		projects := cv.MergedProjects()
		if len(projects) == 0 {
			return nil, false
		}
		return map[string]interface{}{"projects": projects}, true
	case models.ComponentCertifications:
		certs := cv.MergedCertifications()
		if len(certs) == 0 {
			return nil, false
		}
		return map[string]interface{}{"certifications": certs}, true
	default:
		return nil, false
	}
}

func (e *Engine) metadata(params MatchParams, cvTimestamp string) models.MatchMetadata {
	return models.MatchMetadata{
		CandidateID:  params.CandidateID,
		JobID:        params.JobID,
		JobTitle:     params.JobTitle,
		AnalysisDate: time.Now().UTC(),
		CVTimestamp:  cvTimestamp,
	}
}

// storeArtifact persists the result for historical tracking. Failures are
// logged and swallowed so storage problems never fail a computed match.
func (e *Engine) storeArtifact(ctx context.Context, params MatchParams, result *models.MatchResult) {
	if e.artifacts == nil {
		return
	}

	key, err := e.artifacts.StoreMatchResult(ctx, params.CandidateID, params.JobID, time.Now().UTC().Format("20060102_150405"), result)
	if err != nil {
		e.logger.Warn("Failed to store match result", map[string]interface{}{
			"candidate_id": params.CandidateID,
			"job_id":       params.JobID,
			"error":        err.Error(),
		})
		return
	}

	e.logger.Info("Match result stored", map[string]interface{}{
		"candidate_id": params.CandidateID,
		"job_id":       params.JobID,
		"key":          key,
	})
}
