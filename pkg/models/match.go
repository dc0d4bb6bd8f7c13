package models

import "time"

// Component names used as keys in scores, weights and breakdowns
const (
	ComponentEducation      = "education"
	ComponentExperience     = "experience"
	ComponentProjects       = "projects"
	ComponentCertifications = "certifications"
	ComponentSkills         = "skills"
)

// ComponentNames lists every scoring component in a stable order
var ComponentNames = []string{
	ComponentEducation,
	ComponentExperience,
	ComponentProjects,
	ComponentCertifications,
	ComponentSkills,
}

// AgentResult is the contract every component match agent fulfils: a score in
// [0,1] plus free-form supporting detail. Exactly one of Reasoning or Error is
// normally populated.
type AgentResult struct {
	MatchScore float64        `json:"match_score"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// SkillsResult is the skill vocabulary matcher output
type SkillsResult struct {
	MatchScore     float64  `json:"match_score"`
	MatchedSkills  []string `json:"matched_skills"`
	TotalCVSkills  int      `json:"total_cv_skills"`
	TotalJobSkills int      `json:"total_job_skills"`
}

// ScoreBreakdown holds the raw/weight/weighted triple for one component
type ScoreBreakdown struct {
	RawScore      float64 `json:"raw_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// MatchMetadata identifies which CV snapshot and job a MatchResult was
// computed for
type MatchMetadata struct {
	CandidateID  string    `json:"candidate_id"`
	JobID        int64     `json:"job_id"`
	JobTitle     string    `json:"job_title"`
	AnalysisDate time.Time `json:"analysis_date"`
	CVTimestamp  string    `json:"cv_timestamp,omitempty"`
}

// MatchResult is the full, auditable output of one match computation for a
// (candidate, job) pair. Historical instances are append-only artifacts in
// object storage; the final score alone is cached on the application record.
type MatchResult struct {
	Metadata         MatchMetadata             `json:"metadata"`
	ComponentScores  map[string]float64        `json:"component_scores"`
	ComponentWeights map[string]float64        `json:"component_weights"`
	ComponentResults map[string]any            `json:"component_results"`
	ScoreBreakdown   map[string]ScoreBreakdown `json:"score_breakdown"`
	FinalScore       float64                   `json:"final_score"`
	Error            string                    `json:"error,omitempty"`
}

// JobText is the job posting content the matcher consumes
type JobText struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Application is the minimal view of a job application the scoring pipeline
// needs: whose CV to score against which job.
type Application struct {
	ID          int64  `json:"id"`
	CandidateID string `json:"candidate_id"`
	JobID       int64  `json:"job_id"`
}
