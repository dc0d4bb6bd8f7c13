package llm

import (
	"context"

	"talentmatch/pkg/models"
)

// ComponentAgent scores one CV section against a job position using an LLM.
// Name returns the component the agent scores (education, experience,
// projects or certifications).
type ComponentAgent interface {
	Name() string
	Score(ctx context.Context, jobPositionText string, section map[string]interface{}) (*models.AgentResult, error)
	IsHealthy(ctx context.Context) error
}
