package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"talentmatch/internal/config"
	"talentmatch/internal/logging"
	"talentmatch/pkg/models"
)

// componentPrompts describes, per component, what the model should weigh
// when scoring the section against the job position
var componentPrompts = map[string]string{
	models.ComponentEducation: `Evaluate how well the candidate's EDUCATION background fits the job position.
Consider: relevance of degrees and fields of study, institution tier where stated, and recency.`,
	models.ComponentExperience: `Evaluate how well the candidate's PROFESSIONAL EXPERIENCE fits the job position.
Consider: role similarity, seniority, domain overlap, duration, and concrete accomplishments.`,
	models.ComponentProjects: `Evaluate how well the candidate's PROJECTS demonstrate skills the job position needs.
Consider: technology overlap, project scope and complexity, and demonstrated ownership.`,
	models.ComponentCertifications: `Evaluate how well the candidate's CERTIFICATIONS support the job position.
Consider: direct relevance, issuer credibility, and whether they are current.`,
}

// ClaudeAgent scores one CV component against a job position using
// Anthropic's Claude
type ClaudeAgent struct {
	component string
	client    anthropic.Client
	config    *config.Config
	logger    logging.Logger
}

// NewClaudeAgent creates a Claude-backed agent for the given component
func NewClaudeAgent(cfg *config.Config, component string, logger logging.Logger) (*ClaudeAgent, error) {
	if _, ok := componentPrompts[component]; !ok {
		return nil, fmt.Errorf("no prompt defined for component: %s", component)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeAgent{
		component: component,
		client:    client,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Name returns the component this agent scores
func (ca *ClaudeAgent) Name() string {
	return ca.component
}

// Score sends the CV section and job position to Claude and parses the
// structured verdict. Returned scores are always within [0, 1].
func (ca *ClaudeAgent) Score(ctx context.Context, jobPositionText string, section map[string]interface{}) (*models.AgentResult, error) {
	startTime := time.Now()

	prompt, err := ca.buildPrompt(jobPositionText, section)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	response, err := ca.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(ca.config.LLM.Model),
		MaxTokens:   int64(ca.config.LLM.MaxTokens),
		Temperature: anthropic.Float(float64(ca.config.LLM.Temperature)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	result, err := ParseAgentResponse(responseText(response))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response: %w", err)
	}

	ca.logger.Info("Component analysis completed", map[string]interface{}{
		"component":       ca.component,
		"match_score":     result.MatchScore,
		"processing_time": time.Since(startTime).String(),
	})

	return result, nil
}

// buildPrompt assembles the scoring prompt for this component
func (ca *ClaudeAgent) buildPrompt(jobPositionText string, section map[string]interface{}) (string, error) {
	sectionJSON, err := json.Marshal(section)
	if err != nil {
		return "", err
	}

	// Rough estimation: 3 chars per token
	maxContentLength := ca.config.LLM.MaxTokens * 3
	if len(jobPositionText) > maxContentLength {
		jobPositionText = jobPositionText[:maxContentLength] + "..."
	}

	return fmt.Sprintf(`You are a candidate-job match analyzer. %s

Return your verdict as a JSON object with exactly these fields:

{
  "match_score": number - Match quality from 0.0 (no fit) to 1.0 (perfect fit),
  "reasoning": "string - Concise explanation of the score (2-3 sentences max)"
}

IMPORTANT RULES:
1. Return ONLY valid JSON, no additional text or explanation
2. match_score must be a number between 0.0 and 1.0
3. Base the score only on the data provided, never invent qualifications
4. An empty or irrelevant section scores 0.0

JOB POSITION:
%s

CANDIDATE DATA:
%s`, componentPrompts[ca.component], jobPositionText, string(sectionJSON)), nil
}

// responseText extracts the first text block of a Claude message
func responseText(response *anthropic.Message) string {
	for _, content := range response.Content {
		textContent := content.AsText()
		if textContent.Text != "" {
			return textContent.Text
		}
	}
	return ""
}

// ParseAgentResponse parses the model's JSON verdict, tolerating markdown
// code fences, and clamps the score into [0, 1]
func ParseAgentResponse(text string) (*models.AgentResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var result models.AgentResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w, response: %s", err, text)
	}

	if result.MatchScore < 0 {
		result.MatchScore = 0
	}
	if result.MatchScore > 1 {
		result.MatchScore = 1
	}

	return &result, nil
}

// IsHealthy checks that the Claude API is configured and reachable
func (ca *ClaudeAgent) IsHealthy(ctx context.Context) error {
	if ca.config.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	_, err := ca.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(ca.config.LLM.Model),
		MaxTokens: 500,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}

	return nil
}
