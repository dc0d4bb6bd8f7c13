package llm

import (
	"fmt"

	"talentmatch/internal/config"
	"talentmatch/internal/llm/providers"
	"talentmatch/internal/logging"
	"talentmatch/pkg/models"
)

// agentComponents lists the CV components that get an LLM agent. Skills are
// scored deterministically and never go through an agent.
var agentComponents = []string{
	models.ComponentEducation,
	models.ComponentExperience,
	models.ComponentProjects,
	models.ComponentCertifications,
}

// AgentFactory creates component agent instances
type AgentFactory struct {
	config *config.Config
	logger logging.Logger
}

// NewAgentFactory creates a new agent factory instance
func NewAgentFactory(cfg *config.Config, logger logging.Logger) *AgentFactory {
	return &AgentFactory{
		config: cfg,
		logger: logger,
	}
}

// CreateAgents creates one agent per scored component using the configured
// provider
func (f *AgentFactory) CreateAgents() ([]ComponentAgent, error) {
	switch f.config.LLM.Provider {
	case "claude":
		agents := make([]ComponentAgent, 0, len(agentComponents))
		for _, component := range agentComponents {
			agent, err := providers.NewClaudeAgent(f.config, component, f.logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s agent: %w", component, err)
			}
			agents = append(agents, agent)
		}
		return agents, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", f.config.LLM.Provider)
	}
}

// GetSupportedProviders returns a list of supported LLM providers
func (f *AgentFactory) GetSupportedProviders() []string {
	return []string{"claude"}
}
