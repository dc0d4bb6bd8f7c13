// Package llm holds the LLM-backed component match agents and their
// lifecycle management.
package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"talentmatch/internal/config"
	"talentmatch/internal/logging"
	"talentmatch/pkg/models"
)

// Manager manages the component agents and their lifecycle. All agent calls
// share one rate limiter so four components scoring in a burst cannot blow
// the provider's request budget.
type Manager struct {
	config  *config.Config
	factory *AgentFactory
	logger  logging.Logger
	limiter *rate.Limiter

	mu      sync.RWMutex
	agents  []ComponentAgent
	healthy bool
}

// NewManager creates a new agent manager instance
func NewManager(cfg *config.Config, logger logging.Logger) *Manager {
	// RateLimit is agent calls per minute
	limit := rate.Limit(float64(cfg.LLM.RateLimit) / 60.0)

	return &Manager{
		config:  cfg,
		factory: NewAgentFactory(cfg, logger),
		logger:  logger,
		limiter: rate.NewLimiter(limit, cfg.LLM.RateLimit),
	}
}

// Start creates the agents and probes provider health. A failed health
// check degrades match quality but does not prevent startup.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting LLM manager", map[string]interface{}{
		"provider": m.config.LLM.Provider,
		"model":    m.config.LLM.Model,
	})

	agents, err := m.factory.CreateAgents()
	if err != nil {
		return fmt.Errorf("failed to create component agents: %w", err)
	}
	m.agents = agents

	ctx, cancel := context.WithTimeout(context.Background(), m.config.LLM.Timeout)
	defer cancel()

	if err := agents[0].IsHealthy(ctx); err != nil {
		m.logger.Warn("LLM provider health check failed - component agents will return errors", map[string]interface{}{
			"error": err.Error(),
		})
		m.healthy = false
	} else {
		m.healthy = true
		m.logger.Info("LLM manager started successfully", map[string]interface{}{
			"agents": len(agents),
		})
	}

	return nil
}

// Stop shuts down the manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping LLM manager")
	m.agents = nil
	m.healthy = false
	return nil
}

// Agents returns the component agents wrapped with the shared rate limiter
func (m *Manager) Agents() []ComponentAgent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wrapped := make([]ComponentAgent, len(m.agents))
	for i, agent := range m.agents {
		wrapped[i] = &rateLimitedAgent{agent: agent, limiter: m.limiter}
	}
	return wrapped
}

// IsHealthy reports whether the manager holds usable agents
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && len(m.agents) > 0
}

// CheckHealth re-probes the provider and updates the cached health flag
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	agents := m.agents
	m.mu.RUnlock()

	if len(agents) == 0 {
		return fmt.Errorf("component agents not available")
	}

	err := agents[0].IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = (err == nil)
	m.mu.Unlock()

	return err
}

// GetProviderName returns the name of the configured LLM provider
func (m *Manager) GetProviderName() string {
	return m.config.LLM.Provider
}

// rateLimitedAgent gates agent calls behind the manager's shared limiter
type rateLimitedAgent struct {
	agent   ComponentAgent
	limiter *rate.Limiter
}

func (r *rateLimitedAgent) Name() string {
	return r.agent.Name()
}

func (r *rateLimitedAgent) Score(ctx context.Context, jobPositionText string, section map[string]interface{}) (*models.AgentResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return r.agent.Score(ctx, jobPositionText, section)
}

func (r *rateLimitedAgent) IsHealthy(ctx context.Context) error {
	return r.agent.IsHealthy(ctx)
}
