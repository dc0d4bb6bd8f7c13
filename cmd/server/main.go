package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"talentmatch/internal/api/routes"
	"talentmatch/internal/background"
	"talentmatch/internal/config"
	"talentmatch/internal/llm"
	"talentmatch/internal/llm/processors"
	"talentmatch/internal/logging"
	"talentmatch/internal/matcher"
	"talentmatch/internal/matcher/roles"
	"talentmatch/internal/matcher/skills"
	"talentmatch/internal/matcher/vocabulary"
	"talentmatch/internal/storage"
	"talentmatch/internal/storage/redisstore"
	"talentmatch/internal/storage/spaces"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Talent Match Engine")

	// Load the skill vocabulary
	vocab, err := vocabulary.Load(cfg.Vocabulary.Path)
	if err != nil {
		logger.Error("Failed to load skill vocabulary", map[string]interface{}{
			"path":  cfg.Vocabulary.Path,
			"error": err.Error(),
		})
		os.Exit(1)
	}
	logger.Info("Skill vocabulary loaded", map[string]interface{}{
		"path":   cfg.Vocabulary.Path,
		"titles": len(vocab.Titles()),
	})

	// Initialize the POS tagger used for role-title matching
	tagger, err := roles.NewTagger()
	if err != nil {
		logger.Error("Failed to initialize POS tagger", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Initialize Redis-backed application store
	redisClient := redisstore.NewClient(cfg, logger)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	if err := redisClient.Ping(pingCtx); err != nil {
		logger.Warn("Redis unreachable at startup, scoring persistence will fail until it recovers", map[string]interface{}{
			"error": err.Error(),
		})
	}
	pingCancel()
	defer redisClient.Close()

	// Initialize object storage for parsed CVs and match artifacts
	spacesClient, err := spaces.NewClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize object storage client", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	var artifacts storage.ArtifactStore = spacesClient

	// Initialize LLM manager
	llmManager := llm.NewManager(cfg, logger)
	if err := llmManager.Start(); err != nil {
		logger.Error("Failed to start LLM manager", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Assemble the match engine
	roleMatcher := roles.NewMatcher(roles.Config{
		Threshold:           cfg.Matcher.RoleThreshold,
		OrderBonus:          cfg.Matcher.OrderBonus,
		CommonOverlapScore:  cfg.Matcher.CommonOverlapScore,
		LengthPenaltyWeight: cfg.Matcher.LengthPenaltyWeight,
		GenericWords:        cfg.Matcher.GenericTitleWords,
	}, tagger, logger)
	skillMatcher := skills.NewMatcher(vocab, roleMatcher)

	scorers := make([]matcher.ComponentScorer, 0, len(llmManager.Agents()))
	for _, agent := range llmManager.Agents() {
		scorers = append(scorers, agent)
	}

	engine := matcher.NewEngine(
		cfg.ComponentWeights(),
		spacesClient,
		artifacts,
		scorers,
		skillMatcher,
		processors.NewTextCleaner(),
		logger,
	)

	// Initialize background task manager
	logger.Info("Initializing background task manager")
	taskManager := background.NewTaskManager(cfg, engine, redisClient, redisClient, logger)
	ctx := context.Background()
	if err := taskManager.Start(ctx); err != nil {
		logger.Error("Failed to start task manager", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Setup routes
	routes.SetupRoutes(e, cfg, engine, llmManager, taskManager, redisClient)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop the task manager first so in-flight scoring tasks drain
		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Stopping LLM manager...")
		if err := llmManager.Stop(); err != nil {
			logger.Error("Error stopping LLM manager", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{
				"error": err.Error(),
			})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address": address,
	})

	if err := e.Start(address); err != nil {
		logger.Error("Server stopped", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
