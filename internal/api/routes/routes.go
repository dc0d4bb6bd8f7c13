package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"talentmatch/internal/api/handlers"
	"talentmatch/internal/api/middleware"
	"talentmatch/internal/background"
	"talentmatch/internal/config"
	"talentmatch/internal/llm"
	"talentmatch/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, engine background.MatchComputer, llmManager *llm.Manager, taskManager background.TaskManager, jobs storage.JobStore) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// Use selective timeout: the server default for most endpoints, 2 minutes
	// for endpoints that fan out to LLM agents
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 2*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(llmManager, taskManager))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler)

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		match := v1.Group("/match")
		{
			match.POST("", handlers.ComputeMatchHandler(engine, jobs))
			match.POST("/async", handlers.EnqueueMatchHandler(taskManager))
			match.POST("/sweep", handlers.SweepMatchHandler(taskManager))
			match.GET("/tasks", handlers.TaskListHandler(taskManager))
			match.GET("/tasks/:processId", handlers.TaskStatusHandler(taskManager))
		}

		// Task manager monitoring
		tasks := v1.Group("/tasks")
		{
			tasks.GET("/stats", handlers.TaskStatsHandler(taskManager))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "Talent Match Engine",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
