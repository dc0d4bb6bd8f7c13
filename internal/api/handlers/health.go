package handlers

import (
	"net/http"
	"time"

	"talentmatch/internal/background"
	"talentmatch/internal/llm"
	"talentmatch/internal/logging"
	"talentmatch/pkg/models"
	"talentmatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler handles readiness probe requests, checking the task
// manager and LLM agents
func ReadinessHandler(llmManager *llm.Manager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		logger.Debug("Readiness check requested", map[string]interface{}{"request_id": requestID})

		checks := map[string]string{
			"api": "ok",
		}
		status := "ready"
		httpStatus := http.StatusOK

		if taskManager != nil && taskManager.IsHealthy() {
			checks["tasks"] = "ok"
		} else {
			checks["tasks"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		// Degraded LLM still serves requests (components zero out), so it
		// never fails readiness
		if llmManager != nil && llmManager.IsHealthy() {
			checks["llm"] = "ok"
		} else {
			checks["llm"] = "degraded"
		}

		response := models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}

		return c.JSON(httpStatus, response)
	}
}

// StatusHandler returns overall service status
func StatusHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Status check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "operational",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api":     "operational",
			"matcher": "operational",
			"llm":     "operational",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Liveness check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	}

	return c.JSON(http.StatusOK, response)
}
