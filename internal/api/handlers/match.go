package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"talentmatch/internal/background"
	"talentmatch/internal/logging"
	"talentmatch/internal/matcher"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
	"talentmatch/pkg/utils"
)

var validate = validator.New()

// ComputeMatchHandler handles synchronous match computation requests. When
// the request carries no job title, the job store resolves it; an unknown
// job is a 404.
func ComputeMatchHandler(engine background.MatchComputer, jobs storage.JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		var req models.MatchRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to bind match request", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			logger.Error("Match request validation failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		ctx := c.Request().Context()

		jobTitle := req.JobTitle
		jobDescription := req.JobDescription
		if jobTitle == "" && jobs != nil {
			jobText, err := jobs.GetJobText(ctx, req.JobID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return c.JSON(http.StatusNotFound, models.ErrorResponse{
						Error:     "job_not_found",
						Message:   fmt.Sprintf("Job %d not found", req.JobID),
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
				logger.Error("Failed to resolve job posting", map[string]interface{}{
					"request_id": requestID,
					"job_id":     req.JobID,
					"error":      err.Error(),
				})
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:     "job_lookup_failed",
					Message:   "Failed to resolve job posting",
					RequestID: requestID,
					Timestamp: time.Now(),
				})
			}
			jobTitle = jobText.Title
			if jobDescription == "" {
				jobDescription = jobText.Description
			}
		}

		result := engine.ComputeMatch(ctx, matcher.MatchParams{
			CandidateID:    req.CandidateID,
			JobID:          req.JobID,
			JobTitle:       jobTitle,
			JobDescription: jobDescription,
			CVTimestamp:    req.CVTimestamp,
		})

		logger.Info("Match request completed", map[string]interface{}{
			"request_id":      requestID,
			"candidate_id":    req.CandidateID,
			"job_id":          req.JobID,
			"final_score":     result.FinalScore,
			"processing_time": time.Since(startTime).String(),
		})

		return c.JSON(http.StatusOK, result)
	}
}

// EnqueueMatchHandler handles fire-and-forget match scheduling. Repeat
// submissions for an already-scored application return 200 SKIPPED instead
// of scheduling work.
func EnqueueMatchHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		var req models.AsyncMatchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		processID := utils.GenerateMatchProcessID()
		err := taskManager.SubmitMatchTask(c.Request().Context(), processID, req)
		if err != nil {
			if errors.Is(err, background.ErrAlreadyScored) {
				logger.Info("Match submission skipped, application already scored", map[string]interface{}{
					"request_id":     requestID,
					"application_id": req.ApplicationID,
				})
				return c.JSON(http.StatusOK, models.CreateSkippedMatchResponse())
			}

			logger.Error("Failed to submit match task", map[string]interface{}{
				"request_id":     requestID,
				"application_id": req.ApplicationID,
				"error":          err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "task_submission_failed",
				Message:   fmt.Sprintf("Failed to schedule match computation: %v", err),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		logger.Info("Match task accepted", map[string]interface{}{
			"request_id":     requestID,
			"process_id":     processID,
			"application_id": req.ApplicationID,
		})

		return c.JSON(http.StatusAccepted, models.CreateAsyncMatchResponse(processID))
	}
}

// SweepMatchHandler schedules a missing-score sweep over the given jobs
func SweepMatchHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		var req models.SweepRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		processID := utils.GenerateSweepProcessID()
		if err := taskManager.SubmitSweepTask(c.Request().Context(), processID, req); err != nil {
			logger.Error("Failed to submit sweep task", map[string]interface{}{
				"request_id": requestID,
				"job_ids":    req.JobIDs,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "task_submission_failed",
				Message:   fmt.Sprintf("Failed to schedule sweep: %v", err),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		logger.Info("Sweep task accepted", map[string]interface{}{
			"request_id": requestID,
			"process_id": processID,
			"job_ids":    req.JobIDs,
		})

		return c.JSON(http.StatusAccepted, models.CreateAsyncSweepResponse(processID))
	}
}

// TaskStatusHandler returns the status of a background task by process ID
func TaskStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		processID := c.Param("processId")

		if processID == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "missing_process_id",
				Message:   "Process ID is required",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:     "task_not_found",
				Message:   fmt.Sprintf("No task found for process ID %s", processID),
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		response := models.AsyncTaskStatusResponse{
			ProcessID:      result.ProcessID,
			Status:         models.AsyncStatus(result.Status),
			Data:           result.Data,
			Error:          result.Error,
			CreatedAt:      result.CreatedAt,
			CompletedAt:    result.CompletedAt,
			ProcessingTime: result.ProcessingTime,
			Metadata:       result.Metadata,
		}

		return c.JSON(http.StatusOK, response)
	}
}

// TaskStatsHandler returns task manager statistics aggregated by status
func TaskStatsHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		tasks, err := taskManager.ListTasks(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "stats_unavailable",
				Message:   "Task manager statistics are not available",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		byStatus := make(map[string]int)
		byType := make(map[string]int)
		for _, task := range tasks {
			byStatus[string(task.Status)]++
			byType[string(task.Type)]++
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"total":      len(tasks),
			"by_status":  byStatus,
			"by_type":    byType,
			"healthy":    taskManager.IsHealthy(),
			"request_id": requestID,
			"timestamp":  time.Now(),
		})
	}
}

// TaskListHandler lists all tracked background tasks (monitoring)
func TaskListHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		tasks, err := taskManager.ListTasks(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "task_list_failed",
				Message:   "Failed to list background tasks",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"count": len(tasks),
			"tasks": tasks,
		})
	}
}
