// Package background schedules match computations off the request path. It
// guarantees at-most-once scoring per application: a score check runs both
// at submission and again inside the task, so concurrent submissions for the
// same application cannot double-spend LLM calls.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/logging/types"
	"talentmatch/internal/matcher"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

// Task manager configuration constants
const (
	DefaultMaxWorkers   = 4
	DefaultMaxQueueSize = 100

	MinWorkers   = 1
	MinQueueSize = 1

	MaxWorkers   = 100
	MaxQueueSize = 10000
)

// MatchComputer computes a full match analysis. Implemented by the match
// engine; narrowed to an interface so tests can count invocations.
type MatchComputer interface {
	ComputeMatch(ctx context.Context, params matcher.MatchParams) *models.MatchResult
}

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitMatchTask schedules a match computation for an application.
	// Returns ErrAlreadyScored without scheduling anything when the
	// application already carries a score.
	SubmitMatchTask(ctx context.Context, processID string, request models.AsyncMatchRequest) error

	// SubmitSweepTask schedules a sweep that scores every unscored
	// application of the given jobs
	SubmitSweepTask(ctx context.Context, processID string, request models.SweepRequest) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists all active tasks (for monitoring)
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	config       *config.Config
	store        TaskStore
	engine       MatchComputer
	apps         storage.ApplicationStore
	jobs         storage.JobStore
	logger       *TaskCompletionLogger
	appLogger    types.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	running      bool
	taskChan     chan *taskExecution
	maxWorkers   int
	maxQueueSize int
}

// taskExecution carries one queued task to a worker
type taskExecution struct {
	ProcessID   string
	Type        TaskType
	Context     context.Context
	Cancel      context.CancelFunc
	ExecuteFunc func(context.Context) (*TaskResult, error)
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	maxWorkers = cfg.BackgroundTasks.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers < MinWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) is below minimum (%d)", maxWorkers, MinWorkers)
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	maxQueueSize = cfg.BackgroundTasks.QueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize < MinQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) is below minimum (%d)", maxQueueSize, MinQueueSize)
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager
func NewTaskManager(cfg *config.Config, engine MatchComputer, apps storage.ApplicationStore, jobs storage.JobStore, logger types.Logger) *TaskManagerImpl {
	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		logger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}

	logger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
	})

	return &TaskManagerImpl{
		config:       cfg,
		store:        NewInMemoryTaskStore(),
		engine:       engine,
		apps:         apps,
		jobs:         jobs,
		logger:       &TaskCompletionLogger{logger: logger},
		appLogger:    logger,
		maxWorkers:   maxWorkers,
		maxQueueSize: maxQueueSize,
		taskChan:     make(chan *taskExecution, maxQueueSize),
	}
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop stops the task manager gracefully
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", map[string]interface{}{})

	tm.cancel()
	close(tm.taskChan)

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", map[string]interface{}{})
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", map[string]interface{}{})
	}

	tm.running = false
	return nil
}

// SubmitMatchTask schedules a match computation for an application. The
// score pre-check here makes repeat submissions cheap; the task re-checks
// before computing to close the submit/execute race.
func (tm *TaskManagerImpl) SubmitMatchTask(ctx context.Context, processID string, request models.AsyncMatchRequest) error {
	if !tm.IsHealthy() {
		return fmt.Errorf("task manager is not healthy")
	}

	score, err := tm.apps.GetScore(ctx, request.ApplicationID)
	if err != nil {
		return fmt.Errorf("failed to check application score: %w", err)
	}
	if score != nil {
		tm.appLogger.Info("Application already scored, skipping submission", map[string]interface{}{
			"application_id": request.ApplicationID,
			"score":          *score,
		})
		return ErrAlreadyScored
	}

	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeMatch,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"application_id": request.ApplicationID,
			"candidate_id":   request.CandidateID,
			"job_id":         request.JobID,
		},
	}

	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	tm.logger.LogTaskAccepted(processID, TaskTypeMatch)

	taskCtx, cancelFunc := context.WithCancel(tm.ctx)
	execution := &taskExecution{
		ProcessID: processID,
		Type:      TaskTypeMatch,
		Context:   taskCtx,
		Cancel:    cancelFunc,
		ExecuteFunc: func(execCtx context.Context) (*TaskResult, error) {
			return tm.executeMatchTask(execCtx, processID, request)
		},
	}

	select {
	case tm.taskChan <- execution:
		return nil
	case <-ctx.Done():
		cancelFunc()
		return ctx.Err()
	default:
		cancelFunc()
		return fmt.Errorf("task queue is full")
	}
}

// SubmitSweepTask schedules a sweep over the given jobs
func (tm *TaskManagerImpl) SubmitSweepTask(ctx context.Context, processID string, request models.SweepRequest) error {
	if !tm.IsHealthy() {
		return fmt.Errorf("task manager is not healthy")
	}

	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeSweep,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"job_ids": request.JobIDs,
		},
	}

	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	tm.logger.LogTaskAccepted(processID, TaskTypeSweep)

	taskCtx, cancelFunc := context.WithCancel(tm.ctx)
	execution := &taskExecution{
		ProcessID: processID,
		Type:      TaskTypeSweep,
		Context:   taskCtx,
		Cancel:    cancelFunc,
		ExecuteFunc: func(execCtx context.Context) (*TaskResult, error) {
			return tm.executeSweepTask(execCtx, processID, request)
		},
	}

	select {
	case tm.taskChan <- execution:
		return nil
	case <-ctx.Done():
		cancelFunc()
		return ctx.Err()
	default:
		cancelFunc()
		return fmt.Errorf("task queue is full")
	}
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all active tasks (for monitoring)
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	tm.appLogger.Info("Task worker started", map[string]interface{}{
		"worker_id": workerID,
	})

	for {
		select {
		case <-tm.ctx.Done():
			tm.appLogger.Info("Task worker stopping", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				tm.appLogger.Info("Task channel closed, worker stopping", map[string]interface{}{
					"worker_id": workerID,
				})
				return
			}

			tm.processTask(workerID, task)
		}
	}
}

// processTask processes a single task
func (tm *TaskManagerImpl) processTask(workerID int, task *taskExecution) {
	startTime := time.Now()

	tm.appLogger.Info("Processing task", map[string]interface{}{
		"worker_id":  workerID,
		"process_id": task.ProcessID,
		"task_type":  task.Type,
	})

	if err := tm.updateTaskStatus(task.ProcessID, TaskStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	taskCtx := task.Context
	if timeout := tm.config.BackgroundTasks.TaskTimeout; timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, timeout)
		defer cancel()
	}

	result, err := task.ExecuteFunc(taskCtx)
	processingTime := time.Since(startTime)

	if err != nil {
		tm.appLogger.Error("Task execution failed", map[string]interface{}{
			"worker_id":       workerID,
			"process_id":      task.ProcessID,
			"task_type":       task.Type,
			"processing_time": processingTime,
			"error":           err.Error(),
		})

		existingResult, getErr := tm.store.Get(task.Context, task.ProcessID)
		if getErr != nil {
			result = &TaskResult{
				ProcessID:      task.ProcessID,
				Type:           task.Type,
				Status:         TaskStatusFailure,
				Error:          err.Error(),
				CreatedAt:      time.Now(),
				ProcessingTime: &processingTime,
			}
		} else {
			existingResult.Status = TaskStatusFailure
			existingResult.Error = err.Error()
			existingResult.ProcessingTime = &processingTime
			result = existingResult
		}

		tm.logger.LogTaskError(task.ProcessID, task.Type, err)
	} else {
		// Tasks that found their work already done come back pre-marked as
		// skipped; everything else is a success
		if result.Status != TaskStatusSkipped {
			result.Status = TaskStatusSuccess
			tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
		} else {
			tm.logger.LogTaskSkipped(task.ProcessID, task.Type)
		}
		result.ProcessingTime = &processingTime
		completedAt := time.Now()
		result.CompletedAt = &completedAt
	}

	if err := tm.store.Update(task.Context, result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if task.Cancel != nil {
		task.Cancel()
	}
}

// updateTaskStatus updates the status of a task
func (tm *TaskManagerImpl) updateTaskStatus(processID string, status TaskStatus) error {
	result, err := tm.store.Get(context.Background(), processID)
	if err != nil {
		return err
	}

	result.Status = status
	return tm.store.Update(context.Background(), result)
}

// cleanupRoutine periodically cleans up old task results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	interval := tm.config.BackgroundTasks.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	maxAge := tm.config.BackgroundTasks.MaxTaskAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), maxAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// executeMatchTask executes a match task in the background
func (tm *TaskManagerImpl) executeMatchTask(ctx context.Context, processID string, request models.AsyncMatchRequest) (*TaskResult, error) {
	existingResult, err := tm.store.Get(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve existing task result: %w", err)
	}

	// Double-check: another worker may have scored this application between
	// submission and execution
	score, err := tm.apps.GetScore(ctx, request.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check application score: %w", err)
	}
	if score != nil {
		tm.appLogger.Info("Application scored since submission, skipping computation", map[string]interface{}{
			"application_id": request.ApplicationID,
			"score":          *score,
		})
		existingResult.Status = TaskStatusSkipped
		existingResult.Data = &MatchTaskData{
			ApplicationID: request.ApplicationID,
			FinalScore:    *score,
		}
		return existingResult, nil
	}

	jobTitle := request.JobTitle
	jobDescription := request.JobDescription
	if jobTitle == "" && tm.jobs != nil {
		jobText, err := tm.jobs.GetJobText(ctx, request.JobID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve job %d: %w", request.JobID, err)
		}
		jobTitle = jobText.Title
		if jobDescription == "" {
			jobDescription = jobText.Description
		}
	}

	matchResult := tm.engine.ComputeMatch(ctx, matcher.MatchParams{
		CandidateID:    request.CandidateID,
		JobID:          request.JobID,
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
		CVTimestamp:    request.CVTimestamp,
	})

	// A degraded result (no CV yet) must not pin a zero score onto the
	// application; leaving it unscored lets a retry succeed after upload
	if matchResult.Error != "" {
		return nil, fmt.Errorf("match computation failed: %s", matchResult.Error)
	}

	if err := tm.apps.SetScore(ctx, request.ApplicationID, matchResult.FinalScore); err != nil {
		return nil, fmt.Errorf("failed to store application score: %w", err)
	}

	existingResult.Data = &MatchTaskData{
		ApplicationID: request.ApplicationID,
		FinalScore:    matchResult.FinalScore,
	}
	existingResult.Metadata["final_score"] = matchResult.FinalScore

	return existingResult, nil
}

// executeSweepTask executes a sweep task in the background. Applications are
// scored sequentially so one sweep cannot saturate the LLM budget.
func (tm *TaskManagerImpl) executeSweepTask(ctx context.Context, processID string, request models.SweepRequest) (*TaskResult, error) {
	existingResult, err := tm.store.Get(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve existing task result: %w", err)
	}

	data := &SweepTaskData{JobIDs: request.JobIDs}

	for _, jobID := range request.JobIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		jobText, err := tm.jobs.GetJobText(ctx, jobID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				tm.appLogger.Warn("Sweep skipping unknown job", map[string]interface{}{
					"job_id": jobID,
				})
			} else {
				tm.appLogger.Error("Sweep failed to resolve job", map[string]interface{}{
					"job_id": jobID,
					"error":  err.Error(),
				})
			}
			data.Errors++
			continue
		}

		missing, err := tm.apps.ListMissingScores(ctx, []int64{jobID})
		if err != nil {
			tm.appLogger.Error("Sweep failed to list unscored applications", map[string]interface{}{
				"job_id": jobID,
				"error":  err.Error(),
			})
			data.Errors++
			continue
		}

		for _, app := range missing {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			// Re-check right before computing; a concurrent match task may
			// have landed a score while the sweep was working
			score, err := tm.apps.GetScore(ctx, app.ID)
			if err != nil {
				data.Errors++
				continue
			}
			if score != nil {
				data.Skipped++
				continue
			}

			matchResult := tm.engine.ComputeMatch(ctx, matcher.MatchParams{
				CandidateID:    app.CandidateID,
				JobID:          jobID,
				JobTitle:       jobText.Title,
				JobDescription: jobText.Description,
			})
			if matchResult.Error != "" {
				tm.appLogger.Warn("Sweep match computation degraded, leaving unscored", map[string]interface{}{
					"application_id": app.ID,
					"error":          matchResult.Error,
				})
				data.Errors++
				continue
			}

			if err := tm.apps.SetScore(ctx, app.ID, matchResult.FinalScore); err != nil {
				tm.appLogger.Error("Sweep failed to store score", map[string]interface{}{
					"application_id": app.ID,
					"error":          err.Error(),
				})
				data.Errors++
				continue
			}
			data.Processed++
		}
	}

	existingResult.Data = data
	existingResult.Metadata["processed"] = data.Processed
	existingResult.Metadata["skipped"] = data.Skipped
	existingResult.Metadata["errors"] = data.Errors

	return existingResult, nil
}
