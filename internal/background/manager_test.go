package background

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/logging"
	"talentmatch/internal/matcher"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

// stubAppStore is an in-memory ApplicationStore with optional scripted
// behavior for the score double-check
type stubAppStore struct {
	mu         sync.Mutex
	scores     map[int64]float64
	apps       map[int64]models.Application
	byJob      map[int64][]int64
	getCalls   int
	scoreAfter map[int64]int // after N GetScore calls, report this score as set
}

func newStubAppStore() *stubAppStore {
	return &stubAppStore{
		scores: make(map[int64]float64),
		apps:   make(map[int64]models.Application),
		byJob:  make(map[int64][]int64),
	}
}

func (s *stubAppStore) addApplication(app models.Application) {
	s.apps[app.ID] = app
	s.byJob[app.JobID] = append(s.byJob[app.JobID], app.ID)
}

func (s *stubAppStore) GetScore(ctx context.Context, applicationID int64) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++

	if after, ok := s.scoreAfter[applicationID]; ok && s.getCalls > after {
		v := 0.99
		return &v, nil
	}

	if score, ok := s.scores[applicationID]; ok {
		return &score, nil
	}
	return nil, nil
}

func (s *stubAppStore) SetScore(ctx context.Context, applicationID int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[applicationID] = score
	return nil
}

func (s *stubAppStore) GetApplication(ctx context.Context, applicationID int64) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &app, nil
}

func (s *stubAppStore) ListMissingScores(ctx context.Context, jobIDs []int64) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []models.Application
	for _, jobID := range jobIDs {
		for _, id := range s.byJob[jobID] {
			if _, scored := s.scores[id]; scored {
				continue
			}
			missing = append(missing, s.apps[id])
		}
	}
	return missing, nil
}

func (s *stubAppStore) score(applicationID int64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scores[applicationID]
	return v, ok
}

type stubJobStore struct {
	jobs map[int64]models.JobText
}

func (s *stubJobStore) GetJobText(ctx context.Context, jobID int64) (*models.JobText, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &job, nil
}

// countingEngine counts match computations and returns a fixed result
type countingEngine struct {
	mu        sync.Mutex
	calls     int
	score     float64
	resultErr string
}

func (e *countingEngine) ComputeMatch(ctx context.Context, params matcher.MatchParams) *models.MatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return &models.MatchResult{
		FinalScore: e.score,
		Error:      e.resultErr,
	}
}

func (e *countingEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func testTaskConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BackgroundTasks.MaxWorkers = 2
	cfg.BackgroundTasks.QueueSize = 10
	cfg.BackgroundTasks.TaskTimeout = 5 * time.Second
	cfg.BackgroundTasks.CleanupInterval = time.Hour
	cfg.BackgroundTasks.MaxTaskAge = time.Hour
	return cfg
}

func startManager(t *testing.T, engine MatchComputer, apps storage.ApplicationStore, jobs storage.JobStore) *TaskManagerImpl {
	t.Helper()
	tm := NewTaskManager(testTaskConfig(), engine, apps, jobs, logging.NewMultiLogger())
	if err := tm.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tm.Stop(ctx)
	})
	return tm
}

func waitForTerminal(t *testing.T, tm TaskManager, processID string) *TaskResult {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		result, err := tm.GetTaskResult(context.Background(), processID)
		if err == nil {
			switch result.Status {
			case TaskStatusSuccess, TaskStatusFailure, TaskStatusSkipped:
				return result
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach a terminal state", processID)
	return nil
}

func matchRequest(appID int64) models.AsyncMatchRequest {
	return models.AsyncMatchRequest{
		ApplicationID: appID,
		CandidateID:   "cand-1",
		JobID:         7,
		JobTitle:      "Backend Engineer",
	}
}

func TestSubmitMatchTaskComputesAndStoresScore(t *testing.T) {
	apps := newStubAppStore()
	engine := &countingEngine{score: 0.61}
	tm := startManager(t, engine, apps, nil)

	if err := tm.SubmitMatchTask(context.Background(), "match_1", matchRequest(100)); err != nil {
		t.Fatalf("SubmitMatchTask() error = %v", err)
	}

	result := waitForTerminal(t, tm, "match_1")
	if result.Status != TaskStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS (error: %s)", result.Status, result.Error)
	}
	if score, ok := apps.score(100); !ok || score != 0.61 {
		t.Errorf("stored score = %v (%v), want 0.61", score, ok)
	}
	if engine.callCount() != 1 {
		t.Errorf("engine calls = %d, want 1", engine.callCount())
	}
}

func TestSubmitMatchTaskAlreadyScored(t *testing.T) {
	apps := newStubAppStore()
	apps.scores[100] = 0.5
	engine := &countingEngine{score: 0.9}
	tm := startManager(t, engine, apps, nil)

	err := tm.SubmitMatchTask(context.Background(), "match_1", matchRequest(100))
	if !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("SubmitMatchTask() error = %v, want ErrAlreadyScored", err)
	}
	if engine.callCount() != 0 {
		t.Errorf("engine calls = %d, want 0", engine.callCount())
	}
	if score, _ := apps.score(100); score != 0.5 {
		t.Errorf("score = %v, want untouched 0.5", score)
	}
}

func TestMatchTaskDoubleCheckSkips(t *testing.T) {
	apps := newStubAppStore()
	// First GetScore call (submission pre-check) reports unscored; every
	// later call reports a score, simulating a concurrent scorer winning
	// the race
	apps.scoreAfter = map[int64]int{100: 1}
	engine := &countingEngine{score: 0.9}
	tm := startManager(t, engine, apps, nil)

	if err := tm.SubmitMatchTask(context.Background(), "match_1", matchRequest(100)); err != nil {
		t.Fatalf("SubmitMatchTask() error = %v", err)
	}

	result := waitForTerminal(t, tm, "match_1")
	if result.Status != TaskStatusSkipped {
		t.Fatalf("status = %s, want SKIPPED", result.Status)
	}
	if engine.callCount() != 0 {
		t.Errorf("engine calls = %d, want 0 (double-check must prevent recompute)", engine.callCount())
	}
}

func TestMatchTaskDegradedResultDoesNotStoreScore(t *testing.T) {
	apps := newStubAppStore()
	engine := &countingEngine{resultErr: "No CV data found. Please upload your CV first."}
	tm := startManager(t, engine, apps, nil)

	if err := tm.SubmitMatchTask(context.Background(), "match_1", matchRequest(100)); err != nil {
		t.Fatalf("SubmitMatchTask() error = %v", err)
	}

	result := waitForTerminal(t, tm, "match_1")
	if result.Status != TaskStatusFailure {
		t.Fatalf("status = %s, want FAILURE", result.Status)
	}
	if _, ok := apps.score(100); ok {
		t.Error("degraded result must not pin a score onto the application")
	}
}

func TestMatchTaskResolvesJobFromStore(t *testing.T) {
	apps := newStubAppStore()
	jobs := &stubJobStore{jobs: map[int64]models.JobText{
		7: {Title: "Backend Engineer", Description: "Go services"},
	}}
	engine := &countingEngine{score: 0.4}
	tm := startManager(t, engine, apps, jobs)

	req := matchRequest(100)
	req.JobTitle = ""
	if err := tm.SubmitMatchTask(context.Background(), "match_1", req); err != nil {
		t.Fatalf("SubmitMatchTask() error = %v", err)
	}

	result := waitForTerminal(t, tm, "match_1")
	if result.Status != TaskStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS (error: %s)", result.Status, result.Error)
	}
}

func TestSweepTaskScoresMissingApplications(t *testing.T) {
	apps := newStubAppStore()
	apps.addApplication(models.Application{ID: 1, CandidateID: "cand-a", JobID: 7})
	apps.addApplication(models.Application{ID: 2, CandidateID: "cand-b", JobID: 7})
	apps.addApplication(models.Application{ID: 3, CandidateID: "cand-c", JobID: 8})
	apps.scores[2] = 0.8 // already scored, must be untouched

	jobs := &stubJobStore{jobs: map[int64]models.JobText{
		7: {Title: "Backend Engineer"},
		8: {Title: "Data Scientist"},
	}}
	engine := &countingEngine{score: 0.55}
	tm := startManager(t, engine, apps, jobs)

	err := tm.SubmitSweepTask(context.Background(), "sweep_1", models.SweepRequest{JobIDs: []int64{7, 8, 999}})
	if err != nil {
		t.Fatalf("SubmitSweepTask() error = %v", err)
	}

	result := waitForTerminal(t, tm, "sweep_1")
	if result.Status != TaskStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS (error: %s)", result.Status, result.Error)
	}

	data, ok := result.Data.(*SweepTaskData)
	if !ok {
		t.Fatalf("result data = %T, want *SweepTaskData", result.Data)
	}
	if data.Processed != 2 {
		t.Errorf("processed = %d, want 2", data.Processed)
	}
	if data.Errors != 1 {
		t.Errorf("errors = %d, want 1 (unknown job)", data.Errors)
	}

	if score, _ := apps.score(1); score != 0.55 {
		t.Errorf("application 1 score = %v, want 0.55", score)
	}
	if score, _ := apps.score(3); score != 0.55 {
		t.Errorf("application 3 score = %v, want 0.55", score)
	}
	if score, _ := apps.score(2); score != 0.8 {
		t.Errorf("application 2 score = %v, want untouched 0.8", score)
	}
	if engine.callCount() != 2 {
		t.Errorf("engine calls = %d, want 2", engine.callCount())
	}
}

func TestTaskStoreCleanup(t *testing.T) {
	store := NewInMemoryTaskStore()
	old := &TaskResult{ProcessID: "old", CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := &TaskResult{ProcessID: "fresh", CreatedAt: time.Now()}
	store.Store(context.Background(), old)
	store.Store(context.Background(), fresh)

	if err := store.Cleanup(context.Background(), time.Hour); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if _, err := store.Get(context.Background(), "old"); !errors.Is(err, ErrTaskNotFound) {
		t.Error("expired task should be removed")
	}
	if _, err := store.Get(context.Background(), "fresh"); err != nil {
		t.Errorf("fresh task should remain, got error %v", err)
	}
}
