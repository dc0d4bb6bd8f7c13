package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"talentmatch/internal/background"
	"talentmatch/internal/matcher"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

type stubTaskManager struct {
	submitErr   error
	submitted   []string
	results     map[string]*background.TaskResult
	sweepErr    error
	sweepJobIDs []int64
}

func (s *stubTaskManager) Start(ctx context.Context) error { return nil }
func (s *stubTaskManager) Stop(ctx context.Context) error  { return nil }
func (s *stubTaskManager) IsHealthy() bool                 { return true }

func (s *stubTaskManager) SubmitMatchTask(ctx context.Context, processID string, request models.AsyncMatchRequest) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, processID)
	return nil
}

func (s *stubTaskManager) SubmitSweepTask(ctx context.Context, processID string, request models.SweepRequest) error {
	if s.sweepErr != nil {
		return s.sweepErr
	}
	s.sweepJobIDs = request.JobIDs
	return nil
}

func (s *stubTaskManager) GetTaskResult(ctx context.Context, processID string) (*background.TaskResult, error) {
	if result, ok := s.results[processID]; ok {
		return result, nil
	}
	return nil, background.ErrTaskNotFound
}

func (s *stubTaskManager) GetTaskStatus(ctx context.Context, processID string) (background.TaskStatus, error) {
	result, err := s.GetTaskResult(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

func (s *stubTaskManager) ListTasks(ctx context.Context) ([]*background.TaskResult, error) {
	var tasks []*background.TaskResult
	for _, result := range s.results {
		tasks = append(tasks, result)
	}
	return tasks, nil
}

type stubEngine struct {
	lastParams matcher.MatchParams
	score      float64
}

func (s *stubEngine) ComputeMatch(ctx context.Context, params matcher.MatchParams) *models.MatchResult {
	s.lastParams = params
	return &models.MatchResult{FinalScore: s.score}
}

type stubJobStore struct {
	jobs map[int64]*models.JobText
}

func (s *stubJobStore) GetJobText(ctx context.Context, jobID int64) (*models.JobText, error) {
	if text, ok := s.jobs[jobID]; ok {
		return text, nil
	}
	return nil, storage.ErrNotFound
}

func postJSON(handler echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		e.HTTPErrorHandler(err, e.NewContext(req, rec))
	}
	return rec
}

func TestEnqueueMatchAccepted(t *testing.T) {
	tm := &stubTaskManager{}
	handler := EnqueueMatchHandler(tm)

	rec := postJSON(handler, "/api/v1/match/async",
		`{"application_id": 42, "candidate_id": "cand_1", "job_id": 7}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.AsyncMatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.AsyncStatusAccepted {
		t.Errorf("expected status ACCEPTED, got %s", resp.Status)
	}
	if resp.ProcessID == "" {
		t.Error("expected a process ID")
	}
	if len(tm.submitted) != 1 {
		t.Errorf("expected 1 submitted task, got %d", len(tm.submitted))
	}
}

func TestEnqueueMatchAlreadyScored(t *testing.T) {
	tm := &stubTaskManager{submitErr: background.ErrAlreadyScored}
	handler := EnqueueMatchHandler(tm)

	rec := postJSON(handler, "/api/v1/match/async",
		`{"application_id": 42, "candidate_id": "cand_1", "job_id": 7}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.AsyncMatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.AsyncStatusSkipped {
		t.Errorf("expected status SKIPPED, got %s", resp.Status)
	}
	if resp.ProcessID != "" {
		t.Errorf("expected no process ID for skipped submission, got %s", resp.ProcessID)
	}
}

func TestEnqueueMatchValidationFailure(t *testing.T) {
	tm := &stubTaskManager{}
	handler := EnqueueMatchHandler(tm)

	rec := postJSON(handler, "/api/v1/match/async", `{"candidate_id": "cand_1"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(tm.submitted) != 0 {
		t.Error("invalid request should not reach the task manager")
	}
}

func TestComputeMatchResolvesJobTitle(t *testing.T) {
	engine := &stubEngine{score: 0.75}
	jobs := &stubJobStore{jobs: map[int64]*models.JobText{
		7: {Title: "Backend Developer", Description: "Go and Redis"},
	}}
	handler := ComputeMatchHandler(engine, jobs)

	rec := postJSON(handler, "/api/v1/match",
		`{"candidate_id": "cand_1", "job_id": 7}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if engine.lastParams.JobTitle != "Backend Developer" {
		t.Errorf("expected job title resolved from store, got %q", engine.lastParams.JobTitle)
	}
	if engine.lastParams.JobDescription != "Go and Redis" {
		t.Errorf("expected job description resolved from store, got %q", engine.lastParams.JobDescription)
	}

	var result models.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.FinalScore != 0.75 {
		t.Errorf("expected final score 0.75, got %f", result.FinalScore)
	}
}

func TestComputeMatchUnknownJob(t *testing.T) {
	engine := &stubEngine{}
	jobs := &stubJobStore{jobs: map[int64]*models.JobText{}}
	handler := ComputeMatchHandler(engine, jobs)

	rec := postJSON(handler, "/api/v1/match",
		`{"candidate_id": "cand_1", "job_id": 99}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestComputeMatchInlineTitleSkipsStore(t *testing.T) {
	engine := &stubEngine{score: 0.5}
	handler := ComputeMatchHandler(engine, &stubJobStore{})

	rec := postJSON(handler, "/api/v1/match",
		`{"candidate_id": "cand_1", "job_id": 7, "job_title": "Data Engineer"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if engine.lastParams.JobTitle != "Data Engineer" {
		t.Errorf("expected inline job title to be used, got %q", engine.lastParams.JobTitle)
	}
}

func TestSweepMatchAccepted(t *testing.T) {
	tm := &stubTaskManager{}
	handler := SweepMatchHandler(tm)

	rec := postJSON(handler, "/api/v1/match/sweep", `{"job_ids": [7, 8]}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(tm.sweepJobIDs) != 2 {
		t.Errorf("expected 2 job IDs forwarded, got %v", tm.sweepJobIDs)
	}
}

func TestSweepMatchRequiresJobIDs(t *testing.T) {
	tm := &stubTaskManager{}
	handler := SweepMatchHandler(tm)

	rec := postJSON(handler, "/api/v1/match/sweep", `{"job_ids": []}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTaskStatusNotFound(t *testing.T) {
	tm := &stubTaskManager{results: map[string]*background.TaskResult{}}
	handler := TaskStatusHandler(tm)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/match/tasks/match_missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("processId")
	c.SetParamValues("match_missing")

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTaskStatusSuccess(t *testing.T) {
	tm := &stubTaskManager{results: map[string]*background.TaskResult{
		"match_abc": {
			ProcessID: "match_abc",
			Type:      background.TaskTypeMatch,
			Status:    background.TaskStatusSuccess,
			Data:      background.MatchTaskData{ApplicationID: 42, FinalScore: 0.61},
		},
	}}
	handler := TaskStatusHandler(tm)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/match/tasks/match_abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("processId")
	c.SetParamValues("match_abc")

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.AsyncTaskStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.AsyncStatusSuccess {
		t.Errorf("expected status SUCCESS, got %s", resp.Status)
	}
	if resp.ProcessID != "match_abc" {
		t.Errorf("expected process ID match_abc, got %s", resp.ProcessID)
	}
}
