package models

import "time"

// AsyncStatus represents the status of an async scoring operation
type AsyncStatus string

const (
	AsyncStatusAccepted   AsyncStatus = "ACCEPTED"
	AsyncStatusProcessing AsyncStatus = "PROCESSING"
	AsyncStatusSuccess    AsyncStatus = "SUCCESS"
	AsyncStatusFailure    AsyncStatus = "FAILURE"
	AsyncStatusSkipped    AsyncStatus = "SKIPPED"
)

// AsyncMatchResponse is the immediate response from the async match and sweep
// endpoints
type AsyncMatchResponse struct {
	ProcessID string      `json:"processId,omitempty"`
	Status    AsyncStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// AsyncTaskStatusResponse is the response for task status queries
type AsyncTaskStatusResponse struct {
	ProcessID      string         `json:"processId"`
	Status         AsyncStatus    `json:"status"`
	Data           any            `json:"data,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration `json:"processingTime,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IsCompleted reports whether the task has reached a terminal state
func (r *AsyncTaskStatusResponse) IsCompleted() bool {
	return r.Status == AsyncStatusSuccess || r.Status == AsyncStatusFailure || r.Status == AsyncStatusSkipped
}

// CreateAsyncMatchResponse creates the acceptance response for a queued match
// computation
func CreateAsyncMatchResponse(processID string) *AsyncMatchResponse {
	return &AsyncMatchResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Match computation accepted for background processing",
		Timestamp: time.Now(),
	}
}

// CreateSkippedMatchResponse creates the response returned when an
// application already has a score and nothing was scheduled
func CreateSkippedMatchResponse() *AsyncMatchResponse {
	return &AsyncMatchResponse{
		Status:    AsyncStatusSkipped,
		Message:   "Application already has a match score; not recomputed",
		Timestamp: time.Now(),
	}
}

// CreateAsyncSweepResponse creates the acceptance response for a queued sweep
func CreateAsyncSweepResponse(processID string) *AsyncMatchResponse {
	return &AsyncMatchResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Missing-score sweep accepted for background processing",
		Timestamp: time.Now(),
	}
}
