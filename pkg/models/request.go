package models

// MatchRequest is the payload for the synchronous match computation endpoint
type MatchRequest struct {
	CandidateID    string `json:"candidate_id" validate:"required"`
	JobID          int64  `json:"job_id" validate:"required"`
	JobTitle       string `json:"job_title,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
	CVTimestamp    string `json:"cv_timestamp,omitempty"`
}

// AsyncMatchRequest is the payload for the fire-and-forget scheduling
// endpoint used by the application-creation flow
type AsyncMatchRequest struct {
	ApplicationID  int64  `json:"application_id" validate:"required"`
	CandidateID    string `json:"candidate_id" validate:"required"`
	JobID          int64  `json:"job_id" validate:"required"`
	JobTitle       string `json:"job_title,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
	CVTimestamp    string `json:"cv_timestamp,omitempty"`
}

// SweepRequest is the payload for the bulk missing-score sweep endpoint used
// by the recruiter-facing applications listing
type SweepRequest struct {
	JobIDs []int64 `json:"job_ids" validate:"required,min=1"`
}
