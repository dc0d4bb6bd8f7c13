// Package storage defines the persistence boundaries of the match engine:
// CV snapshots and match artifacts live in object storage, application and
// job records live in Redis.
package storage

import (
	"context"
	"errors"

	"talentmatch/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// use errors.Is to distinguish absence from transport failures.
var ErrNotFound = errors.New("record not found")

// CVStore retrieves parsed CV snapshots for a candidate
type CVStore interface {
	// GetParsedCV returns the candidate's parsed CV and the timestamp of
	// the snapshot used. An empty timestamp selects the latest snapshot.
	// Returns ErrNotFound when the candidate has no snapshots.
	GetParsedCV(ctx context.Context, candidateID string, timestamp string) (*models.ParsedCV, string, error)
}

// ArtifactStore persists match results for historical tracking
type ArtifactStore interface {
	// StoreMatchResult writes the full match result and returns the object
	// key it was stored under
	StoreMatchResult(ctx context.Context, candidateID string, jobID int64, timestamp string, result *models.MatchResult) (string, error)
}

// ApplicationStore reads and writes application records and their scores
type ApplicationStore interface {
	// GetScore returns the stored match score for an application, or nil
	// when no score has been recorded yet
	GetScore(ctx context.Context, applicationID int64) (*float64, error)
	// SetScore records the match score for an application
	SetScore(ctx context.Context, applicationID int64, score float64) error
	// GetApplication returns the application record. Returns ErrNotFound
	// when the application does not exist.
	GetApplication(ctx context.Context, applicationID int64) (*models.Application, error)
	// ListMissingScores returns the applications of the given jobs that do
	// not yet carry a match score
	ListMissingScores(ctx context.Context, jobIDs []int64) ([]models.Application, error)
}

// JobStore resolves job postings to their matchable text
type JobStore interface {
	// GetJobText returns the title and description of a job posting.
	// Returns ErrNotFound for unknown jobs.
	GetJobText(ctx context.Context, jobID int64) (*models.JobText, error)
}
