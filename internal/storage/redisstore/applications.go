// Package redisstore implements the application and job stores on Redis.
// Applications live at application:{id}, their scores at
// application:{id}:score, job postings at job:{id}:posting, and each job
// keeps the set of its application IDs at job:{id}:applications.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"talentmatch/internal/config"
	"talentmatch/internal/logging"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

// Client wraps the Redis client. It implements storage.ApplicationStore and
// storage.JobStore.
type Client struct {
	client *redis.Client
	logger logging.Logger
}

// NewClient creates a new Redis store instance
func NewClient(cfg *config.Config, logger logging.Logger) *Client {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return &Client{
		client: redis.NewClient(opts),
		logger: logger,
	}
}

// Ping tests the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// IsHealthy checks if Redis is connected and healthy
func (c *Client) IsHealthy(ctx context.Context) error {
	return c.Ping(ctx)
}

// GetScore returns the stored match score for an application. A nil score
// with nil error means the application has not been scored yet.
func (c *Client) GetScore(ctx context.Context, applicationID int64) (*float64, error) {
	val, err := c.client.Get(ctx, scoreKey(applicationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application score: %w", err)
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt score for application %d: %w", applicationID, err)
	}
	return &score, nil
}

// SetScore records the match score for an application
func (c *Client) SetScore(ctx context.Context, applicationID int64, score float64) error {
	val := strconv.FormatFloat(score, 'f', -1, 64)
	if err := c.client.Set(ctx, scoreKey(applicationID), val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set application score: %w", err)
	}
	return nil
}

// GetApplication returns the application record
func (c *Client) GetApplication(ctx context.Context, applicationID int64) (*models.Application, error) {
	val, err := c.client.Get(ctx, applicationKey(applicationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	var app models.Application
	if err := json.Unmarshal([]byte(val), &app); err != nil {
		return nil, fmt.Errorf("failed to unmarshal application %d: %w", applicationID, err)
	}
	return &app, nil
}

// SaveApplication stores an application record and registers it against its
// job's application set
func (c *Client) SaveApplication(ctx context.Context, app *models.Application) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to marshal application: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, applicationKey(app.ID), data, 0)
	pipe.SAdd(ctx, jobApplicationsKey(app.JobID), app.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

// ListMissingScores returns the applications of the given jobs that do not
// yet carry a match score
func (c *Client) ListMissingScores(ctx context.Context, jobIDs []int64) ([]models.Application, error) {
	var missing []models.Application

	for _, jobID := range jobIDs {
		ids, err := c.client.SMembers(ctx, jobApplicationsKey(jobID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list applications for job %d: %w", jobID, err)
		}

		for _, idStr := range ids {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				c.logger.Warn("Skipping malformed application ID", map[string]interface{}{
					"job_id":         jobID,
					"application_id": idStr,
				})
				continue
			}

			score, err := c.GetScore(ctx, id)
			if err != nil {
				return nil, err
			}
			if score != nil {
				continue
			}

			app, err := c.GetApplication(ctx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					c.logger.Warn("Application in job set but record missing", map[string]interface{}{
						"job_id":         jobID,
						"application_id": id,
					})
					continue
				}
				return nil, err
			}
			missing = append(missing, *app)
		}
	}

	return missing, nil
}

// GetJobText returns the title and description of a job posting
func (c *Client) GetJobText(ctx context.Context, jobID int64) (*models.JobText, error) {
	val, err := c.client.Get(ctx, jobPostingKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job posting: %w", err)
	}

	var job models.JobText
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job posting %d: %w", jobID, err)
	}
	return &job, nil
}

// SaveJobText stores a job posting's matchable text
func (c *Client) SaveJobText(ctx context.Context, jobID int64, job *models.JobText) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job posting: %w", err)
	}
	if err := c.client.Set(ctx, jobPostingKey(jobID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save job posting: %w", err)
	}
	return nil
}

func scoreKey(applicationID int64) string {
	return fmt.Sprintf("application:%d:score", applicationID)
}

func applicationKey(applicationID int64) string {
	return fmt.Sprintf("application:%d", applicationID)
}

func jobPostingKey(jobID int64) string {
	return fmt.Sprintf("job:%d:posting", jobID)
}

func jobApplicationsKey(jobID int64) string {
	return fmt.Sprintf("job:%d:applications", jobID)
}
