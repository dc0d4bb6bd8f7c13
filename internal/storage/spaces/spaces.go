// Package spaces implements the CV and artifact stores on DigitalOcean
// Spaces via the S3 API. Parsed CVs live under {candidate}/parsed/ with a
// YYYYMMDD_HHMMSS_{name}.json naming scheme; match results go under
// {candidate}/match_results/.
package spaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"talentmatch/internal/config"
	"talentmatch/internal/logging"
	"talentmatch/internal/storage"
	"talentmatch/pkg/models"
)

var timestampRegex = regexp.MustCompile(`^(\d{8}_\d{6})_`)

// Client wraps the S3 client for Spaces operations. It implements both
// storage.CVStore and storage.ArtifactStore.
type Client struct {
	client     *s3.S3
	bucketName string
	retry      storage.RetryPolicy
	logger     logging.Logger
}

// NewClient creates a new Spaces client
func NewClient(cfg *config.Config, logger logging.Logger) (*Client, error) {
	if cfg.Storage.AccessKeyID == "" || cfg.Storage.AccessKeySecret == "" {
		return nil, fmt.Errorf("object storage credentials are required")
	}

	endpoint := cfg.Storage.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Storage.Region)
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.Storage.AccessKeyID,
			cfg.Storage.AccessKeySecret,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(cfg.Storage.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage session: %w", err)
	}

	logger.Info("Object storage client initialized", map[string]interface{}{
		"bucket_name": cfg.Storage.BucketName,
		"region":      cfg.Storage.Region,
		"endpoint":    endpoint,
	})

	return &Client{
		client:     s3.New(sess),
		bucketName: cfg.Storage.BucketName,
		retry: storage.RetryPolicy{
			MaxRetries:    cfg.Storage.Retry.MaxRetries,
			InitialDelay:  cfg.Storage.Retry.InitialDelay,
			BackoffFactor: cfg.Storage.Retry.BackoffFactor,
		},
		logger: logger,
	}, nil
}

// GetParsedCV returns the candidate's parsed CV snapshot. An empty timestamp
// selects the newest snapshot by the timestamp embedded in the object name,
// falling back to the object's last-modified time for legacy names.
func (c *Client) GetParsedCV(ctx context.Context, candidateID string, timestamp string) (*models.ParsedCV, string, error) {
	prefix := fmt.Sprintf("%s/parsed/", candidateID)

	var objects []*s3.Object
	err := c.retry.Do(ctx, c.logger, "list_parsed_cvs", func() error {
		objects = objects[:0]
		return c.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.bucketName),
			Prefix: aws.String(prefix),
		}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			objects = append(objects, page.Contents...)
			return true
		})
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list CV snapshots: %w", err)
	}

	if len(objects) == 0 {
		return nil, "", storage.ErrNotFound
	}

	key, ts, err := c.selectSnapshot(objects, prefix, timestamp)
	if err != nil {
		return nil, "", err
	}

	var cv models.ParsedCV
	err = c.retry.Do(ctx, c.logger, "get_parsed_cv", func() error {
		out, err := c.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		data, err := io.ReadAll(out.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &cv)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read CV snapshot %s: %w", key, err)
	}

	return &cv, ts, nil
}

// selectSnapshot picks the object key for either the requested timestamp or
// the newest snapshot
func (c *Client) selectSnapshot(objects []*s3.Object, prefix, timestamp string) (string, string, error) {
	type snapshot struct {
		key  string
		name string
		ts   string
		obj  *s3.Object
	}

	snapshots := make([]snapshot, 0, len(objects))
	for _, obj := range objects {
		key := aws.StringValue(obj.Key)
		name := strings.TrimPrefix(key, prefix)
		if name == "" || strings.HasSuffix(key, "/") {
			continue
		}
		ts := ""
		if m := timestampRegex.FindStringSubmatch(name); m != nil {
			ts = m[1]
		}
		snapshots = append(snapshots, snapshot{key: key, name: name, ts: ts, obj: obj})
	}

	if len(snapshots) == 0 {
		return "", "", storage.ErrNotFound
	}

	if timestamp != "" {
		for _, s := range snapshots {
			if strings.HasPrefix(s.name, timestamp) {
				return s.key, timestamp, nil
			}
		}
		return "", "", fmt.Errorf("CV with timestamp %s: %w", timestamp, storage.ErrNotFound)
	}

	// Filename timestamps sort lexicographically; objects without one fall
	// back to their storage modification time
	sort.Slice(snapshots, func(i, j int) bool {
		si, sj := snapshots[i], snapshots[j]
		if si.ts != "" && sj.ts != "" {
			return si.ts > sj.ts
		}
		if si.ts != sj.ts {
			return si.ts != ""
		}
		return aws.TimeValue(si.obj.LastModified).After(aws.TimeValue(sj.obj.LastModified))
	})

	return snapshots[0].key, snapshots[0].ts, nil
}

// StoreMatchResult writes the match result under the candidate's
// match_results prefix and returns the object key
func (c *Client) StoreMatchResult(ctx context.Context, candidateID string, jobID int64, timestamp string, result *models.MatchResult) (string, error) {
	jobSlug := slugify(result.Metadata.JobTitle)
	key := fmt.Sprintf("%s/match_results/job_%d_%s_%s.json", candidateID, jobID, timestamp, jobSlug)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode match result: %w", err)
	}

	err = c.retry.Do(ctx, c.logger, "store_match_result", func() error {
		_, err := c.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to store match result: %w", err)
	}

	return key, nil
}

// IsHealthy checks that the bucket is reachable
func (c *Client) IsHealthy() bool {
	_, err := c.client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(c.bucketName),
	})
	if err != nil {
		c.logger.Error("Object storage health check failed", map[string]interface{}{
			"bucket_name": c.bucketName,
			"error":       err.Error(),
		})
		return false
	}
	return true
}

// slugify turns a job title into a filename-safe fragment, capped at 30
// characters
func slugify(title string) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	if slug == "" {
		slug = "job"
	}
	return slug
}
