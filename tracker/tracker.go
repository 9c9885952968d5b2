// Package tracker publishes job status and progress for external dashboards.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mediaworker/models"

	"github.com/redis/go-redis/v9"
)

// retention of finished job hashes
const finishedTTL = 24 * time.Hour

// Tracker receives job state changes. Implementations must be safe for
// concurrent use.
type Tracker interface {
	Update(ctx context.Context, rec models.JobRecord) error
	Close() error
}

// New returns a redis backed tracker for addr, or a no-op tracker when addr is empty.
func New(ctx context.Context, addr string) (Tracker, error) {
	if addr == "" {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisTracker{client: client}, nil
}

// RedisTracker keeps one hash per job under job:<id>.
type RedisTracker struct {
	client *redis.Client
}

func Key(id string) string {
	return "job:" + id
}

// Fields renders the hash fields written for rec.
func Fields(rec models.JobRecord) map[string]any {
	fields := map[string]any{
		"status":     string(rec.Status),
		"operation":  string(rec.Operation),
		"progress":   strconv.FormatFloat(rec.Progress, 'f', 1, 64),
		"attempts":   rec.Attempts,
		"updated_at": rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.Error != "" {
		fields["error"] = rec.Error
	}
	if out, ok := rec.Output[models.OutputFileKey].(models.Locator); ok {
		fields["output_bucket"] = out.Bucket
		fields["output_key"] = out.Key
	}
	return fields
}

func (t *RedisTracker) Update(ctx context.Context, rec models.JobRecord) error {
	key := Key(rec.ID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key, Fields(rec))
	if finished(rec.Status) {
		pipe.Expire(ctx, key, finishedTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update tracker for %s: %w", rec.ID, err)
	}
	return nil
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

// Noop discards updates.
type Noop struct{}

func (Noop) Update(context.Context, models.JobRecord) error { return nil }
func (Noop) Close() error                                   { return nil }

func finished(status models.JobStatus) bool {
	switch status {
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		return true
	}
	return false
}
