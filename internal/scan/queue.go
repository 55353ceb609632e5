package scan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	pendingListKey     = "scan:pending"
	activeMarkerPrefix = "scan:area:"

	// markers expire on their own so a crashed worker cannot block a bucket
	// forever
	activeMarkerTTL = 30 * time.Minute

	dequeueBlockTimeout = 5 * time.Second
)

// Job is one unit of scan work: a single geohash bucket.
type Job struct {
	GeohashPrefix string    `json:"geohash_prefix"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Queue is a Redis-backed scan job queue with per-bucket deduplication.
// The job id is deterministic (the geohash prefix), and a SET NX active
// marker guarantees at most one queued-or-executing job per bucket.
type Queue struct {
	client      *redis.Client
	maxAttempts int
}

func NewQueue(client *redis.Client, maxAttempts int) *Queue {
	return &Queue{client: client, maxAttempts: maxAttempts}
}

// Enqueue submits a scan job for a bucket. A bucket with a job already
// queued or executing is a silent no-op.
func (q *Queue) Enqueue(ctx context.Context, geohashPrefix string) error {
	marker := activeMarkerPrefix + geohashPrefix
	acquired, err := q.client.SetNX(ctx, marker, "1", activeMarkerTTL).Result()
	if err != nil {
		return err
	}
	if !acquired {
		logger.Debug("Scan job already active for bucket, skipping enqueue", map[string]interface{}{
			"geohash_prefix": geohashPrefix,
		})
		return nil
	}

	job := Job{
		GeohashPrefix: geohashPrefix,
		Attempt:       0,
		EnqueuedAt:    time.Now(),
	}
	if err := q.push(ctx, &job); err != nil {
		// Release the marker so a later enqueue can retry.
		q.client.Del(ctx, marker)
		return err
	}

	logger.Info("Scan job enqueued", map[string]interface{}{
		"geohash_prefix": geohashPrefix,
	})
	return nil
}

// Dequeue blocks for up to a few seconds waiting for a job.
// Returns (nil, nil) when the wait times out.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, dequeueBlockTimeout, pendingListKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("Failed to decode scan job payload, dropping", err, map[string]interface{}{
			"payload": result[1],
		})
		return nil, nil
	}
	return &job, nil
}

// Complete releases the bucket's active marker after a successful job.
func (q *Queue) Complete(ctx context.Context, job *Job) {
	if err := q.client.Del(ctx, activeMarkerPrefix+job.GeohashPrefix).Err(); err != nil {
		logger.Warn("Failed to clear scan job marker", map[string]interface{}{
			"geohash_prefix": job.GeohashPrefix,
			"error":          err.Error(),
		})
	}
}

// Fail records a failed attempt. The job is requeued after an exponential
// backoff until the attempt budget is spent, at which point the marker is
// released and the job dropped. Returns true when a retry was scheduled.
func (q *Queue) Fail(ctx context.Context, job *Job) bool {
	next := job.Attempt + 1
	if next >= q.maxAttempts {
		logger.Error("Scan job failed permanently", nil, map[string]interface{}{
			"geohash_prefix": job.GeohashPrefix,
			"attempts":       next,
		})
		q.Complete(ctx, job)
		return false
	}

	delay := RetryBackoff(next)
	logger.Warn("Scan job failed, scheduling retry", map[string]interface{}{
		"geohash_prefix": job.GeohashPrefix,
		"attempt":        next,
		"retry_in":       delay.String(),
	})

	// The active marker stays set while the retry waits, so concurrent
	// enqueues for the bucket remain no-ops.
	retry := Job{
		GeohashPrefix: job.GeohashPrefix,
		Attempt:       next,
		EnqueuedAt:    time.Now(),
	}
	time.AfterFunc(delay, func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := q.push(pushCtx, &retry); err != nil {
			logger.Error("Failed to requeue scan job", err, map[string]interface{}{
				"geohash_prefix": retry.GeohashPrefix,
			})
			q.client.Del(pushCtx, activeMarkerPrefix+retry.GeohashPrefix)
		}
	})
	return true
}

func (q *Queue) push(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, pendingListKey, payload).Err()
}

// RetryBackoff returns the wait before retry attempt n (1-based):
// 30s, 60s, 120s, ...
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return 30 * time.Second * (1 << uint(attempt-1))
}
