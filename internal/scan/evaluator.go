package scan

import (
	"context"
	"time"

	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/pkg/logger"
)

// JobEnqueuer submits scan jobs for geohash buckets.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, geohashPrefix string) error
}

// Evaluator decides whether a coordinate's bucket needs a fresh scan and
// enqueues the work. It is invoked fire-and-forget from request paths, so
// EnqueueScanIfStale never returns an error.
type Evaluator struct {
	codec     *Codec
	ledger    repository.ScannedAreaRepository
	queue     JobEnqueuer
	threshold time.Duration
	now       func() time.Time
}

func NewEvaluator(codec *Codec, ledger repository.ScannedAreaRepository, queue JobEnqueuer, threshold time.Duration) *Evaluator {
	return &Evaluator{
		codec:     codec,
		ledger:    ledger,
		queue:     queue,
		threshold: threshold,
		now:       time.Now,
	}
}

// ShouldScan reports whether the bucket containing (lat, lng) has never been
// scanned or was last scanned at least the staleness threshold ago.
func (e *Evaluator) ShouldScan(lat, lng float64) (bool, error) {
	prefix := e.codec.Encode(lat, lng)
	area, err := e.ledger.FindByPrefix(prefix)
	if err != nil {
		return false, err
	}
	if area == nil {
		return true, nil
	}
	return e.now().Sub(area.LastScannedAt) >= e.threshold, nil
}

// EnqueueScanIfStale evaluates staleness and enqueues a scan job when due.
// Every failure is logged and swallowed: this path must never surface an
// error to the request that triggered it.
func (e *Evaluator) EnqueueScanIfStale(ctx context.Context, lat, lng float64) {
	stale, err := e.ShouldScan(lat, lng)
	if err != nil {
		logger.Warn("Staleness check failed, skipping scan", map[string]interface{}{
			"latitude":  lat,
			"longitude": lng,
			"error":     err.Error(),
		})
		return
	}
	if !stale {
		return
	}

	prefix := e.codec.Encode(lat, lng)
	if err := e.queue.Enqueue(ctx, prefix); err != nil {
		logger.Warn("Failed to enqueue scan job", map[string]interface{}{
			"geohash_prefix": prefix,
			"error":          err.Error(),
		})
	}
}
