package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	areas map[string]time.Time
	err   error
}

func (f *fakeLedger) FindByPrefix(prefix string) (*model.ScannedArea, error) {
	if f.err != nil {
		return nil, f.err
	}
	at, ok := f.areas[prefix]
	if !ok {
		return nil, nil
	}
	return &model.ScannedArea{GeohashPrefix: prefix, LastScannedAt: at}, nil
}

func (f *fakeLedger) UpsertLastScanned(prefix string, scannedAt time.Time) error {
	if f.areas == nil {
		f.areas = map[string]time.Time{}
	}
	f.areas[prefix] = scannedAt
	return nil
}

type fakeEnqueuer struct {
	prefixes []string
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, prefix string) error {
	if f.err != nil {
		return f.err
	}
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

const stalenessThreshold = 168 * time.Hour

func newTestEvaluator(ledger *fakeLedger, queue *fakeEnqueuer, now time.Time) *Evaluator {
	e := NewEvaluator(NewCodec(7), ledger, queue, stalenessThreshold)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluator_ShouldScan(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(7)
	prefix := codec.Encode(37.5665, 126.9780)

	tests := []struct {
		name        string
		lastScanned *time.Time
		want        bool
	}{
		{name: "never scanned", lastScanned: nil, want: true},
		{name: "scanned 200h ago is stale", lastScanned: timePtr(now.Add(-200 * time.Hour)), want: true},
		{name: "scanned exactly at threshold is stale", lastScanned: timePtr(now.Add(-stalenessThreshold)), want: true},
		{name: "scanned 100h ago is fresh", lastScanned: timePtr(now.Add(-100 * time.Hour)), want: false},
		{name: "scanned just now is fresh", lastScanned: timePtr(now), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{areas: map[string]time.Time{}}
			if tt.lastScanned != nil {
				ledger.areas[prefix] = *tt.lastScanned
			}

			evaluator := newTestEvaluator(ledger, &fakeEnqueuer{}, now)

			stale, err := evaluator.ShouldScan(37.5665, 126.9780)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stale)
		})
	}
}

func TestEvaluator_EnqueueScanIfStale_EnqueuesForStaleBucket(t *testing.T) {
	now := time.Now()
	queue := &fakeEnqueuer{}
	ledger := &fakeLedger{areas: map[string]time.Time{}}
	evaluator := newTestEvaluator(ledger, queue, now)

	evaluator.EnqueueScanIfStale(context.Background(), 37.5665, 126.9780)

	require.Len(t, queue.prefixes, 1)
	assert.Equal(t, NewCodec(7).Encode(37.5665, 126.9780), queue.prefixes[0])
}

func TestEvaluator_EnqueueScanIfStale_SkipsFreshBucket(t *testing.T) {
	now := time.Now()
	codec := NewCodec(7)
	prefix := codec.Encode(37.5665, 126.9780)

	queue := &fakeEnqueuer{}
	ledger := &fakeLedger{areas: map[string]time.Time{prefix: now.Add(-time.Hour)}}
	evaluator := newTestEvaluator(ledger, queue, now)

	evaluator.EnqueueScanIfStale(context.Background(), 37.5665, 126.9780)

	assert.Empty(t, queue.prefixes)
}

func TestEvaluator_EnqueueScanIfStale_SwallowsErrors(t *testing.T) {
	now := time.Now()

	t.Run("ledger failure", func(t *testing.T) {
		queue := &fakeEnqueuer{}
		ledger := &fakeLedger{err: errors.New("connection refused")}
		evaluator := newTestEvaluator(ledger, queue, now)

		assert.NotPanics(t, func() {
			evaluator.EnqueueScanIfStale(context.Background(), 37.5665, 126.9780)
		})
		assert.Empty(t, queue.prefixes)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		queue := &fakeEnqueuer{err: errors.New("queue unavailable")}
		ledger := &fakeLedger{areas: map[string]time.Time{}}
		evaluator := newTestEvaluator(ledger, queue, now)

		assert.NotPanics(t, func() {
			evaluator.EnqueueScanIfStale(context.Background(), 37.5665, 126.9780)
		})
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
