package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/pkg/cache"
	"github.com/plannery/plannery-backend/pkg/logger"
)

// Trending score policy constants. Plan associations weigh more than
// follows, follows more than views, and everything decays with venue age.
const (
	trendingPlanWeight   = 5.0
	trendingFollowWeight = 2.5
	trendingViewWeight   = 0.5
	trendingDecayPerHour = 0.05
)

// trendingCacheFamily names the versioned cache family for trending lists.
const trendingCacheFamily = "trending"

type TrendingService interface {
	CalculateScore(followerCount, viewCount, associatedPlanCount int, createdAt, now time.Time) float64
	RefreshVenue(ctx context.Context, venueID uint) error
	RefreshAll(ctx context.Context) error
	GetTrendingVenues(ctx context.Context, limit int) ([]model.Venue, error)
}

type trendingService struct {
	venueRepo repository.VenueRepository
	cache     *cache.Cache
	batchSize int
	scoreTTL  time.Duration
}

func NewTrendingService(venueRepo repository.VenueRepository, c *cache.Cache, batchSize int, scoreTTL time.Duration) TrendingService {
	return &trendingService{
		venueRepo: venueRepo,
		cache:     c,
		batchSize: batchSize,
		scoreTTL:  scoreTTL,
	}
}

// CalculateScore computes the engagement-weighted, age-decayed trending
// score. Pure function: persistence and caching are the caller's job.
func (s *trendingService) CalculateScore(followerCount, viewCount, associatedPlanCount int, createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	decay := math.Exp(-trendingDecayPerHour * ageHours)

	raw := float64(associatedPlanCount)*trendingPlanWeight +
		float64(followerCount)*trendingFollowWeight +
		float64(viewCount)*trendingViewWeight

	score := raw * decay
	if score < 0 {
		return 0
	}
	return score
}

// RefreshVenue recomputes and persists one venue's score, caching the value
// with a short TTL.
func (s *trendingService) RefreshVenue(ctx context.Context, venueID uint) error {
	venue, err := s.venueRepo.FindByID(venueID)
	if err != nil {
		return err
	}

	score := s.CalculateScore(venue.FollowerCount, venue.ViewCount, venue.AssociatedPlanCount, venue.CreatedAt, time.Now())
	if err := s.venueRepo.UpdateTrendingScore(venueID, score); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Set(ctx, fmt.Sprintf("venue_score:%d", venueID), score, s.scoreTTL)
	}
	return nil
}

// RefreshAll recomputes scores for every active venue in bounded batches.
// Individual venue failures are logged and counted without aborting the run.
// Aggregate trending list caches are invalidated afterwards.
func (s *trendingService) RefreshAll(ctx context.Context) error {
	logger.Info("Starting trending score refresh", map[string]interface{}{
		"batch_size": s.batchSize,
	})

	var processed, failed int
	for offset := 0; ; offset += s.batchSize {
		ids, err := s.venueRepo.ListActiveIDs(s.batchSize, offset)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if err := s.RefreshVenue(ctx, id); err != nil {
				failed++
				logger.Warn("Failed to refresh trending score", map[string]interface{}{
					"venue_id": id,
					"error":    err.Error(),
				})
				continue
			}
			processed++
		}
	}

	if s.cache != nil {
		s.cache.BumpVersion(ctx, trendingCacheFamily)
	}

	logger.Info("Trending score refresh completed", map[string]interface{}{
		"processed": processed,
		"failed":    failed,
	})
	return nil
}

// GetTrendingVenues returns the top venues by trending score, cached under a
// versioned key so RefreshAll invalidates all list variants at once.
func (s *trendingService) GetTrendingVenues(ctx context.Context, limit int) ([]model.Venue, error) {
	if limit <= 0 {
		limit = 20
	}

	var key string
	if s.cache != nil {
		key = s.cache.VersionedKey(ctx, trendingCacheFamily, fmt.Sprintf("top:%d", limit))
		var cached []model.Venue
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	venues, err := s.venueRepo.ListTrending(limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, venues, s.scoreTTL)
	}
	return venues, nil
}
