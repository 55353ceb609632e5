package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/internal/scan"
	"github.com/plannery/plannery-backend/pkg/cache"
	"github.com/plannery/plannery-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrVenueNotFound    = errors.New("venue not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyFollowing = errors.New("already following this venue")
	ErrNotFollowing     = errors.New("not following this venue")
)

const (
	recentlyViewedKeyFmt = "recent_views:%d"
	recentlyViewedMax    = 10
	backgroundOpTimeout  = 15 * time.Second
)

// SearchOptions is the user-facing search surface. It maps onto the
// repository filter; the id allow-list short-circuits geographic filtering
// and pagination.
type SearchOptions struct {
	IDs []uint

	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64

	Query      string
	VenueType  string
	OpenNow    bool
	PriceLevel *int

	SortBy    string
	SortOrder string
	Page      int
	Limit     int

	// IncludeAllStatuses lifts the active-only restriction for moderators.
	IncludeAllStatuses bool
}

type CreateVenueInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Address     string   `json:"address" binding:"required"`
	Latitude    float64  `json:"latitude" binding:"required"`
	Longitude   float64  `json:"longitude" binding:"required"`
	PhoneNumber string   `json:"phone_number"`
	Website     string   `json:"website"`
	Types       []string `json:"types"`
	PriceLevel  *int     `json:"price_level"`
}

// UpdateVenueInput carries optional field updates. Nil pointers leave the
// field untouched.
type UpdateVenueInput struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Address     *string            `json:"address"`
	Latitude    *float64           `json:"latitude"`
	Longitude   *float64           `json:"longitude"`
	PhoneNumber *string            `json:"phone_number"`
	Website     *string            `json:"website"`
	Types       []string           `json:"types"`
	PriceLevel  *int               `json:"price_level"`
	Status      *model.VenueStatus `json:"status"`
	Hours       []model.VenueHours `json:"hours"`
}

type BackfillItem struct {
	VenueID uint                   `json:"venue_id" binding:"required"`
	Fields  map[string]interface{} `json:"fields" binding:"required"`
}

type BackfillResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type VenueService interface {
	Search(ctx context.Context, opts SearchOptions) (*repository.VenueListResult, error)
	GetVenue(ctx context.Context, id uint, viewerID *uint) (*model.Venue, error)
	CreateVenue(actor *model.User, input CreateVenueInput) (*model.Venue, error)
	UpdateVenue(actor *model.User, id uint, input UpdateVenueInput) (*model.Venue, error)
	DeleteVenue(actor *model.User, id uint) error
	Follow(userID, venueID uint) error
	Unfollow(userID, venueID uint) error
	AssociatePlan(venueID uint) error
	DisassociatePlan(venueID uint) error
	GetRecentlyViewed(ctx context.Context, userID uint) ([]model.Venue, error)
	Backfill(actor *model.User, items []BackfillItem) (*BackfillResult, error)
}

type venueService struct {
	venueRepo  repository.VenueRepository
	followRepo repository.FollowRepository
	evaluator  *scan.Evaluator
	cache      *cache.Cache
}

func NewVenueService(
	venueRepo repository.VenueRepository,
	followRepo repository.FollowRepository,
	evaluator *scan.Evaluator,
	c *cache.Cache,
) VenueService {
	return &venueService{
		venueRepo:  venueRepo,
		followRepo: followRepo,
		evaluator:  evaluator,
		cache:      c,
	}
}

// Search answers synchronously from current storage. When a center point is
// given the staleness evaluator runs detached from the request: a stale area
// never delays or fails the search that noticed it.
func (s *venueService) Search(ctx context.Context, opts SearchOptions) (*repository.VenueListResult, error) {
	filter := repository.VenueFilter{
		IDs:        opts.IDs,
		Latitude:   opts.Latitude,
		Longitude:  opts.Longitude,
		RadiusKm:   opts.RadiusKm,
		Query:      opts.Query,
		VenueType:  opts.VenueType,
		OpenNow:    opts.OpenNow,
		PriceLevel: opts.PriceLevel,
		SortBy:     repository.VenueSortKey(opts.SortBy),
		SortOrder:  opts.SortOrder,
	}

	if !opts.IncludeAllStatuses {
		active := model.VenueActive
		filter.Status = &active
	}

	if len(opts.IDs) == 0 {
		limit := opts.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		page := opts.Page
		if page < 1 {
			page = 1
		}
		filter.Limit = limit
		filter.Offset = (page - 1) * limit
	}

	result, err := s.venueRepo.Search(filter)
	if err != nil {
		return nil, err
	}

	if opts.Latitude != nil && opts.Longitude != nil {
		lat, lng := *opts.Latitude, *opts.Longitude
		s.background("search staleness check", func(ctx context.Context) {
			s.evaluator.EnqueueScanIfStale(ctx, lat, lng)
		})
	}

	return result, nil
}

// GetVenue returns one venue and records the view. View counting, the
// recently-viewed list and the staleness check all run detached from the
// request.
func (s *venueService) GetVenue(ctx context.Context, id uint, viewerID *uint) (*model.Venue, error) {
	venue, err := s.venueRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	lat, lng := venue.Latitude, venue.Longitude
	viewer := viewerID
	s.background("record venue view", func(ctx context.Context) {
		if err := s.venueRepo.IncrementCounter(id, "view_count"); err != nil {
			logger.Warn("Failed to record venue view", map[string]interface{}{
				"venue_id": id,
				"error":    err.Error(),
			})
		}
		if viewer != nil {
			s.pushRecentlyViewed(ctx, *viewer, id)
		}
		s.evaluator.EnqueueScanIfStale(ctx, lat, lng)
	})

	return venue, nil
}

func (s *venueService) CreateVenue(actor *model.User, input CreateVenueInput) (*model.Venue, error) {
	status := model.VenuePending
	if actor.Role.IsPrivileged() {
		status = model.VenueActive
	}

	now := time.Now()
	venue := &model.Venue{
		Name:           input.Name,
		Description:    input.Description,
		Address:        input.Address,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		PhoneNumber:    input.PhoneNumber,
		Website:        input.Website,
		Types:          pq.StringArray(input.Types),
		PriceLevel:     input.PriceLevel,
		Status:         status,
		AdminOverrides: model.OverrideMap{},
		LastModifiedBy: &actor.ID,
		LastModifiedAt: &now,
	}

	if err := s.venueRepo.Create(venue); err != nil {
		return nil, err
	}

	logger.Info("Venue created", map[string]interface{}{
		"venue_id": venue.ID,
		"name":     venue.Name,
		"status":   venue.Status,
		"actor_id": actor.ID,
	})
	return venue, nil
}

// UpdateVenue applies moderator/admin edits. Every edited field is recorded
// in the override map so the next external refresh cannot clobber it.
func (s *venueService) UpdateVenue(actor *model.User, id uint, input UpdateVenueInput) (*model.Venue, error) {
	if !actor.Role.IsPrivileged() {
		return nil, ErrPermissionDenied
	}

	venue, err := s.venueRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	if venue.AdminOverrides == nil {
		venue.AdminOverrides = model.OverrideMap{}
	}

	setOverride := func(key string, value interface{}) {
		scan.ApplyOverride(venue, key, value)
		venue.AdminOverrides[key] = value
	}

	if input.Name != nil {
		setOverride("name", *input.Name)
	}
	if input.Description != nil {
		setOverride("description", *input.Description)
	}
	if input.Address != nil {
		setOverride("address", *input.Address)
	}
	if input.Latitude != nil {
		setOverride("latitude", *input.Latitude)
	}
	if input.Longitude != nil {
		setOverride("longitude", *input.Longitude)
	}
	if input.PhoneNumber != nil {
		setOverride("phone_number", *input.PhoneNumber)
	}
	if input.Website != nil {
		setOverride("website", *input.Website)
	}
	if input.Types != nil {
		setOverride("types", input.Types)
	}
	if input.PriceLevel != nil {
		setOverride("price_level", *input.PriceLevel)
	}

	// Status changes are moderation state, not an override: external
	// refreshes never touch status anyway.
	if input.Status != nil {
		venue.Status = *input.Status
	}

	// Edited hours are pinned with a marker key: the scan worker skips its
	// hours refresh for venues carrying it.
	if input.Hours != nil {
		venue.AdminOverrides["hours"] = true
	}

	now := time.Now()
	venue.LastModifiedBy = &actor.ID
	venue.LastModifiedAt = &now

	if err := s.venueRepo.Update(venue); err != nil {
		return nil, err
	}

	if input.Hours != nil {
		if err := s.venueRepo.ReplaceHours(venue.ID, input.Hours); err != nil {
			return nil, err
		}
	}

	logger.Info("Venue updated", map[string]interface{}{
		"venue_id":      venue.ID,
		"actor_id":      actor.ID,
		"override_keys": len(venue.AdminOverrides),
	})
	return venue, nil
}

func (s *venueService) DeleteVenue(actor *model.User, id uint) error {
	if actor.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}

	if _, err := s.venueRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVenueNotFound
		}
		return err
	}

	if err := s.venueRepo.Delete(id); err != nil {
		return err
	}

	logger.Info("Venue deleted", map[string]interface{}{
		"venue_id": id,
		"actor_id": actor.ID,
	})
	return nil
}

func (s *venueService) Follow(userID, venueID uint) error {
	if err := s.ensureVenueExists(venueID); err != nil {
		return err
	}

	created, err := s.followRepo.Create(venueID, userID)
	if err != nil {
		return err
	}
	if !created {
		return ErrAlreadyFollowing
	}

	return s.venueRepo.IncrementCounter(venueID, "follower_count")
}

func (s *venueService) Unfollow(userID, venueID uint) error {
	deleted, err := s.followRepo.Delete(venueID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFollowing
	}

	return s.venueRepo.DecrementCounter(venueID, "follower_count")
}

func (s *venueService) AssociatePlan(venueID uint) error {
	if err := s.ensureVenueExists(venueID); err != nil {
		return err
	}
	return s.venueRepo.IncrementCounter(venueID, "associated_plan_count")
}

func (s *venueService) DisassociatePlan(venueID uint) error {
	return s.venueRepo.DecrementCounter(venueID, "associated_plan_count")
}

// GetRecentlyViewed returns the viewer's recent venues, newest first.
func (s *venueService) GetRecentlyViewed(ctx context.Context, userID uint) ([]model.Venue, error) {
	if s.cache == nil {
		return nil, nil
	}

	key := fmt.Sprintf(recentlyViewedKeyFmt, userID)
	idStrs, err := s.cache.Client().LRange(ctx, key, 0, recentlyViewedMax-1).Result()
	if err != nil || len(idStrs) == 0 {
		return nil, nil
	}

	var ids []uint
	for _, raw := range idStrs {
		var id uint
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	result, err := s.venueRepo.Search(repository.VenueFilter{IDs: ids})
	if err != nil {
		return nil, err
	}

	// Restore recency order; the repository does not preserve allow-list
	// order.
	byID := make(map[uint]model.Venue, len(result.Venues))
	for _, v := range result.Venues {
		byID[v.ID] = v
	}
	ordered := make([]model.Venue, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// Backfill applies bulk metadata corrections. Each item is isolated: a bad
// item is reported and the rest of the batch continues. Applied fields are
// recorded as overrides, same as a single admin edit.
func (s *venueService) Backfill(actor *model.User, items []BackfillItem) (*BackfillResult, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}

	logger.Info("Starting venue backfill", map[string]interface{}{
		"actor_id": actor.ID,
		"items":    len(items),
	})

	result := &BackfillResult{}
	now := time.Now()

	for _, item := range items {
		venue, err := s.venueRepo.FindByID(item.VenueID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("venue %d: %v", item.VenueID, err))
			continue
		}

		if venue.AdminOverrides == nil {
			venue.AdminOverrides = model.OverrideMap{}
		}
		for key, value := range item.Fields {
			scan.ApplyOverride(venue, key, value)
			venue.AdminOverrides[key] = value
		}
		venue.LastModifiedBy = &actor.ID
		venue.LastModifiedAt = &now

		if err := s.venueRepo.Update(venue); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("venue %d: %v", item.VenueID, err))
			continue
		}
		result.Updated++
	}

	logger.Info("Venue backfill completed", map[string]interface{}{
		"updated": result.Updated,
		"failed":  result.Failed,
	})
	return result, nil
}

func (s *venueService) ensureVenueExists(venueID uint) error {
	_, err := s.venueRepo.FindByID(venueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	return nil
}

func (s *venueService) pushRecentlyViewed(ctx context.Context, userID, venueID uint) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf(recentlyViewedKeyFmt, userID)
	client := s.cache.Client()
	pipe := client.Pipeline()
	pipe.LRem(ctx, key, 0, fmt.Sprintf("%d", venueID))
	pipe.LPush(ctx, key, fmt.Sprintf("%d", venueID))
	pipe.LTrim(ctx, key, 0, recentlyViewedMax-1)
	pipe.Expire(ctx, key, 30*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("Failed to update recently viewed list", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// background runs fn on a detached context with panic isolation. Used for
// fire-and-forget work triggered by request paths.
func (s *venueService) background(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Background task panicked", fmt.Errorf("%v", r), map[string]interface{}{
					"task": name,
				})
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundOpTimeout)
		defer cancel()
		fn(ctx)
	}()
}
