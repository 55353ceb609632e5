package repository

import (
	"fmt"
	"time"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/plannery/plannery-backend/pkg/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// haversineSQL computes the great-circle distance in kilometers between the
// bound (lat, lng) parameters and each venue row. Bind order: lat, lng, lat.
const haversineSQL = "(6371 * acos(cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) + sin(radians(?)) * sin(radians(latitude))))"

type VenueSortKey string

const (
	SortByDistance   VenueSortKey = "distance"
	SortByRating     VenueSortKey = "rating"
	SortByPopularity VenueSortKey = "popularity"
	SortByPrice      VenueSortKey = "price"
)

// VenueFilter describes one search request. Either IDs is set (pre-selected
// allow-list: geographic filtering and repository pagination are skipped) or
// the remaining filters compose independently and AND together.
type VenueFilter struct {
	IDs []uint

	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64

	Query      string
	VenueType  string
	OpenNow    bool
	Now        time.Time // wall-clock used for the open-now check
	PriceLevel *int
	Status     *model.VenueStatus

	SortBy    VenueSortKey
	SortOrder string // asc | desc
	Limit     int
	Offset    int
}

type VenueListResult struct {
	Venues     []model.Venue
	TotalCount int64
}

type VenueRepository interface {
	Create(venue *model.Venue) error
	BulkCreate(venues []model.Venue, batchSize int) error
	Update(venue *model.Venue) error
	Delete(id uint) error
	FindByID(id uint) (*model.Venue, error)
	FindByGooglePlaceID(placeID string) (*model.Venue, error)
	Search(filter VenueFilter) (*VenueListResult, error)
	ListActiveIDs(batchSize int, offset int) ([]uint, error)
	ListTrending(limit int) ([]model.Venue, error)
	IncrementCounter(id uint, column string) error
	DecrementCounter(id uint, column string) error
	UpdateTrendingScore(id uint, score float64) error
	ReplaceHours(venueID uint, hours []model.VenueHours) error
}

type venueRepository struct {
	db *gorm.DB
}

func NewVenueRepository(db *gorm.DB) VenueRepository {
	return &venueRepository{db: db}
}

// engagement counter columns allowed in Increment/DecrementCounter
var counterColumns = map[string]bool{
	"view_count":            true,
	"follower_count":        true,
	"associated_plan_count": true,
}

func (r *venueRepository) Create(venue *model.Venue) error {
	logger.Debug("Creating venue in database", map[string]interface{}{
		"name":            venue.Name,
		"google_place_id": venue.GooglePlaceID,
	})

	if err := r.db.Create(venue).Error; err != nil {
		logger.Error("Failed to create venue in database", err, map[string]interface{}{
			"name": venue.Name,
		})
		return err
	}
	return nil
}

// BulkCreate inserts venues in batches, used by the seed import.
func (r *venueRepository) BulkCreate(venues []model.Venue, batchSize int) error {
	if len(venues) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(venues, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create venues", err, map[string]interface{}{
			"count": len(venues),
		})
		return err
	}
	return nil
}

func (r *venueRepository) Update(venue *model.Venue) error {
	if err := r.db.Save(venue).Error; err != nil {
		logger.Error("Failed to update venue in database", err, map[string]interface{}{
			"venue_id": venue.ID,
		})
		return err
	}
	return nil
}

func (r *venueRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Venue{}, id).Error; err != nil {
		logger.Error("Failed to delete venue from database", err, map[string]interface{}{
			"venue_id": id,
		})
		return err
	}
	return nil
}

func (r *venueRepository) FindByID(id uint) (*model.Venue, error) {
	var venue model.Venue
	if err := r.db.Preload("Hours").First(&venue, id).Error; err != nil {
		return nil, err
	}
	return &venue, nil
}

// FindByGooglePlaceID looks a venue up by its external place identifier.
// Returns (nil, nil) when no venue matches.
func (r *venueRepository) FindByGooglePlaceID(placeID string) (*model.Venue, error) {
	var venue model.Venue
	err := r.db.Where("google_place_id = ?", placeID).First(&venue).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to find venue by place ID", err, map[string]interface{}{
			"google_place_id": placeID,
		})
		return nil, err
	}
	return &venue, nil
}

// Search composes the filtered, sorted, paginated venue query.
//
// Composition order: an id allow-list short-circuits geographic filtering and
// repository pagination (the caller paginates after its own relevance sort);
// otherwise a center point adds a radius containment filter and makes
// distance available as a sort key. Type, free-text, open-now and price
// filters are independently optional and AND-combined.
func (r *venueRepository) Search(filter VenueFilter) (*VenueListResult, error) {
	logger.Debug("Searching venues", map[string]interface{}{
		"ids":     len(filter.IDs),
		"query":   filter.Query,
		"type":    filter.VenueType,
		"sort_by": filter.SortBy,
	})

	query := r.db.Model(&model.Venue{})

	allowList := len(filter.IDs) > 0
	geographic := !allowList && filter.Latitude != nil && filter.Longitude != nil

	if allowList {
		query = query.Where("id IN ?", filter.IDs)
	} else if geographic {
		radius := 5.0
		if filter.RadiusKm != nil {
			radius = *filter.RadiusKm
		}
		query = query.Where(haversineSQL+" <= ?",
			*filter.Latitude, *filter.Longitude, *filter.Latitude, radius)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.VenueType != "" {
		query = query.Where("? = ANY(types)", filter.VenueType)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR address ILIKE ?", like, like, like)
	}
	if filter.OpenNow {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		timeOfDay := now.Format("15:04")
		query = query.Where(
			"EXISTS (SELECT 1 FROM venue_hours WHERE venue_hours.venue_id = venues.id AND venue_hours.day_of_week = ? AND venue_hours.open_time <= ? AND venue_hours.close_time >= ?)",
			int(now.Weekday()), timeOfDay, timeOfDay,
		)
	}
	if filter.PriceLevel != nil {
		query = query.Where("price_level = ?", *filter.PriceLevel)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count venues", err)
		return nil, err
	}

	query = query.Order(r.orderClause(filter, geographic))

	if !allowList {
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var venues []model.Venue
	if err := query.Find(&venues).Error; err != nil {
		logger.Error("Failed to search venues", err)
		return nil, err
	}

	// Distance is returned per row when a center point was given.
	if geographic {
		for i := range venues {
			d := util.CalculateDistance(*filter.Latitude, *filter.Longitude,
				venues[i].Latitude, venues[i].Longitude)
			venues[i].Distance = &d
		}
	}

	logger.Debug("Venues found", map[string]interface{}{
		"count":       len(venues),
		"total_count": total,
	})
	return &VenueListResult{Venues: venues, TotalCount: total}, nil
}

func (r *venueRepository) orderClause(filter VenueFilter, geographic bool) string {
	order := "ASC"
	if filter.SortOrder == "desc" {
		order = "DESC"
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		// Distance when searching around a point, popularity otherwise.
		if geographic {
			sortBy = SortByDistance
		} else {
			sortBy = SortByPopularity
			if filter.SortOrder == "" {
				order = "DESC"
			}
		}
	}

	switch sortBy {
	case SortByDistance:
		if !geographic {
			return "popularity DESC"
		}
		return fmt.Sprintf(
			"(6371 * acos(cos(radians(%[1]f)) * cos(radians(latitude)) * cos(radians(longitude) - radians(%[2]f)) + sin(radians(%[1]f)) * sin(radians(latitude)))) %[3]s",
			*filter.Latitude, *filter.Longitude, order)
	case SortByRating:
		if filter.SortOrder == "" {
			order = "DESC"
		}
		return "rating " + order
	case SortByPrice:
		return "price_level " + order + " NULLS LAST"
	default:
		if filter.SortOrder == "" {
			order = "DESC"
		}
		return "popularity " + order
	}
}

// ListActiveIDs returns one batch of active venue ids ordered by id,
// used by the trending refresh job to walk the table in bounded batches.
func (r *venueRepository) ListActiveIDs(batchSize int, offset int) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Venue{}).
		Where("status = ?", model.VenueActive).
		Order("id ASC").
		Limit(batchSize).
		Offset(offset).
		Pluck("id", &ids).Error
	if err != nil {
		logger.Error("Failed to list active venue IDs", err)
		return nil, err
	}
	return ids, nil
}

// ListTrending returns active venues ordered by trending score.
func (r *venueRepository) ListTrending(limit int) ([]model.Venue, error) {
	var venues []model.Venue
	err := r.db.Where("status = ?", model.VenueActive).
		Order("trending_score DESC").
		Limit(limit).
		Find(&venues).Error
	if err != nil {
		logger.Error("Failed to list trending venues", err)
		return nil, err
	}
	return venues, nil
}

func (r *venueRepository) IncrementCounter(id uint, column string) error {
	if !counterColumns[column] {
		return fmt.Errorf("unknown counter column: %s", column)
	}
	err := r.db.Model(&model.Venue{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	if err != nil {
		logger.Error("Failed to increment venue counter", err, map[string]interface{}{
			"venue_id": id,
			"column":   column,
		})
	}
	return err
}

// DecrementCounter decrements an engagement counter, floor-clamped at zero.
func (r *venueRepository) DecrementCounter(id uint, column string) error {
	if !counterColumns[column] {
		return fmt.Errorf("unknown counter column: %s", column)
	}
	err := r.db.Model(&model.Venue{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr("GREATEST("+column+" - 1, 0)")).Error
	if err != nil {
		logger.Error("Failed to decrement venue counter", err, map[string]interface{}{
			"venue_id": id,
			"column":   column,
		})
	}
	return err
}

func (r *venueRepository) UpdateTrendingScore(id uint, score float64) error {
	return r.db.Model(&model.Venue{}).Where("id = ?", id).
		UpdateColumn("trending_score", score).Error
}

// ReplaceHours swaps a venue's weekly hour windows in one transaction.
func (r *venueRepository) ReplaceHours(venueID uint, hours []model.VenueHours) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("venue_id = ?", venueID).Delete(&model.VenueHours{}).Error; err != nil {
			return err
		}
		if len(hours) == 0 {
			return nil
		}
		for i := range hours {
			hours[i].ID = 0
			hours[i].VenueID = venueID
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&hours).Error
	})
}
