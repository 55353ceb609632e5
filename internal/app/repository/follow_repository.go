package repository

import (
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository interface {
	// Create inserts the follow link. Returns false when the link already
	// existed.
	Create(venueID, userID uint) (bool, error)
	// Delete removes the follow link. Returns false when no link existed.
	Delete(venueID, userID uint) (bool, error)
	Exists(venueID, userID uint) (bool, error)
	ListVenueIDs(userID uint) ([]uint, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(venueID, userID uint) (bool, error) {
	follow := model.VenueFollow{VenueID: venueID, UserID: userID}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
	if result.Error != nil {
		logger.Error("Failed to create venue follow", result.Error, map[string]interface{}{
			"venue_id": venueID,
			"user_id":  userID,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Delete(venueID, userID uint) (bool, error) {
	result := r.db.Where("venue_id = ? AND user_id = ?", venueID, userID).
		Delete(&model.VenueFollow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Exists(venueID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.VenueFollow{}).
		Where("venue_id = ? AND user_id = ?", venueID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *followRepository) ListVenueIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.VenueFollow{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("venue_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
