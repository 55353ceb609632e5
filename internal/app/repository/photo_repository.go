package repository

import (
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/logger"
	"gorm.io/gorm"
)

type PhotoRepository interface {
	Create(photo *model.VenuePhoto) error
	Update(photo *model.VenuePhoto) error
	Delete(id uint) error
	FindByID(id uint) (*model.VenuePhoto, error)
	ListByVenue(venueID uint, approvedOnly bool) ([]model.VenuePhoto, error)
	ListPending(limit, offset int) ([]model.VenuePhoto, int64, error)
	SetApproval(id uint, approved bool) error
	SetPrimary(venueID, photoID uint) error
}

type photoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(photo *model.VenuePhoto) error {
	if err := r.db.Create(photo).Error; err != nil {
		logger.Error("Failed to create venue photo", err, map[string]interface{}{
			"venue_id": photo.VenueID,
			"source":   photo.Source,
		})
		return err
	}
	return nil
}

func (r *photoRepository) Update(photo *model.VenuePhoto) error {
	return r.db.Save(photo).Error
}

func (r *photoRepository) Delete(id uint) error {
	return r.db.Delete(&model.VenuePhoto{}, id).Error
}

func (r *photoRepository) FindByID(id uint) (*model.VenuePhoto, error) {
	var photo model.VenuePhoto
	if err := r.db.First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *photoRepository) ListByVenue(venueID uint, approvedOnly bool) ([]model.VenuePhoto, error) {
	query := r.db.Where("venue_id = ?", venueID)
	if approvedOnly {
		query = query.Where("is_approved = ?", true)
	}

	var photos []model.VenuePhoto
	err := query.Order("is_primary DESC, \"order\" ASC, id ASC").Find(&photos).Error
	if err != nil {
		logger.Error("Failed to list venue photos", err, map[string]interface{}{
			"venue_id": venueID,
		})
		return nil, err
	}
	return photos, nil
}

// ListPending returns unapproved photos for the moderation queue, oldest first.
func (r *photoRepository) ListPending(limit, offset int) ([]model.VenuePhoto, int64, error) {
	query := r.db.Model(&model.VenuePhoto{}).Where("is_approved = ?", false)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []model.VenuePhoto
	err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&photos).Error
	if err != nil {
		logger.Error("Failed to list pending photos", err)
		return nil, 0, err
	}
	return photos, total, nil
}

func (r *photoRepository) SetApproval(id uint, approved bool) error {
	return r.db.Model(&model.VenuePhoto{}).Where("id = ?", id).
		UpdateColumn("is_approved", approved).Error
}

// SetPrimary promotes one photo to primary. Clearing the previous primary
// and setting the new one happen in one transaction so a venue never holds
// two primary photos.
func (r *photoRepository) SetPrimary(venueID, photoID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var photo model.VenuePhoto
		if err := tx.Where("id = ? AND venue_id = ?", photoID, venueID).First(&photo).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.VenuePhoto{}).
			Where("venue_id = ? AND is_primary = ?", venueID, true).
			UpdateColumn("is_primary", false).Error; err != nil {
			return err
		}

		return tx.Model(&model.VenuePhoto{}).Where("id = ?", photoID).
			UpdateColumn("is_primary", true).Error
	})
}
