package repository

import (
	"time"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScannedAreaRepository interface {
	FindByPrefix(prefix string) (*model.ScannedArea, error)
	UpsertLastScanned(prefix string, scannedAt time.Time) error
}

type scannedAreaRepository struct {
	db *gorm.DB
}

func NewScannedAreaRepository(db *gorm.DB) ScannedAreaRepository {
	return &scannedAreaRepository{db: db}
}

// FindByPrefix returns the ledger row for a geohash bucket, or (nil, nil)
// when the bucket has never been scanned.
func (r *scannedAreaRepository) FindByPrefix(prefix string) (*model.ScannedArea, error) {
	var area model.ScannedArea
	err := r.db.Where("geohash_prefix = ?", prefix).First(&area).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to look up scanned area", err, map[string]interface{}{
			"geohash_prefix": prefix,
		})
		return nil, err
	}
	return &area, nil
}

// UpsertLastScanned records a completed scan for a bucket, inserting the row
// on first scan and advancing last_scanned_at on every later one.
func (r *scannedAreaRepository) UpsertLastScanned(prefix string, scannedAt time.Time) error {
	area := model.ScannedArea{
		GeohashPrefix: prefix,
		LastScannedAt: scannedAt,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "geohash_prefix"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_scanned_at", "updated_at"}),
	}).Create(&area).Error
	if err != nil {
		logger.Error("Failed to upsert scanned area", err, map[string]interface{}{
			"geohash_prefix": prefix,
		})
	}
	return err
}
