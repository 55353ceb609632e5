package model

import (
	"time"
)

// ScannedArea records when a geohash bucket was last scanned against the
// places API. One row per bucket ever scanned; upserted on every attempt.
type ScannedArea struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	GeohashPrefix string    `gorm:"uniqueIndex;not null;type:varchar(12)" json:"geohash_prefix"`
	LastScannedAt time.Time `gorm:"not null" json:"last_scanned_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ScannedArea) TableName() string {
	return "scanned_areas"
}
