package model

import (
	"time"

	"gorm.io/gorm"
)

type PhotoSource string

const (
	PhotoSourceGoogle PhotoSource = "google"
	PhotoSourceAdmin  PhotoSource = "admin"
	PhotoSourceUser   PhotoSource = "user"
)

// VenuePhoto is one photo attached to a venue. At most one photo per venue
// may have IsPrimary set; PhotoRepository.SetPrimary enforces this.
type VenuePhoto struct {
	ID      uint `gorm:"primarykey" json:"id"`
	VenueID uint `gorm:"not null;index" json:"venue_id"`

	Source     PhotoSource `gorm:"type:varchar(20);not null" json:"source"`
	IsApproved bool        `gorm:"default:false;index" json:"is_approved"`
	IsPrimary  bool        `gorm:"default:false" json:"is_primary"`
	Order      int         `gorm:"default:0" json:"order"`

	// Size variant URLs. Resizing itself happens in the upload pipeline.
	ThumbURL    string `json:"thumb_url"`
	MediumURL   string `json:"medium_url"`
	OriginalURL string `gorm:"not null" json:"original_url"`

	UploadedBy *uint `json:"uploaded_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Venue Venue `gorm:"foreignKey:VenueID" json:"-"`
}

func (VenuePhoto) TableName() string {
	return "venue_photos"
}
