package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type VenueStatus string

const (
	VenuePending  VenueStatus = "pending"  // awaiting moderation (scan-discovered venues start here)
	VenueActive   VenueStatus = "active"   // visible in search
	VenueRejected VenueStatus = "rejected" // declined by moderation
	VenueClosed   VenueStatus = "closed"   // permanently closed
)

// OverrideMap stores admin-set field values as JSON. Any key present here
// must survive external data refreshes: the scan merger re-applies these
// values on top of freshly fetched place data.
type OverrideMap map[string]interface{}

func (m OverrideMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *OverrideMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan OverrideMap")
	}

	return json.Unmarshal(bytes, m)
}

type Venue struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Name        string  `gorm:"not null;index" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Address     string  `gorm:"type:text" json:"address"`
	Latitude    float64 `gorm:"type:decimal(10,8);index" json:"latitude"`
	Longitude   float64 `gorm:"type:decimal(11,8);index" json:"longitude"`
	PhoneNumber string  `gorm:"type:varchar(30)" json:"phone_number"`
	Website     string  `json:"website"`

	// External identity. Present only when the venue was sourced from or
	// matched against the places API.
	GooglePlaceID *string `gorm:"uniqueIndex" json:"google_place_id,omitempty"`

	// Internal venue type names mapped from external category tags.
	Types pq.StringArray `gorm:"type:text[]" json:"types"`

	PriceLevel *int `gorm:"type:smallint" json:"price_level,omitempty"` // 0-4, Google scale

	// Externally derived metrics.
	Rating      float64 `gorm:"default:0" json:"rating"`
	ReviewCount int     `gorm:"default:0" json:"review_count"`
	Popularity  float64 `gorm:"default:0;index" json:"popularity"`

	// Engagement counters. Adjusted by user actions, floor-clamped at zero.
	ViewCount           int `gorm:"default:0" json:"view_count"`
	FollowerCount       int `gorm:"default:0" json:"follower_count"`
	AssociatedPlanCount int `gorm:"default:0" json:"associated_plan_count"`

	TrendingScore float64 `gorm:"default:0;index" json:"trending_score"`

	Status VenueStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Sparse map of field name to admin-set value. Overrides always win
	// over externally refreshed data.
	AdminOverrides OverrideMap `gorm:"type:jsonb" json:"admin_overrides,omitempty"`

	LastModifiedBy *uint      `json:"last_modified_by,omitempty"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"`

	Hours  []VenueHours `gorm:"foreignKey:VenueID" json:"hours,omitempty"`
	Photos []VenuePhoto `gorm:"foreignKey:VenueID" json:"photos,omitempty"`

	// Distance in kilometers from the search center, populated by geo search.
	Distance *float64 `gorm:"-" json:"distance,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Venue) TableName() string {
	return "venues"
}

// VenueHours is one weekly opening window. A venue may have several windows
// per day (split shifts).
type VenueHours struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	VenueID   uint   `gorm:"not null;index" json:"venue_id"`
	DayOfWeek int    `gorm:"not null" json:"day_of_week"`            // 0 = Sunday ... 6 = Saturday
	OpenTime  string `gorm:"type:varchar(5);not null" json:"open"`   // "HH:MM"
	CloseTime string `gorm:"type:varchar(5);not null" json:"close"`  // "HH:MM"
}

func (VenueHours) TableName() string {
	return "venue_hours"
}

// VenueFollow links a user to a followed venue.
type VenueFollow struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	VenueID uint `gorm:"not null;index:idx_venue_user_follow,unique" json:"venue_id"`
	UserID  uint `gorm:"not null;index:idx_venue_user_follow,unique" json:"user_id"`

	Venue Venue `gorm:"foreignKey:VenueID" json:"-"`
	User  User  `gorm:"foreignKey:UserID" json:"-"`
}

func (VenueFollow) TableName() string {
	return "venue_follows"
}
