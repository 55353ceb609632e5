package scan

import (
	"time"

	"github.com/lib/pq"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/logger"
)

// Merger combines freshly fetched external place data with an existing venue
// record. Admin overrides always win: after a merge, every key present in the
// existing record's override map carries the override value, never the
// external one. Moderation status, the override map, audit fields and locally
// accumulated metrics are never overwritten by external data.
type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// Merge produces the venue record to persist.
//
// With no existing venue the external candidate becomes a new pending record
// with an empty override map. With an existing venue the external fields are
// applied as a base and every override key is re-applied on top.
// LastRefreshed is set on every merge.
func (m *Merger) Merge(existing *model.Venue, external *model.Venue, now time.Time) *model.Venue {
	if existing == nil {
		out := *external
		out.Status = model.VenuePending
		out.AdminOverrides = model.OverrideMap{}
		out.LastRefreshed = &now
		return &out
	}

	out := *existing

	// Externally sourced fields refresh from the candidate.
	out.Name = external.Name
	out.Description = external.Description
	out.Address = external.Address
	out.Latitude = external.Latitude
	out.Longitude = external.Longitude
	out.PhoneNumber = external.PhoneNumber
	out.Website = external.Website
	out.Types = external.Types
	out.PriceLevel = external.PriceLevel
	if external.GooglePlaceID != nil {
		out.GooglePlaceID = external.GooglePlaceID
	}

	// Status, overrides, audit fields, rating/review/popularity and the
	// engagement counters stay as carried over from existing above.

	for key, value := range existing.AdminOverrides {
		ApplyOverride(&out, key, value)
	}

	out.LastRefreshed = &now
	return &out
}

// ApplyOverride writes one admin-set field value onto a venue record.
// Shared by the scan merger and the admin backfill path.
// Values arrive as JSON-decoded types (string, float64, []interface{}).
func ApplyOverride(venue *model.Venue, key string, value interface{}) {
	switch key {
	case "name":
		if v, ok := value.(string); ok {
			venue.Name = v
		}
	case "description":
		if v, ok := value.(string); ok {
			venue.Description = v
		}
	case "address":
		if v, ok := value.(string); ok {
			venue.Address = v
		}
	case "phone_number":
		if v, ok := value.(string); ok {
			venue.PhoneNumber = v
		}
	case "website":
		if v, ok := value.(string); ok {
			venue.Website = v
		}
	case "latitude":
		if v, ok := toFloat(value); ok {
			venue.Latitude = v
		}
	case "longitude":
		if v, ok := toFloat(value); ok {
			venue.Longitude = v
		}
	case "price_level":
		if v, ok := toFloat(value); ok {
			level := int(v)
			venue.PriceLevel = &level
		}
	case "types":
		if v, ok := toStringSlice(value); ok {
			venue.Types = v
		}
	case "hours":
		// Hours live in their own table; the key's presence alone pins
		// them against external refreshes. Nothing to write here.
	default:
		logger.Warn("Unknown admin override key, ignoring", map[string]interface{}{
			"key": key,
		})
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func toStringSlice(value interface{}) (pq.StringArray, bool) {
	switch v := value.(type) {
	case []string:
		return pq.StringArray(v), true
	case []interface{}:
		out := make(pq.StringArray, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
