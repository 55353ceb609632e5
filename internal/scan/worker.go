package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/plannery/plannery-backend/pkg/places"
)

// scanCategories is the fixed set of external place categories each scan job
// walks, in order.
var scanCategories = []string{
	"bar",
	"night_club",
	"restaurant",
	"cafe",
	"casino",
	"movie_theater",
	"amusement_park",
	"bowling_alley",
}

// categoryTypeMap translates external category tags to internal venue type
// names. Results whose tags map to nothing are skipped rather than stored
// untyped.
var categoryTypeMap = map[string]string{
	"bar":            "bar",
	"night_club":     "nightclub",
	"restaurant":     "restaurant",
	"cafe":           "cafe",
	"casino":         "casino",
	"movie_theater":  "cinema",
	"amusement_park": "amusement_park",
	"bowling_alley":  "bowling",
}

// PlacesClient is the slice of the places API the worker consumes.
type PlacesClient interface {
	SearchNearby(ctx context.Context, lat, lng float64, radiusMeters int, category string) ([]places.PlaceResult, error)
	GetPlaceDetails(ctx context.Context, placeID string) (*places.PlaceDetails, error)
	PhotoURL(photoReference string, maxWidth int) string
}

// JobSource hands out scan jobs and records their outcome.
type JobSource interface {
	Dequeue(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, job *Job)
	Fail(ctx context.Context, job *Job) bool
}

// Worker consumes scan jobs and turns nearby place results into venue
// upserts. Per-place failures are isolated: one bad place never aborts the
// job, and the area ledger is updated after all categories are attempted.
type Worker struct {
	queue  JobSource
	codec  *Codec
	places PlacesClient
	venues repository.VenueRepository
	photos repository.PhotoRepository
	ledger repository.ScannedAreaRepository
	merger *Merger

	radiusMeters int
	concurrency  int

	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(
	queue JobSource,
	codec *Codec,
	placesClient PlacesClient,
	venues repository.VenueRepository,
	photos repository.PhotoRepository,
	ledger repository.ScannedAreaRepository,
	cfg *config.ScanConfig,
) *Worker {
	return &Worker{
		queue:        queue,
		codec:        codec,
		places:       placesClient,
		venues:       venues,
		photos:       photos,
		ledger:       ledger,
		merger:       NewMerger(),
		radiusMeters: cfg.RadiusMeters,
		concurrency:  cfg.WorkerConcurrency,
		now:          time.Now,
	}
}

// Start launches the worker pool.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	logger.Info("Starting scan workers", map[string]interface{}{
		"concurrency": w.concurrency,
	})

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop cancels the pool and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	logger.Info("Stopping scan workers...")
	w.cancel()
	w.wg.Wait()
	logger.Info("Scan workers stopped")
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to dequeue scan job", err, map[string]interface{}{
				"worker_id": workerID,
			})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		if err := w.ProcessJob(ctx, job); err != nil {
			w.queue.Fail(ctx, job)
			continue
		}
		w.queue.Complete(ctx, job)
	}
}

// ProcessJob runs one scan job to completion. A decode failure is job-level
// fatal and skips the ledger update; everything else is per-place isolated.
func (w *Worker) ProcessJob(ctx context.Context, job *Job) error {
	lat, lng, err := w.codec.Decode(job.GeohashPrefix)
	if err != nil {
		logger.Error("Failed to decode scan job bucket", err, map[string]interface{}{
			"geohash_prefix": job.GeohashPrefix,
		})
		return err
	}

	logger.Info("Scan job started", map[string]interface{}{
		"geohash_prefix": job.GeohashPrefix,
		"latitude":       lat,
		"longitude":      lng,
		"attempt":        job.Attempt,
	})

	var found, upserted, errored int
	for _, category := range scanCategories {
		results, err := w.places.SearchNearby(ctx, lat, lng, w.radiusMeters, category)
		if err != nil {
			logger.Warn("Nearby search failed for category", map[string]interface{}{
				"geohash_prefix": job.GeohashPrefix,
				"category":       category,
				"error":          err.Error(),
			})
			continue
		}

		for i := range results {
			found++
			ok, err := w.processPlace(ctx, &results[i])
			if err != nil {
				errored++
				logger.Warn("Failed to process place", map[string]interface{}{
					"place_id": results[i].PlaceID,
					"name":     results[i].Name,
					"error":    err.Error(),
				})
				continue
			}
			if ok {
				upserted++
			}
		}
	}

	if err := w.ledger.UpsertLastScanned(job.GeohashPrefix, w.now()); err != nil {
		return fmt.Errorf("failed to update scanned area ledger: %w", err)
	}

	logger.Info("Scan job completed", map[string]interface{}{
		"geohash_prefix": job.GeohashPrefix,
		"places_found":   found,
		"upserted":       upserted,
		"errored":        errored,
	})
	return nil
}

// processPlace upserts one search result. Returns (false, nil) when the
// result was skipped (place gone upstream, or no internal type matched).
func (w *Worker) processPlace(ctx context.Context, result *places.PlaceResult) (bool, error) {
	details, err := w.places.GetPlaceDetails(ctx, result.PlaceID)
	if err != nil {
		return false, err
	}
	if details == nil {
		return false, nil
	}

	types := mapTypes(details.Types)
	if len(types) == 0 {
		return false, nil
	}

	candidate := buildCandidate(details, types)

	existing, err := w.venues.FindByGooglePlaceID(details.PlaceID)
	if err != nil {
		return false, err
	}

	merged := w.merger.Merge(existing, candidate, w.now())

	if existing == nil {
		if err := w.venues.Create(merged); err != nil {
			return false, err
		}
		w.createPhotos(merged.ID, details)
	} else {
		if err := w.venues.Update(merged); err != nil {
			return false, err
		}
	}

	if hours := convertHours(details.OpeningHours); hours != nil && !hoursOverridden(existing) {
		if err := w.venues.ReplaceHours(merged.ID, hours); err != nil {
			return false, err
		}
	}
	return true, nil
}

// hoursOverridden reports whether an administrator has edited the venue's
// opening hours, which pins them against external refreshes.
func hoursOverridden(existing *model.Venue) bool {
	if existing == nil {
		return false
	}
	_, ok := existing.AdminOverrides["hours"]
	return ok
}

// createPhotos stores up to three externally sourced photos for a newly
// discovered venue. The first one becomes primary. Failures are logged only.
func (w *Worker) createPhotos(venueID uint, details *places.PlaceDetails) {
	for i, photo := range details.Photos {
		if i >= 3 {
			break
		}
		record := model.VenuePhoto{
			VenueID:     venueID,
			Source:      model.PhotoSourceGoogle,
			IsApproved:  true,
			IsPrimary:   i == 0,
			Order:       i,
			ThumbURL:    w.places.PhotoURL(photo.PhotoReference, 400),
			MediumURL:   w.places.PhotoURL(photo.PhotoReference, 800),
			OriginalURL: w.places.PhotoURL(photo.PhotoReference, 1600),
		}
		if err := w.photos.Create(&record); err != nil {
			logger.Warn("Failed to store scanned venue photo", map[string]interface{}{
				"venue_id": venueID,
				"error":    err.Error(),
			})
		}
	}
}

func mapTypes(externalTags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tag := range externalTags {
		internal, ok := categoryTypeMap[tag]
		if !ok || seen[internal] {
			continue
		}
		seen[internal] = true
		out = append(out, internal)
	}
	return out
}

func buildCandidate(details *places.PlaceDetails, types []string) *model.Venue {
	placeID := details.PlaceID
	venue := &model.Venue{
		Name:          details.Name,
		Address:       details.FormattedAddress,
		Latitude:      details.Geometry.Location.Lat,
		Longitude:     details.Geometry.Location.Lng,
		PhoneNumber:   details.FormattedPhoneNumber,
		Website:       details.Website,
		GooglePlaceID: &placeID,
		Types:         pq.StringArray(types),
		PriceLevel:    details.PriceLevel,
		Rating:        details.Rating,
		ReviewCount:   details.UserRatingsTotal,
	}
	if details.EditorialSummary != nil {
		venue.Description = details.EditorialSummary.Overview
	}
	return venue
}

// convertHours flattens the external opening periods into weekly windows.
// A missing close point means open around the clock for that day. A period
// that crosses midnight is split into two same-day windows, one per side of
// midnight, because the open-now containment check requires open <= close.
func convertHours(hours *places.OpeningHours) []model.VenueHours {
	if hours == nil || len(hours.Periods) == 0 {
		return nil
	}

	out := make([]model.VenueHours, 0, len(hours.Periods))
	for _, period := range hours.Periods {
		day := period.Open.Day
		openTime := formatHHMM(period.Open.Time)

		if period.Close == nil {
			out = append(out, model.VenueHours{DayOfWeek: day, OpenTime: openTime, CloseTime: "23:59"})
			continue
		}

		closeTime := formatHHMM(period.Close.Time)
		if period.Close.Day == day && closeTime >= openTime {
			out = append(out, model.VenueHours{DayOfWeek: day, OpenTime: openTime, CloseTime: closeTime})
			continue
		}

		out = append(out, model.VenueHours{DayOfWeek: day, OpenTime: openTime, CloseTime: "23:59"})
		if closeTime != "00:00" {
			out = append(out, model.VenueHours{DayOfWeek: (day + 1) % 7, OpenTime: "00:00", CloseTime: closeTime})
		}
	}
	return out
}

// formatHHMM converts the external "HHMM" clock format to "HH:MM".
func formatHHMM(t string) string {
	if len(t) != 4 {
		return "00:00"
	}
	return t[:2] + ":" + t[2:]
}
