package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/pkg/places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlacesClient struct {
	resultsByCategory map[string][]places.PlaceResult
	detailsByPlaceID  map[string]*places.PlaceDetails
	detailErrors      map[string]error
	searchErrors      map[string]error
}

func (f *fakePlacesClient) SearchNearby(_ context.Context, _, _ float64, _ int, category string) ([]places.PlaceResult, error) {
	if err, ok := f.searchErrors[category]; ok {
		return nil, err
	}
	return f.resultsByCategory[category], nil
}

func (f *fakePlacesClient) GetPlaceDetails(_ context.Context, placeID string) (*places.PlaceDetails, error) {
	if err, ok := f.detailErrors[placeID]; ok {
		return nil, err
	}
	return f.detailsByPlaceID[placeID], nil
}

func (f *fakePlacesClient) PhotoURL(ref string, maxWidth int) string {
	return fmt.Sprintf("https://photos.test/%s?w=%d", ref, maxWidth)
}

type fakeVenueRepo struct {
	byPlaceID     map[string]*model.Venue
	created       []*model.Venue
	updated       []*model.Venue
	replacedHours map[uint][]model.VenueHours
	createErr     map[string]error
	nextID        uint
}

func newFakeVenueRepo() *fakeVenueRepo {
	return &fakeVenueRepo{
		byPlaceID:     map[string]*model.Venue{},
		replacedHours: map[uint][]model.VenueHours{},
		createErr:     map[string]error{},
		nextID:        100,
	}
}

func (f *fakeVenueRepo) Create(venue *model.Venue) error {
	if venue.GooglePlaceID != nil {
		if err, ok := f.createErr[*venue.GooglePlaceID]; ok {
			return err
		}
	}
	f.nextID++
	venue.ID = f.nextID
	f.created = append(f.created, venue)
	if venue.GooglePlaceID != nil {
		f.byPlaceID[*venue.GooglePlaceID] = venue
	}
	return nil
}

func (f *fakeVenueRepo) BulkCreate([]model.Venue, int) error { return nil }

func (f *fakeVenueRepo) Update(venue *model.Venue) error {
	f.updated = append(f.updated, venue)
	return nil
}

func (f *fakeVenueRepo) Delete(uint) error { return nil }

func (f *fakeVenueRepo) FindByID(uint) (*model.Venue, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeVenueRepo) FindByGooglePlaceID(placeID string) (*model.Venue, error) {
	return f.byPlaceID[placeID], nil
}

func (f *fakeVenueRepo) Search(repository.VenueFilter) (*repository.VenueListResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeVenueRepo) ListActiveIDs(int, int) ([]uint, error)    { return nil, nil }
func (f *fakeVenueRepo) ListTrending(int) ([]model.Venue, error)   { return nil, nil }
func (f *fakeVenueRepo) IncrementCounter(uint, string) error       { return nil }
func (f *fakeVenueRepo) DecrementCounter(uint, string) error       { return nil }
func (f *fakeVenueRepo) UpdateTrendingScore(uint, float64) error { return nil }

func (f *fakeVenueRepo) ReplaceHours(venueID uint, hours []model.VenueHours) error {
	f.replacedHours[venueID] = hours
	return nil
}

type fakePhotoRepo struct {
	created []*model.VenuePhoto
}

func (f *fakePhotoRepo) Create(photo *model.VenuePhoto) error {
	f.created = append(f.created, photo)
	return nil
}

func (f *fakePhotoRepo) Update(*model.VenuePhoto) error { return nil }
func (f *fakePhotoRepo) Delete(uint) error              { return nil }
func (f *fakePhotoRepo) FindByID(uint) (*model.VenuePhoto, error) {
	return nil, errors.New("not implemented")
}
func (f *fakePhotoRepo) ListByVenue(uint, bool) ([]model.VenuePhoto, error) { return nil, nil }
func (f *fakePhotoRepo) ListPending(int, int) ([]model.VenuePhoto, int64, error) {
	return nil, 0, nil
}
func (f *fakePhotoRepo) SetApproval(uint, bool) error { return nil }
func (f *fakePhotoRepo) SetPrimary(uint, uint) error  { return nil }

func detailsFor(placeID, name string, tags ...string) *places.PlaceDetails {
	return &places.PlaceDetails{
		PlaceID:          placeID,
		Name:             name,
		FormattedAddress: "1 Test St",
		Geometry:         places.Geometry{Location: places.LatLng{Lat: 37.56, Lng: 126.97}},
		Types:            tags,
		Rating:           4.2,
		UserRatingsTotal: 31,
	}
}

func resultFor(placeID, name string) places.PlaceResult {
	return places.PlaceResult{PlaceID: placeID, Name: name}
}

func newTestWorker(client *fakePlacesClient, venues *fakeVenueRepo, photos *fakePhotoRepo, ledger *fakeLedger) *Worker {
	cfg := &config.ScanConfig{
		GeohashPrecision:  7,
		RadiusMeters:      1000,
		WorkerConcurrency: 1,
		MaxAttempts:       3,
	}
	return NewWorker(nil, NewCodec(7), client, venues, photos, ledger, cfg)
}

func validJob() *Job {
	return &Job{GeohashPrefix: NewCodec(7).Encode(37.5665, 126.9780)}
}

func TestWorker_ProcessJob_UpsertsDiscoveredPlaces(t *testing.T) {
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor("p1", "Moonlight Bar")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{
			"p1": detailsFor("p1", "Moonlight Bar", "bar", "establishment"),
		},
	}
	venues := newFakeVenueRepo()
	photos := &fakePhotoRepo{}
	ledger := &fakeLedger{}

	worker := newTestWorker(client, venues, photos, ledger)

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	require.Len(t, venues.created, 1)
	created := venues.created[0]
	assert.Equal(t, "Moonlight Bar", created.Name)
	assert.Equal(t, model.VenuePending, created.Status)
	assert.Equal(t, []string{"bar"}, []string(created.Types))
	assert.NotNil(t, created.LastRefreshed)

	_, scanned := ledger.areas[validJob().GeohashPrefix]
	assert.True(t, scanned)
}

func TestWorker_ProcessJob_PerPlaceFailureIsolation(t *testing.T) {
	// One place fails detail fetch, one fails persistence; the remaining
	// place is still upserted and the ledger still advances.
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {
				resultFor("bad-details", "Broken"),
				resultFor("bad-persist", "Unsavable"),
				resultFor("good", "Survivor"),
			},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{
			"bad-persist": detailsFor("bad-persist", "Unsavable", "bar"),
			"good":        detailsFor("good", "Survivor", "bar"),
		},
		detailErrors: map[string]error{
			"bad-details": errors.New("upstream 500"),
		},
	}
	venues := newFakeVenueRepo()
	venues.createErr["bad-persist"] = errors.New("constraint violation")
	ledger := &fakeLedger{}

	worker := newTestWorker(client, venues, &fakePhotoRepo{}, ledger)

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	require.Len(t, venues.created, 1)
	assert.Equal(t, "Survivor", venues.created[0].Name)

	_, scanned := ledger.areas[validJob().GeohashPrefix]
	assert.True(t, scanned, "ledger must advance even when some places fail")
}

func TestWorker_ProcessJob_SearchFailureDoesNotAbortJob(t *testing.T) {
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"restaurant": {resultFor("r1", "Noodle House")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{
			"r1": detailsFor("r1", "Noodle House", "restaurant"),
		},
		searchErrors: map[string]error{
			"bar": errors.New("rate limited"),
		},
	}
	venues := newFakeVenueRepo()
	ledger := &fakeLedger{}

	worker := newTestWorker(client, venues, &fakePhotoRepo{}, ledger)

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))
	require.Len(t, venues.created, 1)
}

func TestWorker_ProcessJob_DecodeFailureSkipsLedger(t *testing.T) {
	venues := newFakeVenueRepo()
	ledger := &fakeLedger{}
	worker := newTestWorker(&fakePlacesClient{}, venues, &fakePhotoRepo{}, ledger)

	err := worker.ProcessJob(context.Background(), &Job{GeohashPrefix: "not!valid"})

	require.Error(t, err)
	assert.Empty(t, ledger.areas, "failed jobs must not mark the area as scanned")
}

func TestWorker_ProcessJob_SkipsUnmappedTypes(t *testing.T) {
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor("p1", "Hotel Lobby")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{
			// No tag maps to an internal venue type.
			"p1": detailsFor("p1", "Hotel Lobby", "lodging", "establishment"),
		},
	}
	venues := newFakeVenueRepo()
	ledger := &fakeLedger{}

	worker := newTestWorker(client, venues, &fakePhotoRepo{}, ledger)

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))
	assert.Empty(t, venues.created)

	_, scanned := ledger.areas[validJob().GeohashPrefix]
	assert.True(t, scanned)
}

func TestWorker_ProcessJob_RefreshesExistingVenue(t *testing.T) {
	placeID := "p1"
	existing := &model.Venue{
		ID:            5,
		Name:          "Admin Name",
		Status:        model.VenueActive,
		GooglePlaceID: &placeID,
		AdminOverrides: model.OverrideMap{
			"name": "Admin Name",
		},
	}

	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor(placeID, "Google Name")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{
			placeID: detailsFor(placeID, "Google Name", "bar"),
		},
	}
	venues := newFakeVenueRepo()
	venues.byPlaceID[placeID] = existing
	photos := &fakePhotoRepo{}
	ledger := &fakeLedger{}

	worker := newTestWorker(client, venues, photos, ledger)

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	assert.Empty(t, venues.created)
	require.Len(t, venues.updated, 1)
	updated := venues.updated[0]
	assert.Equal(t, "Admin Name", updated.Name, "override must survive the refresh")
	assert.Equal(t, model.VenueActive, updated.Status)
	assert.Empty(t, photos.created, "photos are only stored for newly discovered venues")
}

func TestWorker_ProcessJob_SkipsHoursRefreshWhenAdminEditedHours(t *testing.T) {
	placeID := "p1"
	details := detailsFor(placeID, "Moonlight Bar", "bar")
	details.OpeningHours = &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 5, Time: "2000"},
				Close: &places.OpeningPeriodPoint{Day: 6, Time: "0200"},
			},
		},
	}
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor(placeID, "Moonlight Bar")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{placeID: details},
	}

	venues := newFakeVenueRepo()
	venues.byPlaceID[placeID] = &model.Venue{
		ID:             5,
		Name:           "Moonlight Bar",
		Status:         model.VenueActive,
		GooglePlaceID:  &placeID,
		AdminOverrides: model.OverrideMap{"hours": true},
	}

	worker := newTestWorker(client, venues, &fakePhotoRepo{}, &fakeLedger{})

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	require.Len(t, venues.updated, 1)
	assert.Empty(t, venues.replacedHours, "admin-edited hours must survive the refresh")
}

func TestWorker_ProcessJob_RefreshesHoursWithoutOverride(t *testing.T) {
	details := detailsFor("p1", "Moonlight Bar", "bar")
	details.OpeningHours = &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 1, Time: "0900"},
				Close: &places.OpeningPeriodPoint{Day: 1, Time: "1800"},
			},
		},
	}
	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor("p1", "Moonlight Bar")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{"p1": details},
	}
	venues := newFakeVenueRepo()

	worker := newTestWorker(client, venues, &fakePhotoRepo{}, &fakeLedger{})

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	require.Len(t, venues.created, 1)
	stored := venues.replacedHours[venues.created[0].ID]
	require.Len(t, stored, 1)
	assert.Equal(t, model.VenueHours{DayOfWeek: 1, OpenTime: "09:00", CloseTime: "18:00"}, stored[0])
}

func TestWorker_ProcessJob_StoresPhotosForNewVenues(t *testing.T) {
	details := detailsFor("p1", "Moonlight Bar", "bar")
	details.Photos = []places.PlacePhoto{
		{PhotoReference: "ref-1"},
		{PhotoReference: "ref-2"},
		{PhotoReference: "ref-3"},
		{PhotoReference: "ref-4"},
	}

	client := &fakePlacesClient{
		resultsByCategory: map[string][]places.PlaceResult{
			"bar": {resultFor("p1", "Moonlight Bar")},
		},
		detailsByPlaceID: map[string]*places.PlaceDetails{"p1": details},
	}
	venues := newFakeVenueRepo()
	photos := &fakePhotoRepo{}

	worker := newTestWorker(client, venues, photos, &fakeLedger{})

	require.NoError(t, worker.ProcessJob(context.Background(), validJob()))

	require.Len(t, photos.created, 3, "at most three photos per discovered venue")
	assert.True(t, photos.created[0].IsPrimary)
	assert.False(t, photos.created[1].IsPrimary)
	assert.Equal(t, model.PhotoSourceGoogle, photos.created[0].Source)
	assert.True(t, photos.created[0].IsApproved)
}

func TestMapTypes(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{name: "single match", tags: []string{"bar", "establishment"}, want: []string{"bar"}},
		{name: "multiple matches deduped", tags: []string{"bar", "night_club", "bar"}, want: []string{"bar", "nightclub"}},
		{name: "no match", tags: []string{"lodging", "spa"}, want: nil},
		{name: "empty", tags: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapTypes(tt.tags))
		})
	}
}

func TestConvertHours(t *testing.T) {
	hours := &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 1, Time: "0900"},
				Close: &places.OpeningPeriodPoint{Day: 1, Time: "2200"},
			},
			{
				// No close point means open around the clock.
				Open: places.OpeningPeriodPoint{Day: 2, Time: "0000"},
			},
		},
	}

	converted := convertHours(hours)
	require.Len(t, converted, 2)
	assert.Equal(t, model.VenueHours{DayOfWeek: 1, OpenTime: "09:00", CloseTime: "22:00"}, converted[0])
	assert.Equal(t, model.VenueHours{DayOfWeek: 2, OpenTime: "00:00", CloseTime: "23:59"}, converted[1])

	assert.Nil(t, convertHours(nil))
}

func TestConvertHours_SplitsOvernightPeriods(t *testing.T) {
	// A bar open Friday 20:00 until Saturday 02:00 must yield windows on
	// both days, each satisfying open <= close.
	hours := &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 5, Time: "2000"},
				Close: &places.OpeningPeriodPoint{Day: 6, Time: "0200"},
			},
		},
	}

	converted := convertHours(hours)
	require.Len(t, converted, 2)
	assert.Equal(t, model.VenueHours{DayOfWeek: 5, OpenTime: "20:00", CloseTime: "23:59"}, converted[0])
	assert.Equal(t, model.VenueHours{DayOfWeek: 6, OpenTime: "00:00", CloseTime: "02:00"}, converted[1])

	for _, w := range converted {
		assert.LessOrEqual(t, w.OpenTime, w.CloseTime)
	}
}

func TestConvertHours_OvernightWeekWrap(t *testing.T) {
	// Saturday night wraps to Sunday (day 0).
	hours := &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 6, Time: "2200"},
				Close: &places.OpeningPeriodPoint{Day: 0, Time: "0300"},
			},
		},
	}

	converted := convertHours(hours)
	require.Len(t, converted, 2)
	assert.Equal(t, model.VenueHours{DayOfWeek: 6, OpenTime: "22:00", CloseTime: "23:59"}, converted[0])
	assert.Equal(t, model.VenueHours{DayOfWeek: 0, OpenTime: "00:00", CloseTime: "03:00"}, converted[1])
}

func TestConvertHours_MidnightCloseNeedsNoSecondWindow(t *testing.T) {
	hours := &places.OpeningHours{
		Periods: []places.OpeningPeriod{
			{
				Open:  places.OpeningPeriodPoint{Day: 3, Time: "1800"},
				Close: &places.OpeningPeriodPoint{Day: 4, Time: "0000"},
			},
		},
	}

	converted := convertHours(hours)
	require.Len(t, converted, 1)
	assert.Equal(t, model.VenueHours{DayOfWeek: 3, OpenTime: "18:00", CloseTime: "23:59"}, converted[0])
}
