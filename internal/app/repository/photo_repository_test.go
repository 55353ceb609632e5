package repository

import (
	"testing"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPhotoTest(t *testing.T) (*gorm.DB, PhotoRepository, uint) {
	testDB, err := db.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	venue := activeVenue("Photo Venue", 37.5665, 126.9780)
	require.NoError(t, NewVenueRepository(testDB).Create(venue))

	return testDB, NewPhotoRepository(testDB), venue.ID
}

func approvedPhoto(venueID uint) *model.VenuePhoto {
	return &model.VenuePhoto{
		VenueID:     venueID,
		Source:      model.PhotoSourceAdmin,
		IsApproved:  true,
		OriginalURL: "https://cdn.test/original.jpg",
	}
}

func countPrimaries(t *testing.T, testDB *gorm.DB, venueID uint) int64 {
	var count int64
	require.NoError(t, testDB.Model(&model.VenuePhoto{}).
		Where("venue_id = ? AND is_primary = ?", venueID, true).
		Count(&count).Error)
	return count
}

func TestPhotoRepository_SetPrimary_SinglePrimaryInvariant(t *testing.T) {
	testDB, repo, venueID := setupPhotoTest(t)
	defer db.CleanupTestDB(testDB)

	first := approvedPhoto(venueID)
	second := approvedPhoto(venueID)
	third := approvedPhoto(venueID)
	for _, p := range []*model.VenuePhoto{first, second, third} {
		require.NoError(t, repo.Create(p))
	}

	// Promote each in turn; at most one primary may exist at any time.
	for _, p := range []*model.VenuePhoto{first, second, third, first} {
		require.NoError(t, repo.SetPrimary(venueID, p.ID))
		assert.Equal(t, int64(1), countPrimaries(t, testDB, venueID))

		current, err := repo.FindByID(p.ID)
		require.NoError(t, err)
		assert.True(t, current.IsPrimary)
	}
}

func TestPhotoRepository_SetPrimary_RejectsForeignPhoto(t *testing.T) {
	testDB, repo, venueID := setupPhotoTest(t)
	defer db.CleanupTestDB(testDB)

	otherVenue := activeVenue("Other Venue", 37.5700, 126.9800)
	require.NoError(t, NewVenueRepository(testDB).Create(otherVenue))

	foreign := approvedPhoto(otherVenue.ID)
	require.NoError(t, repo.Create(foreign))

	assert.Error(t, repo.SetPrimary(venueID, foreign.ID))
	assert.Equal(t, int64(0), countPrimaries(t, testDB, otherVenue.ID))
}

func TestPhotoRepository_ListPending(t *testing.T) {
	testDB, repo, venueID := setupPhotoTest(t)
	defer db.CleanupTestDB(testDB)

	pending := &model.VenuePhoto{
		VenueID:     venueID,
		Source:      model.PhotoSourceUser,
		OriginalURL: "https://cdn.test/pending.jpg",
	}
	require.NoError(t, repo.Create(pending))
	require.NoError(t, repo.Create(approvedPhoto(venueID)))

	photos, total, err := repo.ListPending(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, photos, 1)
	assert.Equal(t, pending.ID, photos[0].ID)

	require.NoError(t, repo.SetApproval(pending.ID, true))

	_, total, err = repo.ListPending(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestPhotoRepository_ListByVenue_ApprovedOnly(t *testing.T) {
	testDB, repo, venueID := setupPhotoTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.Create(approvedPhoto(venueID)))
	require.NoError(t, repo.Create(&model.VenuePhoto{
		VenueID:     venueID,
		Source:      model.PhotoSourceUser,
		OriginalURL: "https://cdn.test/unapproved.jpg",
	}))

	approved, err := repo.ListByVenue(venueID, true)
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	all, err := repo.ListByVenue(venueID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
