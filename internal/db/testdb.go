package db

import (
	"fmt"
	"os"

	"github.com/plannery/plannery-backend/internal/app/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB connects to the test database (TEST_DB_* environment, defaults
// to a local plannery_test database) and migrates a fresh schema. Repository
// tests skip themselves when the test database is unreachable.
func SetupTestDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		testEnv("TEST_DB_HOST", "localhost"),
		testEnv("TEST_DB_PORT", "5432"),
		testEnv("TEST_DB_USER", "admin"),
		testEnv("TEST_DB_PASSWORD", "1234"),
		testEnv("TEST_DB_NAME", "plannery_test"),
	)

	testDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if err := testDB.AutoMigrate(testModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return testDB, nil
}

// CleanupTestDB truncates all tables created by SetupTestDB.
func CleanupTestDB(testDB *gorm.DB) {
	if testDB == nil {
		return
	}
	for _, m := range testModels() {
		testDB.Unscoped().Where("1 = 1").Delete(m)
	}
	if sqlDB, err := testDB.DB(); err == nil {
		sqlDB.Close()
	}
}

func testModels() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Venue{},
		&model.VenueHours{},
		&model.VenuePhoto{},
		&model.VenueFollow{},
		&model.ScannedArea{},
	}
}

func testEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
