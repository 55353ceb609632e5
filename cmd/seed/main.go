package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports venues from an XLSX file. Expected columns:
// name | description | address | latitude | longitude | phone | website | types | price_level | status
// The first row is treated as a header. The types column is comma separated.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	venueRepo := repository.NewVenueRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	venues, skipped, err := readVenuesFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total venues to import: %d (skipped %d invalid rows)\n", len(venues), skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := venueRepo.BulkCreate(venues, batchSize); err != nil {
		log.Fatal("Failed to bulk create venues:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total venues imported: %d\n", len(venues))
}

func readVenuesFromXLSX(filePath string) ([]model.Venue, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("sheet has no data rows")
	}

	var venues []model.Venue
	skipped := 0

	for i, row := range rows[1:] {
		venue, err := parseVenueRow(row)
		if err != nil {
			fmt.Printf("Skipping row %d: %v\n", i+2, err)
			skipped++
			continue
		}
		venues = append(venues, *venue)
	}

	return venues, skipped, nil
}

func parseVenueRow(row []string) (*model.Venue, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("expected at least 5 columns, got %d", len(row))
	}

	name := strings.TrimSpace(cell(row, 0))
	if name == "" {
		return nil, fmt.Errorf("name is empty")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(cell(row, 3)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(cell(row, 4)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}

	venue := &model.Venue{
		Name:           name,
		Description:    strings.TrimSpace(cell(row, 1)),
		Address:        strings.TrimSpace(cell(row, 2)),
		Latitude:       lat,
		Longitude:      lng,
		PhoneNumber:    strings.TrimSpace(cell(row, 5)),
		Website:        strings.TrimSpace(cell(row, 6)),
		Status:         model.VenueActive,
		AdminOverrides: model.OverrideMap{},
	}

	if raw := strings.TrimSpace(cell(row, 7)); raw != "" {
		var types pq.StringArray
		for _, t := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				types = append(types, trimmed)
			}
		}
		venue.Types = types
	}

	if raw := strings.TrimSpace(cell(row, 8)); raw != "" {
		price, err := strconv.Atoi(raw)
		if err != nil || price < 0 || price > 4 {
			return nil, fmt.Errorf("invalid price_level: %q", raw)
		}
		venue.PriceLevel = &price
	}

	if raw := strings.TrimSpace(cell(row, 9)); raw != "" {
		status := model.VenueStatus(raw)
		switch status {
		case model.VenuePending, model.VenueActive, model.VenueRejected, model.VenueClosed:
			venue.Status = status
		default:
			return nil, fmt.Errorf("invalid status: %q", raw)
		}
	}

	return venue, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
