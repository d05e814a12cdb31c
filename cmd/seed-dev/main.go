// seed-dev loads a small set of events and purchases into an empty local
// database so the sync passes have something to link against.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Event{}).Count(&count).Error; err != nil {
		fmt.Fprintf(os.Stderr, "count events: %v\n", err)
		os.Exit(1)
	}
	if count > 0 {
		fmt.Println("events already present, nothing to seed")
		return
	}

	tmId := "G5vYZb2n3kTqW"
	venue := "Madison Square Garden"
	artist := "Bruno Mars"
	date := time.Date(2026, 6, 20, 20, 0, 0, 0, time.UTC)
	event, err := models.CreateEvent(ctx, &models.NewEvent{
		TmEventId:  &tmId,
		EventName:  "Bruno Mars - The Romantic Tour",
		ArtistName: &artist,
		Venue:      &venue,
		EventDate:  &date,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create event: %v\n", err)
		os.Exit(1)
	}

	po := "PO-1001"
	purchase := models.Purchase{
		TotalPrice:        decimal.NewFromInt(800),
		Quantity:          4,
		Section:           "112",
		RowName:           "F",
		SeatRange:         "1-4",
		DashboardPoNumber: &po,
		EventId:           &event.ID,
		PurchaseDate:      &date,
	}
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		fmt.Fprintf(os.Stderr, "create purchase: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded event %d and purchase %d (%s)\n", event.ID, purchase.ID, po)
}
