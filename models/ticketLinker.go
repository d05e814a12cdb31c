package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// The ticket linker owns Ticket rows as the single source of truth for
// seat ownership and state. All field advancement happens through
// conditional writes so overlapping passes cannot double-claim a seat:
// the WHERE predicate and the write execute as one UPDATE.

var ErrorNoSeatsParsed = errors.New("could not parse seats")

// CreateTicketsFromPurchase parses the purchase's seat descriptor and
// inserts one ticket per seat, keyed by (event, section, row, seat).
// A seat already owned by a different purchase is left untouched and
// counted as skipped — first writer wins.
func CreateTicketsFromPurchase(ctx context.Context, purchaseId int, eventId int, section string, rowName string, seatsText string, costPerTicket decimal.Decimal) (created int, skipped int, err error) {
	seats := ParseSeatRange(seatsText)
	if len(seats) == 0 {
		return 0, 0, ErrorNoSeatsParsed
	}

	db := config.GetDB()
	for _, seatNumber := range seats {
		ticket := Ticket{
			EventId:    eventId,
			Section:    section,
			RowName:    rowName,
			SeatNumber: seatNumber,
			PurchaseId: purchaseId,
			Status:     TicketStatusPurchased,
			Cost:       costPerTicket,
		}
		result := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&ticket)
		if result.Error != nil {
			config.LogError(config.GetLogger(), "models", "CreateTicketsFromPurchase", "upsert ticket", seatNumber, result.Error)
			skipped++
			continue
		}
		if result.RowsAffected == 0 {
			skipped++
			continue
		}
		created++
	}
	return created, skipped, nil
}

// LinkTicketsToListing attaches the listing to each seat in the inclusive
// range and advances status to LISTED, but only where no listing is
// attached yet. Seats already claimed count as alreadyClaimed so that
// re-running a sync is harmless.
func LinkTicketsToListing(ctx context.Context, listingId int, eventId int, section string, rowName string, startSeat int, endSeat int) (linked int, alreadyClaimed int, err error) {
	seats := GenerateSeatNumbers(startSeat, endSeat)
	if len(seats) == 0 {
		return 0, 0, ErrorNoSeatsParsed
	}

	db := config.GetDB()
	for _, seatNumber := range seats {
		result := db.WithContext(ctx).
			Model(&Ticket{}).
			Where("event_id = ? AND section = ? AND row_name = ? AND seat_number = ? AND listing_id IS NULL",
				eventId, section, rowName, seatNumber).
			Updates(map[string]interface{}{
				"listing_id": listingId,
				"status":     TicketStatusListed,
			})
		if result.Error != nil {
			config.LogError(config.GetLogger(), "models", "LinkTicketsToListing", "link ticket", seatNumber, result.Error)
			alreadyClaimed++
			continue
		}
		if result.RowsAffected == 0 {
			alreadyClaimed++
			continue
		}
		linked++
	}
	return linked, alreadyClaimed, nil
}

// LinkTicketsToSale parses the sold seats and attaches the sale, advancing
// status to SOLD only where no sale is attached yet.
func LinkTicketsToSale(ctx context.Context, saleId int, eventId int, section string, rowName string, seatsText string) (linked int, alreadyClaimed int, err error) {
	seats := ParseSeatRange(seatsText)
	if len(seats) == 0 {
		return 0, 0, ErrorNoSeatsParsed
	}

	db := config.GetDB()
	for _, seatNumber := range seats {
		result := db.WithContext(ctx).
			Model(&Ticket{}).
			Where("event_id = ? AND section = ? AND row_name = ? AND seat_number = ? AND sale_id IS NULL",
				eventId, section, rowName, seatNumber).
			Updates(map[string]interface{}{
				"sale_id": saleId,
				"status":  TicketStatusSold,
			})
		if result.Error != nil {
			config.LogError(config.GetLogger(), "models", "LinkTicketsToSale", "link ticket", seatNumber, result.Error)
			alreadyClaimed++
			continue
		}
		if result.RowsAffected == 0 {
			alreadyClaimed++
			continue
		}
		linked++
	}
	return linked, alreadyClaimed, nil
}
