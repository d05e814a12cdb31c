package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is the atomic unit: one physical seat at one event. Ownership is
// first-writer-wins — a row, once created for a purchase, is never
// recreated or handed to another purchase. Listing/sale attachment only
// moves forward, through conditional updates in the ticket linker.
type Ticket struct {
	ID         int             `gorm:"primary_key" json:"id"`
	EventId    int             `gorm:"not null;uniqueIndex:idx_tickets_seat" json:"event_id"`
	Section    string          `gorm:"size:64;not null;uniqueIndex:idx_tickets_seat" json:"section"`
	RowName    string          `gorm:"size:32;not null;uniqueIndex:idx_tickets_seat" json:"row_name"`
	SeatNumber int             `gorm:"not null;uniqueIndex:idx_tickets_seat" json:"seat_number"`
	PurchaseId int             `gorm:"not null;index" json:"purchase_id"`
	ListingId  *int            `gorm:"index" json:"listing_id"`
	SaleId     *int            `gorm:"index" json:"sale_id"`
	Status     TicketStatus    `gorm:"size:16;default:PURCHASED" json:"status"`
	Cost       decimal.Decimal `gorm:"type:decimal(14,4)" json:"cost"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
