package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a POS-side sale of some quantity from a listing, unique per
// (ticket_group_id, order_id). A listing may be fulfilled by several sales.
type Sale struct {
	ID            int              `gorm:"primary_key" json:"id"`
	TicketGroupId int64            `gorm:"not null;uniqueIndex:idx_sales_group_order" json:"ticket_group_id"`
	OrderId       string           `gorm:"size:64;not null;uniqueIndex:idx_sales_group_order" json:"order_id"`
	Quantity      int              `json:"quantity"`
	Section       string           `gorm:"size:64" json:"section"`
	RowName       string           `gorm:"size:32" json:"row_name"`
	Seats         string           `gorm:"size:64" json:"seats"`
	SaleDate      *time.Time       `json:"sale_date"`
	Status        SaleStatus       `gorm:"size:16;default:PENDING" json:"status"`
	Cost          *decimal.Decimal `gorm:"type:decimal(14,4)" json:"cost"`
	ExtPONumber   *string          `gorm:"size:64;index" json:"ext_po_number"`
	InvoiceNumber *string          `gorm:"size:64;index" json:"invoice_number"`
	ListingId     *int             `gorm:"index" json:"listing_id"`
	EventId       *int             `gorm:"index" json:"event_id"`
	PurchaseId    *int             `gorm:"index" json:"purchase_id"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSaleByGroupAndOrder(ctx context.Context, ticketGroupId int64, orderId string) (*Sale, error) {
	var sale Sale
	err := config.GetDB().WithContext(ctx).
		Where("ticket_group_id = ? AND order_id = ?", ticketGroupId, orderId).
		Take(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// GetSalesMissingListing returns sales that have not yet been tied to a
// listing. The end-of-batch re-link pass walks these after every sync,
// which fixes the common case of sales arriving before their listings.
func GetSalesMissingListing(ctx context.Context) ([]*Sale, error) {
	var sales []*Sale
	err := config.GetDB().WithContext(ctx).
		Where("listing_id IS NULL").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func GetAllSales(ctx context.Context) ([]*Sale, error) {
	var sales []*Sale
	err := config.GetDB().WithContext(ctx).Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
