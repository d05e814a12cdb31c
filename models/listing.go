package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing is a POS-side for-sale lot of seats ("ticket group" in POS terms),
// keyed by the externally assigned ticket group id.
type Listing struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TicketGroupId int64           `gorm:"uniqueIndex;not null" json:"ticket_group_id"`
	Section       string          `gorm:"size:64" json:"section"`
	RowName       string          `gorm:"size:32" json:"row_name"`
	SeatStart     int             `json:"seat_start"`
	SeatEnd       int             `json:"seat_end"`
	Quantity      int             `json:"quantity"`
	Cost          decimal.Decimal `gorm:"type:decimal(14,4)" json:"cost"`
	Price         decimal.Decimal `gorm:"type:decimal(14,4)" json:"price"`
	ExtPONumber   *string         `gorm:"size:64;index" json:"ext_po_number"`
	AccountEmail  *string         `gorm:"size:255" json:"account_email"`
	InternalNotes string          `gorm:"type:text" json:"internal_notes"`
	UploadedCount int             `json:"uploaded_count"`
	TotalCount    int             `json:"total_count"`
	EventName     string          `gorm:"size:255" json:"event_name"`
	EventId       *int            `gorm:"index" json:"event_id"`
	PurchaseId    *int            `gorm:"index" json:"purchase_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetListingByTicketGroupId(ctx context.Context, ticketGroupId int64) (*Listing, error) {
	var listing Listing
	err := config.GetDB().WithContext(ctx).
		Where("ticket_group_id = ?", ticketGroupId).
		Take(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

func GetListingsByTicketGroupIds(ctx context.Context, ids []int64) (map[int64]*Listing, error) {
	result := make(map[int64]*Listing)
	if len(ids) == 0 {
		return result, nil
	}
	var listings []*Listing
	err := config.GetDB().WithContext(ctx).
		Where("ticket_group_id IN ?", ids).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	for _, listing := range listings {
		result[listing.TicketGroupId] = listing
	}
	return result, nil
}

/* query surface */

type ListingFilters struct {
	IsMatched *bool   `json:"is_matched"`
	HasExtPO  *bool   `json:"has_ext_po"`
	Search    *string `json:"search"`
	EventName *string `json:"event_name"`
	Page      int     `json:"page"`
	Limit     int     `json:"limit"`
}

type ListingStats struct {
	Total      int64           `json:"total"`
	Matched    int64           `json:"matched"`
	Unmatched  int64           `json:"unmatched"`
	Ours       int64           `json:"ours"`
	TotalValue decimal.Decimal `json:"total_value"`
	TotalCost  decimal.Decimal `json:"total_cost"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func listingFilterScope(filters ListingFilters) func(*gorm.DB) *gorm.DB {
	return func(dbCtx *gorm.DB) *gorm.DB {
		if filters.IsMatched != nil {
			if *filters.IsMatched {
				dbCtx = dbCtx.Where("event_id IS NOT NULL")
			} else {
				dbCtx = dbCtx.Where("event_id IS NULL")
			}
		}
		if filters.HasExtPO != nil {
			if *filters.HasExtPO {
				dbCtx = dbCtx.Where("ext_po_number IS NOT NULL")
			} else {
				dbCtx = dbCtx.Where("ext_po_number IS NULL")
			}
		}
		if filters.Search != nil && *filters.Search != "" {
			like := "%" + *filters.Search + "%"
			dbCtx = dbCtx.Where(
				"section LIKE ? OR row_name LIKE ? OR account_email LIKE ? OR ext_po_number LIKE ? OR event_name LIKE ?",
				like, like, like, like, like,
			)
		}
		if filters.EventName != nil && *filters.EventName != "" {
			dbCtx = dbCtx.Where("event_name = ?", *filters.EventName)
		}
		return dbCtx
	}
}

// GetListings returns one page of listings matching the filters, plus the
// page descriptor. Stats are computed separately over the full table.
func GetListings(ctx context.Context, filters ListingFilters) ([]*Listing, *Pagination, error) {
	db := config.GetDB()

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := db.WithContext(ctx).Model(&Listing{}).
		Scopes(listingFilterScope(filters)).
		Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var listings []*Listing
	err := db.WithContext(ctx).
		Scopes(listingFilterScope(filters)).
		Order("updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, nil, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return listings, &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// GetListingStats aggregates the whole listing table. TotalCost is a single
// raw SUM(cost * quantity) restricted to rows carrying an ext PO number,
// since only those lots are ours to cost.
func GetListingStats(ctx context.Context) (*ListingStats, error) {
	db := config.GetDB()
	stats := ListingStats{TotalValue: decimal.Zero, TotalCost: decimal.Zero}

	if err := db.WithContext(ctx).Model(&Listing{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Listing{}).
		Where("event_id IS NOT NULL").
		Count(&stats.Matched).Error; err != nil {
		return nil, err
	}
	stats.Unmatched = stats.Total - stats.Matched
	if err := db.WithContext(ctx).Model(&Listing{}).
		Where("ext_po_number IS NOT NULL").
		Count(&stats.Ours).Error; err != nil {
		return nil, err
	}

	var row struct {
		TotalValue decimal.NullDecimal
		TotalCost  decimal.NullDecimal
	}
	sql := `
		SELECT
			(SELECT SUM(price) FROM listings) AS total_value,
			(SELECT SUM(cost * quantity) FROM listings WHERE ext_po_number IS NOT NULL) AS total_cost
	`
	if err := db.WithContext(ctx).Raw(sql).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.TotalValue.Valid {
		stats.TotalValue = row.TotalValue.Decimal
	}
	if row.TotalCost.Valid {
		stats.TotalCost = row.TotalCost.Decimal
	}
	return &stats, nil
}

// UpdateListingPriceLocal writes the cached price after the external
// platform accepted the change. Callers must not invoke this when the
// external write failed.
func UpdateListingPriceLocal(ctx context.Context, listingId int, newPrice decimal.Decimal) error {
	return config.GetDB().WithContext(ctx).
		Model(&Listing{}).
		Where("id = ?", listingId).
		Update("price", newPrice).Error
}
