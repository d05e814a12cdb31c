package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is an internal acquisition of one or more seats at a cost.
// DashboardPoNumber is the correlation key that ties POS listings and
// sales back to the purchase when no direct foreign key exists.
type Purchase struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"total_price"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	Section           string          `gorm:"size:64;not null" json:"section"`
	RowName           string          `gorm:"size:32;not null" json:"row_name"`
	SeatRange         string          `gorm:"size:64" json:"seat_range"`
	DashboardPoNumber *string         `gorm:"size:64;index" json:"dashboard_po_number"`
	EventId           *int            `gorm:"index" json:"event_id"`
	PurchaseDate      *time.Time      `json:"purchase_date"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CostPerTicket is the only sanctioned per-seat cost derivation.
// The POS-reported per-sale cost field is never used for profit math.
func (p *Purchase) CostPerTicket() decimal.Decimal {
	if p.Quantity <= 0 {
		return decimal.Zero
	}
	return p.TotalPrice.Div(decimal.NewFromInt(int64(p.Quantity)))
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	return utils.FetchSingleModel[Purchase](ctx, id)
}

// GetPurchasesByPoNumbers loads the purchases for a set of dashboard PO
// numbers as a lookup map. Reconcilers precompute this once per batch.
func GetPurchasesByPoNumbers(ctx context.Context, poNumbers []string) (map[string]*Purchase, error) {
	result := make(map[string]*Purchase)
	if len(poNumbers) == 0 {
		return result, nil
	}

	var purchases []*Purchase
	err := config.GetDB().WithContext(ctx).
		Where("dashboard_po_number IN ?", poNumbers).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	for _, purchase := range purchases {
		if purchase.DashboardPoNumber != nil {
			result[*purchase.DashboardPoNumber] = purchase
		}
	}
	return result, nil
}

// GetPurchasesBySectionRow returns purchases sharing a section and row,
// used by the sales reconciler's seat-containment fallback.
func GetPurchasesBySectionRow(ctx context.Context, section string, rowName string) ([]*Purchase, error) {
	var purchases []*Purchase
	err := config.GetDB().WithContext(ctx).
		Where("section = ? AND row_name = ?", section, rowName).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}
