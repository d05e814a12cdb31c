package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the POS-side settlement record. TotalAmount is the net payout
// after platform fees and is the only authoritative revenue source.
type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceNumber string          `gorm:"size:64;uniqueIndex;not null" json:"invoice_number"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,4)" json:"total_amount"`
	Status        InvoiceStatus   `gorm:"size:16;default:OPEN" json:"status"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	var invoice Invoice
	err := config.GetDB().WithContext(ctx).
		Where("invoice_number = ?", invoiceNumber).
		Take(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func GetActiveInvoices(ctx context.Context) ([]*Invoice, error) {
	var invoices []*Invoice
	err := config.GetDB().WithContext(ctx).
		Where("status <> ?", InvoiceStatusCancelled).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
