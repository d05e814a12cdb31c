package possync

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
)

// SyncInvoicesFromPos pulls invoice snapshots and upserts them by invoice
// number. Invoices carry the revenue side of the profit calculation, so
// this pass is the simplest of the three reconcilers.
func SyncInvoicesFromPos(ctx context.Context, triggeredBy string) *SyncResult {
	lock, err := acquirePassLock(ctx, models.SyncEntityInvoice)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}
	defer releasePassLock(ctx, lock)

	client, err := newPosClient()
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	run, err := models.StartSyncRun(ctx, models.SyncEntityInvoice, triggeredBy)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	raws, err := client.fetchAll(ctx, invoicesPath())
	if err != nil {
		_ = models.FailSyncRun(ctx, run, err)
		return &SyncResult{Success: false, Error: err.Error()}
	}

	result := SyncResult{Success: true}
	errorCount := 0
	for _, raw := range raws {
		var snap invoiceSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			errorCount++
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntityInvoice, "", "invalid_payload", err.Error(), raw, true)
			continue
		}

		created, err := processInvoiceRecord(ctx, snap)
		if err != nil {
			errorCount++
			config.LogError(config.GetLogger(), "possync", "SyncInvoicesFromPos", "process record", snap.InvoiceNumber, err)
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntityInvoice, snap.InvoiceNumber, "sync_failed", err.Error(), raw, true)
			continue
		}
		result.Synced++
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := models.FinishSyncRun(ctx, run, result.Synced, result.Created, result.Updated, 0, errorCount); err != nil {
		config.LogError(config.GetLogger(), "possync", "SyncInvoicesFromPos", "finish run", run.ID, err)
	}
	return &result
}

func processInvoiceRecord(ctx context.Context, snap invoiceSnapshot) (created bool, err error) {
	number := strings.TrimSpace(snap.InvoiceNumber)
	if number == "" {
		return false, errors.New("invoice number missing")
	}

	invoice := models.Invoice{
		InvoiceNumber: number,
		TotalAmount:   snap.totalAmount(),
		Status:        mapInvoiceStatus(snap.Status),
		InvoiceDate:   parseTimeOrNil(snap.InvoiceDate),
	}

	existing, err := models.GetInvoiceByNumber(ctx, number)
	if err != nil {
		return false, err
	}
	db := config.GetDB()
	if existing == nil {
		return true, db.WithContext(ctx).Create(&invoice).Error
	}
	invoice.ID = existing.ID
	return false, db.WithContext(ctx).Save(&invoice).Error
}

func mapInvoiceStatus(status string) models.InvoiceStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SETTLED":
		return models.InvoiceStatusPaid
	case "CANCELED", "CANCELLED", "VOID":
		return models.InvoiceStatusCancelled
	default:
		return models.InvoiceStatusOpen
	}
}
