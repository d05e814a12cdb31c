package possync

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
	"bitbucket.org/mmdatafocus/tickets_backend/utils"
	"github.com/shopspring/decimal"
)

// SyncSalesFromPos pulls sale snapshots and reconciles them with two-tier
// fallback linkage: exact listing lookup first, then purchase matching by
// seat containment for sales that arrive before their listing. After the
// batch a dedicated pass retries the listing lookup for every still
// unlinked sale.
func SyncSalesFromPos(ctx context.Context, triggeredBy string) *SyncResult {
	lock, err := acquirePassLock(ctx, models.SyncEntitySale)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}
	defer releasePassLock(ctx, lock)

	client, err := newPosClient()
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	run, err := models.StartSyncRun(ctx, models.SyncEntitySale, triggeredBy)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	raws, err := client.fetchAll(ctx, salesPath())
	if err != nil {
		_ = models.FailSyncRun(ctx, run, err)
		return &SyncResult{Success: false, Error: err.Error()}
	}

	result := SyncResult{Success: true}
	errorCount := 0
	for _, raw := range raws {
		var snap saleSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			errorCount++
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntitySale, "", "invalid_payload", err.Error(), raw, true)
			continue
		}

		outcome, err := processSaleRecord(ctx, snap)
		if err != nil {
			errorCount++
			extId := strconv.FormatInt(snap.ticketGroupId(), 10) + "/" + snap.OrderId
			config.LogError(config.GetLogger(), "possync", "SyncSalesFromPos", "process record", extId, err)
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntitySale, extId, "sync_failed", err.Error(), raw, true)
			continue
		}
		result.Synced++
		if outcome.created {
			result.Created++
		} else {
			result.Updated++
		}
		if outcome.linked {
			result.Linked++
		}
	}

	relinked, err := relinkSales(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "possync", "SyncSalesFromPos", "relink pass", nil, err)
	}
	result.Linked += relinked

	if err := models.FinishSyncRun(ctx, run, result.Synced, result.Created, result.Updated, result.Linked, errorCount); err != nil {
		config.LogError(config.GetLogger(), "possync", "SyncSalesFromPos", "finish run", run.ID, err)
	}
	return &result
}

type saleOutcome struct {
	created bool
	linked  bool
}

func processSaleRecord(ctx context.Context, snap saleSnapshot) (saleOutcome, error) {
	var outcome saleOutcome

	ticketGroupId := snap.ticketGroupId()
	orderId := strings.TrimSpace(snap.OrderId)
	if ticketGroupId == 0 || orderId == "" {
		return outcome, errors.New("ticket group id or order id missing")
	}

	listing, err := models.GetListingByTicketGroupId(ctx, ticketGroupId)
	if err != nil {
		return outcome, err
	}

	var listingPurchase *models.Purchase
	if listing != nil && listing.PurchaseId != nil {
		listingPurchase, err = models.GetPurchase(ctx, *listing.PurchaseId)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			return outcome, err
		}
	}

	var fallbackPurchase *models.Purchase
	if listing == nil {
		fallbackPurchase, err = findPurchaseBySeatContainment(ctx, snap)
		if err != nil {
			return outcome, err
		}
	}

	eventId := resolveSaleEventId(listing, listingPurchase, fallbackPurchase)
	if eventId == nil {
		eventId = matchSaleEvent(ctx, snap)
	}
	extPO := resolveSaleExtPO(snap.ExtPONumber, listing, listingPurchase, fallbackPurchase)

	// A sale must never dangling-reference an invoice we have not synced
	// yet; a later re-sync picks the number up once the invoice lands.
	var invoiceNumber *string
	if n := strings.TrimSpace(snap.InvoiceNumber); n != "" {
		invoice, err := models.GetInvoiceByNumber(ctx, n)
		if err != nil {
			return outcome, err
		}
		if invoice != nil {
			invoiceNumber = &n
		}
	}

	existing, err := models.GetSaleByGroupAndOrder(ctx, ticketGroupId, orderId)
	if err != nil {
		return outcome, err
	}

	var listingId *int
	if listing != nil {
		listingId = &listing.ID
	}
	var purchaseId *int
	if listingPurchase != nil {
		purchaseId = &listingPurchase.ID
	} else if fallbackPurchase != nil {
		purchaseId = &fallbackPurchase.ID
	}

	sale := models.Sale{
		TicketGroupId: ticketGroupId,
		OrderId:       orderId,
		Quantity:      snap.quantity(),
		Section:       strings.TrimSpace(snap.Section),
		RowName:       strings.TrimSpace(snap.Row),
		Seats:         strings.TrimSpace(snap.Seats),
		SaleDate:      parseTimeOrNil(snap.SaleDate),
		Status:        mapSaleStatus(snap.Status),
		Cost:          mergeSaleCost(existing, decimalPtrFromNumber(snap.Cost)),
		ExtPONumber:   extPO,
		InvoiceNumber: invoiceNumber,
		ListingId:     listingId,
		EventId:       eventId,
		PurchaseId:    purchaseId,
	}

	db := config.GetDB()
	if existing == nil {
		if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
			return outcome, err
		}
		outcome.created = true
		outcome.linked = listingId != nil

		if sale.EventId != nil && sale.Section != "" && sale.RowName != "" && sale.Seats != "" {
			if _, _, err := models.LinkTicketsToSale(ctx, sale.ID, *sale.EventId, sale.Section, sale.RowName, sale.Seats); err != nil && !errors.Is(err, models.ErrorNoSeatsParsed) {
				config.LogError(config.GetLogger(), "possync", "processSaleRecord", "link tickets", sale.ID, err)
			}
		}
		return outcome, nil
	}

	sale.ID = existing.ID
	if sale.ListingId == nil {
		sale.ListingId = existing.ListingId
	}
	if sale.EventId == nil {
		sale.EventId = existing.EventId
	}
	if sale.PurchaseId == nil {
		sale.PurchaseId = existing.PurchaseId
	}
	if sale.InvoiceNumber == nil {
		sale.InvoiceNumber = existing.InvoiceNumber
	}
	if err := db.WithContext(ctx).Save(&sale).Error; err != nil {
		return outcome, err
	}
	outcome.linked = existing.ListingId == nil && sale.ListingId != nil
	return outcome, nil
}

// findPurchaseBySeatContainment recovers linkage for sales that arrive
// before their listing: a purchase in the same section and row whose
// stored seat range numerically contains the sold seats.
func findPurchaseBySeatContainment(ctx context.Context, snap saleSnapshot) (*models.Purchase, error) {
	section := strings.TrimSpace(snap.Section)
	rowName := strings.TrimSpace(snap.Row)
	saleSeats := models.ParseSeatRange(snap.Seats)
	if section == "" || rowName == "" || len(saleSeats) == 0 {
		return nil, nil
	}

	purchases, err := models.GetPurchasesBySectionRow(ctx, section, rowName)
	if err != nil {
		return nil, err
	}
	for _, purchase := range purchases {
		purchaseSeats := models.ParseSeatRange(purchase.SeatRange)
		if models.SeatsContain(purchaseSeats, saleSeats) {
			return purchase, nil
		}
	}
	return nil, nil
}

// resolveSaleEventId walks the linkage priority chain: the listing's
// purchase, then the listing itself, then the fallback purchase.
func resolveSaleEventId(listing *models.Listing, listingPurchase *models.Purchase, fallbackPurchase *models.Purchase) *int {
	if listingPurchase != nil && listingPurchase.EventId != nil {
		return listingPurchase.EventId
	}
	if listing != nil && listing.EventId != nil {
		return listing.EventId
	}
	if fallbackPurchase != nil && fallbackPurchase.EventId != nil {
		return fallbackPurchase.EventId
	}
	return nil
}

// resolveSaleExtPO prefers the POS-reported value, then the listing's PO,
// then the PO of whichever purchase the chain reached.
func resolveSaleExtPO(posValue string, listing *models.Listing, listingPurchase *models.Purchase, fallbackPurchase *models.Purchase) *string {
	if v := strings.TrimSpace(posValue); v != "" {
		return &v
	}
	if listing != nil && listing.ExtPONumber != nil {
		return listing.ExtPONumber
	}
	if listingPurchase != nil && listingPurchase.DashboardPoNumber != nil {
		return listingPurchase.DashboardPoNumber
	}
	if fallbackPurchase != nil && fallbackPurchase.DashboardPoNumber != nil {
		return fallbackPurchase.DashboardPoNumber
	}
	return nil
}

// mergeSaleCost keeps a previously recorded cost when the incoming payload
// omits it. Absence is not zero; a re-sync must never null the field out.
func mergeSaleCost(existing *models.Sale, incoming *decimal.Decimal) *decimal.Decimal {
	if incoming != nil {
		return incoming
	}
	if existing != nil && existing.Cost != nil {
		return existing.Cost
	}
	return nil
}

func matchSaleEvent(ctx context.Context, snap saleSnapshot) *int {
	if strings.TrimSpace(snap.EventName) == "" {
		return nil
	}
	input := models.EventMatchInput{
		EventName: strings.TrimSpace(snap.EventName),
		Venue:     utils.CleanString(snap.Venue),
		EventDate: parseTimeOrNil(snap.EventDate),
	}
	match, err := models.FindOrCreateEvent(ctx, input, false)
	if err != nil || !match.Found {
		return nil
	}
	return &match.Event.ID
}

func mapSaleStatus(status string) models.SaleStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED", "DELIVERED":
		return models.SaleStatusCompleted
	case "CANCELED", "CANCELLED":
		return models.SaleStatusCancelled
	default:
		return models.SaleStatusPending
	}
}

// relinkSales retries the exact ticket group lookup for every sale still
// missing its listing. Sales routinely sync before listings; this pass
// closes the gap as soon as the listing lands.
func relinkSales(ctx context.Context) (int, error) {
	sales, err := models.GetSalesMissingListing(ctx)
	if err != nil {
		return 0, err
	}

	relinked := 0
	for _, sale := range sales {
		listing, err := models.GetListingByTicketGroupId(ctx, sale.TicketGroupId)
		if err != nil {
			config.LogError(config.GetLogger(), "possync", "relinkSales", "lookup listing", sale.TicketGroupId, err)
			continue
		}
		if listing == nil {
			continue
		}

		updates := map[string]interface{}{"listing_id": listing.ID}
		if sale.EventId == nil && listing.EventId != nil {
			updates["event_id"] = *listing.EventId
		}
		if sale.PurchaseId == nil && listing.PurchaseId != nil {
			updates["purchase_id"] = *listing.PurchaseId
		}
		if err := config.GetDB().WithContext(ctx).
			Model(&models.Sale{}).
			Where("id = ? AND listing_id IS NULL", sale.ID).
			Updates(updates).Error; err != nil {
			config.LogError(config.GetLogger(), "possync", "relinkSales", "update sale", sale.ID, err)
			continue
		}
		relinked++
	}
	return relinked, nil
}
