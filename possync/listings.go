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

// SyncListingsFromPos pulls the platform's "currently listed" snapshots and
// reconciles them into local listings, resolving event and purchase linkage
// and driving the ticket linker. Per-record failures are recorded and
// skipped; only a transport failure aborts the pass.
func SyncListingsFromPos(ctx context.Context, triggeredBy string) *SyncResult {
	lock, err := acquirePassLock(ctx, models.SyncEntityListing)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}
	defer releasePassLock(ctx, lock)

	client, err := newPosClient()
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	run, err := models.StartSyncRun(ctx, models.SyncEntityListing, triggeredBy)
	if err != nil {
		return &SyncResult{Success: false, Error: err.Error()}
	}

	raws, err := client.fetchAll(ctx, listingsPath())
	if err != nil {
		_ = models.FailSyncRun(ctx, run, err)
		return &SyncResult{Success: false, Error: err.Error()}
	}

	snapshots := make([]listingSnapshot, 0, len(raws))
	poNumbers := make([]string, 0, len(raws))
	errorCount := 0
	for _, raw := range raws {
		var snap listingSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			errorCount++
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntityListing, "", "invalid_payload", err.Error(), raw, true)
			continue
		}
		snapshots = append(snapshots, snap)
		if po := snap.extPONumber(); po != "" {
			poNumbers = append(poNumbers, po)
		}
	}

	purchasesByPo, err := models.GetPurchasesByPoNumbers(ctx, poNumbers)
	if err != nil {
		_ = models.FailSyncRun(ctx, run, err)
		return &SyncResult{Success: false, Error: err.Error()}
	}

	result := SyncResult{Success: true}
	for _, snap := range snapshots {
		outcome, err := processListingRecord(ctx, snap, purchasesByPo)
		if err != nil {
			errorCount++
			extId := ""
			if id := snap.ticketGroupId(); id != 0 {
				extId = strconv.FormatInt(id, 10)
			}
			config.LogError(config.GetLogger(), "possync", "SyncListingsFromPos", "process record", extId, err)
			_ = models.CreateSyncError(ctx, run.ID, models.SyncEntityListing, extId, "sync_failed", err.Error(), nil, true)
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

	// Per-account delivery metadata refresh is best-effort: a failure here
	// never fails the listing sync itself.
	if err := refreshPosAccounts(ctx, client); err != nil {
		config.LogError(config.GetLogger(), "possync", "SyncListingsFromPos", "refresh accounts", nil, err)
	}

	if err := models.FinishSyncRun(ctx, run, result.Synced, result.Created, result.Updated, result.Linked, errorCount); err != nil {
		config.LogError(config.GetLogger(), "possync", "SyncListingsFromPos", "finish run", run.ID, err)
	}
	return &result
}

type listingOutcome struct {
	created bool
	linked  bool
}

func processListingRecord(ctx context.Context, snap listingSnapshot, purchasesByPo map[string]*models.Purchase) (listingOutcome, error) {
	var outcome listingOutcome

	ticketGroupId := snap.ticketGroupId()
	if ticketGroupId == 0 {
		return outcome, errors.New("ticket group id missing")
	}

	uploaded, total := parseUploadStatus(snap.UploadStatus)
	extPO := snap.extPONumber()
	accountEmail := deriveAccountEmail(snap.AccountEmail, snap.Email, snap.InternalNotes)

	var purchase *models.Purchase
	if extPO != "" {
		purchase = purchasesByPo[extPO]
	}

	eventId := resolveListingEvent(ctx, snap, purchase)

	seatStart, seatEnd := snap.seatBounds()
	if seatStart == 0 && snap.Seats != "" {
		if seats := models.ParseSeatRange(snap.Seats); len(seats) > 0 {
			seatStart, seatEnd = seats[0], seats[len(seats)-1]
		}
	}

	existing, err := models.GetListingByTicketGroupId(ctx, ticketGroupId)
	if err != nil {
		return outcome, err
	}

	var purchaseId *int
	if purchase != nil {
		purchaseId = &purchase.ID
	}

	listing := models.Listing{
		TicketGroupId: ticketGroupId,
		Section:       strings.TrimSpace(snap.Section),
		RowName:       strings.TrimSpace(snap.Row),
		SeatStart:     seatStart,
		SeatEnd:       seatEnd,
		Quantity:      snap.quantity(),
		Cost:          decimalFromNumber(snap.Cost),
		Price:         decimalFromNumber(snap.Price),
		ExtPONumber:   utils.CleanString(extPO),
		AccountEmail:  utils.CleanString(accountEmail),
		InternalNotes: snap.InternalNotes,
		UploadedCount: uploaded,
		TotalCount:    total,
		EventName:     strings.TrimSpace(snap.EventName),
		EventId:       eventId,
		PurchaseId:    purchaseId,
	}

	db := config.GetDB()
	if existing == nil {
		if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
			return outcome, err
		}
		outcome.created = true
		outcome.linked = purchaseId != nil
	} else {
		listing.ID = existing.ID
		// Never null out linkage a previous pass resolved.
		if listing.EventId == nil {
			listing.EventId = existing.EventId
		}
		if listing.PurchaseId == nil {
			listing.PurchaseId = existing.PurchaseId
		}
		if err := db.WithContext(ctx).Save(&listing).Error; err != nil {
			return outcome, err
		}
		outcome.linked = existing.PurchaseId == nil && listing.PurchaseId != nil
	}

	// A previous pass may have resolved the purchase from a PO this
	// snapshot no longer carries; reload it so the linker still runs.
	if listing.EventId != nil && purchase == nil && listing.PurchaseId != nil {
		if loaded, err := models.GetPurchase(ctx, *listing.PurchaseId); err == nil {
			purchase = loaded
		}
	}
	if listing.EventId != nil && purchase != nil {
		driveTicketLinker(ctx, &listing, purchase)
	}
	return outcome, nil
}

// resolveListingEvent asks the matcher, but a purchase that already carries
// an event wins: purchase linkage is more authoritative than inference
// from the listing's own text.
func resolveListingEvent(ctx context.Context, snap listingSnapshot, purchase *models.Purchase) *int {
	if purchase != nil && purchase.EventId != nil {
		return purchase.EventId
	}

	if snap.EventName == "" && snap.PosProductionId == "" {
		return nil
	}
	input := models.EventMatchInput{
		PosProductionId: utils.CleanString(snap.PosProductionId),
		EventName:       strings.TrimSpace(snap.EventName),
		Venue:           utils.CleanString(snap.Venue),
		EventDate:       parseTimeOrNil(snap.EventDate),
	}
	match, err := models.FindOrCreateEvent(ctx, input, true)
	if err != nil {
		config.LogError(config.GetLogger(), "possync", "resolveListingEvent", "match event", snap.EventName, err)
		return nil
	}
	if !match.Found {
		return nil
	}
	return &match.Event.ID
}

// driveTicketLinker lazily materializes the purchase's tickets and attaches
// the listing to its seat range. Both calls tolerate partial failure;
// tickets that cannot be claimed now are retried on the next pass.
func driveTicketLinker(ctx context.Context, listing *models.Listing, purchase *models.Purchase) {
	eventId := *listing.EventId

	if _, _, err := models.CreateTicketsFromPurchase(ctx, purchase.ID, eventId, purchase.Section, purchase.RowName, purchase.SeatRange, purchase.CostPerTicket()); err != nil && !errors.Is(err, models.ErrorNoSeatsParsed) {
		config.LogError(config.GetLogger(), "possync", "driveTicketLinker", "create tickets", purchase.ID, err)
	}

	if listing.SeatStart > 0 {
		if _, _, err := models.LinkTicketsToListing(ctx, listing.ID, eventId, listing.Section, listing.RowName, listing.SeatStart, listing.SeatEnd); err != nil {
			config.LogError(config.GetLogger(), "possync", "driveTicketLinker", "link tickets", listing.ID, err)
		}
	}
}

// deriveAccountEmail prefers the explicit email fields and falls back to
// scraping an address out of the free-text internal notes.
func deriveAccountEmail(accountEmail string, email string, notes string) string {
	if v := strings.TrimSpace(accountEmail); v != "" {
		return v
	}
	if v := strings.TrimSpace(email); v != "" {
		return v
	}
	return utils.ExtractEmail(notes)
}

func refreshPosAccounts(ctx context.Context, client *posClient) error {
	raws, err := client.fetchAll(ctx, accountsPath())
	if err != nil {
		return err
	}
	for _, raw := range raws {
		var snap accountSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			continue
		}
		email := strings.TrimSpace(snap.Email)
		if email == "" {
			continue
		}
		status := models.PosAccountStatusUnknown
		switch strings.ToUpper(strings.TrimSpace(snap.Status)) {
		case "ACTIVE", "OK":
			status = models.PosAccountStatusActive
		case "INACTIVE", "DISABLED":
			status = models.PosAccountStatusInactive
		}
		if err := models.TouchPosAccount(ctx, email, status); err != nil {
			config.LogError(config.GetLogger(), "possync", "refreshPosAccounts", "touch account", email, err)
		}
	}
	return nil
}

/* exposed query surface */

type ListingsPage struct {
	Listings   []*models.Listing    `json:"listings"`
	Stats      *models.ListingStats `json:"stats"`
	Pagination *models.Pagination   `json:"pagination"`
}

func GetListings(ctx context.Context, filters models.ListingFilters) (*ListingsPage, error) {
	listings, pagination, err := models.GetListings(ctx, filters)
	if err != nil {
		return nil, err
	}
	stats, err := models.GetListingStats(ctx)
	if err != nil {
		return nil, err
	}
	return &ListingsPage{Listings: listings, Stats: stats, Pagination: pagination}, nil
}

type PriceUpdateResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UpdateListingPrice writes the external platform first and the local cache
// only after the platform accepted the change, so the two can never
// diverge on failure.
func UpdateListingPrice(ctx context.Context, listingId int, newPrice decimal.Decimal) *PriceUpdateResult {
	listing, err := utils.FetchSingleModel[models.Listing](ctx, listingId)
	if err != nil {
		return &PriceUpdateResult{Success: false, Error: err.Error()}
	}

	client, err := newPosClient()
	if err != nil {
		return &PriceUpdateResult{Success: false, Error: err.Error()}
	}
	if err := client.updateTicketGroupPrice(ctx, listing.TicketGroupId, newPrice); err != nil {
		return &PriceUpdateResult{Success: false, Error: err.Error()}
	}

	if err := models.UpdateListingPriceLocal(ctx, listing.ID, newPrice); err != nil {
		// Platform accepted but the cache write failed; the next sync pass
		// repairs the local value.
		config.LogError(config.GetLogger(), "possync", "UpdateListingPrice", "local write", listing.ID, err)
		return &PriceUpdateResult{Success: false, Error: err.Error()}
	}
	return &PriceUpdateResult{Success: true}
}
