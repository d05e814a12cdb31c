package possync

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot payloads tolerate the platform's field-name drift: the same
// concept arrives under different keys depending on endpoint version.
// Each alias gets its own field and a coalescing accessor picks the first
// populated one.

type listingSnapshot struct {
	TicketGroupId json.Number `json:"ticket_group_id"`
	TgID          json.Number `json:"tgId"`

	Section string `json:"section"`
	Row     string `json:"row"`

	SeatStart json.Number `json:"seat_start"`
	SeatEnd   json.Number `json:"seat_end"`
	Seats     string      `json:"seats"`

	Qty         json.Number `json:"qty"`
	Quantity    json.Number `json:"quantity"`
	TicketCount json.Number `json:"ticket_count"`

	Cost  json.Number `json:"cost"`
	Price json.Number `json:"price"`

	UploadStatus string `json:"upload_status"`

	ExtPONumber      string `json:"ext_po_number"`
	ExternalPONumber string `json:"external_po_number"`

	AccountEmail  string `json:"account_email"`
	Email         string `json:"email"`
	InternalNotes string `json:"internal_notes"`

	EventName       string `json:"event_name"`
	Venue           string `json:"venue"`
	EventDate       string `json:"event_date"`
	PosProductionId string `json:"production_id"`
}

func (s listingSnapshot) ticketGroupId() int64 {
	return firstInt64(s.TicketGroupId, s.TgID)
}

func (s listingSnapshot) quantity() int {
	return int(firstInt64(s.Qty, s.Quantity, s.TicketCount))
}

func (s listingSnapshot) extPONumber() string {
	if v := strings.TrimSpace(s.ExtPONumber); v != "" {
		return v
	}
	return strings.TrimSpace(s.ExternalPONumber)
}

func (s listingSnapshot) seatBounds() (int, int) {
	start := int(firstInt64(s.SeatStart))
	end := int(firstInt64(s.SeatEnd))
	if start > 0 && end >= start {
		return start, end
	}
	return 0, 0
}

type saleSnapshot struct {
	TicketGroupId json.Number `json:"ticket_group_id"`
	TgID          json.Number `json:"tgId"`
	OrderId       string      `json:"order_id"`

	Qty         json.Number `json:"qty"`
	Quantity    json.Number `json:"quantity"`
	TicketCount json.Number `json:"ticket_count"`

	Section string `json:"section"`
	Row     string `json:"row"`
	Seats   string `json:"seats"`

	SaleDate string `json:"sale_date"`
	Status   string `json:"status"`

	Cost json.Number `json:"cost"`

	ExtPONumber   string `json:"ext_po_number"`
	InvoiceNumber string `json:"invoice_number"`

	EventName string `json:"event_name"`
	Venue     string `json:"venue"`
	EventDate string `json:"event_date"`
}

func (s saleSnapshot) ticketGroupId() int64 {
	return firstInt64(s.TicketGroupId, s.TgID)
}

func (s saleSnapshot) quantity() int {
	return int(firstInt64(s.Qty, s.Quantity, s.TicketCount))
}

type invoiceSnapshot struct {
	InvoiceNumber string      `json:"invoice_number"`
	TotalAmount   json.Number `json:"total_amount"`
	NetAmount     json.Number `json:"net_amount"`
	Status        string      `json:"status"`
	InvoiceDate   string      `json:"invoice_date"`
}

// totalAmount falls through to net_amount only when total_amount is truly
// absent. An explicit zero is a real value, not an invitation to look at
// the other field.
func (s invoiceSnapshot) totalAmount() decimal.Decimal {
	if d := decimalPtrFromNumber(s.TotalAmount); d != nil {
		return *d
	}
	if d := decimalPtrFromNumber(s.NetAmount); d != nil {
		return *d
	}
	return decimal.Zero
}

type accountSnapshot struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type SyncResult struct {
	Success bool   `json:"success"`
	Synced  int    `json:"synced"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Linked  int    `json:"linked"`
	Error   string `json:"error,omitempty"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	BatchType   string `json:"batch_type"`
	TriggeredBy string `json:"triggered_by"`
}

/* coalescing helpers */

func firstInt64(nums ...json.Number) int64 {
	for _, num := range nums {
		if num.String() == "" {
			continue
		}
		if n, err := num.Int64(); err == nil && n != 0 {
			return n
		}
	}
	return 0
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

// decimalPtrFromNumber keeps absence distinct from zero, for fields where
// null must not clobber a previously recorded value.
func decimalPtrFromNumber(num json.Number) *decimal.Decimal {
	if num.String() == "" {
		return nil
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return nil
	}
	return &d
}

func parseTimeOrNil(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

// parseUploadStatus reads the "uploaded/total" descriptor, e.g. "3/10".
func parseUploadStatus(status string) (uploaded int, total int) {
	parts := strings.SplitN(strings.TrimSpace(status), "/", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	u, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	t, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return u, t
}
