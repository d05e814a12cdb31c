package possync

import (
	"encoding/json"
	"testing"
)

func TestListingSnapshotAliasCoalescing(t *testing.T) {
	var snap listingSnapshot
	payload := []byte(`{"tgId": 4412, "quantity": 6, "external_po_number": "PO-12"}`)
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.ticketGroupId() != 4412 {
		t.Fatalf("ticketGroupId expected 4412, got %d", snap.ticketGroupId())
	}
	if snap.quantity() != 6 {
		t.Fatalf("quantity expected 6, got %d", snap.quantity())
	}
	if snap.extPONumber() != "PO-12" {
		t.Fatalf("extPONumber expected PO-12, got %q", snap.extPONumber())
	}
}

func TestListingSnapshotPrimaryKeysWin(t *testing.T) {
	var snap listingSnapshot
	payload := []byte(`{"ticket_group_id": 100, "tgId": 200, "qty": 2, "ticket_count": 9, "ext_po_number": "PO-A", "external_po_number": "PO-B"}`)
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.ticketGroupId() != 100 {
		t.Fatalf("primary key alias should win, got %d", snap.ticketGroupId())
	}
	if snap.quantity() != 2 {
		t.Fatalf("qty should win over ticket_count, got %d", snap.quantity())
	}
	if snap.extPONumber() != "PO-A" {
		t.Fatalf("ext_po_number should win, got %q", snap.extPONumber())
	}
}

func TestSeatBounds(t *testing.T) {
	var snap listingSnapshot
	if err := json.Unmarshal([]byte(`{"seat_start": 5, "seat_end": 8}`), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	start, end := snap.seatBounds()
	if start != 5 || end != 8 {
		t.Fatalf("expected bounds (5, 8), got (%d, %d)", start, end)
	}

	var inverted listingSnapshot
	if err := json.Unmarshal([]byte(`{"seat_start": 9, "seat_end": 2}`), &inverted); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s, e := inverted.seatBounds(); s != 0 || e != 0 {
		t.Fatalf("inverted bounds should be rejected, got (%d, %d)", s, e)
	}
}

func TestDecimalPtrFromNumberKeepsAbsenceDistinctFromZero(t *testing.T) {
	if got := decimalPtrFromNumber(json.Number("")); got != nil {
		t.Fatalf("absent number expected nil, got %s", got)
	}
	got := decimalPtrFromNumber(json.Number("0"))
	if got == nil || !got.IsZero() {
		t.Fatalf("explicit zero expected a zero value, got %v", got)
	}
	got = decimalPtrFromNumber(json.Number("12.5"))
	if got == nil || got.String() != "12.5" {
		t.Fatalf("expected 12.5, got %v", got)
	}
}

func TestInvoiceTotalAmountAliasing(t *testing.T) {
	var snap invoiceSnapshot
	if err := json.Unmarshal([]byte(`{"total_amount": 0, "net_amount": 250}`), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := snap.totalAmount(); !got.IsZero() {
		t.Fatalf("explicit zero total_amount must not fall through to net_amount, got %s", got)
	}

	var netOnly invoiceSnapshot
	if err := json.Unmarshal([]byte(`{"net_amount": 250}`), &netOnly); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := netOnly.totalAmount(); got.String() != "250" {
		t.Fatalf("absent total_amount should use net_amount, got %s", got)
	}

	var empty invoiceSnapshot
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := empty.totalAmount(); !got.IsZero() {
		t.Fatalf("fully absent amounts default to zero, got %s", got)
	}
}

func TestParseUploadStatus(t *testing.T) {
	cases := []struct {
		in       string
		uploaded int
		total    int
	}{
		{"3/10", 3, 10},
		{"0/4", 0, 4},
		{" 2 / 8 ", 2, 8},
		{"", 0, 0},
		{"weird", 0, 0},
		{"3/abc", 0, 0},
	}
	for _, tc := range cases {
		u, total := parseUploadStatus(tc.in)
		if u != tc.uploaded || total != tc.total {
			t.Fatalf("parseUploadStatus(%q) expected (%d, %d), got (%d, %d)", tc.in, tc.uploaded, tc.total, u, total)
		}
	}
}

func TestParseTimeOrNil(t *testing.T) {
	if got := parseTimeOrNil("2026-03-14T19:30:00Z"); got == nil || got.Hour() != 19 {
		t.Fatalf("RFC3339 timestamp not parsed: %v", got)
	}
	if got := parseTimeOrNil("2026-03-14"); got == nil || got.Day() != 14 {
		t.Fatalf("date-only value not parsed: %v", got)
	}
	if got := parseTimeOrNil(""); got != nil {
		t.Fatalf("empty value expected nil, got %v", got)
	}
	if got := parseTimeOrNil("not a date"); got != nil {
		t.Fatalf("garbage expected nil, got %v", got)
	}
}
