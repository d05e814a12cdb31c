package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestComputeSalesStatsCostsThroughPurchase(t *testing.T) {
	// Purchase of 4 seats for 200 means 50 per ticket. A sale of 2 of those
	// seats costs 100 regardless of what the platform reported per sale.
	purchase := &Purchase{ID: 7, TotalPrice: decimal.NewFromInt(200), Quantity: 4}
	listing := &Listing{ID: 3, TicketGroupId: 900, PurchaseId: intPtr(7)}

	posCost := decimal.NewFromInt(999)
	day := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	sales := []*Sale{
		{
			ID: 1, TicketGroupId: 900, OrderId: "ORD-1",
			Quantity: 2, Status: SaleStatusCompleted,
			SaleDate: &day, ListingId: intPtr(3),
			Cost: &posCost,
		},
	}
	invoices := []*Invoice{
		{InvoiceNumber: "INV-1", TotalAmount: decimal.NewFromInt(500), Status: InvoiceStatusPaid},
		{InvoiceNumber: "INV-2", TotalAmount: decimal.NewFromInt(250), Status: InvoiceStatusCancelled},
	}

	stats := ComputeSalesStats(
		sales, invoices,
		map[int]*Listing{3: listing},
		map[int]*Purchase{7: purchase},
		map[string]*Purchase{},
	)

	if !stats.TotalRevenue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("revenue expected 500, got %s (cancelled invoices must not count)", stats.TotalRevenue)
	}
	if !stats.TotalCost.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cost expected 100, got %s", stats.TotalCost)
	}
	if !stats.TotalProfit.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("profit expected 400, got %s", stats.TotalProfit)
	}
	if stats.DaysWithSales != 1 {
		t.Fatalf("expected 1 sale day, got %d", stats.DaysWithSales)
	}
	if !stats.AvgProfitPerDay.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("avg profit per day expected 400, got %s", stats.AvgProfitPerDay)
	}
	if stats.CompletedSales != 1 || stats.PendingSales != 0 {
		t.Fatalf("status counts wrong: %+v", stats)
	}
}

func TestComputeSalesStatsFallsBackToPoNumber(t *testing.T) {
	purchase := &Purchase{ID: 9, TotalPrice: decimal.NewFromInt(300), Quantity: 3, DashboardPoNumber: strPtr("PO-77")}
	sales := []*Sale{
		{ID: 1, TicketGroupId: 901, OrderId: "ORD-2", Quantity: 3, Status: SaleStatusPending, ExtPONumber: strPtr("PO-77")},
	}

	stats := ComputeSalesStats(sales, nil, nil, nil, map[string]*Purchase{"PO-77": purchase})
	if !stats.TotalCost.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("cost expected 300 via PO fallback, got %s", stats.TotalCost)
	}
}

func TestComputeSalesStatsUncostableSaleContributesNothing(t *testing.T) {
	sales := []*Sale{
		{ID: 1, TicketGroupId: 902, OrderId: "ORD-3", Quantity: 2, Status: SaleStatusPending},
	}
	stats := ComputeSalesStats(sales, nil, nil, nil, nil)
	if !stats.TotalCost.IsZero() {
		t.Fatalf("cost expected 0 for an unlinkable sale, got %s", stats.TotalCost)
	}
	if stats.TotalSales != 1 {
		t.Fatalf("sale should still be counted, got %d", stats.TotalSales)
	}
}

func TestComputeSalesStatsAveragesAcrossDistinctDays(t *testing.T) {
	day1 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	day1Later := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	sales := []*Sale{
		{ID: 1, OrderId: "A", Status: SaleStatusCompleted, SaleDate: &day1},
		{ID: 2, OrderId: "B", Status: SaleStatusCompleted, SaleDate: &day1Later},
		{ID: 3, OrderId: "C", Status: SaleStatusCompleted, SaleDate: &day2},
	}
	invoices := []*Invoice{
		{InvoiceNumber: "INV-3", TotalAmount: decimal.NewFromInt(900), Status: InvoiceStatusOpen},
	}

	stats := ComputeSalesStats(sales, invoices, nil, nil, nil)
	if stats.DaysWithSales != 2 {
		t.Fatalf("expected 2 distinct sale days, got %d", stats.DaysWithSales)
	}
	if !stats.AvgProfitPerDay.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("avg profit per day expected 450, got %s", stats.AvgProfitPerDay)
	}
}
