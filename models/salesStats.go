package models

import (
	"context"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"github.com/shopspring/decimal"
)

type SalesStats struct {
	TotalSales      int             `json:"totalSales"`
	PendingSales    int             `json:"pendingSales"`
	CompletedSales  int             `json:"completedSales"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	AvgProfitPerDay decimal.Decimal `json:"avgProfitPerDay"`
	DaysWithSales   int             `json:"daysWithSales"`
}

// ComputeSalesStats derives profit figures from prefetched rows.
//
// Revenue comes from invoices only — the net payout after platform fees.
// Cost walks every sale preferring the Sale -> Listing -> Purchase path
// (purchase cost-per-ticket times sold quantity); sales without that path
// fall back to their ext PO number. The POS-reported per-sale cost field
// is deliberately never consulted.
func ComputeSalesStats(sales []*Sale, invoices []*Invoice, listings map[int]*Listing, purchases map[int]*Purchase, purchasesByPo map[string]*Purchase) SalesStats {
	stats := SalesStats{
		TotalRevenue:    decimal.Zero,
		TotalCost:       decimal.Zero,
		TotalProfit:     decimal.Zero,
		AvgProfitPerDay: decimal.Zero,
	}

	for _, invoice := range invoices {
		if invoice.Status == InvoiceStatusCancelled {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(invoice.TotalAmount)
	}

	saleDays := make(map[string]bool)
	for _, sale := range sales {
		stats.TotalSales++
		switch sale.Status {
		case SaleStatusPending:
			stats.PendingSales++
		case SaleStatusCompleted:
			stats.CompletedSales++
		}
		if sale.SaleDate != nil {
			saleDays[sale.SaleDate.Format("2006-01-02")] = true
		}

		purchase := resolveSalePurchase(sale, listings, purchases, purchasesByPo)
		if purchase == nil {
			continue
		}
		cost := purchase.CostPerTicket().Mul(decimal.NewFromInt(int64(sale.Quantity)))
		stats.TotalCost = stats.TotalCost.Add(cost)
	}

	stats.TotalProfit = stats.TotalRevenue.Sub(stats.TotalCost)
	stats.DaysWithSales = len(saleDays)

	days := stats.DaysWithSales
	if days < 1 {
		days = 1
	}
	stats.AvgProfitPerDay = stats.TotalProfit.Div(decimal.NewFromInt(int64(days)))
	return stats
}

func resolveSalePurchase(sale *Sale, listings map[int]*Listing, purchases map[int]*Purchase, purchasesByPo map[string]*Purchase) *Purchase {
	if sale.ListingId != nil {
		if listing := listings[*sale.ListingId]; listing != nil && listing.PurchaseId != nil {
			if purchase := purchases[*listing.PurchaseId]; purchase != nil {
				return purchase
			}
		}
	}
	if sale.ExtPONumber != nil {
		return purchasesByPo[*sale.ExtPONumber]
	}
	return nil
}

// GetSalesStats loads everything the aggregation needs in a handful of
// set-based queries. Sales that cannot be costed through their listing are
// batch-resolved through one PO-number query rather than per-row lookups.
func GetSalesStats(ctx context.Context) (*SalesStats, error) {
	db := config.GetDB()

	sales, err := GetAllSales(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := GetActiveInvoices(ctx)
	if err != nil {
		return nil, err
	}

	listingIds := make([]int, 0, len(sales))
	for _, sale := range sales {
		if sale.ListingId != nil {
			listingIds = append(listingIds, *sale.ListingId)
		}
	}
	listings := make(map[int]*Listing)
	if len(listingIds) > 0 {
		var rows []*Listing
		if err := db.WithContext(ctx).Where("id IN ?", listingIds).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, listing := range rows {
			listings[listing.ID] = listing
		}
	}

	purchaseIds := make([]int, 0, len(listings))
	for _, listing := range listings {
		if listing.PurchaseId != nil {
			purchaseIds = append(purchaseIds, *listing.PurchaseId)
		}
	}
	purchases := make(map[int]*Purchase)
	if len(purchaseIds) > 0 {
		var rows []*Purchase
		if err := db.WithContext(ctx).Where("id IN ?", purchaseIds).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, purchase := range rows {
			purchases[purchase.ID] = purchase
		}
	}

	// PO numbers for the sales that could not be costed via their listing.
	poNumbers := make([]string, 0)
	for _, sale := range sales {
		if resolveSalePurchase(sale, listings, purchases, nil) != nil {
			continue
		}
		if sale.ExtPONumber != nil {
			poNumbers = append(poNumbers, *sale.ExtPONumber)
		}
	}
	purchasesByPo, err := GetPurchasesByPoNumbers(ctx, poNumbers)
	if err != nil {
		return nil, err
	}

	stats := ComputeSalesStats(sales, invoices, listings, purchases, purchasesByPo)
	return &stats, nil
}
