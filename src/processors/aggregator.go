package processors

import (
	"sort"

	"github.com/username/etfolio/backend/src/models"
)

// Aggregate computes the full portfolio summary against one dataset snapshot:
// per-position cost, total cost, the month x code dividend table, annual and
// average dividends, and the portfolio yield.
//
// Positions whose price cannot be resolved are reported with HasPrice=false
// and excluded from cost and yield totals; a missing price is a valid unknown
// state, not an error. The result is deterministic for a given snapshot and
// portfolio regardless of map iteration order.
func Aggregate(dataset *models.Dataset, portfolio models.Portfolio) *models.PortfolioSummary {
	summary := &models.PortfolioSummary{Positions: []models.PortfolioPosition{}}
	if dataset == nil {
		return summary
	}

	held := portfolio.Prune()
	codes := make([]string, 0, len(held))
	for code := range held {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		qty := held[code]
		position := models.PortfolioPosition{
			Code:     code,
			Quantity: qty,
			Lots:     float64(qty) / models.SharesPerLot,
		}
		if etf, ok := dataset.ETFs[code]; ok {
			position.Name = etf.Name
			position.Label = etf.Label
		}
		if quote, ok := dataset.Quotes[code]; ok {
			position.HasPrice = true
			position.ClosePrice = quote.ClosePrice
			position.Cost = quote.ClosePrice * float64(qty)
			summary.TotalCost += position.Cost
			if position.Name == "" {
				position.Name = quote.Name
			}
		}
		summary.Positions = append(summary.Positions, position)
	}

	// Dividend amounts require the per-unit amount column; with a schema
	// error on the snapshot the monthly table is omitted entirely.
	if dataset.HasAmounts() {
		table := models.NewMonthlyDividendTable(codes)
		for _, code := range codes {
			etf, ok := dataset.ETFs[code]
			if !ok {
				continue
			}
			scale := float64(held[code]) / models.SharesPerLot
			for _, event := range etf.Events {
				table.Add(event.Month(), code, event.AmountPer1000Units*scale)
			}
		}
		summary.Monthly = table
		summary.AnnualDividends = table.AnnualTotal()
		summary.MonthlyAverage = table.MonthlyAverage()
	}

	if summary.TotalCost > 0 {
		summary.Yield = summary.AnnualDividends / summary.TotalCost * 100
	}

	return summary
}

// Cost computes the cost of one holding: close price x quantity. The second
// return is false when no price is resolvable for the code.
func Cost(dataset *models.Dataset, code string, qty int) (float64, bool) {
	if dataset == nil {
		return 0, false
	}
	quote, ok := dataset.Quotes[code]
	if !ok {
		return 0, false
	}
	return quote.ClosePrice * float64(qty), true
}
