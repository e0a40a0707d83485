package models

// SharesPerLot is the scaling factor between the thousand-share lots the UI
// works in and the whole-share quantities the aggregation runs on.
const SharesPerLot = 1000

// Portfolio maps canonical ETF code -> whole-share quantity.
// Quantities are non-negative; zero entries are pruned before aggregation.
type Portfolio map[string]int

// Prune returns a copy with zero and negative quantities removed.
func (p Portfolio) Prune() Portfolio {
	out := make(Portfolio, len(p))
	for code, qty := range p {
		if qty > 0 {
			out[code] = qty
		}
	}
	return out
}

// PortfolioPosition is the per-ETF breakdown of an aggregated portfolio.
// A position with no resolvable price is reported with HasPrice=false and
// excluded from cost totals.
type PortfolioPosition struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	Label      FrequencyLabel `json:"frequency_label"`
	Quantity   int            `json:"quantity"`
	Lots       float64        `json:"lots"` // quantity / 1000
	ClosePrice float64        `json:"close_price"`
	Cost       float64        `json:"cost"`
	HasPrice   bool           `json:"has_price"`
}

// PortfolioSummary is the full aggregation result for one portfolio against
// one dataset snapshot.
type PortfolioSummary struct {
	Positions       []PortfolioPosition   `json:"positions"`
	TotalCost       float64               `json:"total_cost"`
	AnnualDividends float64               `json:"annual_dividends"`
	MonthlyAverage  float64               `json:"monthly_average"`
	Yield           float64               `json:"yield"` // percent; 0 when TotalCost is 0
	Monthly         *MonthlyDividendTable `json:"monthly,omitempty"`
}
