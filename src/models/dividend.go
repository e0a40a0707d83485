package models

import "time"

// FrequencyLabel classifies how often an ETF distributes dividends,
// derived from the historical event count and calendar-month pattern.
type FrequencyLabel string

const (
	FrequencyMonthly      FrequencyLabel = "MONTHLY"
	FrequencyQuarterlyJan FrequencyLabel = "QUARTERLY_JAN" // payouts in Jan/Apr/Jul/Oct
	FrequencyQuarterlyFeb FrequencyLabel = "QUARTERLY_FEB" // payouts in Feb/May/Aug/Nov
	FrequencyQuarterlyMar FrequencyLabel = "QUARTERLY_MAR" // payouts in Mar/Jun/Sep/Dec
	FrequencySemiannual   FrequencyLabel = "SEMIANNUAL"
	FrequencyAnnual       FrequencyLabel = "ANNUAL"
	FrequencyIrregular    FrequencyLabel = "IRREGULAR"
)

// DividendEvent is one normalized dividend payout record for an ETF.
// Immutable once normalized; many events per ETF.
type DividendEvent struct {
	Code               string    `json:"code"` // canonical form, see twse.NormalizeCode
	Name               string    `json:"name"`
	ExDate             time.Time `json:"ex_date"`
	AmountPerUnit      float64   `json:"amount_per_unit"`
	AmountPer1000Units float64   `json:"amount_per_1000_units"` // derived at classification time
}

// Month returns the calendar month (1..12) of the ex-dividend date.
func (e DividendEvent) Month() int {
	return int(e.ExDate.Month())
}

// PriceQuote is the latest close-price snapshot for an ETF.
type PriceQuote struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	ClosePrice float64 `json:"close_price"`
}

// ClassifiedETF carries an ETF's frequency label together with its
// date-ordered dividend events.
type ClassifiedETF struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Label  FrequencyLabel  `json:"frequency_label"`
	Events []DividendEvent `json:"events"`
}

// Dataset is one fully classified snapshot of the dividend and price tables.
// It is rebuilt wholesale on every load; nothing mutates it incrementally.
type Dataset struct {
	// ETFs maps canonical code -> classified ETF.
	ETFs map[string]*ClassifiedETF
	// Quotes maps canonical code -> latest price quote.
	Quotes map[string]PriceQuote
	// SchemaErr records a data-schema problem detected during load
	// (e.g. missing per-unit amount column). Dependent aggregation
	// fields are omitted when set; queries still work.
	SchemaErr error
	// LoadedAt is when this snapshot was parsed.
	LoadedAt time.Time
}

// HasAmounts reports whether per-unit amounts were present in the source.
func (d *Dataset) HasAmounts() bool {
	return d.SchemaErr == nil
}
