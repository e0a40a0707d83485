package models

import (
	"encoding/json"
	"sort"
)

// MonthlyDividendTable is an ordered month x code table of scaled dividend
// amounts. Months run 1..12 ascending, codes are alphabetic, absent cells are
// zero, so iteration order and JSON output are deterministic.
type MonthlyDividendTable struct {
	Codes  []string               `json:"codes"`
	Rows   [12]map[string]float64 `json:"-"`
	Totals [12]float64            `json:"month_totals"` // row sums, index 0 = January
}

// NewMonthlyDividendTable builds an empty table over the given codes.
func NewMonthlyDividendTable(codes []string) *MonthlyDividendTable {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	t := &MonthlyDividendTable{Codes: sorted}
	for m := range t.Rows {
		t.Rows[m] = make(map[string]float64, len(sorted))
		for _, code := range sorted {
			t.Rows[m][code] = 0
		}
	}
	return t
}

// Add accumulates an amount into the (month, code) cell. Months outside 1..12
// and codes outside the table are ignored.
func (t *MonthlyDividendTable) Add(month int, code string, amount float64) {
	if month < 1 || month > 12 {
		return
	}
	if _, ok := t.Rows[month-1][code]; !ok {
		return
	}
	t.Rows[month-1][code] += amount
	t.Totals[month-1] += amount
}

// Cell returns the amount for (month 1..12, code).
func (t *MonthlyDividendTable) Cell(month int, code string) float64 {
	if month < 1 || month > 12 {
		return 0
	}
	return t.Rows[month-1][code]
}

// MonthTotal returns the row sum for a month (1..12).
func (t *MonthlyDividendTable) MonthTotal(month int) float64 {
	if month < 1 || month > 12 {
		return 0
	}
	return t.Totals[month-1]
}

// AnnualTotal is the sum over all months.
func (t *MonthlyDividendTable) AnnualTotal() float64 {
	var total float64
	for _, v := range t.Totals {
		total += v
	}
	return total
}

// MonthlyAverage is the annual total normalized over a fixed 12 months,
// regardless of how many months actually have payouts.
func (t *MonthlyDividendTable) MonthlyAverage() float64 {
	return t.AnnualTotal() / 12
}

// MarshalJSON serializes the full table, including per-month cell rows.
// encoding/json sorts map keys, so output is stable.
func (t *MonthlyDividendTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Codes          []string               `json:"codes"`
		Rows           [12]map[string]float64 `json:"rows"`
		MonthTotals    [12]float64            `json:"month_totals"`
		AnnualTotal    float64                `json:"annual_total"`
		MonthlyAverage float64                `json:"monthly_average"`
	}{
		Codes:          t.Codes,
		Rows:           t.Rows,
		MonthTotals:    t.Totals,
		AnnualTotal:    t.AnnualTotal(),
		MonthlyAverage: t.MonthlyAverage(),
	})
}

// CodeTotal returns the column sum for one code.
func (t *MonthlyDividendTable) CodeTotal(code string) float64 {
	var total float64
	for m := range t.Rows {
		total += t.Rows[m][code]
	}
	return total
}
