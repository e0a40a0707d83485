package services

import (
	"time"

	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
)

// fallbackInstrument is one entry of the embedded sample dataset: the close
// price plus the ex-dividend months and per-unit amounts of the trailing year.
type fallbackInstrument struct {
	code    string
	name    string
	close   float64
	events  []int // ex-dividend months, 1..12
	amounts []float64
}

// fallbackData is a fixed sample of well-known Taiwan dividend ETFs, used only
// when the market source is entirely unreachable and no snapshot exists yet.
var fallbackData = []fallbackInstrument{
	{"00050", "Yuanta Taiwan Top 50", 182.50, []int{1, 7}, []float64{3.00, 1.90}},
	{"00056", "Yuanta Taiwan High Dividend", 38.12, []int{1, 4, 7, 10}, []float64{0.70, 0.66, 1.07, 0.66}},
	{"00713", "Yuanta Taiwan High Div Low Vol", 51.85, []int{3, 6, 9, 12}, []float64{0.88, 0.87, 0.90, 0.75}},
	{"00878", "Cathay MSCI Taiwan ESG High Div", 22.97, []int{2, 5, 8, 11}, []float64{0.40, 0.51, 0.55, 0.40}},
	{"00929", "FT Taiwan Technology Dividend", 19.36,
		[]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		[]float64{0.11, 0.11, 0.11, 0.12, 0.12, 0.12, 0.12, 0.12, 0.13, 0.13, 0.12, 0.10}},
	{"00679B", "Yuanta US Treasury 20+ Yr Bond", 29.81, []int{2, 5, 8, 11}, []float64{0.27, 0.30, 0.31, 0.30}},
}

// fallbackSnapshotRows renders the sample dataset as snapshot rows. Event
// dates land on the 15th of each listed month of the previous year so a fresh
// deployment still classifies sensibly.
func fallbackSnapshotRows() []twse.SnapshotRow {
	year := time.Now().Year() - 1
	var rows []twse.SnapshotRow
	for _, inst := range fallbackData {
		for i, month := range inst.events {
			rows = append(rows, twse.SnapshotRow{
				Event: models.DividendEvent{
					Code:          inst.code,
					Name:          inst.name,
					ExDate:        time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
					AmountPerUnit: inst.amounts[i],
				},
				Close: inst.close,
			})
		}
	}
	return rows
}
