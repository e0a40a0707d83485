package processors

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
)

func eventsInMonths(code string, months ...int) []models.DividendEvent {
	events := make([]models.DividendEvent, 0, len(months))
	for _, m := range months {
		events = append(events, models.DividendEvent{
			Code:          code,
			ExDate:        time.Date(2024, time.Month(m), 15, 0, 0, 0, 0, time.UTC),
			AmountPerUnit: 0.5,
		})
	}
	return events
}

func TestClassifyFrequency(t *testing.T) {
	tests := []struct {
		name   string
		months []int
		want   models.FrequencyLabel
	}{
		{"single event", []int{6}, models.FrequencyAnnual},
		{"two events", []int{1, 7}, models.FrequencySemiannual},
		{"quarterly jan cycle", []int{1, 4, 7, 10}, models.FrequencyQuarterlyJan},
		{"quarterly feb cycle", []int{2, 5, 8, 11}, models.FrequencyQuarterlyFeb},
		{"quarterly mar cycle", []int{3, 6, 9, 12}, models.FrequencyQuarterlyMar},
		{"four events non-canonical", []int{1, 2, 3, 4}, models.FrequencyIrregular},
		{"twelve events", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, models.FrequencyMonthly},
		{"more than twelve", []int{1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, models.FrequencyMonthly},
		{"three events", []int{2, 6, 10}, models.FrequencyIrregular},
		{"no events", nil, models.FrequencyIrregular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFrequency(eventsInMonths("00878", tt.months...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyFrequencyOrderIndependent(t *testing.T) {
	events := eventsInMonths("0056", 1, 4, 7, 10)
	want := ClassifyFrequency(events)
	require.Equal(t, models.FrequencyQuarterlyJan, want)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(events), func(a, b int) {
			events[a], events[b] = events[b], events[a]
		})
		assert.Equal(t, want, ClassifyFrequency(events))
	}
}

func TestClassifyFrequencyDuplicateMonthsCountFourIsIrregular(t *testing.T) {
	// Four events but only three distinct months: not a canonical quarterly set.
	got := ClassifyFrequency(eventsInMonths("00713", 3, 3, 6, 9))
	assert.Equal(t, models.FrequencyIrregular, got)
}

func TestClassifyDividends(t *testing.T) {
	parsed := &twse.ParseResult{
		Events: append(eventsInMonths("00878", 2, 5, 8, 11), eventsInMonths("0050", 7, 1)...),
		Quotes: map[string]models.PriceQuote{
			"00878": {Code: "00878", Name: "Cathay ESG High Div", ClosePrice: 22.5},
		},
	}
	dataset := ClassifyDividends(parsed)

	require.Len(t, dataset.ETFs, 2)
	assert.Equal(t, models.FrequencyQuarterlyFeb, dataset.ETFs["00878"].Label)
	assert.Equal(t, models.FrequencySemiannual, dataset.ETFs["0050"].Label)

	// Name comes from the quote table when present.
	assert.Equal(t, "Cathay ESG High Div", dataset.ETFs["00878"].Name)

	// Events are date-ordered and carry the per-1000-unit amount.
	events := dataset.ETFs["0050"].Events
	require.Len(t, events, 2)
	assert.True(t, events[0].ExDate.Before(events[1].ExDate))
	for _, e := range events {
		assert.Equal(t, e.AmountPerUnit*1000, e.AmountPer1000Units)
	}
}

func TestClassifyDividendsSchemaErrorOmitsAmounts(t *testing.T) {
	parsed := &twse.ParseResult{
		Events:    eventsInMonths("0056", 1, 4, 7, 10),
		Quotes:    map[string]models.PriceQuote{},
		SchemaErr: twse.ErrMissingAmountColumn,
	}
	dataset := ClassifyDividends(parsed)

	assert.False(t, dataset.HasAmounts())
	// Classification still works without amounts.
	assert.Equal(t, models.FrequencyQuarterlyJan, dataset.ETFs["0056"].Label)
	for _, e := range dataset.ETFs["0056"].Events {
		assert.Zero(t, e.AmountPer1000Units)
	}
}

func TestFrequencyGroupsSortedWithinLabel(t *testing.T) {
	parsed := &twse.ParseResult{
		Events: append(append(
			eventsInMonths("00940", 6),
			eventsInMonths("00713", 9)...),
			eventsInMonths("0056", 3)...),
		Quotes: map[string]models.PriceQuote{},
	}
	groups := FrequencyGroups(ClassifyDividends(parsed))

	assert.Equal(t, []string{"0056", "00713", "00940"}, groups[models.FrequencyAnnual])
}

func TestCommonCodes(t *testing.T) {
	parsed := &twse.ParseResult{
		Events: append(eventsInMonths("0050", 1), eventsInMonths("00929", 2)...),
		Quotes: map[string]models.PriceQuote{
			"00929": {Code: "00929", ClosePrice: 19.4},
			"00878": {Code: "00878", ClosePrice: 22.5}, // price only, no events
		},
	}
	// Only 00929 is in both tables.
	assert.Equal(t, []string{"00929"}, CommonCodes(ClassifyDividends(parsed)))
}
