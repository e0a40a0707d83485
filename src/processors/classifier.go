package processors

import (
	"sort"
	"time"

	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
)

// quarterly month patterns keyed by the month of the first payout in the year.
var quarterlyPatterns = map[models.FrequencyLabel][4]int{
	models.FrequencyQuarterlyJan: {1, 4, 7, 10},
	models.FrequencyQuarterlyFeb: {2, 5, 8, 11},
	models.FrequencyQuarterlyMar: {3, 6, 9, 12},
}

// ClassifyFrequency derives a frequency label from the event count and the
// set of distinct calendar months present. It is a pure function of those two
// values: permuting the events never changes the result.
//
// Four-event ETFs whose months match none of the three canonical quarterly
// patterns fall through to IRREGULAR.
func ClassifyFrequency(events []models.DividendEvent) models.FrequencyLabel {
	count := len(events)

	switch {
	case count >= 12:
		return models.FrequencyMonthly
	case count == 4:
		months := distinctMonths(events)
		if len(months) != 4 {
			return models.FrequencyIrregular
		}
		for label, pattern := range quarterlyPatterns {
			if months[0] == pattern[0] && months[1] == pattern[1] &&
				months[2] == pattern[2] && months[3] == pattern[3] {
				return label
			}
		}
		return models.FrequencyIrregular
	case count == 2:
		return models.FrequencySemiannual
	case count == 1:
		return models.FrequencyAnnual
	default:
		return models.FrequencyIrregular
	}
}

// distinctMonths returns the sorted set of distinct calendar months present.
func distinctMonths(events []models.DividendEvent) []int {
	seen := make(map[int]bool, 12)
	for _, e := range events {
		seen[e.Month()] = true
	}
	months := make([]int, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

// ClassifyDividends groups a parsed snapshot by canonical code and builds the
// classified dataset: per-ETF frequency label, date-ordered events, and the
// derived per-1000-unit amount on every event. The whole dataset is recomputed
// on each call; nothing is updated incrementally.
func ClassifyDividends(parsed *twse.ParseResult) *models.Dataset {
	dataset := &models.Dataset{
		ETFs:      make(map[string]*models.ClassifiedETF),
		Quotes:    parsed.Quotes,
		SchemaErr: parsed.SchemaErr,
		LoadedAt:  time.Now(),
	}

	grouped := make(map[string][]models.DividendEvent)
	for _, event := range parsed.Events {
		if parsed.SchemaErr == nil {
			event.AmountPer1000Units = event.AmountPerUnit * 1000
		}
		grouped[event.Code] = append(grouped[event.Code], event)
	}

	for code, events := range grouped {
		sort.Slice(events, func(i, j int) bool {
			return events[i].ExDate.Before(events[j].ExDate)
		})
		name := events[0].Name
		if quote, ok := parsed.Quotes[code]; ok && quote.Name != "" {
			name = quote.Name
		}
		dataset.ETFs[code] = &models.ClassifiedETF{
			Code:   code,
			Name:   name,
			Label:  ClassifyFrequency(events),
			Events: events,
		}
	}

	return dataset
}

// FrequencyGroups lists ETF codes grouped by frequency label, alphabetically
// sorted within each label.
func FrequencyGroups(dataset *models.Dataset) map[models.FrequencyLabel][]string {
	groups := make(map[models.FrequencyLabel][]string)
	for code, etf := range dataset.ETFs {
		groups[etf.Label] = append(groups[etf.Label], code)
	}
	for _, codes := range groups {
		sort.Strings(codes)
	}
	return groups
}

// CommonCodes returns the codes present in both the price and dividend
// tables, ascending.
func CommonCodes(dataset *models.Dataset) []string {
	var codes []string
	for code := range dataset.ETFs {
		if _, ok := dataset.Quotes[code]; ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}
