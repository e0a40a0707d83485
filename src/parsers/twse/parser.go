package twse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
)

// Snapshot column errors.
var (
	// ErrMissingAmountColumn is the schema error raised when the per-unit
	// dividend amount column is absent. Events still parse; amount-dependent
	// fields are omitted downstream.
	ErrMissingAmountColumn = errors.New("twse: snapshot missing per-unit amount column")
	ErrMissingColumns      = errors.New("twse: snapshot missing required columns")
)

// codeWidth is the exchange's fixed-width ticker convention.
const codeWidth = 5

// Header aliases. Snapshots written by the refresh job use the English names;
// legacy TWSE exports carry the Chinese ones.
var headerAliases = map[string]string{
	"code":             "code",
	"股票代號":             "code",
	"name":             "name",
	"股票名稱":             "name",
	"close_price":      "close_price",
	"收盤價":              "close_price",
	"ex_dividend_date": "ex_date",
	"除息日":              "ex_date",
	"amount_per_unit":  "amount",
	"每單位配發金額(元)":       "amount",
}

// rawRow holds the direct string values from a single snapshot row.
type rawRow struct {
	Code, Name, ClosePrice, ExDate, Amount string
}

// ParseResult is the normalized, un-classified content of one snapshot.
type ParseResult struct {
	// Events are the normalized dividend events (rows with a valid ex-date).
	Events []models.DividendEvent
	// Quotes are the latest-price rows (rows with a valid positive close), one per code.
	Quotes map[string]models.PriceQuote
	// SchemaErr is ErrMissingAmountColumn when the amount column was absent.
	SchemaErr error
}

// Parser reads dividend snapshot files.
type Parser struct{}

// NewParser creates a new snapshot parser.
func NewParser() *Parser {
	return &Parser{}
}

// NormalizeCode returns the canonical fixed-width form of an ETF ticker:
// trimmed, and left-padded with '0' to width 5 unless the code contains 'B'.
// Numeric-only tickers follow the exchange's 5-digit convention; bond and
// alternative codes containing 'B' keep their own shape.
func NormalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	if len(code) < codeWidth && !strings.Contains(code, "B") {
		code = strings.Repeat("0", codeWidth-len(code)) + code
	}
	return code
}

// coercePrice parses a close price, returning ok=false on failure.
func coercePrice(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// dateLayouts are the accepted ex-dividend date formats.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// coerceDate parses an ex-dividend date, returning ok=false on failure.
func coerceDate(raw string) (time.Time, bool) {
	cleaned := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse decodes and reads a whole snapshot file.
//
// Rows with an unparseable close price are dropped from the quote table; rows
// with an unparseable ex-date are dropped from the event table. Both drops are
// logged, not fatal. A missing amount column is reported once via SchemaErr.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("twse parser: read snapshot: %w", err)
	}

	text, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("twse parser: failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if canonical, ok := headerAliases[strings.TrimSpace(h)]; ok {
			cols[canonical] = i
		}
	}
	for _, required := range []string{"code", "close_price", "ex_date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, required)
		}
	}

	result := &ParseResult{Quotes: make(map[string]models.PriceQuote)}
	amountIdx, hasAmount := cols["amount"]
	if !hasAmount {
		result.SchemaErr = ErrMissingAmountColumn
		logger.L.Error("Snapshot schema error: per-unit amount column missing, dividend amounts will be omitted")
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("twse parser: failed to read all CSV records: %w", err)
	}

	field := func(record []string, idx int) string {
		if idx < len(record) {
			return record[idx]
		}
		return ""
	}

	var droppedQuotes, droppedEvents int
	for _, record := range records {
		row := rawRow{
			Code:       field(record, cols["code"]),
			ClosePrice: field(record, cols["close_price"]),
			ExDate:     field(record, cols["ex_date"]),
		}
		if idx, ok := cols["name"]; ok {
			row.Name = field(record, idx)
		}
		if hasAmount {
			row.Amount = field(record, amountIdx)
		}

		if strings.TrimSpace(row.Code) == "" {
			continue
		}
		code := NormalizeCode(row.Code)
		name := strings.TrimSpace(row.Name)

		// Price table: one latest quote per code, drop on bad price.
		if price, ok := coercePrice(row.ClosePrice); ok && price > 0 {
			result.Quotes[code] = models.PriceQuote{Code: code, Name: name, ClosePrice: price}
		} else {
			droppedQuotes++
		}

		// Dividend table: drop on bad date.
		exDate, ok := coerceDate(row.ExDate)
		if !ok {
			droppedEvents++
			continue
		}

		event := models.DividendEvent{Code: code, Name: name, ExDate: exDate}
		if hasAmount {
			if amount, ok := coercePrice(row.Amount); ok && amount >= 0 {
				event.AmountPerUnit = amount
			}
		}
		result.Events = append(result.Events, event)
	}

	if droppedQuotes > 0 || droppedEvents > 0 {
		logger.L.Warn("Snapshot rows dropped during normalization",
			"badPrices", droppedQuotes, "badDates", droppedEvents)
	}

	return result, nil
}
