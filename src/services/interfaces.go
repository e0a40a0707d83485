package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/etfolio/backend/src/models"
)

// Cache TTLs for the classified-dataset cache.
const (
	DefaultCacheExpiration = 10 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// ErrNoData means no snapshot is loadable: the analyzer is in its no-data
// state and every query degrades to an empty result.
var ErrNoData = errors.New("services: no dataset available")

// AnalyzerService exposes the classification and aggregation queries over the
// current snapshot. All methods are safe to call in the no-data state.
type AnalyzerService interface {
	// Dataset returns the classified dataset for the latest published
	// snapshot, or ErrNoData when none can be loaded.
	Dataset() (*models.Dataset, error)
	// FrequencyGroups lists codes grouped by label, sorted within each label.
	FrequencyGroups() map[models.FrequencyLabel][]string
	// AllCodes lists codes present in both price and dividend tables, ascending.
	AllCodes() []string
	// Search filters AllCodes by a case-insensitive code/name substring.
	Search(keyword string) []string
	// ETF returns the classified ETF for a canonical or raw code.
	ETF(code string) (*models.ClassifiedETF, bool)
	// Price returns the latest close for a code; false on a lookup miss.
	Price(code string) (float64, bool)
	// Name returns the display name, falling back to "ETF <code>".
	Name(code string) string
	// Summarize aggregates a portfolio against the current dataset.
	Summarize(portfolio models.Portfolio) *models.PortfolioSummary
}

// InstrumentDividend is one dividend event reported by the market source.
type InstrumentDividend struct {
	ExDate time.Time
	Amount float64
}

// InstrumentData is what the market source returns for one instrument.
type InstrumentData struct {
	Code       string
	Name       string
	ClosePrice float64
	AsOf       time.Time
	Dividends  []InstrumentDividend // trailing 12 months
}

// MarketService fetches instrument data from the external market source.
type MarketService interface {
	FetchInstrument(ctx context.Context, code string) (*InstrumentData, error)
}
