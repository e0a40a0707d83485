package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
	"github.com/username/etfolio/backend/src/processors"
)

type analyzerServiceImpl struct {
	snapshotPath string
	parser       *twse.Parser
	datasetCache *cache.Cache
}

// NewAnalyzerService creates an analyzer over the snapshot file at the given
// path. The classified dataset is cached keyed by the snapshot's modification
// time, so a republished snapshot (rename over the old file) is picked up on
// the next query and reclassified from scratch.
func NewAnalyzerService(snapshotPath string, datasetCache *cache.Cache) AnalyzerService {
	return &analyzerServiceImpl{
		snapshotPath: snapshotPath,
		parser:       twse.NewParser(),
		datasetCache: datasetCache,
	}
}

func (s *analyzerServiceImpl) Dataset() (*models.Dataset, error) {
	info, err := os.Stat(s.snapshotPath)
	if err != nil {
		logger.L.Warn("Snapshot not readable, analyzer in no-data state", "path", s.snapshotPath, "error", err)
		return nil, ErrNoData
	}

	cacheKey := fmt.Sprintf("dataset:%s:%d", s.snapshotPath, info.ModTime().UnixNano())
	if cached, found := s.datasetCache.Get(cacheKey); found {
		return cached.(*models.Dataset), nil
	}

	f, err := os.Open(s.snapshotPath)
	if err != nil {
		logger.L.Warn("Snapshot not readable, analyzer in no-data state", "path", s.snapshotPath, "error", err)
		return nil, ErrNoData
	}
	defer f.Close()

	parsed, err := s.parser.Parse(f)
	if err != nil {
		logger.L.Error("Snapshot load failed, analyzer in no-data state", "path", s.snapshotPath, "error", err)
		return nil, ErrNoData
	}

	dataset := processors.ClassifyDividends(parsed)
	s.datasetCache.Set(cacheKey, dataset, DefaultCacheExpiration)
	logger.L.Info("Snapshot loaded and classified",
		"path", s.snapshotPath, "etfs", len(dataset.ETFs), "quotes", len(dataset.Quotes),
		"hasAmounts", dataset.HasAmounts())
	return dataset, nil
}

func (s *analyzerServiceImpl) FrequencyGroups() map[models.FrequencyLabel][]string {
	dataset, err := s.Dataset()
	if err != nil {
		return map[models.FrequencyLabel][]string{}
	}
	return processors.FrequencyGroups(dataset)
}

func (s *analyzerServiceImpl) AllCodes() []string {
	dataset, err := s.Dataset()
	if err != nil {
		return []string{}
	}
	return processors.CommonCodes(dataset)
}

func (s *analyzerServiceImpl) Search(keyword string) []string {
	codes := s.AllCodes()
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	if keyword == "" {
		return codes
	}
	matched := make([]string, 0, len(codes))
	for _, code := range codes {
		if strings.Contains(code, keyword) ||
			strings.Contains(strings.ToUpper(s.Name(code)), keyword) {
			matched = append(matched, code)
		}
	}
	sort.Strings(matched)
	return matched
}

func (s *analyzerServiceImpl) ETF(code string) (*models.ClassifiedETF, bool) {
	dataset, err := s.Dataset()
	if err != nil {
		return nil, false
	}
	etf, ok := dataset.ETFs[twse.NormalizeCode(code)]
	return etf, ok
}

func (s *analyzerServiceImpl) Price(code string) (float64, bool) {
	dataset, err := s.Dataset()
	if err != nil {
		return 0, false
	}
	quote, ok := dataset.Quotes[twse.NormalizeCode(code)]
	if !ok {
		return 0, false
	}
	return quote.ClosePrice, true
}

func (s *analyzerServiceImpl) Name(code string) string {
	code = twse.NormalizeCode(code)
	if dataset, err := s.Dataset(); err == nil {
		if quote, ok := dataset.Quotes[code]; ok && quote.Name != "" {
			return quote.Name
		}
		if etf, ok := dataset.ETFs[code]; ok && etf.Name != "" {
			return etf.Name
		}
	}
	return "ETF " + code
}

func (s *analyzerServiceImpl) Summarize(portfolio models.Portfolio) *models.PortfolioSummary {
	dataset, err := s.Dataset()
	if err != nil {
		return processors.Aggregate(nil, portfolio)
	}
	return processors.Aggregate(dataset, portfolio)
}
