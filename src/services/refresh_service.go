package services

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/model"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
)

// RefreshService rebuilds the snapshot from the external market source once a
// day. Each cycle fetches every configured instrument, stages results in
// sqlite, and publishes a fresh snapshot CSV by temp-file + rename, so readers
// never observe a partial write.
type RefreshService struct {
	db           *sql.DB
	market       MarketService
	snapshotPath string
	instruments  []string
	cron         *cron.Cron
}

// NewRefreshService wires a refresh job over the staging DB, the market
// client, and the snapshot path.
func NewRefreshService(db *sql.DB, market MarketService, snapshotPath string, instruments []string) *RefreshService {
	return &RefreshService{
		db:           db,
		market:       market,
		snapshotPath: snapshotPath,
		instruments:  instruments,
		cron:         cron.New(cron.WithSeconds()),
	}
}

// Schedule registers the daily refresh and starts the scheduler.
func (s *RefreshService) Schedule(cronSpec string) error {
	if _, err := s.cron.AddFunc(cronSpec, func() {
		s.Run(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	logger.L.Info("Refresh scheduler started", "cron", cronSpec)
	return nil
}

// Stop stops the scheduler. A refresh already in flight finishes on its own;
// the job defines no cancellation semantics.
func (s *RefreshService) Stop() {
	s.cron.Stop()
	logger.L.Info("Refresh scheduler stopped")
}

// Run executes one refresh cycle. A fetch failure for one instrument is
// logged and skipped, never aborting the batch. If the entire batch yields no
// data and no snapshot exists yet, the embedded fallback dataset is published
// so the analyzer has something to serve.
func (s *RefreshService) Run(ctx context.Context) {
	logger.L.Info("Refresh cycle starting", "instruments", len(s.instruments))
	started := time.Now()

	var okCount, failedCount int
	for _, raw := range s.instruments {
		code := twse.NormalizeCode(raw)
		instrument, err := s.market.FetchInstrument(ctx, code)
		if err != nil {
			failedCount++
			logger.L.Warn("Instrument fetch failed, skipping", "code", code, "error", err)
			continue
		}
		if err := s.stage(instrument); err != nil {
			failedCount++
			logger.L.Error("Failed to stage instrument data", "code", code, "error", err)
			continue
		}
		okCount++
	}

	if _, err := model.RecordRefresh(s.db, okCount, failedCount); err != nil {
		logger.L.Error("Failed to record refresh log", "error", err)
	}

	if okCount == 0 {
		logger.L.Error("Refresh cycle fetched no data", "failed", failedCount)
		if _, err := os.Stat(s.snapshotPath); os.IsNotExist(err) {
			logger.L.Warn("No existing snapshot, publishing embedded fallback dataset")
			if err := twse.WriteSnapshot(s.snapshotPath, fallbackSnapshotRows()); err != nil {
				logger.L.Error("Failed to publish fallback snapshot", "error", err)
			}
		}
		return
	}

	// Keep the staging store to the trailing window the classifier uses.
	cutoff := time.Now().AddDate(-1, 0, -7).Format("2006-01-02")
	if err := model.DeleteDividendEventsBefore(s.db, cutoff); err != nil {
		logger.L.Warn("Failed to prune old dividend events", "error", err)
	}

	if err := s.publish(); err != nil {
		logger.L.Error("Failed to publish snapshot", "error", err)
		return
	}

	logger.L.Info("Refresh cycle finished",
		"ok", okCount, "failed", failedCount, "took", time.Since(started).String())
}

// stage upserts one instrument's quote and dividend events into sqlite.
func (s *RefreshService) stage(instrument *InstrumentData) error {
	quote := model.QuoteRow{
		Code:       instrument.Code,
		Name:       instrument.Name,
		ClosePrice: instrument.ClosePrice,
		AsOf:       instrument.AsOf.Format("2006-01-02"),
	}
	if err := model.UpsertQuote(s.db, quote); err != nil {
		return err
	}
	for _, div := range instrument.Dividends {
		event := model.DividendEventRow{
			Code:          instrument.Code,
			ExDate:        div.ExDate.Format("2006-01-02"),
			AmountPerUnit: div.Amount,
		}
		if err := model.UpsertDividendEvent(s.db, event); err != nil {
			return err
		}
	}
	return nil
}

// publish exports the staged tables as a new snapshot file.
func (s *RefreshService) publish() error {
	quotes, err := model.GetAllQuotes(s.db)
	if err != nil {
		return err
	}

	var rows []twse.SnapshotRow
	for code, quote := range quotes {
		events, err := model.GetDividendEventsByCode(s.db, code)
		if err != nil {
			return err
		}
		for _, e := range events {
			exDate, err := time.Parse("2006-01-02", e.ExDate)
			if err != nil {
				continue
			}
			rows = append(rows, twse.SnapshotRow{
				Event: models.DividendEvent{
					Code:          code,
					Name:          quote.Name,
					ExDate:        exDate,
					AmountPerUnit: e.AmountPerUnit,
				},
				Close: quote.ClosePrice,
			})
		}
	}

	return twse.WriteSnapshot(s.snapshotPath, rows)
}

// LastRefresh returns the time of the most recent completed cycle.
func (s *RefreshService) LastRefresh() time.Time {
	t, err := model.LastRefreshTime(s.db)
	if err != nil {
		logger.L.Warn("Failed to read last refresh time", "error", err)
		return time.Time{}
	}
	return t
}
