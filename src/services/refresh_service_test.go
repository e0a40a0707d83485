package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/etfolio/backend/src/parsers/twse"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE quotes (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    close_price REAL NOT NULL,
    as_of TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE dividend_events (
    code TEXT NOT NULL,
    ex_date TEXT NOT NULL,
    amount_per_unit REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (code, ex_date)
);
CREATE TABLE refresh_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ran_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    instruments_ok INTEGER NOT NULL,
    instruments_failed INTEGER NOT NULL
);`

func newStagingDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

// stubMarketService serves canned instrument data and errors keyed by code.
type stubMarketService struct {
	data map[string]*InstrumentData
	errs map[string]error
}

func (s *stubMarketService) FetchInstrument(_ context.Context, code string) (*InstrumentData, error) {
	if err, ok := s.errs[code]; ok {
		return nil, err
	}
	if d, ok := s.data[code]; ok {
		return d, nil
	}
	return nil, errors.New("not found")
}

func stubInstrument(code, name string, close float64, months ...int) *InstrumentData {
	d := &InstrumentData{
		Code:       code,
		Name:       name,
		ClosePrice: close,
		AsOf:       time.Now(),
	}
	year := time.Now().Year()
	for _, m := range months {
		d.Dividends = append(d.Dividends, InstrumentDividend{
			ExDate: time.Date(year, time.Month(m), 18, 0, 0, 0, 0, time.UTC),
			Amount: 0.4,
		})
	}
	return d
}

func parseSnapshot(t *testing.T, path string) *twse.ParseResult {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := twse.NewParser().Parse(f)
	require.NoError(t, err)
	return parsed
}

func TestRefreshRunPublishesSnapshot(t *testing.T) {
	db := newStagingDB(t)
	market := &stubMarketService{data: map[string]*InstrumentData{
		"00878": stubInstrument("00878", "Cathay ESG High Div", 23.5, 2, 5),
		"00929": stubInstrument("00929", "FT Taiwan Tech Div", 18.2, 3),
	}}
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	svc := NewRefreshService(db, market, path, []string{"878", "929"})

	svc.Run(context.Background())

	parsed := parseSnapshot(t, path)
	require.Len(t, parsed.Events, 3)
	assert.Equal(t, 23.5, parsed.Quotes["00878"].ClosePrice)
	assert.Equal(t, "FT Taiwan Tech Div", parsed.Quotes["00929"].Name)
	assert.False(t, svc.LastRefresh().IsZero())
}

func TestRefreshSkipsFailedInstruments(t *testing.T) {
	db := newStagingDB(t)
	market := &stubMarketService{
		data: map[string]*InstrumentData{
			"00878": stubInstrument("00878", "Cathay ESG High Div", 23.5, 2),
		},
		errs: map[string]error{"00929": errors.New("upstream 500")},
	}
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	svc := NewRefreshService(db, market, path, []string{"00878", "00929"})

	svc.Run(context.Background())

	parsed := parseSnapshot(t, path)
	assert.Contains(t, parsed.Quotes, "00878")
	assert.NotContains(t, parsed.Quotes, "00929")

	var ok, failed int
	require.NoError(t, db.QueryRow(
		`SELECT instruments_ok, instruments_failed FROM refresh_log ORDER BY id DESC LIMIT 1`).
		Scan(&ok, &failed))
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
}

func TestRefreshPublishesFallbackWhenBatchEmpty(t *testing.T) {
	db := newStagingDB(t)
	market := &stubMarketService{errs: map[string]error{
		"00878": errors.New("timeout"),
		"00929": errors.New("timeout"),
	}}
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	svc := NewRefreshService(db, market, path, []string{"00878", "00929"})

	svc.Run(context.Background())

	parsed := parseSnapshot(t, path)
	assert.Contains(t, parsed.Quotes, "00050")
	assert.NotEmpty(t, parsed.Events)
}

func TestRefreshKeepsExistingSnapshotWhenBatchEmpty(t *testing.T) {
	db := newStagingDB(t)
	market := &stubMarketService{errs: map[string]error{"00878": errors.New("timeout")}}
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	writeTestSnapshot(t, path, snapshotRowsForTest())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	svc := NewRefreshService(db, market, path, []string{"00878"})
	svc.Run(context.Background())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed cycle must not clobber the last good snapshot")
}

func TestRefreshPrunesStaleEvents(t *testing.T) {
	db := newStagingDB(t)
	stale := stubInstrument("00878", "Cathay ESG High Div", 23.5)
	stale.Dividends = []InstrumentDividend{
		{ExDate: time.Now().AddDate(-2, 0, 0), Amount: 0.3},
		{ExDate: time.Now().AddDate(0, -1, 0), Amount: 0.4},
	}
	market := &stubMarketService{data: map[string]*InstrumentData{"00878": stale}}
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	svc := NewRefreshService(db, market, path, []string{"00878"})

	svc.Run(context.Background())

	parsed := parseSnapshot(t, path)
	require.Len(t, parsed.Events, 1)
	assert.Equal(t, 0.4, parsed.Events[0].AmountPerUnit)
}
