package model

import (
	"database/sql"
	"time"
)

// QuoteRow represents a row in the quotes table: the latest snapshotted close
// price for one instrument.
type QuoteRow struct {
	Code       string
	Name       string
	ClosePrice float64
	AsOf       string // YYYY-MM-DD
	UpdatedAt  time.Time
}

// DividendEventRow represents a row in the dividend_events table.
type DividendEventRow struct {
	Code          string
	ExDate        string // YYYY-MM-DD
	AmountPerUnit float64
}

// UpsertQuote inserts or replaces the latest quote for an instrument.
func UpsertQuote(db *sql.DB, q QuoteRow) error {
	query := `
		INSERT INTO quotes (code, name, close_price, as_of, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			close_price = excluded.close_price,
			as_of = excluded.as_of,
			updated_at = excluded.updated_at;`
	_, err := db.Exec(query, q.Code, q.Name, q.ClosePrice, q.AsOf, time.Now())
	return err
}

// UpsertDividendEvent inserts or replaces a single dividend event.
func UpsertDividendEvent(db *sql.DB, e DividendEventRow) error {
	query := `
		INSERT INTO dividend_events (code, ex_date, amount_per_unit, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code, ex_date) DO UPDATE SET
			amount_per_unit = excluded.amount_per_unit,
			updated_at = excluded.updated_at;`
	_, err := db.Exec(query, e.Code, e.ExDate, e.AmountPerUnit, time.Now())
	return err
}

// DeleteDividendEventsBefore prunes events older than the given date so the
// staging store only carries the trailing window the classifier works on.
func DeleteDividendEventsBefore(db *sql.DB, date string) error {
	_, err := db.Exec(`DELETE FROM dividend_events WHERE ex_date < ?`, date)
	return err
}

// GetAllQuotes returns the full quote table keyed by code.
func GetAllQuotes(db *sql.DB) (map[string]QuoteRow, error) {
	rows, err := db.Query(`SELECT code, name, close_price, as_of, updated_at FROM quotes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make(map[string]QuoteRow)
	for rows.Next() {
		var q QuoteRow
		if err := rows.Scan(&q.Code, &q.Name, &q.ClosePrice, &q.AsOf, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quotes[q.Code] = q
	}
	return quotes, rows.Err()
}

// GetDividendEventsByCode returns all stored events for one instrument,
// oldest first.
func GetDividendEventsByCode(db *sql.DB, code string) ([]DividendEventRow, error) {
	rows, err := db.Query(
		`SELECT code, ex_date, amount_per_unit FROM dividend_events WHERE code = ? ORDER BY ex_date ASC`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []DividendEventRow
	for rows.Next() {
		var e DividendEventRow
		if err := rows.Scan(&e.Code, &e.ExDate, &e.AmountPerUnit); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecordRefresh appends a refresh_log entry and returns its id.
func RecordRefresh(db *sql.DB, ok, failed int) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO refresh_log (instruments_ok, instruments_failed) VALUES (?, ?)`, ok, failed)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LastRefreshTime returns the timestamp of the most recent refresh, or the
// zero time when none has run yet.
func LastRefreshTime(db *sql.DB) (time.Time, error) {
	var ranAt time.Time
	err := db.QueryRow(`SELECT ran_at FROM refresh_log ORDER BY id DESC LIMIT 1`).Scan(&ranAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return ranAt, nil
}
