package twse

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/username/etfolio/backend/src/models"
)

// snapshotHeader is the column order of snapshots produced by the refresh job.
var snapshotHeader = []string{"code", "name", "close_price", "ex_dividend_date", "amount_per_unit"}

// SnapshotRow is one written row: a dividend event with the latest close
// price snapshotted alongside it.
type SnapshotRow struct {
	Event models.DividendEvent
	Close float64
}

// WriteSnapshot publishes a new snapshot file atomically: the rows are written
// to a temp file in the target directory and renamed over the destination, so
// readers only ever observe a completed snapshot. Output is UTF-8.
func WriteSnapshot(path string, rows []SnapshotRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("twse writer: create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("twse writer: create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Event.Code != rows[j].Event.Code {
			return rows[i].Event.Code < rows[j].Event.Code
		}
		return rows[i].Event.ExDate.Before(rows[j].Event.ExDate)
	})

	w := csv.NewWriter(tmp)
	if err := w.Write(snapshotHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("twse writer: write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Event.Code,
			row.Event.Name,
			strconv.FormatFloat(row.Close, 'f', -1, 64),
			row.Event.ExDate.Format("2006-01-02"),
			strconv.FormatFloat(row.Event.AmountPerUnit, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("twse writer: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("twse writer: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("twse writer: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("twse writer: close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("twse writer: publish snapshot: %w", err)
	}
	return nil
}
