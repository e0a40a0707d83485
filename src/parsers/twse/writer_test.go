package twse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/etfolio/backend/src/models"
)

func sampleRows() []SnapshotRow {
	return []SnapshotRow{
		{
			Event: models.DividendEvent{
				Code: "00878", Name: "Cathay ESG High Div",
				ExDate:        time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC),
				AmountPerUnit: 0.40,
			},
			Close: 22.97,
		},
		{
			Event: models.DividendEvent{
				Code: "00050", Name: "Yuanta Top 50",
				ExDate:        time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC),
				AmountPerUnit: 1.90,
			},
			Close: 182.5,
		},
	}
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	require.NoError(t, WriteSnapshot(path, sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	result, err := NewParser().Parse(f)
	require.NoError(t, err)
	require.NoError(t, result.SchemaErr)

	require.Len(t, result.Events, 2)
	// Writer sorts by code then date.
	assert.Equal(t, "00050", result.Events[0].Code)
	assert.Equal(t, "00878", result.Events[1].Code)
	assert.Equal(t, 0.40, result.Events[1].AmountPerUnit)
	assert.Equal(t, 22.97, result.Quotes["00878"].ClosePrice)
}

func TestWriteSnapshotPublishesByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.csv")

	require.NoError(t, WriteSnapshot(path, sampleRows()))
	require.NoError(t, WriteSnapshot(path, sampleRows()[:1]))

	// Only the published snapshot remains; no temp files linger.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.csv", entries[0].Name())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	result, err := NewParser().Parse(f)
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
}

func TestWriteSnapshotCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "snapshot.csv")
	require.NoError(t, WriteSnapshot(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	result, err := NewParser().Parse(f)
	require.NoError(t, err)
	assert.Empty(t, result.Events)
}
