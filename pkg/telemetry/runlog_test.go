package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/solidlab/goventuri/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLog_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.csv")
	start := time.Date(2025, 11, 3, 14, 22, 0, 0, time.UTC)

	log, err := NewRunLog(path, start)
	require.NoError(t, err)

	f := sampleFrame()
	f.Timestamp = start.Add(2500 * time.Millisecond)
	require.NoError(t, log.Write(f))
	require.NoError(t, log.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"timestamp_iso", "elapsed_seconds", "flow_rate_L_s", "delta_h_cm", "raw_line"}, rows[0])

	row := rows[1]
	assert.Equal(t, "2025-11-03T14:22:02Z", row[0])
	assert.Equal(t, "2.500", row[1])
	assert.Equal(t, "0.2931", row[2])
	assert.Equal(t, "11.000", row[3])

	// The raw_line column carries the full telemetry line and stays parseable.
	r, err := ParseLine(row[4])
	require.NoError(t, err)
	assert.InDelta(t, 0.2931, r.FlowRate, 1e-9)
}

func TestRunLog_FlushesEveryWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")

	log, err := NewRunLog(path, time.Now())
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Write(meter.Frame{Timestamp: time.Now()}))

	// Row must be on disk before Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}
