package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/solidlab/goventuri/pkg/meter"
)

// runHeader is written once when a log file is created.
var runHeader = []string{"timestamp_iso", "elapsed_seconds", "flow_rate_L_s", "delta_h_cm", "raw_line"}

// RunLog streams measurement frames to a CSV file, one row per control
// cycle. Rows are flushed after every write so a crash loses at most the
// row in flight. Not safe for concurrent use; the meter callback is the
// single writer.
type RunLog struct {
	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewRunLog creates (or truncates) the log file at path and writes the
// header row. The start time anchors the elapsed_seconds column.
func NewRunLog(path string, start time.Time) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("telemetry: create log directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create run log: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(runHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("telemetry: write header: %w", err)
	}
	w.Flush()

	return &RunLog{file: file, writer: w, start: start}, nil
}

// Write appends one frame to the log.
func (l *RunLog) Write(f meter.Frame) error {
	row := []string{
		f.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(f.Timestamp.Sub(l.start).Seconds(), 'f', 3, 64),
		strconv.FormatFloat(f.FlowRate, 'f', 4, 64),
		strconv.FormatFloat(f.HeightSnapped*100, 'f', 3, 64),
		FormatLine(f),
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("telemetry: write row: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes pending rows and closes the file.
func (l *RunLog) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return fmt.Errorf("telemetry: flush run log: %w", err)
	}
	return l.file.Close()
}
