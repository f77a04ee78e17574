// Package calib runs calibration logging sessions: record raw sensor counts
// for a fixed duration while the operator exercises the manometer through its
// endpoints, then report the statistics needed to fill in the calibration
// section of the config file.
package calib

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/solidlab/goventuri/pkg/sensor"
)

// CSV block delimiters. Everything between them is machine-readable
// elapsed_s,raw rows; everything after is the human-facing summary.
const (
	DataStartMarker = "CSV_DATA_START"
	DataEndMarker   = "CSV_DATA_END"
)

// Stats summarizes the raw counts recorded during a session.
type Stats struct {
	Count   int
	Min     int
	Max     int
	Average float64
}

// Range is the recorded raw span, Max-Min.
func (s Stats) Range() int {
	return s.Max - s.Min
}

// Add folds one raw reading into the statistics.
func (s *Stats) Add(raw int) {
	if s.Count == 0 {
		s.Min = raw
		s.Max = raw
	} else {
		if raw < s.Min {
			s.Min = raw
		}
		if raw > s.Max {
			s.Max = raw
		}
	}
	// Running mean avoids summing into a large int
	s.Count++
	s.Average += (float64(raw) - s.Average) / float64(s.Count)
}

// Run records raw samples from input for the given duration, streaming
// elapsed_s,raw rows between the CSV markers and finishing with the summary
// block. Elapsed time is anchored at the first sample. Faulted samples are
// skipped; they would poison the min. Run returns early without error when
// the input channel closes, and with ctx.Err() when the context is
// cancelled.
func Run(ctx context.Context, input <-chan sensor.RawSample, duration time.Duration, out io.Writer) (Stats, error) {
	var stats Stats
	var start time.Time

	if _, err := fmt.Fprintln(out, DataStartMarker); err != nil {
		return stats, fmt.Errorf("calib: write header: %w", err)
	}
	if _, err := fmt.Fprintln(out, "elapsed_s,raw"); err != nil {
		return stats, fmt.Errorf("calib: write header: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case s, ok := <-input:
			if !ok {
				return stats, finish(out, stats)
			}
			if s.Faulted() {
				continue
			}
			if start.IsZero() {
				start = s.Timestamp
			}
			elapsed := s.Timestamp.Sub(start)
			if elapsed > duration {
				return stats, finish(out, stats)
			}

			stats.Add(s.Raw)
			if _, err := fmt.Fprintf(out, "%.3f,%d\n", elapsed.Seconds(), s.Raw); err != nil {
				return stats, fmt.Errorf("calib: write row: %w", err)
			}
		}
	}
}

// finish closes the CSV block and writes the summary.
func finish(out io.Writer, stats Stats) error {
	if _, err := fmt.Fprintln(out, DataEndMarker); err != nil {
		return fmt.Errorf("calib: write footer: %w", err)
	}
	if _, err := fmt.Fprint(out, Summary(stats)); err != nil {
		return fmt.Errorf("calib: write summary: %w", err)
	}
	return nil
}

// Summary renders the session statistics followed by a calibration block
// ready to paste into the config file.
func Summary(stats Stats) string {
	if stats.Count == 0 {
		return "no valid samples recorded\n"
	}

	return fmt.Sprintf(
		"RAW_MIN: %d\nRAW_MAX: %d\nRAW_AVERAGE: %.2f\nRAW_RANGE: %d\n"+
			"\n"+
			"calibration:\n  raw_min: %d\n  raw_max: %d\n",
		stats.Min, stats.Max, stats.Average, stats.Range(),
		stats.Min, stats.Max,
	)
}
