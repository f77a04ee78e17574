// Package telemetry formats and parses the per-cycle measurement line and
// streams run logs to CSV. The line keeps the legacy "Q(L/s):" and
// "h_Snap(m):" tokens so existing log scrapers continue to match.
package telemetry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/solidlab/goventuri/pkg/meter"
)

// FallbackMarker is appended to the line while hold-last-known-good is active.
const FallbackMarker = "[FALLBACK]"

// legacyRe matches the flow/height pair the original dashboard scraped.
var legacyRe = regexp.MustCompile(`Q\(L/s\): ([-0-9.]+) h_Snap\(m\): ([-0-9.]+)`)

// FormatLine renders one frame as a telemetry line.
func FormatLine(f meter.Frame) string {
	valid := 0
	if f.Valid {
		valid = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "raw=%d valid=%d filt=%.1f h=%.6f h_snap=%.6f dP=%.2f Q(L/s): %.4f h_Snap(m): %.6f",
		f.Raw, valid, f.Filtered, f.Height, f.HeightSnapped, f.PressureDiff, f.FlowRate, f.HeightSnapped)
	if f.FallbackActive {
		b.WriteByte(' ')
		b.WriteString(FallbackMarker)
	}
	return b.String()
}

// Reading is the flow/height pair recovered from a telemetry line.
type Reading struct {
	FlowRate      float64 // L/s
	HeightSnapped float64 // m
	Fallback      bool
}

// ParseLine extracts the legacy flow/height pair from a telemetry line.
// Returns an error when the line does not carry the pair; extra fields in
// the line are ignored, so the parser accepts both the full frame format
// and the bare legacy format.
func ParseLine(line string) (Reading, error) {
	m := legacyRe.FindStringSubmatch(line)
	if m == nil {
		return Reading{}, fmt.Errorf("telemetry: no flow/height pair in %q", line)
	}

	q, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("telemetry: parse flow %q: %w", m[1], err)
	}
	h, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("telemetry: parse height %q: %w", m[2], err)
	}

	return Reading{
		FlowRate:      q,
		HeightSnapped: h,
		Fallback:      strings.Contains(line, FallbackMarker),
	}, nil
}
