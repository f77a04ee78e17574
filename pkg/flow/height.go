package flow

import (
	"math"

	"github.com/solidlab/goventuri/pkg/config"
)

// MapHeight converts a filtered raw reading to a physical manometer height.
// The reading is clamped into the calibrated raw interval, normalized, and
// scaled by the maximum displacement. The degenerate RawMin == RawMax case is
// rejected by config.Validate at startup, so the division here is safe.
func MapHeight(filtered float64, calib config.CalibrationConfig) float64 {
	clamped := filtered
	if clamped < float64(calib.RawMin) {
		clamped = float64(calib.RawMin)
	}
	if clamped > float64(calib.RawMax) {
		clamped = float64(calib.RawMax)
	}

	normalized := (clamped - float64(calib.RawMin)) / float64(calib.Span())
	return normalized * calib.HeightMax
}

// Snap quantizes a continuous height estimate onto the lattice of physically
// expected displacement steps, damping residual jitter left after smoothing.
// Linear scan: the lattice is tens of entries at most. The first entry
// achieving the minimum absolute difference wins, which makes ties (exact
// midpoints) deterministic.
func Snap(height float64, lattice []float64) float64 {
	if len(lattice) == 0 {
		return height
	}

	best := lattice[0]
	bestDiff := math.Abs(height - best)
	for _, v := range lattice[1:] {
		diff := math.Abs(height - v)
		if diff < bestDiff {
			best = v
			bestDiff = diff
		}
	}
	return best
}
