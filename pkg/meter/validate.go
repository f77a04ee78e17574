package meter

import (
	"math"

	"github.com/solidlab/goventuri/pkg/config"
)

// Validate reports whether a raw reading can be trusted. Pure function of
// the current sample and the current filter state; it never mutates anything
// and never errors.
//
// Rules, in order:
//  1. The reading must lie within the hardware-plausible envelope. This is
//     deliberately wider than the calibrated range: it catches disconnection
//     and counter overflow, not merely out-of-range-but-plausible values.
//     The negative fault sentinel fails here too.
//  2. Jump rejection: a step larger than JumpFraction of the calibrated span
//     in a single sample is transient interference, not physics. Manometer
//     fluid cannot move that fast.
func Validate(raw int, filtered float64, val config.ValidationConfig, calib config.CalibrationConfig) bool {
	if raw < val.EnvelopeMin || raw > val.EnvelopeMax {
		return false
	}

	if math.Abs(float64(raw)-filtered) > val.JumpFraction*float64(calib.Span()) {
		return false
	}

	return true
}
