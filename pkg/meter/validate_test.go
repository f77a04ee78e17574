package meter

import (
	"testing"

	"github.com/solidlab/goventuri/pkg/config"
	"github.com/stretchr/testify/assert"
)

func defaultValidation() (config.ValidationConfig, config.CalibrationConfig) {
	cfg := config.Default()
	return cfg.Validation, cfg.Calibration
}

func TestValidate_Envelope(t *testing.T) {
	val, calib := defaultValidation()

	tests := []struct {
		name     string
		raw      int
		filtered float64
		want     bool
	}{
		{"mid-range near filter", 5000, 5000, true},
		{"envelope lower bound", 0, 100, true},
		{"envelope upper bound", 15000, 14000, true},
		{"below envelope", -1, 5000, false},
		{"fault sentinel", -1, 0, false},
		{"above envelope", 15001, 14999, false},
		{"far above envelope", 100000, 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.raw, tt.filtered, val, calib))
		})
	}
}

func TestValidate_JumpRejection(t *testing.T) {
	val, calib := defaultValidation()
	// Default span is 8720, jump threshold 0.5 of span = 4360
	threshold := val.JumpFraction * float64(calib.Span())

	filtered := 5000.0
	assert.True(t, Validate(5000+int(threshold), filtered, val, calib), "jump exactly at threshold passes")
	assert.False(t, Validate(5000+int(threshold)+1, filtered, val, calib), "jump above threshold fails")
	assert.False(t, Validate(5000-int(threshold)-1, filtered, val, calib), "downward jump above threshold fails")
	assert.True(t, Validate(5000-int(threshold), filtered, val, calib), "downward jump at threshold passes")
}

func TestValidate_IsPure(t *testing.T) {
	val, calib := defaultValidation()

	// Same inputs produce the same verdict no matter how often asked.
	for i := 0; i < 10; i++ {
		assert.True(t, Validate(5100, 5000, val, calib))
		assert.False(t, Validate(-1, 5000, val, calib))
	}
}
