package telemetry

import (
	"testing"
	"time"

	"github.com/solidlab/goventuri/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() meter.Frame {
	return meter.Frame{
		Timestamp:     time.Date(2025, 11, 3, 14, 22, 7, 0, time.UTC),
		Raw:           7012,
		Valid:         true,
		Filtered:      7003.4,
		Height:        0.108123,
		HeightSnapped: 0.110000,
		PressureDiff:  1075.12,
		FlowRate:      0.2931,
	}
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(sampleFrame())
	assert.Equal(t,
		"raw=7012 valid=1 filt=7003.4 h=0.108123 h_snap=0.110000 dP=1075.12 Q(L/s): 0.2931 h_Snap(m): 0.110000",
		line)
}

func TestFormatLine_FallbackMarker(t *testing.T) {
	f := sampleFrame()
	f.Valid = false
	f.FallbackActive = true

	line := FormatLine(f)
	assert.Contains(t, line, "valid=0")
	assert.Contains(t, line, FallbackMarker)
}

func TestParseLine_RoundTrip(t *testing.T) {
	f := sampleFrame()

	r, err := ParseLine(FormatLine(f))
	require.NoError(t, err)
	assert.InDelta(t, f.FlowRate, r.FlowRate, 1e-4)
	assert.InDelta(t, f.HeightSnapped, r.HeightSnapped, 1e-6)
	assert.False(t, r.Fallback)
}

func TestParseLine_LegacyBareFormat(t *testing.T) {
	r, err := ParseLine("Q(L/s): 0.1234 h_Snap(m): 0.065000")
	require.NoError(t, err)
	assert.InDelta(t, 0.1234, r.FlowRate, 1e-9)
	assert.InDelta(t, 0.065, r.HeightSnapped, 1e-9)
}

func TestParseLine_FallbackRoundTrip(t *testing.T) {
	f := sampleFrame()
	f.FallbackActive = true

	r, err := ParseLine(FormatLine(f))
	require.NoError(t, err)
	assert.True(t, r.Fallback)
}

func TestParseLine_Garbage(t *testing.T) {
	for _, line := range []string{"", "hello", "raw=7012 valid=1", "Q(L/s): x h_Snap(m): y"} {
		_, err := ParseLine(line)
		assert.Error(t, err, "line %q", line)
	}
}
