package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFrames(n int) []Frame {
	now := time.Now()
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{
			Timestamp: now.Add(time.Duration(i) * 250 * time.Millisecond),
			Raw:       510 + i,
			Valid:     true,
			FlowRate:  float64(i) * 0.01,
		}
	}
	return frames
}

func TestDownsampleFrames_NoDownsampling(t *testing.T) {
	frames := makeFrames(3)

	result := DownsampleFrames(nil, frames, 10)
	require.Len(t, result, 3)
	assert.Equal(t, frames[0], result[0])
	assert.Equal(t, frames[2], result[2])

	// Sufficient-capacity destination is reused.
	dst := make([]Frame, 0, 10)
	result = DownsampleFrames(dst, frames, 10)
	require.Len(t, result, 3)
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsampleFrames_WithDownsampling(t *testing.T) {
	frames := makeFrames(100)

	dst := make([]Frame, 0, 20)
	result := DownsampleFrames(dst, frames, 10)
	require.Len(t, result, 10)

	// First frame always survives; the tail stays near the end of the range.
	assert.Equal(t, frames[0], result[0])
	assert.GreaterOrEqual(t, result[len(result)-1].FlowRate, 0.8)
}

func TestDownsampleFrames_DestinationReuse(t *testing.T) {
	dst := make([]Frame, 0, 10)
	result1 := DownsampleFrames(dst, makeFrames(2), 10)
	require.Len(t, result1, 2)

	result2 := DownsampleFrames(result1, makeFrames(3), 10)
	require.Len(t, result2, 3)
	assert.Equal(t, cap(result1), cap(result2))
}

func TestDownsampleFrames_EmptyInput(t *testing.T) {
	result := DownsampleFrames(nil, []Frame{}, 10)
	require.Empty(t, result)
}
