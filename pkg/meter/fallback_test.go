package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback_ActivatesOnExactlyMaxFailures(t *testing.T) {
	f := NewFallback(5)
	f.RecordValid(0.05)

	for i := 0; i < 4; i++ {
		ev := f.RecordInvalid()
		assert.Equal(t, EventNone, ev, "failure %d must not activate", i+1)
		assert.False(t, f.Active())
	}

	ev := f.RecordInvalid()
	assert.Equal(t, EventEntered, ev, "5th consecutive failure activates fallback")
	assert.True(t, f.Active())
}

func TestFallback_EnteredFiresOnce(t *testing.T) {
	f := NewFallback(5)

	events := 0
	for i := 0; i < 20; i++ {
		if f.RecordInvalid() == EventEntered {
			events++
		}
	}
	assert.Equal(t, 1, events, "entered event must fire exactly once per episode")
	assert.True(t, f.Active())
}

func TestFallback_AnyValidResetsStreak(t *testing.T) {
	f := NewFallback(5)

	for i := 0; i < 4; i++ {
		f.RecordInvalid()
	}
	assert.Equal(t, 4, f.Failures())

	ev := f.RecordValid(0.07)
	assert.Equal(t, EventNone, ev, "valid sample in normal mode is not a transition")
	assert.Zero(t, f.Failures())

	// Streak starts over; four more failures still don't activate.
	for i := 0; i < 4; i++ {
		f.RecordInvalid()
	}
	assert.False(t, f.Active())
}

func TestFallback_RestoredOnFirstValid(t *testing.T) {
	f := NewFallback(5)
	f.RecordValid(0.05)

	for i := 0; i < 7; i++ {
		f.RecordInvalid()
	}
	assert.True(t, f.Active())

	ev := f.RecordValid(0.08)
	assert.Equal(t, EventRestored, ev)
	assert.False(t, f.Active())
	assert.Zero(t, f.Failures())

	// Restored fires only once.
	assert.Equal(t, EventNone, f.RecordValid(0.09))
}

func TestFallback_HoldsLastValidHeight(t *testing.T) {
	f := NewFallback(5)
	f.RecordValid(0.060)
	f.RecordValid(0.065)

	for i := 0; i < 10; i++ {
		f.RecordInvalid()
		assert.Equal(t, 0.065, f.LastValidHeight(), "held height must not drift while degraded")
	}
}

func TestFallback_ZeroHeightBeforeAnyValid(t *testing.T) {
	f := NewFallback(5)

	for i := 0; i < 5; i++ {
		f.RecordInvalid()
	}
	assert.True(t, f.Active())
	assert.Zero(t, f.LastValidHeight())
}
