package meter

// FallbackEvent marks a mode transition produced by a sample. Transitions
// are one-time: the event fires on the sample that crosses the threshold and
// never again until the mode changes back.
type FallbackEvent int

const (
	// EventNone means the sample caused no mode change.
	EventNone FallbackEvent = iota
	// EventEntered fires once when sustained failures activate fallback mode.
	EventEntered
	// EventRestored fires once when a valid reading ends fallback mode.
	EventRestored
)

// Fallback tracks consecutive sensor failures and switches the meter between
// Normal and Fallback modes. While degraded it supplies the last snapped
// height from a successful validation, so the system keeps producing
// plausible output instead of stopping. This is a hold-last-known-good
// policy, not a hard fault.
type Fallback struct {
	maxFailures     int
	failures        int
	active          bool
	lastValidHeight float64
}

// NewFallback creates a fallback controller in Normal mode.
func NewFallback(maxFailures int) *Fallback {
	return &Fallback{maxFailures: maxFailures}
}

// RecordValid registers a successfully validated sample with its snapped
// height. Any valid reading resets the failure streak to zero; if fallback
// mode was active it ends immediately.
func (f *Fallback) RecordValid(snappedHeight float64) FallbackEvent {
	f.failures = 0
	f.lastValidHeight = snappedHeight

	if f.active {
		f.active = false
		return EventRestored
	}
	return EventNone
}

// RecordInvalid registers a rejected sample. Fallback mode activates exactly
// when the consecutive-failure count reaches the threshold.
func (f *Fallback) RecordInvalid() FallbackEvent {
	f.failures++

	if !f.active && f.failures >= f.maxFailures {
		f.active = true
		return EventEntered
	}
	return EventNone
}

// Active reports whether fallback mode is engaged.
func (f *Fallback) Active() bool {
	return f.active
}

// Failures returns the current consecutive-failure count.
func (f *Fallback) Failures() int {
	return f.failures
}

// LastValidHeight returns the snapped height of the most recent valid sample.
func (f *Fallback) LastValidHeight() float64 {
	return f.lastValidHeight
}
