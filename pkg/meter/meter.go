package meter

import (
	"sync"
	"time"

	"github.com/solidlab/goventuri/pkg/config"
	"github.com/solidlab/goventuri/pkg/flow"
	"github.com/solidlab/goventuri/pkg/sensor"
)

// Frame is the derived output tuple of one control cycle.
type Frame struct {
	Timestamp      time.Time
	Raw            int     // Raw reading as received (sentinel preserved)
	Valid          bool    // Validator verdict for this sample
	Filtered       float64 // EMA output (held when the sample was rejected)
	Height         float64 // Mapped height (m); equals the held value while degraded
	HeightSnapped  float64 // Lattice-snapped height (m)
	PressureDiff   float64 // Venturi pressure differential (Pa)
	FlowRate       float64 // Volumetric flow (L/s)
	FallbackActive bool    // Fallback mode engaged after this sample
	Event          FallbackEvent
}

// Meter drives the signal-conditioning pipeline: filter, validate, map,
// snap, flow. It owns all mutable measurement state (filter value, fallback
// counters); samples flow through exactly one loop, so that state needs no
// locking of its own. The mutex only guards the frame history exposed to
// presentation sinks.
type Meter struct {
	cfg      *config.Config
	smoother *Smoother
	fallback *Fallback
	model    *flow.Model

	// Frame history is a FIFO ordered oldest to newest; removal is based on
	// timestamp (time window), not count.
	frames []Frame
	mu     sync.RWMutex

	// Update callbacks receive the windowed history plus the latest frame.
	callbacks []func(frames []Frame, latest Frame)
	cbMu      sync.RWMutex

	windowDuration time.Duration

	// Set when the input channel closes; prevents further callbacks.
	shutdown bool
}

// New creates a Meter from validated configuration. The flow model constants
// are computed here, once; a degenerate geometry is a startup error.
func New(cfg *config.Config) (*Meter, error) {
	model, err := flow.NewModel(cfg.Geometry, cfg.Fluid, cfg.Measurement.MinFlowHeight)
	if err != nil {
		return nil, err
	}

	return &Meter{
		cfg:            cfg,
		smoother:       NewSmoother(cfg.Filter.Alpha),
		fallback:       NewFallback(cfg.Validation.MaxFailures),
		model:          model,
		frames:         make([]Frame, 0),
		windowDuration: time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
	}, nil
}

// Stabilize consumes up to n samples from the input channel to seed the
// smoothing filter before the loop starts reporting. Faulted samples are
// skipped (filter held); if the channel closes early or every sample
// faulted, the filter seeds from the calibrated midpoint.
func (m *Meter) Stabilize(input <-chan sensor.RawSample) {
	n := m.cfg.Filter.StabilizationSamples
	for i := 0; i < n; i++ {
		s, ok := <-input
		if !ok {
			break
		}
		if s.Faulted() {
			continue
		}
		m.smoother.Update(float64(s.Raw))
	}

	if !m.smoother.Seeded() {
		mid := float64(m.cfg.Calibration.RawMin+m.cfg.Calibration.RawMax) / 2
		m.smoother.Seed(mid)
	}
}

// ProcessSamples processes samples from the input channel until it closes.
// When the input channel closes, the shutdown flag stops further callbacks.
func (m *Meter) ProcessSamples(input <-chan sensor.RawSample) {
	for s := range input {
		m.processSample(s)
	}
	// Channel closed - mark as shutdown to prevent further callbacks
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample runs one control cycle and returns the produced frame.
func (m *Meter) processSample(s sensor.RawSample) Frame {
	// Validate against the filter state from before this sample. A rejected
	// sample must not touch the filter: holding the value is what keeps a
	// sentinel or a noise spike from corrupting the average.
	valid := !s.Faulted() &&
		Validate(s.Raw, m.smoother.Value(), m.cfg.Validation, m.cfg.Calibration)

	var frame Frame
	frame.Timestamp = s.Timestamp
	frame.Raw = s.Raw
	frame.Valid = valid

	if valid {
		frame.Filtered = m.smoother.Update(float64(s.Raw))
		frame.Height = flow.MapHeight(frame.Filtered, m.cfg.Calibration)
		frame.HeightSnapped = flow.Snap(frame.Height, m.cfg.Lattice)
		frame.Event = m.fallback.RecordValid(frame.HeightSnapped)
	} else {
		frame.Event = m.fallback.RecordInvalid()
		frame.Filtered = m.smoother.Value()
		// Hold last known good: both heights report the held value so the
		// log stays consistent while data is stale.
		held := m.fallback.LastValidHeight()
		frame.Height = held
		frame.HeightSnapped = held
	}

	frame.PressureDiff, frame.FlowRate = m.model.Compute(frame.HeightSnapped)
	frame.FallbackActive = m.fallback.Active()

	m.appendFrame(frame)
	return frame
}

// appendFrame adds the frame to the windowed history and notifies callbacks.
func (m *Meter) appendFrame(frame Frame) {
	m.mu.Lock()

	m.frames = append(m.frames, frame)

	// Drop frames older than the window, based on timestamp
	cutoff := frame.Timestamp.Add(-m.windowDuration)
	trim := 0
	for trim < len(m.frames) && !m.frames[trim].Timestamp.After(cutoff) {
		trim++
	}
	if trim > 0 {
		m.frames = m.frames[trim:]
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks(frame)
	}
}

// Frames returns a copy of the windowed frame history.
func (m *Meter) Frames() []Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Frame, len(m.frames))
	copy(result, m.frames)
	return result
}

// InFallback reports whether the fallback controller is currently engaged.
func (m *Meter) InFallback() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallback.Active()
}

// OnUpdate registers a callback invoked after every processed sample with
// the windowed history and the latest frame. Callbacks should copy what they
// need and return quickly.
func (m *Meter) OnUpdate(callback func(frames []Frame, latest Frame)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to fire again.
// Call before starting a new measurement chain on the same meter.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with copies of the data.
func (m *Meter) notifyCallbacks(latest Frame) {
	m.mu.RLock()
	framesCopy := make([]Frame, len(m.frames))
	copy(framesCopy, m.frames)
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]func(frames []Frame, latest Frame), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	// Invoke callbacks without holding any locks
	for _, cb := range callbacks {
		if cb != nil {
			cb(framesCopy, latest)
		}
	}
}
