package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/solidlab/goventuri/pkg/config"
)

// simPhase is the stage of the simulated fill/drain cycle.
type simPhase int

const (
	phaseRise simPhase = iota
	phaseHold
	phaseDrain
)

// Sim simulates the capacitive sensor for development without hardware.
// It drives the manometer height along a logistic S-curve: rise to maximum,
// hold, then auto-drain along the inverse sigmoid and start over. Optionally
// injects fault sentinels at a configured cadence so the fallback path can be
// exercised end to end.
type Sim struct {
	cfg   *config.SimConfig
	calib config.CalibrationConfig

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Simulation state
	startTime   time.Time
	phase       simPhase
	phaseStart  time.Time
	counter     int
	sampleCount int
}

// Ensure Sim implements Device.
var _ Device = (*Sim)(nil)

// NewSim creates a new simulated device instance.
func NewSim(cfg *config.SimConfig, calib config.CalibrationConfig) *Sim {
	if cfg == nil {
		def := config.Default()
		cfg = &def.Sim
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sim{
		cfg:       cfg,
		calib:     calib,
		samples:   make(chan RawSample, DefaultBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Connect starts the simulation.
func (m *Sim) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.phase = phaseRise
	m.phaseStart = m.startTime
	m.counter = 0

	// Start generating samples
	go m.generateSamples()

	return nil
}

// Close stops the simulated device.
func (m *Sim) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	close(m.samples)

	return nil
}

// Samples returns the channel for reading samples.
func (m *Sim) Samples() <-chan RawSample {
	return m.samples
}

// SetSampleCount records the requested averaging count (simulated).
func (m *Sim) SetSampleCount(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	m.sampleCount = n

	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Sim) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// generateSamples emits simulated samples at the configured cadence.
func (m *Sim) generateSamples() {
	ticker := time.NewTicker(m.cfg.SamplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			sample := m.generateSample()
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample produces a single simulated sample.
func (m *Sim) generateSample() RawSample {
	m.mu.Lock()
	now := time.Now()
	m.counter++
	counter := m.counter

	h := m.heightAt(now)
	m.mu.Unlock()

	// Fault injection window
	if m.cfg.FaultEvery > 0 && counter%m.cfg.FaultEvery < m.cfg.FaultBurst {
		return RawSample{Timestamp: now, Raw: FaultSentinel}
	}

	// Map height back to raw counts over the calibrated range
	span := float64(m.calib.Span())
	raw := float64(m.calib.RawMin) + h/m.calib.HeightMax*span

	// Deterministic pseudo-noise: two incommensurate oscillators beating
	// against each other.
	elapsed := now.Sub(m.startTime)
	noise := (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
		math.Cos(float64(elapsed.Nanoseconds())*0.0013)) *
		m.cfg.NoiseLevel * 0.5
	raw += noise

	if raw < float64(m.calib.RawMin) {
		raw = float64(m.calib.RawMin)
	}
	if raw > float64(m.calib.RawMax) {
		raw = float64(m.calib.RawMax)
	}

	return RawSample{Timestamp: now, Raw: int(raw + 0.5)}
}

// heightAt advances the fill/drain cycle and returns the simulated manometer
// height. Caller must hold m.mu.
func (m *Sim) heightAt(now time.Time) float64 {
	t := now.Sub(m.phaseStart).Seconds()
	hMax := m.calib.HeightMax

	switch m.phase {
	case phaseRise:
		// Logistic S-curve toward maximum; start dry
		h := hMax / (1 + math.Exp(-m.cfg.RiseRate*(t-m.cfg.RiseMidpoint)))
		if t < 0.5 {
			h = 0
		}
		if h > hMax*0.97 {
			m.phase = phaseHold
			m.phaseStart = now
		}
		return h

	case phaseHold:
		if now.Sub(m.phaseStart) >= m.cfg.MaxHold {
			m.phase = phaseDrain
			m.phaseStart = now
		}
		return hMax

	default: // phaseDrain
		// Inverse sigmoid from maximum back to zero
		h := hMax / (1 + math.Exp(m.cfg.RiseRate*(t-m.cfg.RiseMidpoint)))
		if h < 0.001 {
			// Cycle complete, refill
			m.phase = phaseRise
			m.phaseStart = now
			return 0
		}
		return h
	}
}
