package sensor

import (
	"testing"
	"time"

	"github.com/solidlab/goventuri/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simConfig() (*config.SimConfig, config.CalibrationConfig) {
	def := config.Default()
	sim := def.Sim
	sim.SamplePeriod = 5 * time.Millisecond // Fast cadence for tests
	return &sim, def.Calibration
}

func TestNewSim_NilConfigUsesDefaults(t *testing.T) {
	_, calib := simConfig()
	sim := NewSim(nil, calib)
	assert.NotNil(t, sim)
	assert.False(t, sim.IsConnected())
}

func TestSim_ConnectClose(t *testing.T) {
	cfg, calib := simConfig()
	sim := NewSim(cfg, calib)

	require.NoError(t, sim.Connect())
	assert.True(t, sim.IsConnected())

	// Double connect is an error
	assert.Error(t, sim.Connect())

	require.NoError(t, sim.Close())
	assert.False(t, sim.IsConnected())

	// Double close is fine
	assert.NoError(t, sim.Close())
}

func TestSim_SamplesWithinCalibratedRange(t *testing.T) {
	cfg, calib := simConfig()
	sim := NewSim(cfg, calib)
	require.NoError(t, sim.Connect())
	defer sim.Close()

	samples := sim.Samples()
	for i := 0; i < 20; i++ {
		select {
		case s := <-samples:
			assert.False(t, s.Faulted())
			assert.GreaterOrEqual(t, s.Raw, calib.RawMin)
			assert.LessOrEqual(t, s.Raw, calib.RawMax)
			assert.False(t, s.Timestamp.IsZero())
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for simulated sample")
		}
	}
}

func TestSim_FaultInjection(t *testing.T) {
	cfg, calib := simConfig()
	cfg.FaultEvery = 4
	cfg.FaultBurst = 1
	sim := NewSim(cfg, calib)
	require.NoError(t, sim.Connect())
	defer sim.Close()

	faults := 0
	valid := 0
	samples := sim.Samples()
	for i := 0; i < 40; i++ {
		select {
		case s := <-samples:
			if s.Faulted() {
				assert.Equal(t, FaultSentinel, s.Raw)
				faults++
			} else {
				valid++
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for simulated sample")
		}
	}

	assert.Greater(t, faults, 0, "fault injection should produce sentinels")
	assert.Greater(t, valid, faults, "most samples should still be valid")
}

func TestSim_SetSampleCount(t *testing.T) {
	cfg, calib := simConfig()
	sim := NewSim(cfg, calib)

	assert.Error(t, sim.SetSampleCount(8), "not connected yet")

	require.NoError(t, sim.Connect())
	defer sim.Close()
	assert.NoError(t, sim.SetSampleCount(8))
}

func TestSim_RiseIsMonotonicEarlyOn(t *testing.T) {
	cfg, calib := simConfig()
	cfg.NoiseLevel = 0 // Deterministic curve
	sim := NewSim(cfg, calib)
	require.NoError(t, sim.Connect())
	defer sim.Close()

	var prev int
	samples := sim.Samples()
	for i := 0; i < 30; i++ {
		select {
		case s := <-samples:
			if i > 0 {
				assert.GreaterOrEqual(t, s.Raw, prev,
					"noiseless rise phase should be non-decreasing")
			}
			prev = s.Raw
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for simulated sample")
		}
	}
}

// TestSim_GracefulShutdown tests that the Sim device closes its samples
// channel when Close() is called.
func TestSim_GracefulShutdown(t *testing.T) {
	cfg, calib := simConfig()
	sim := NewSim(cfg, calib)
	require.NoError(t, sim.Connect())

	samples := sim.Samples()

	// Read a few samples
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range samples {
			received++
			if received >= 3 {
				// Got enough samples, now close device
				sim.Close()
			}
		}
	}()

	// Wait for samples and channel closure
	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Samples channel did not close within timeout")
	}

	// Should have received at least a few samples
	assert.GreaterOrEqual(t, received, 3, "Should receive samples before channel closes")

	// Verify channel is closed
	_, ok := <-samples
	assert.False(t, ok, "Channel should be closed")
}
