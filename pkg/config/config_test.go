package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 510, cfg.Calibration.RawMin)
	assert.Equal(t, 9230, cfg.Calibration.RawMax)
	assert.Equal(t, 0.145, cfg.Calibration.HeightMax)
	assert.Equal(t, 3*time.Minute, cfg.Calibration.SessionDuration)
	assert.Equal(t, 0.3, cfg.Filter.Alpha)
	assert.Equal(t, 20, cfg.Filter.StabilizationSamples)
	assert.Equal(t, 15000, cfg.Validation.EnvelopeMax)
	assert.Equal(t, 0.5, cfg.Validation.JumpFraction)
	assert.Equal(t, 5, cfg.Validation.MaxFailures)
	assert.Equal(t, 250*time.Millisecond, cfg.Measurement.SamplePeriod)
	assert.NotEmpty(t, cfg.Lattice)
}

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestCalibrationSpan(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8720, cfg.Calibration.Span())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB0"

calibration:
  raw_min: 600
  raw_max: 9000
  height_max: 0.160
  session_duration: 2m

filter:
  alpha: 0.2
  stabilization_samples: 30

validation:
  envelope_min: 0
  envelope_max: 12000
  jump_fraction: 0.4
  max_failures: 3

lattice: [0.0, 0.01, 0.02, 0.05, 0.16]
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 600, cfg.Calibration.RawMin)
	assert.Equal(t, 9000, cfg.Calibration.RawMax)
	assert.Equal(t, 0.160, cfg.Calibration.HeightMax)
	assert.Equal(t, 2*time.Minute, cfg.Calibration.SessionDuration)
	assert.Equal(t, 0.2, cfg.Filter.Alpha)
	assert.Equal(t, 30, cfg.Filter.StabilizationSamples)
	assert.Equal(t, 12000, cfg.Validation.EnvelopeMax)
	assert.Equal(t, 0.4, cfg.Validation.JumpFraction)
	assert.Equal(t, 3, cfg.Validation.MaxFailures)
	assert.Equal(t, []float64{0.0, 0.01, 0.02, 0.05, 0.16}, cfg.Lattice)

	// Untouched sections fall back to defaults
	assert.Equal(t, 0.026, cfg.Geometry.InletDiameter)
	assert.Equal(t, 998.0, cfg.Fluid.FluidDensity)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB0"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 510, cfg.Calibration.RawMin)             // default
	assert.Equal(t, 0.3, cfg.Filter.Alpha)                   // default
	assert.Equal(t, 5, cfg.Validation.MaxFailures)           // default
	assert.Equal(t, Default().Lattice, cfg.Lattice)          // default
	assert.Equal(t, 250*time.Millisecond, cfg.Measurement.SamplePeriod) // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Validation.MaxFailures = 7

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 7, loaded.Validation.MaxFailures)
}

func TestValidate_Faults(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "degenerate calibration range",
			mutate: func(c *Config) { c.Calibration.RawMax = c.Calibration.RawMin },
		},
		{
			name:   "inverted calibration range",
			mutate: func(c *Config) { c.Calibration.RawMin = 9000; c.Calibration.RawMax = 500 },
		},
		{
			name:   "zero height max",
			mutate: func(c *Config) { c.Calibration.HeightMax = 0 },
		},
		{
			name:   "alpha above one",
			mutate: func(c *Config) { c.Filter.Alpha = 1.5 },
		},
		{
			name:   "negative alpha",
			mutate: func(c *Config) { c.Filter.Alpha = -0.1 },
		},
		{
			name:   "degenerate envelope",
			mutate: func(c *Config) { c.Validation.EnvelopeMin = 15000 },
		},
		{
			name:   "zero max failures",
			mutate: func(c *Config) { c.Validation.MaxFailures = 0 },
		},
		{
			name:   "empty lattice",
			mutate: func(c *Config) { c.Lattice = nil },
		},
		{
			name:   "non-monotonic lattice",
			mutate: func(c *Config) { c.Lattice = []float64{0.0, 0.02, 0.01} },
		},
		{
			name:   "lattice with duplicate",
			mutate: func(c *Config) { c.Lattice = []float64{0.0, 0.01, 0.01, 0.02} },
		},
		{
			name:   "throat wider than inlet",
			mutate: func(c *Config) { c.Geometry.ThroatDiameter = 0.030 },
		},
		{
			name:   "zero inlet diameter",
			mutate: func(c *Config) { c.Geometry.InletDiameter = 0 },
		},
		{
			name:   "discharge coefficient above one",
			mutate: func(c *Config) { c.Geometry.DischargeCoeff = 1.2 },
		},
		{
			name:   "manometer fluid denser than working fluid",
			mutate: func(c *Config) { c.Fluid.ManometerDensity = 2000 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AlphaOneIsValid(t *testing.T) {
	cfg := Default()
	cfg.Filter.Alpha = 1.0
	assert.NoError(t, cfg.Validate())
}
