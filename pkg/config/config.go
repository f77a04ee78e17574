package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. It is the only
// operator-facing tuning surface: loaded once at startup and treated as
// immutable for the rest of the process lifetime.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Geometry    GeometryConfig    `yaml:"geometry"`
	Fluid       FluidConfig       `yaml:"fluid"`
	Filter      FilterConfig      `yaml:"filter"`
	Validation  ValidationConfig  `yaml:"validation"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Lattice     []float64         `yaml:"lattice"`
	Sim         SimConfig         `yaml:"sim"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
}

// CalibrationConfig holds the raw-sensor interval established by the offline
// calibration procedure, the physical height it maps to, and the parameters
// of the calibration logging session itself.
type CalibrationConfig struct {
	RawMin          int           `yaml:"raw_min"`          // Raw reading at zero displacement
	RawMax          int           `yaml:"raw_max"`          // Raw reading at maximum displacement
	HeightMax       float64       `yaml:"height_max"`       // Manometer displacement at RawMax (m)
	SessionDuration time.Duration `yaml:"session_duration"` // Calibration logging run length
}

// Span returns the width of the calibrated raw interval.
func (c CalibrationConfig) Span() int {
	return c.RawMax - c.RawMin
}

// GeometryConfig describes the venturi tube geometry.
type GeometryConfig struct {
	InletDiameter  float64 `yaml:"inlet_diameter"`  // Pipe inner diameter (m)
	ThroatDiameter float64 `yaml:"throat_diameter"` // Throat inner diameter (m)
	DischargeCoeff float64 `yaml:"discharge_coeff"` // Cd, dimensionless
}

// FluidConfig holds the working and manometer fluid densities.
type FluidConfig struct {
	FluidDensity     float64 `yaml:"fluid_density"`     // Working fluid (kg/m^3)
	ManometerDensity float64 `yaml:"manometer_density"` // Manometer fluid (kg/m^3)
}

// FilterConfig contains the smoothing filter parameters.
type FilterConfig struct {
	Alpha                float64 `yaml:"alpha"`                 // EMA coefficient in (0,1]; smaller = smoother
	StabilizationSamples int     `yaml:"stabilization_samples"` // Synthetic updates applied before the loop reports
}

// ValidationConfig contains the reading validator and fallback thresholds.
// JumpFraction and MaxFailures are heuristics; they are configuration rather
// than hard-coded constants so deployments can tune them.
type ValidationConfig struct {
	EnvelopeMin  int     `yaml:"envelope_min"`  // Hardware-plausible lower bound
	EnvelopeMax  int     `yaml:"envelope_max"`  // Hardware-plausible upper bound
	JumpFraction float64 `yaml:"jump_fraction"` // Max per-sample jump as a fraction of the calibrated span
	MaxFailures  int     `yaml:"max_failures"`  // Consecutive invalid samples before fallback mode
}

// MeasurementConfig contains control-loop parameters.
type MeasurementConfig struct {
	SamplePeriod  time.Duration `yaml:"sample_period"`   // Control cycle cadence
	SampleCount   int           `yaml:"sample_count"`    // Hardware averaging count per raw read
	MinFlowHeight float64       `yaml:"min_flow_height"` // Below this height, flow reads exactly zero (m)
	WindowSeconds float64       `yaml:"window_seconds"`  // Scope history window
}

// SimConfig contains simulated sensor configuration.
type SimConfig struct {
	NoiseLevel   float64       `yaml:"noise_level"`   // Raw-count noise amplitude
	RiseRate     float64       `yaml:"rise_rate"`     // Logistic curve steepness (1/s)
	RiseMidpoint float64       `yaml:"rise_midpoint"` // Logistic curve midpoint (s)
	MaxHold      time.Duration `yaml:"max_hold"`      // Time at max before auto-drain kicks in
	SamplePeriod time.Duration `yaml:"sample_period"` // Sample emission cadence
	FaultEvery   int           `yaml:"fault_every"`   // Emit sentinel faults every N samples (0 = never)
	FaultBurst   int           `yaml:"fault_burst"`   // Consecutive faults per injection
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
		},
		Calibration: CalibrationConfig{
			RawMin:          510,
			RawMax:          9230,
			HeightMax:       0.145,
			SessionDuration: 3 * time.Minute,
		},
		Geometry: GeometryConfig{
			InletDiameter:  0.026,
			ThroatDiameter: 0.016,
			DischargeCoeff: 0.98,
		},
		Fluid: FluidConfig{
			FluidDensity:     998.0, // Water
			ManometerDensity: 1.2,   // Air column above the manometer fluid
		},
		Filter: FilterConfig{
			Alpha:                0.3,
			StabilizationSamples: 20,
		},
		Validation: ValidationConfig{
			EnvelopeMin:  0,
			EnvelopeMax:  15000,
			JumpFraction: 0.5,
			MaxFailures:  5,
		},
		Measurement: MeasurementConfig{
			SamplePeriod:  250 * time.Millisecond, // 4 Hz control loop
			SampleCount:   8,
			MinFlowHeight: 0.002,
			WindowSeconds: 30,
		},
		Lattice: []float64{
			0.000, 0.005, 0.010, 0.017, 0.025, 0.034, 0.045,
			0.058, 0.072, 0.088, 0.105, 0.124, 0.145,
		},
		Sim: SimConfig{
			NoiseLevel:   25,
			RiseRate:     0.8,
			RiseMidpoint: 6.0,
			MaxHold:      3 * time.Second,
			SamplePeriod: 250 * time.Millisecond,
			FaultEvery:   0,
			FaultBurst:   1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks for configuration faults that would produce undefined
// arithmetic at runtime. These are fatal at startup: the process refuses to
// run rather than divide by a degenerate calibration span or snap onto an
// unordered lattice.
func (c *Config) Validate() error {
	if c.Calibration.RawMin >= c.Calibration.RawMax {
		return fmt.Errorf("calibration range degenerate: raw_min %d >= raw_max %d",
			c.Calibration.RawMin, c.Calibration.RawMax)
	}
	if c.Calibration.HeightMax <= 0 {
		return fmt.Errorf("height_max must be positive, got %g", c.Calibration.HeightMax)
	}
	if c.Filter.Alpha <= 0 || c.Filter.Alpha > 1 {
		return fmt.Errorf("filter alpha must be in (0,1], got %g", c.Filter.Alpha)
	}
	if c.Validation.EnvelopeMin >= c.Validation.EnvelopeMax {
		return fmt.Errorf("validation envelope degenerate: [%d,%d]",
			c.Validation.EnvelopeMin, c.Validation.EnvelopeMax)
	}
	if c.Validation.JumpFraction <= 0 {
		return fmt.Errorf("jump_fraction must be positive, got %g", c.Validation.JumpFraction)
	}
	if c.Validation.MaxFailures < 1 {
		return fmt.Errorf("max_failures must be at least 1, got %d", c.Validation.MaxFailures)
	}
	if len(c.Lattice) == 0 {
		return fmt.Errorf("height lattice is empty")
	}
	for i := 1; i < len(c.Lattice); i++ {
		if c.Lattice[i] <= c.Lattice[i-1] {
			return fmt.Errorf("height lattice not strictly ascending at index %d: %g <= %g",
				i, c.Lattice[i], c.Lattice[i-1])
		}
	}
	if c.Geometry.InletDiameter <= 0 || c.Geometry.ThroatDiameter <= 0 {
		return fmt.Errorf("pipe diameters must be positive: inlet %g, throat %g",
			c.Geometry.InletDiameter, c.Geometry.ThroatDiameter)
	}
	if c.Geometry.ThroatDiameter >= c.Geometry.InletDiameter {
		return fmt.Errorf("throat diameter %g must be smaller than inlet diameter %g",
			c.Geometry.ThroatDiameter, c.Geometry.InletDiameter)
	}
	if c.Geometry.DischargeCoeff <= 0 || c.Geometry.DischargeCoeff > 1 {
		return fmt.Errorf("discharge coefficient must be in (0,1], got %g", c.Geometry.DischargeCoeff)
	}
	if c.Fluid.FluidDensity <= 0 {
		return fmt.Errorf("fluid density must be positive, got %g", c.Fluid.FluidDensity)
	}
	if c.Fluid.ManometerDensity >= c.Fluid.FluidDensity {
		return fmt.Errorf("manometer fluid density %g must be below working fluid density %g",
			c.Fluid.ManometerDensity, c.Fluid.FluidDensity)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}

	if c.Calibration.RawMin == 0 && c.Calibration.RawMax == 0 {
		c.Calibration.RawMin = def.Calibration.RawMin
		c.Calibration.RawMax = def.Calibration.RawMax
	}
	if c.Calibration.HeightMax == 0 {
		c.Calibration.HeightMax = def.Calibration.HeightMax
	}
	if c.Calibration.SessionDuration == 0 {
		c.Calibration.SessionDuration = def.Calibration.SessionDuration
	}

	if c.Geometry.InletDiameter == 0 {
		c.Geometry.InletDiameter = def.Geometry.InletDiameter
	}
	if c.Geometry.ThroatDiameter == 0 {
		c.Geometry.ThroatDiameter = def.Geometry.ThroatDiameter
	}
	if c.Geometry.DischargeCoeff == 0 {
		c.Geometry.DischargeCoeff = def.Geometry.DischargeCoeff
	}

	if c.Fluid.FluidDensity == 0 {
		c.Fluid.FluidDensity = def.Fluid.FluidDensity
	}
	if c.Fluid.ManometerDensity == 0 {
		c.Fluid.ManometerDensity = def.Fluid.ManometerDensity
	}

	if c.Filter.Alpha == 0 {
		c.Filter.Alpha = def.Filter.Alpha
	}
	if c.Filter.StabilizationSamples == 0 {
		c.Filter.StabilizationSamples = def.Filter.StabilizationSamples
	}

	if c.Validation.EnvelopeMax == 0 {
		c.Validation.EnvelopeMax = def.Validation.EnvelopeMax
	}
	if c.Validation.JumpFraction == 0 {
		c.Validation.JumpFraction = def.Validation.JumpFraction
	}
	if c.Validation.MaxFailures == 0 {
		c.Validation.MaxFailures = def.Validation.MaxFailures
	}

	if c.Measurement.SamplePeriod == 0 {
		c.Measurement.SamplePeriod = def.Measurement.SamplePeriod
	}
	if c.Measurement.SampleCount == 0 {
		c.Measurement.SampleCount = def.Measurement.SampleCount
	}
	if c.Measurement.MinFlowHeight == 0 {
		c.Measurement.MinFlowHeight = def.Measurement.MinFlowHeight
	}
	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}

	if len(c.Lattice) == 0 {
		c.Lattice = def.Lattice
	}

	if c.Sim.SamplePeriod == 0 {
		c.Sim.SamplePeriod = def.Sim.SamplePeriod
	}
	if c.Sim.RiseRate == 0 {
		c.Sim.RiseRate = def.Sim.RiseRate
	}
	if c.Sim.RiseMidpoint == 0 {
		c.Sim.RiseMidpoint = def.Sim.RiseMidpoint
	}
	if c.Sim.MaxHold == 0 {
		c.Sim.MaxHold = def.Sim.MaxHold
	}
	if c.Sim.FaultBurst == 0 {
		c.Sim.FaultBurst = def.Sim.FaultBurst
	}
}
