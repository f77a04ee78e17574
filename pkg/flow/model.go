package flow

import (
	"fmt"
	"math"

	"github.com/solidlab/goventuri/pkg/config"
)

// Gravity is standard gravitational acceleration (m/s^2).
const Gravity = 9.80665

// Model converts manometer height to pressure differential and volumetric
// flow rate using the venturi two-area formula. All geometric and fluid
// constants are computed once at construction, never per sample.
type Model struct {
	throatArea    float64 // A_t (m^2)
	dischargeCoef float64 // Cd
	fluidDensity  float64 // rho_f (kg/m^3)
	densityDelta  float64 // rho_f - rho_m (kg/m^3)
	betaTerm      float64 // 1 - (A_t/A_i)^2
	minFlowHeight float64 // Heights below this report exactly zero flow (m)
}

// NewModel precomputes the flow model constants from pipe geometry and fluid
// densities. Degenerate geometry is a configuration fault and is rejected
// here as well as in config.Validate.
func NewModel(geom config.GeometryConfig, fluid config.FluidConfig, minFlowHeight float64) (*Model, error) {
	if geom.InletDiameter <= 0 || geom.ThroatDiameter <= 0 {
		return nil, fmt.Errorf("pipe diameters must be positive: inlet %g, throat %g",
			geom.InletDiameter, geom.ThroatDiameter)
	}
	if geom.ThroatDiameter >= geom.InletDiameter {
		return nil, fmt.Errorf("throat diameter %g must be smaller than inlet diameter %g",
			geom.ThroatDiameter, geom.InletDiameter)
	}
	if fluid.FluidDensity <= 0 {
		return nil, fmt.Errorf("fluid density must be positive, got %g", fluid.FluidDensity)
	}
	if fluid.ManometerDensity >= fluid.FluidDensity {
		return nil, fmt.Errorf("manometer fluid density %g must be below working fluid density %g",
			fluid.ManometerDensity, fluid.FluidDensity)
	}

	inletArea := math.Pi * geom.InletDiameter * geom.InletDiameter / 4
	throatArea := math.Pi * geom.ThroatDiameter * geom.ThroatDiameter / 4
	areaRatio := throatArea / inletArea

	return &Model{
		throatArea:    throatArea,
		dischargeCoef: geom.DischargeCoeff,
		fluidDensity:  fluid.FluidDensity,
		densityDelta:  fluid.FluidDensity - fluid.ManometerDensity,
		betaTerm:      1 - areaRatio*areaRatio,
		minFlowHeight: minFlowHeight,
	}, nil
}

// Compute returns the pressure differential (Pa) and volumetric flow rate
// (L/s) for a manometer height (m). Heights below the minimum-flow threshold
// report exactly zero so residual noise near an empty manometer never shows
// up as phantom flow. A negative pressure differential is clamped to zero
// before the square root.
func (m *Model) Compute(height float64) (pressureDiff, flowLPS float64) {
	if height < m.minFlowHeight {
		return 0, 0
	}

	pressureDiff = m.densityDelta * Gravity * height
	if pressureDiff < 0 {
		pressureDiff = 0
	}

	flowM3 := m.dischargeCoef * m.throatArea *
		math.Sqrt(2*pressureDiff/m.fluidDensity/m.betaTerm)
	return pressureDiff, flowM3 * 1000
}

// MinFlowHeight returns the zero-flow cutoff height (m).
func (m *Model) MinFlowHeight() float64 {
	return m.minFlowHeight
}
