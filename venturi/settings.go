package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/solidlab/goventuri/pkg/meter"
	"github.com/solidlab/goventuri/pkg/sensor"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createCalibrationTab(state),
		createGeometryTab(state),
		createSignalTab(state),
		createMeasurementTab(state),
		createSimTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig persists the configuration and reports errors in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(fmt.Errorf("invalid configuration: %w", err), state.window)
		return
	}
	if err := state.cfg.Save("config.yaml"); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// rebuildMeter recreates the flow meter after tuning changes.
func rebuildMeter(state *appState) {
	flowMeter, err := meter.New(state.cfg)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to rebuild flow meter: %w", err), state.window)
		return
	}
	state.flowMeter = flowMeter
	registerMeterCallbacks(state)
	log.Println("flow meter rebuilt with new configuration")
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := sensor.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - applied on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			selectedPort := portMap[portSelect.Selected]
			if selectedPort == "" {
				selectedPort = portSelect.Selected // Fallback to selected text
			}

			// Check if port changed and device is connected
			portChanged := state.cfg.Serial.Port != selectedPort
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			saveConfig(state)

			// If port changed and device was connected, restart the measurement chain
			if portChanged && wasConnected {
				handleConnect(state) // disconnect
				handleConnect(state) // reconnect with new port
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createCalibrationTab creates the Calibration configuration tab.
func createCalibrationTab(state *appState) *container.TabItem {
	rawMinEntry := widget.NewEntry()
	rawMinEntry.SetText(fmt.Sprintf("%d", state.cfg.Calibration.RawMin))

	rawMaxEntry := widget.NewEntry()
	rawMaxEntry.SetText(fmt.Sprintf("%d", state.cfg.Calibration.RawMax))

	heightMaxEntry := widget.NewEntry()
	heightMaxEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Calibration.HeightMax))

	sessionEntry := widget.NewEntry()
	sessionEntry.SetText(state.cfg.Calibration.SessionDuration.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Raw Min (counts)", Widget: rawMinEntry},
			{Text: "Raw Max (counts)", Widget: rawMaxEntry},
			{Text: "Height Max (m)", Widget: heightMaxEntry},
			{Text: "Session Duration", Widget: sessionEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.Atoi(rawMinEntry.Text); err == nil {
				state.cfg.Calibration.RawMin = v
			}
			if v, err := strconv.Atoi(rawMaxEntry.Text); err == nil {
				state.cfg.Calibration.RawMax = v
			}
			if v, err := strconv.ParseFloat(heightMaxEntry.Text, 64); err == nil {
				state.cfg.Calibration.HeightMax = v
			}
			if v, err := time.ParseDuration(sessionEntry.Text); err == nil {
				state.cfg.Calibration.SessionDuration = v
			}
			saveConfig(state)
			rebuildMeter(state)
		},
	}

	return container.NewTabItem("Calibration", form)
}

// createGeometryTab creates the Geometry and Fluid configuration tab.
func createGeometryTab(state *appState) *container.TabItem {
	inletEntry := widget.NewEntry()
	inletEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Geometry.InletDiameter))

	throatEntry := widget.NewEntry()
	throatEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Geometry.ThroatDiameter))

	cdEntry := widget.NewEntry()
	cdEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Geometry.DischargeCoeff))

	fluidEntry := widget.NewEntry()
	fluidEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Fluid.FluidDensity))

	manometerEntry := widget.NewEntry()
	manometerEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Fluid.ManometerDensity))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Inlet Diameter (m)", Widget: inletEntry},
			{Text: "Throat Diameter (m)", Widget: throatEntry},
			{Text: "Discharge Coefficient", Widget: cdEntry},
			{Text: "Fluid Density (kg/m³)", Widget: fluidEntry},
			{Text: "Manometer Density (kg/m³)", Widget: manometerEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(inletEntry.Text, 64); err == nil {
				state.cfg.Geometry.InletDiameter = v
			}
			if v, err := strconv.ParseFloat(throatEntry.Text, 64); err == nil {
				state.cfg.Geometry.ThroatDiameter = v
			}
			if v, err := strconv.ParseFloat(cdEntry.Text, 64); err == nil {
				state.cfg.Geometry.DischargeCoeff = v
			}
			if v, err := strconv.ParseFloat(fluidEntry.Text, 64); err == nil {
				state.cfg.Fluid.FluidDensity = v
			}
			if v, err := strconv.ParseFloat(manometerEntry.Text, 64); err == nil {
				state.cfg.Fluid.ManometerDensity = v
			}
			saveConfig(state)
			rebuildMeter(state)
		},
	}

	return container.NewTabItem("Geometry", form)
}

// createSignalTab creates the Filter and Validation configuration tab.
func createSignalTab(state *appState) *container.TabItem {
	alphaEntry := widget.NewEntry()
	alphaEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Filter.Alpha))

	stabilizationEntry := widget.NewEntry()
	stabilizationEntry.SetText(fmt.Sprintf("%d", state.cfg.Filter.StabilizationSamples))

	envelopeMinEntry := widget.NewEntry()
	envelopeMinEntry.SetText(fmt.Sprintf("%d", state.cfg.Validation.EnvelopeMin))

	envelopeMaxEntry := widget.NewEntry()
	envelopeMaxEntry.SetText(fmt.Sprintf("%d", state.cfg.Validation.EnvelopeMax))

	jumpEntry := widget.NewEntry()
	jumpEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Validation.JumpFraction))

	maxFailuresEntry := widget.NewEntry()
	maxFailuresEntry.SetText(fmt.Sprintf("%d", state.cfg.Validation.MaxFailures))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Filter Alpha", Widget: alphaEntry},
			{Text: "Stabilization Samples", Widget: stabilizationEntry},
			{Text: "Envelope Min (counts)", Widget: envelopeMinEntry},
			{Text: "Envelope Max (counts)", Widget: envelopeMaxEntry},
			{Text: "Jump Fraction", Widget: jumpEntry},
			{Text: "Max Failures", Widget: maxFailuresEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(alphaEntry.Text, 64); err == nil {
				state.cfg.Filter.Alpha = v
			}
			if v, err := strconv.Atoi(stabilizationEntry.Text); err == nil {
				state.cfg.Filter.StabilizationSamples = v
			}
			if v, err := strconv.Atoi(envelopeMinEntry.Text); err == nil {
				state.cfg.Validation.EnvelopeMin = v
			}
			if v, err := strconv.Atoi(envelopeMaxEntry.Text); err == nil {
				state.cfg.Validation.EnvelopeMax = v
			}
			if v, err := strconv.ParseFloat(jumpEntry.Text, 64); err == nil {
				state.cfg.Validation.JumpFraction = v
			}
			if v, err := strconv.Atoi(maxFailuresEntry.Text); err == nil {
				state.cfg.Validation.MaxFailures = v
			}
			saveConfig(state)
			rebuildMeter(state)
		},
	}

	return container.NewTabItem("Signal", form)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	samplePeriodEntry := widget.NewEntry()
	samplePeriodEntry.SetText(state.cfg.Measurement.SamplePeriod.String())

	sampleCountEntry := widget.NewEntry()
	sampleCountEntry.SetText(fmt.Sprintf("%d", state.cfg.Measurement.SampleCount))

	minFlowHeightEntry := widget.NewEntry()
	minFlowHeightEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Measurement.MinFlowHeight))

	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Measurement.WindowSeconds))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sample Period", Widget: samplePeriodEntry},
			{Text: "Sample Count (hardware avg)", Widget: sampleCountEntry},
			{Text: "Min Flow Height (m)", Widget: minFlowHeightEntry},
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
		},
		OnSubmit: func() {
			if v, err := time.ParseDuration(samplePeriodEntry.Text); err == nil {
				state.cfg.Measurement.SamplePeriod = v
			}
			if v, err := strconv.Atoi(sampleCountEntry.Text); err == nil {
				state.cfg.Measurement.SampleCount = v
			}
			if v, err := strconv.ParseFloat(minFlowHeightEntry.Text, 64); err == nil {
				state.cfg.Measurement.MinFlowHeight = v
			}
			if v, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil {
				state.cfg.Measurement.WindowSeconds = v
			}
			saveConfig(state)
			rebuildMeter(state)
		},
	}

	return container.NewTabItem("Measurement", form)
}

// createSimTab creates the simulated sensor configuration tab.
func createSimTab(state *appState) *container.TabItem {
	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Sim.NoiseLevel))

	riseRateEntry := widget.NewEntry()
	riseRateEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Sim.RiseRate))

	riseMidpointEntry := widget.NewEntry()
	riseMidpointEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Sim.RiseMidpoint))

	maxHoldEntry := widget.NewEntry()
	maxHoldEntry.SetText(state.cfg.Sim.MaxHold.String())

	samplePeriodEntry := widget.NewEntry()
	samplePeriodEntry.SetText(state.cfg.Sim.SamplePeriod.String())

	faultEveryEntry := widget.NewEntry()
	faultEveryEntry.SetText(fmt.Sprintf("%d", state.cfg.Sim.FaultEvery))

	faultBurstEntry := widget.NewEntry()
	faultBurstEntry.SetText(fmt.Sprintf("%d", state.cfg.Sim.FaultBurst))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level (counts)", Widget: noiseEntry},
			{Text: "Rise Rate (1/s)", Widget: riseRateEntry},
			{Text: "Rise Midpoint (s)", Widget: riseMidpointEntry},
			{Text: "Max Hold", Widget: maxHoldEntry},
			{Text: "Sample Period", Widget: samplePeriodEntry},
			{Text: "Fault Every N Samples (0=never)", Widget: faultEveryEntry},
			{Text: "Fault Burst", Widget: faultBurstEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Sim.NoiseLevel = v
			}
			if v, err := strconv.ParseFloat(riseRateEntry.Text, 64); err == nil {
				state.cfg.Sim.RiseRate = v
			}
			if v, err := strconv.ParseFloat(riseMidpointEntry.Text, 64); err == nil {
				state.cfg.Sim.RiseMidpoint = v
			}
			if v, err := time.ParseDuration(maxHoldEntry.Text); err == nil {
				state.cfg.Sim.MaxHold = v
			}
			if v, err := time.ParseDuration(samplePeriodEntry.Text); err == nil {
				state.cfg.Sim.SamplePeriod = v
			}
			if v, err := strconv.Atoi(faultEveryEntry.Text); err == nil {
				state.cfg.Sim.FaultEvery = v
			}
			if v, err := strconv.Atoi(faultBurstEntry.Text); err == nil {
				state.cfg.Sim.FaultBurst = v
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Sim", form)
}
