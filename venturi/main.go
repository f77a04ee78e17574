package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/solidlab/goventuri/pkg/config"
	"github.com/solidlab/goventuri/pkg/meter"
	"github.com/solidlab/goventuri/pkg/scope"
	"github.com/solidlab/goventuri/pkg/sensor"
	"github.com/solidlab/goventuri/pkg/telemetry"
)

func main() {
	var (
		portFlag        = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag      = flag.String("config", "config.yaml", "Configuration file path")
		simFlag         = flag.Bool("sim", false, "Use simulated sensor instead of serial port")
		sampleCountFlag = flag.Int("sample-count", -1, "Hardware averaging sample count (overrides config)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	// Override hardware averaging count if provided via command line
	if *sampleCountFlag >= 0 {
		cfg.Measurement.SampleCount = *sampleCountFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create Fyne application
	application := app.NewWithID("com.solidlab.goventuri")

	// Create main window
	window := application.NewWindow("Venturi Flow Meter")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	// Create flow meter
	flowMeter, err := meter.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create flow meter: %v", err)
	}

	// Create application state
	appState := &appState{
		cfg:       cfg,
		device:    nil,
		flowMeter: flowMeter,
		window:    window,
		useSim:    *simFlag,
	}

	// Create toolbar
	toolbar := createToolbar(appState)

	// Create scope widget for graph display
	scopeWidget := scope.New(cfg)
	appState.scopeWidget = scopeWidget

	// Live numeric readout at the bottom
	readout := createReadout(appState)

	// Meter callbacks are registered once; they survive connect/disconnect
	// cycles and pick up the current run log through the state.
	registerMeterCallbacks(appState)

	content := container.NewBorder(
		toolbar,
		readout,
		nil,
		nil,
		scopeWidget,
	)

	window.SetContent(content)
	window.ShowAndRun()
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device         sensor.Device
	rawSamples     <-chan sensor.RawSample
	meterGoroutine chan struct{} // Closed when meter goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	device      sensor.Device
	flowMeter   *meter.Meter
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	pauseBtn    *widget.Button
	useSim      bool
	paused      bool              // Freezes scope/readout updates, measurement keeps running
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Streaming run log for the current session (protected by logMu)
	logMu  sync.Mutex
	runLog *telemetry.RunLog

	// Readout widgets
	flowLabel   *widget.Label
	heightLabel *widget.Label
	statusLabel *widget.Label

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the application toolbar with Connect, Settings and Calibrate buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	// Connect button with icon
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	// Pause button freezes the display; the measurement chain and the run
	// log keep going underneath.
	pauseBtn := widget.NewButtonWithIcon("", theme.MediaPauseIcon(), func() {
		handlePauseToggle(state)
	})
	state.pauseBtn = pauseBtn

	// Settings button with icon
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	// Simulated sensor toggle, applies to the next connect
	simCheck := widget.NewCheck("Sim", func(checked bool) {
		if state.device != nil && state.device.IsConnected() {
			dialog.ShowInformation("Simulated Sensor",
				"Disconnect before switching the sensor source.", state.window)
			return
		}
		state.useSim = checked
	})
	simCheck.SetChecked(state.useSim)

	// Calibration button
	calibrateBtn := widget.NewButtonWithIcon("Calibrate", theme.MediaRecordIcon(), func() {
		handleCalibrate(state)
	})

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, pauseBtn, settingsBtn), // left
		container.NewHBox(simCheck, calibrateBtn),            // right
		nil, // center (spacer)
	)
}

// handlePauseToggle freezes or resumes the scope and readout.
func handlePauseToggle(state *appState) {
	state.updateMu.Lock()
	state.paused = !state.paused
	paused := state.paused
	state.updateMu.Unlock()

	if paused {
		state.pauseBtn.SetIcon(theme.MediaPlayIcon())
	} else {
		state.pauseBtn.SetIcon(theme.MediaPauseIcon())
	}
}

// registerMeterCallbacks wires the meter to the telemetry sinks and the UI.
func registerMeterCallbacks(state *appState) {
	// Log every frame: telemetry line to stdout, row to the run CSV.
	state.flowMeter.OnUpdate(func(frames []meter.Frame, latest meter.Frame) {
		fmt.Println(telemetry.FormatLine(latest))
		if latest.Event == meter.EventEntered {
			log.Printf("fallback engaged, holding h_snap=%.6f m", latest.HeightSnapped)
		}
		if latest.Event == meter.EventRestored {
			log.Println("sensor restored, fallback cleared")
		}

		state.logMu.Lock()
		runLog := state.runLog
		state.logMu.Unlock()
		if runLog != nil {
			if err := runLog.Write(latest); err != nil {
				log.Printf("run log write: %v", err)
			}
		}
	})

	// Update the UI, throttled to ~60 FPS so the scope doesn't overwhelm Fyne.
	const updateInterval = 16 * time.Millisecond
	state.flowMeter.OnUpdate(func(frames []meter.Frame, latest meter.Frame) {
		state.updateMu.Lock()
		now := time.Now()
		skip := state.paused || now.Sub(state.lastUpdateTime) < updateInterval
		if !skip {
			state.lastUpdateTime = now
		}
		state.updateMu.Unlock()
		if skip {
			return
		}

		// Update widgets on main thread
		// Scope widget handles downsampling internally, so pass full data
		fyne.Do(func() {
			state.scopeWidget.UpdateData(frames, latest)
			updateReadout(state, latest)
		})
	})
}

// newDevice creates a sensor device according to the sim flag.
func newDevice(state *appState) sensor.Device {
	if state.useSim {
		return sensor.NewSim(&state.cfg.Sim, state.cfg.Calibration)
	}
	return sensor.New(state.cfg.Serial.Port, sensor.DefaultBaudRate, sensor.DefaultBufferSize)
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for the meter goroutine to finish and the sample channel to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Close device - this will close the rawSamples channel
	if chain.device != nil {
		chain.device.Close()
	}

	// Wait for meter goroutine to finish
	// The meter goroutine will exit when the sample channel closes
	if chain.meterGoroutine != nil {
		<-chain.meterGoroutine
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		// Disconnect - gracefully close measurement chain
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		closeRunLog(state)
		resetReadout(state)
		if state.useSim {
			fmt.Println("Disconnected from simulated sensor")
		} else {
			fmt.Println("Disconnected from serial port")
		}
		return
	}

	// Connect
	device := newDevice(state)
	if err := device.Connect(); err != nil {
		if state.useSim {
			dialog.ShowError(fmt.Errorf("failed to connect to simulated sensor: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = device
	if state.useSim {
		fmt.Println("Connected to simulated sensor")
	} else {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	// Push the hardware averaging count to the firmware
	if state.cfg.Measurement.SampleCount > 0 {
		if err := device.SetSampleCount(state.cfg.Measurement.SampleCount); err != nil {
			log.Printf("set sample count: %v", err)
		}
	}

	// Open the streaming run log for this session
	start := time.Now()
	runLog, err := telemetry.NewRunLog(
		fmt.Sprintf("logs/run_%s.csv", start.Format("20060102_150405")), start)
	if err != nil {
		log.Printf("run log disabled: %v", err)
		runLog = nil
	}
	state.logMu.Lock()
	state.runLog = runLog
	state.logMu.Unlock()

	// Reset meter shutdown flag for new chain
	state.flowMeter.ResetShutdown()

	rawSamples := device.Samples()
	meterDone := make(chan struct{})

	// Stabilize the filter on the first readings, then run the control loop
	// until the device closes its channel.
	go func() {
		defer close(meterDone)
		state.flowMeter.Stabilize(rawSamples)
		state.flowMeter.ProcessSamples(rawSamples)
	}()

	// Store chain for graceful shutdown
	state.chain = &measurementChain{
		device:         device,
		rawSamples:     rawSamples,
		meterGoroutine: meterDone,
	}
}

// closeRunLog closes the current session log, if any. Safe to call after the
// meter goroutine has exited; no further writes can race the close.
func closeRunLog(state *appState) {
	state.logMu.Lock()
	runLog := state.runLog
	state.runLog = nil
	state.logMu.Unlock()

	if runLog != nil {
		if err := runLog.Close(); err != nil {
			log.Printf("close run log: %v", err)
		}
	}
}
