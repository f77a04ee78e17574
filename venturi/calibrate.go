package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/solidlab/goventuri/pkg/calib"
)

// handleCalibrate runs a calibration logging session. The session opens its
// own device, so the normal measurement chain must be disconnected first;
// two consumers of one sample channel would starve each other.
func handleCalibrate(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		dialog.ShowInformation("Calibration",
			"Disconnect the measurement chain before calibrating.", state.window)
		return
	}

	device := newDevice(state)
	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect for calibration: %w", err), state.window)
		return
	}

	path := fmt.Sprintf("calibration_%s.log", time.Now().Format("20060102_150405"))
	file, err := os.Create(path)
	if err != nil {
		device.Close()
		dialog.ShowError(fmt.Errorf("failed to create calibration log: %w", err), state.window)
		return
	}

	duration := state.cfg.Calibration.SessionDuration
	ctx, cancel := context.WithCancel(context.Background())

	label := widget.NewLabel(fmt.Sprintf(
		"Recording raw counts for %s.\nExercise the manometer through both endpoints.\nWriting to %s",
		duration, path))
	progress := widget.NewProgressBarInfinite()
	d := dialog.NewCustom("Calibration", "Cancel",
		container.NewVBox(label, progress), state.window)
	d.SetOnClosed(cancel)
	d.Show()

	go func() {
		stats, runErr := calib.Run(ctx, device.Samples(), duration, file)

		device.Close()
		if err := file.Close(); err != nil {
			log.Printf("close calibration log: %v", err)
		}

		fyne.Do(func() {
			d.Hide()
			if runErr != nil && runErr != context.Canceled {
				dialog.ShowError(fmt.Errorf("calibration failed: %w", runErr), state.window)
				return
			}
			dialog.ShowInformation("Calibration Complete",
				fmt.Sprintf("%d samples recorded to %s\n\n%s", stats.Count, path, calib.Summary(stats)),
				state.window)
		})
	}()
}
