package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/solidlab/goventuri/pkg/meter"
)

// createReadout builds the live numeric readout shown below the scope.
func createReadout(state *appState) fyne.CanvasObject {
	state.flowLabel = widget.NewLabel("Q: --- L/s")
	state.flowLabel.TextStyle = fyne.TextStyle{Monospace: true, Bold: true}

	state.heightLabel = widget.NewLabel("h: --- m")
	state.heightLabel.TextStyle = fyne.TextStyle{Monospace: true}

	state.statusLabel = widget.NewLabel("disconnected")

	return container.NewHBox(
		state.flowLabel,
		state.heightLabel,
		widget.NewSeparator(),
		state.statusLabel,
	)
}

// updateReadout refreshes the readout from the latest frame.
// Must be called on the main Fyne thread (via fyne.Do).
func updateReadout(state *appState, latest meter.Frame) {
	state.flowLabel.SetText(fmt.Sprintf("Q: %.4f L/s", latest.FlowRate))
	state.heightLabel.SetText(fmt.Sprintf("h: %.4f m", latest.HeightSnapped))

	if latest.FallbackActive {
		state.statusLabel.SetText("FALLBACK - holding last valid height")
		state.statusLabel.Importance = widget.DangerImportance
	} else {
		state.statusLabel.SetText("measuring")
		state.statusLabel.Importance = widget.MediumImportance
	}
	state.statusLabel.Refresh()
}

// resetReadout returns the readout to the disconnected state.
func resetReadout(state *appState) {
	state.flowLabel.SetText("Q: --- L/s")
	state.heightLabel.SetText("h: --- m")
	state.statusLabel.SetText("disconnected")
	state.statusLabel.Importance = widget.MediumImportance
	state.statusLabel.Refresh()
}
