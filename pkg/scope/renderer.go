package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/solidlab/goventuri/pkg/meter"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Traces
	flowLine   *canvas.Line
	heightLine *canvas.Line

	// Fallback episode markers (vertical lines)
	eventLines []*canvas.Line

	// Fallback banner
	fallbackLabel *canvas.Text

	// Grid lines
	gridLines []*canvas.Line
	gridTexts []*canvas.Text

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, trigger widget refresh to redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	frames := r.scope.displayFrames
	fallbackActive := r.scope.fallbackActive
	qMin := r.scope.qMin
	qMax := r.scope.qMax
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	heightMax := r.scope.cfg.Calibration.HeightMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep grid)
	r.objects = []fyne.CanvasObject{r.grid}
	r.gridLines = r.gridLines[:0]
	r.gridTexts = r.gridTexts[:0]
	r.eventLines = r.eventLines[:0]
	r.fallbackLabel = nil

	// Calculate margins
	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom
	plotX := marginLeft
	plotY := marginTop

	r.drawGrid(plotX, plotY, plotWidth, plotHeight, qMin, qMax, xMin, xMax)

	// Flow trace (orange)
	if len(frames) > 1 {
		r.drawFlowLine(plotX, plotY, plotWidth, plotHeight, frames, qMin, qMax, xMin, xMax)
	}

	// Height trace (light blue, thicker), fixed [0, HeightMax] scale
	if len(frames) > 1 && heightMax > 0 {
		r.drawHeightLine(plotX, plotY, plotWidth, plotHeight, frames, heightMax, xMin, xMax)
	}

	// Fallback transitions (dark red vertical lines)
	r.drawEvents(plotX, plotY, plotWidth, plotHeight, frames, xMin, xMax)

	if fallbackActive {
		r.drawFallbackBanner(plotX, plotY)
	}
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight float32, qMin, qMax float64, xMin, xMax time.Time) {
	// Horizontal grid lines (flow rate)
	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// Y-axis label
		value := qMax - float64(i)*(qMax-qMin)/float64(numHLines)
		text := canvas.NewText(formatFlow(value), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	for i := 0; i < numVLines+1; i++ {
		x := plotX + float32(i)*plotWidth/float32(numVLines)
		line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		// X-axis label
		timeOffset := float64(i) * xMax.Sub(xMin).Seconds() / float64(numVLines)
		text := canvas.NewText(formatTime(time.Duration(timeOffset*float64(time.Second))), color.RGBA{R: 150, G: 150, B: 150, A: 255})
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, plotY+plotHeight+5))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}
}

// drawFlowLine draws the flow rate curve (orange).
func (r *scopeRenderer) drawFlowLine(plotX, plotY, plotWidth, plotHeight float32, frames []meter.Frame, qMin, qMax float64, xMin, xMax time.Time) {
	points := make([]fyne.Position, 0, len(frames))
	for _, f := range frames {
		x := plotX + float32(f.Timestamp.Sub(xMin).Seconds()/xMax.Sub(xMin).Seconds())*plotWidth
		y := plotY + plotHeight - float32((f.FlowRate-qMin)/(qMax-qMin))*plotHeight
		points = append(points, fyne.NewPos(x, y))
	}

	for i := 0; i < len(points)-1; i++ {
		line := canvas.NewLine(color.RGBA{R: 255, G: 165, B: 0, A: 255}) // Orange
		line.Position1 = points[i]
		line.Position2 = points[i+1]
		line.StrokeWidth = 1.5
		r.objects = append(r.objects, line)
	}
}

// drawHeightLine draws the snapped height curve (light blue, thicker).
// Height uses the full calibrated range for its vertical scale so the two
// traces stay readable on one plot.
func (r *scopeRenderer) drawHeightLine(plotX, plotY, plotWidth, plotHeight float32, frames []meter.Frame, heightMax float64, xMin, xMax time.Time) {
	points := make([]fyne.Position, 0, len(frames))
	for _, f := range frames {
		x := plotX + float32(f.Timestamp.Sub(xMin).Seconds()/xMax.Sub(xMin).Seconds())*plotWidth
		y := plotY + plotHeight - float32(f.HeightSnapped/heightMax)*plotHeight
		points = append(points, fyne.NewPos(x, y))
	}

	for i := 0; i < len(points)-1; i++ {
		line := canvas.NewLine(color.RGBA{R: 100, G: 200, B: 255, A: 255}) // Light blue
		line.Position1 = points[i]
		line.Position2 = points[i+1]
		line.StrokeWidth = 2.5
		r.objects = append(r.objects, line)
	}
}

// drawEvents draws vertical lines where fallback mode was entered or left.
func (r *scopeRenderer) drawEvents(plotX, plotY, plotWidth, plotHeight float32, frames []meter.Frame, xMin, xMax time.Time) {
	for _, f := range frames {
		if f.Event == meter.EventNone {
			continue
		}

		x := plotX + float32(f.Timestamp.Sub(xMin).Seconds()/xMax.Sub(xMin).Seconds())*plotWidth

		c := color.RGBA{R: 200, G: 50, B: 50, A: 255} // Dark red: entered
		if f.Event == meter.EventRestored {
			c = color.RGBA{R: 50, G: 180, B: 80, A: 255} // Green: restored
		}
		line := canvas.NewLine(c)
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.eventLines = append(r.eventLines, line)
		r.objects = append(r.objects, line)
	}
}

// drawFallbackBanner draws the degraded-mode indicator.
func (r *scopeRenderer) drawFallbackBanner(plotX, plotY float32) {
	text := canvas.NewText("FALLBACK - holding last valid height", color.RGBA{R: 255, G: 80, B: 80, A: 255})
	text.TextSize = 12
	text.TextStyle = fyne.TextStyle{Bold: true}
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(plotX+10, plotY+10))
	r.fallbackLabel = text
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

// Helper functions for formatting

func formatFlow(q float64) string {
	return strconv.FormatFloat(q, 'f', 3, 64) + " L/s"
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}
