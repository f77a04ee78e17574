package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/solidlab/goventuri/pkg/config"
	"github.com/solidlab/goventuri/pkg/meter"
)

// ScopeWidget is a custom Fyne widget that displays the flow rate and
// manometer height traces oscilloscope-style, with fallback episodes marked.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu     sync.RWMutex
	frames []meter.Frame

	// Display buffer (reused for downsampling)
	displayFrames []meter.Frame

	// Latest fallback state, drives the banner
	fallbackActive bool

	// Auto-scaling for the flow axis
	qMin, qMax float64
	xMin, xMax time.Time

	// Display settings
	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		frames:           make([]meter.Frame, 0),
		displayFrames:    make([]meter.Frame, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// UpdateData updates the widget with new measurement frames.
// This should be called from the measurement callback using fyne.Do().
func (s *ScopeWidget) UpdateData(frames []meter.Frame, latest meter.Frame) {
	s.mu.Lock()

	// Downsample for display (reuse buffer)
	s.displayFrames = meter.DownsampleFrames(s.displayFrames, frames, s.maxDisplayPoints)

	s.frames = frames
	s.fallbackActive = latest.FallbackActive

	s.updateAutoScale()

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// updateAutoScale calculates the flow axis range from current data.
// The height trace uses a fixed [0, HeightMax] scale, so only the flow
// trace needs auto-ranging.
func (s *ScopeWidget) updateAutoScale() {
	if len(s.displayFrames) == 0 {
		s.qMin = 0.0
		s.qMax = 1.0
		s.xMin = time.Now()
		s.xMax = time.Now().Add(10 * time.Second)
		return
	}

	s.qMin = s.displayFrames[0].FlowRate
	s.qMax = s.displayFrames[0].FlowRate
	for _, f := range s.displayFrames {
		if f.FlowRate < s.qMin {
			s.qMin = f.FlowRate
		}
		if f.FlowRate > s.qMax {
			s.qMax = f.FlowRate
		}
	}

	// Add 10% margin
	qRange := s.qMax - s.qMin
	if qRange == 0 {
		qRange = 0.1
	}
	margin := qRange * 0.1
	s.qMin -= margin
	s.qMax += margin

	// Time range
	s.xMin = s.displayFrames[0].Timestamp
	s.xMax = s.displayFrames[len(s.displayFrames)-1].Timestamp
	// Ensure minimum window
	window := time.Duration(s.cfg.Measurement.WindowSeconds * float64(time.Second))
	if s.xMax.Sub(s.xMin) < window {
		s.xMax = s.xMin.Add(window)
	}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
