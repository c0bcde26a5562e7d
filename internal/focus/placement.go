package focus

import (
	"math"

	"github.com/taskfocus/taskfocus/pkg/window"
)

const (
	// DefaultOffset is the distance of a new panel from the primary window's corner
	DefaultOffset = 32.0
	// CascadeStep is the per-panel diagonal offset between stacked panels
	CascadeStep = 28.0
	// AnchorGap is the horizontal gap kept between an anchor edge and the panel
	AnchorGap = 12.0
	// FallbackOrigin is used when the primary window cannot be located
	FallbackOrigin = 120.0
	// DefaultWindowWidth is assumed when the panel width cannot be read
	DefaultWindowWidth = 320.0
)

// Anchor is a reference span relative to the primary window's position
type Anchor struct {
	Left  float64
	Right float64
	Top   *float64
}

// Frame is the primary window as seen by the placement engine
type Frame struct {
	Origin window.Point
	// Monitor hosting the primary window, nil when unknown
	Monitor *window.Rect
}

// PlacementInput is everything Place needs
type PlacementInput struct {
	// Primary is nil when the primary window cannot be located
	Primary     *Frame
	WindowWidth float64
	Anchor      *Anchor
	// Cascade is the number of other panels currently open
	Cascade int
}

// Place computes the logical top-left corner of a panel
func Place(in PlacementInput) window.Point {
	cascade := float64(in.Cascade) * CascadeStep

	if in.Primary == nil {
		return window.Point{X: FallbackOrigin + cascade, Y: FallbackOrigin + cascade}
	}

	origin := in.Primary.Origin
	if in.Anchor == nil {
		return window.Point{
			X: origin.X + DefaultOffset + cascade,
			Y: origin.Y + DefaultOffset + cascade,
		}
	}

	width := in.WindowWidth
	if width <= 0 {
		width = DefaultWindowWidth
	}

	leftAbs := origin.X + in.Anchor.Left
	rightAbs := origin.X + in.Anchor.Right
	flipped := rightAbs - AnchorGap - width
	x := leftAbs + AnchorGap

	if mon := in.Primary.Monitor; mon != nil {
		minX := mon.X
		maxX := mon.Right() - width
		if x > maxX {
			x = flipped
		}
		x = clamp(x, minX, math.Max(maxX, minX))
	} else if x+width > rightAbs+AnchorGap {
		x = flipped
	}

	y := origin.Y + DefaultOffset
	if in.Anchor.Top != nil {
		y = origin.Y + *in.Anchor.Top
	}

	return window.Point{X: x, Y: y + cascade}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
