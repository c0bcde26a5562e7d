//go:build windows

package focus

import "github.com/taskfocus/taskfocus/pkg/window"

// PanelHeight is the fixed logical height of a collapsed panel
const PanelHeight = 56.0

// Frameless windows do not enter native fullscreen reliably
const nativeFullscreenReliable = false

var (
	focusModeMinSize = &window.Size{Width: 270, Height: 56}
	normalMinSize    = &window.Size{Width: 420, Height: 0}
)
