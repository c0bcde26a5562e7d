//go:build !windows

package focus

import "github.com/taskfocus/taskfocus/pkg/window"

// PanelHeight is the fixed logical height of a collapsed panel
const PanelHeight = 48.0

const nativeFullscreenReliable = true

// The primary window keeps its own minimum size in focus mode
var focusModeMinSize, normalMinSize *window.Size
