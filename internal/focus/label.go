package focus

import "strings"

// PrimaryLabel is the label of the primary application window
const PrimaryLabel = "main"

// Kind distinguishes the two surfaces a task can own
type Kind int

const (
	// KindPanel is the floating focus bar of a task
	KindPanel Kind = iota
	// KindFullscreen is the temporary fullscreen surface reached via handoff
	KindFullscreen
)

const (
	panelPrefix      = "focus-"
	fullscreenPrefix = "focusfs-"
)

const upperHex = "0123456789ABCDEF"

func (k Kind) String() string {
	switch k {
	case KindPanel:
		return "panel"
	case KindFullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

// Prefix returns the label prefix of the kind
func (k Kind) Prefix() string {
	if k == KindFullscreen {
		return fullscreenPrefix
	}
	return panelPrefix
}

// LabelFor maps a task identifier to the label of its surface of the given
// kind. Bytes outside [A-Za-z0-9-] are written as _XX, so distinct task
// identifiers never share a label. An empty identifier yields the bare prefix.
func LabelFor(taskID string, kind Kind) string {
	var b strings.Builder
	b.Grow(len(kind.Prefix()) + len(taskID)*3)
	b.WriteString(kind.Prefix())
	for i := 0; i < len(taskID); i++ {
		c := taskID[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('_')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String()
}

// KindOf reports which kind of focus surface a label names
func KindOf(label string) (Kind, bool) {
	switch {
	case strings.HasPrefix(label, fullscreenPrefix):
		return KindFullscreen, true
	case strings.HasPrefix(label, panelPrefix):
		return KindPanel, true
	default:
		return 0, false
	}
}

// IsPanelLabel reports whether label names a panel-kind surface
func IsPanelLabel(label string) bool {
	k, ok := KindOf(label)
	return ok && k == KindPanel
}

func isSafe(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-'
}
