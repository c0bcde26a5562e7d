package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/pkg/window"
)

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		expected       string
	}{
		{"Wayland session", "wayland", "wayland-0", "", "wayland"},
		{"X11 session", "x11", "", ":0", "x11"},
		{"Unknown session", "", "", "", "unknown"},
		{"Wayland display set", "", "wayland-1", "", "wayland"},
		{"X11 display set", "", "", ":1", "x11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_SESSION_TYPE", tt.sessionType)
			t.Setenv("WAYLAND_DISPLAY", tt.waylandDisplay)
			t.Setenv("DISPLAY", tt.x11Display)

			assert.Equal(t, tt.expected, DetectDisplayServer())
		})
	}
}

func TestNewVirtual(t *testing.T) {
	sys, err := New(Options{Backend: Virtual, ScaleFactor: 2})
	require.NoError(t, err)
	defer sys.Close()

	assert.Equal(t, "virtual", sys.Name())

	sf, err := sys.Create(window.Options{Label: "main", Size: window.Size{Width: 100, Height: 100}})
	require.NoError(t, err)

	scale, err := sf.ScaleFactor()
	require.NoError(t, err)
	assert.Equal(t, 2.0, scale)

	m, err := sf.CurrentMonitor()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, DefaultMonitor.Name, m.Name)
}

func TestNewAutoWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")

	sys, err := New(Options{Backend: Auto})
	require.NoError(t, err)
	defer sys.Close()
	assert.Equal(t, "virtual", sys.Name())
}

func TestNewAutoFallsBackWhenX11Fails(t *testing.T) {
	sys, err := New(Options{Backend: Auto, Display: ":999"})
	require.NoError(t, err)
	defer sys.Close()
	assert.Equal(t, "virtual", sys.Name())
}

func TestNewX11Unreachable(t *testing.T) {
	_, err := New(Options{Backend: X11, Display: ":999"})
	assert.Error(t, err)
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(Options{Backend: "wayland"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported window backend")
}
