// Package backend picks the window system the daemon runs on.
package backend

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/pkg/integrations/virtual"
	"github.com/taskfocus/taskfocus/pkg/integrations/x11"
	"github.com/taskfocus/taskfocus/pkg/window"
)

// Backend names
const (
	Auto    = "auto"
	X11     = "x11"
	Virtual = "virtual"
)

// DefaultMonitor is the single screen of a virtual backend
var DefaultMonitor = window.Monitor{
	Name: "virtual-0",
	Size: window.PhysicalSize{Width: 1920, Height: 1080},
}

// Options configures New
type Options struct {
	Backend      string
	Display      string
	ScaleFactor  float64
	PrimaryXID   uint32
	PrimaryLabel string
	Dispatch     func(func())
	Logger       *zap.Logger
}

// New opens the requested window system. With Auto it connects to X when
// a display is advertised and falls back to the virtual backend otherwise.
func New(opts Options) (window.System, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Backend {
	case X11:
		return newX11(opts, logger)
	case Virtual:
		return newVirtual(opts), nil
	case Auto, "":
		if opts.Display == "" && os.Getenv("DISPLAY") == "" {
			logger.Info("no X display advertised, using virtual window system",
				zap.String("display_server", DetectDisplayServer()))
			return newVirtual(opts), nil
		}
		sys, err := newX11(opts, logger)
		if err != nil {
			logger.Warn("X11 unavailable, using virtual window system", zap.Error(err))
			return newVirtual(opts), nil
		}
		return sys, nil
	default:
		return nil, errors.Errorf("unsupported window backend %q", opts.Backend)
	}
}

func newX11(opts Options, logger *zap.Logger) (window.System, error) {
	sys, err := x11.New(x11.Options{
		Display:      opts.Display,
		ScaleFactor:  opts.ScaleFactor,
		PrimaryXID:   opts.PrimaryXID,
		PrimaryLabel: opts.PrimaryLabel,
		Dispatch:     opts.Dispatch,
		Logger:       logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open x11 window system")
	}
	return sys, nil
}

func newVirtual(opts Options) window.System {
	monitor := DefaultMonitor
	monitor.ScaleFactor = window.NormalizeScale(opts.ScaleFactor)

	vopts := []virtual.Option{
		virtual.WithMonitors(monitor),
		virtual.WithScaleFactor(opts.ScaleFactor),
	}
	if opts.Dispatch != nil {
		vopts = append(vopts, virtual.WithDispatcher(opts.Dispatch))
	}
	return virtual.New(vopts...)
}

// DetectDisplayServer reports the session type from the environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
