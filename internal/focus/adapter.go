package focus

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// adapter performs the window operations that differ between tiers
type adapter interface {
	tier() Tier
	createPanel(label string, req OpenRequest) (window.Surface, error)
	reusePanel(sf window.Surface)
	presentPanel(sf window.Surface) error
	retirePanel(sf window.Surface) error
	dismissPanel(sf window.Surface) error
	enterFullscreen(sf window.Surface) error
	exitFullscreen(sf window.Surface) error
	prepareResize(sf window.Surface)
	hidesPrimary() bool
	retriesPayload() bool
	distinctHandoffSurface() bool
}

var (
	richFallbackScreen  = window.Size{Width: 1440, Height: 900}
	plainFallbackScreen = window.Size{Width: 1920, Height: 1080}

	overlayPanel = window.PanelOptions{
		Floating:            true,
		JoinAllSpaces:       true,
		FullscreenAuxiliary: true,
		NonActivating:       true,
		CornerRadius:        8,
	}
)

// richAdapter hides panels instead of closing them and never uses native
// fullscreen on a panel
type richAdapter struct {
	sys    window.System
	logger *zap.Logger
}

func (a *richAdapter) tier() Tier                   { return TierRich }
func (a *richAdapter) hidesPrimary() bool           { return true }
func (a *richAdapter) retriesPayload() bool         { return false }
func (a *richAdapter) distinctHandoffSurface() bool { return true }

func (a *richAdapter) createPanel(label string, req OpenRequest) (window.Surface, error) {
	minSize := PanelMinSize
	panel := overlayPanel
	sf, err := a.sys.Create(window.Options{
		Label:       label,
		Title:       req.TaskName,
		URL:         surfaceURL(req.TaskID, req.TaskName, req.Duration, req.TimeSpent, false),
		Size:        PanelInitialSize,
		MinSize:     &minSize,
		AlwaysOnTop: true,
		Resizable:   true,
		Transparent: true,
		Panel:       &panel,
	})
	if err != nil {
		return nil, err
	}
	if p, ok := sf.(window.Panel); ok {
		a.configure(p)
	}
	return sf, nil
}

func (a *richAdapter) reusePanel(sf window.Surface) {
	minSize := PanelMinSize
	if err := sf.SetMinSize(&minSize); err != nil {
		a.logger.Warn("set panel min size", zap.String("label", sf.Label()), zap.Error(err))
	}
	if p, ok := sf.(window.Panel); ok {
		a.configure(p)
	}
}

func (a *richAdapter) configure(p window.Panel) {
	if err := p.ConfigurePanel(overlayPanel); err != nil {
		a.logger.Warn("configure panel", zap.String("label", p.Label()), zap.Error(err))
	}
	label := p.Label()
	p.OnPointerEnter(func() {
		sf, ok := a.sys.Get(label)
		if !ok {
			return
		}
		if hovered, ok := sf.(window.Panel); ok {
			if err := hovered.ShowAndMakeKey(); err != nil {
				a.logger.Debug("hover make key", zap.String("label", label), zap.Error(err))
			}
			if err := hovered.OrderFrontRegardless(); err != nil {
				a.logger.Debug("hover order front", zap.String("label", label), zap.Error(err))
			}
		}
	})
}

func (a *richAdapter) presentPanel(sf window.Surface) error {
	p, ok := sf.(window.Panel)
	if !ok {
		return showAndFocus(sf)
	}
	if err := p.ShowAndMakeKey(); err != nil {
		return err
	}
	return p.OrderFrontRegardless()
}

func (a *richAdapter) retirePanel(sf window.Surface) error  { return sf.Hide() }
func (a *richAdapter) dismissPanel(sf window.Surface) error { return sf.Hide() }

func (a *richAdapter) enterFullscreen(sf window.Surface) error {
	return coverMonitor(sf, richFallbackScreen)
}

// Fullscreen on this tier is left only through the handoff transitions
func (a *richAdapter) exitFullscreen(window.Surface) error { return nil }

func (a *richAdapter) prepareResize(window.Surface) {}

// plainAdapter drives ordinary top-level windows and simulates what the
// rich tier gets from overlay panels
type plainAdapter struct {
	sys    window.System
	stores *Stores
	logger *zap.Logger
	native bool
}

func (a *plainAdapter) tier() Tier                   { return TierPlain }
func (a *plainAdapter) hidesPrimary() bool           { return false }
func (a *plainAdapter) retriesPayload() bool         { return true }
func (a *plainAdapter) distinctHandoffSurface() bool { return false }

func (a *plainAdapter) createPanel(label string, req OpenRequest) (window.Surface, error) {
	minSize := PanelMinSize
	return a.sys.Create(window.Options{
		Label:       label,
		Title:       req.TaskName,
		URL:         "index.html?focus=1",
		Size:        PanelInitialSize,
		MinSize:     &minSize,
		AlwaysOnTop: true,
		Resizable:   true,
		Focused:     true,
	})
}

func (a *plainAdapter) reusePanel(sf window.Surface) {
	if err := sf.SetAlwaysOnTop(true); err != nil {
		a.logger.Warn("set panel always on top", zap.String("label", sf.Label()), zap.Error(err))
	}
}

func (a *plainAdapter) presentPanel(sf window.Surface) error {
	return showAndFocus(sf)
}

func (a *plainAdapter) retirePanel(sf window.Surface) error { return sf.Hide() }

func (a *plainAdapter) dismissPanel(sf window.Surface) error {
	a.stores.PreFullscreen.Remove(sf.Label())
	return sf.Close()
}

func (a *plainAdapter) enterFullscreen(sf window.Surface) error {
	if _, held := a.stores.PreFullscreen.Get(sf.Label()); !held {
		if r, err := Capture(sf, true); err == nil {
			a.stores.PreFullscreen.Put(sf.Label(), r)
		} else {
			a.logger.Warn("capture pre-fullscreen geometry", zap.String("label", sf.Label()), zap.Error(err))
		}
	}
	if a.native {
		return sf.SetFullscreen(true)
	}
	return coverMonitor(sf, plainFallbackScreen)
}

func (a *plainAdapter) exitFullscreen(sf window.Surface) error {
	if a.native {
		if err := sf.SetFullscreen(false); err != nil {
			return err
		}
	}
	r, ok := a.stores.PreFullscreen.Take(sf.Label())
	if !ok {
		return nil
	}
	return Apply(sf, r)
}

func (a *plainAdapter) prepareResize(sf window.Surface) {
	if err := sf.SetFullscreen(false); err != nil {
		a.logger.Debug("leave fullscreen before resize", zap.String("label", sf.Label()), zap.Error(err))
	}
}

// coverMonitor moves and sizes sf over the monitor hosting it, or over a
// fixed rectangle at the origin when the monitor is unknown
func coverMonitor(sf window.Surface, fallback window.Size) error {
	scale, err := sf.ScaleFactor()
	if err != nil {
		scale = 1.0
	}
	target := window.Rect{Width: fallback.Width, Height: fallback.Height}
	if mon, err := sf.CurrentMonitor(); err == nil && mon != nil {
		target = mon.Bounds(scale)
	}
	if err := sf.SetPosition(target.Origin()); err != nil {
		return err
	}
	return sf.SetSize(target.Size())
}

func showAndFocus(sf window.Surface) error {
	if err := sf.Show(); err != nil {
		return err
	}
	return sf.SetFocus()
}

// surfaceURL is the page a focus surface loads; the task travels in the query
func surfaceURL(taskID, taskName string, duration, timeSpent *float64, fullscreen bool) string {
	q := url.Values{}
	q.Set("focus", "1")
	if fullscreen {
		q.Set("fullscreen", "1")
	}
	q.Set("taskId", taskID)
	q.Set("taskName", taskName)
	q.Set("duration", formatNumber(duration))
	q.Set("timeSpent", formatNumber(timeSpent))
	return "index.html?" + q.Encode()
}

func formatNumber(v *float64) string {
	if v == nil {
		return "0"
	}
	return fmt.Sprintf("%g", *v)
}
