package virtual

import (
	"math"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// Surface is an in-memory window
type Surface struct {
	sys   *System
	label string
	title string
	url   string

	pos     window.PhysicalPoint
	size    window.PhysicalSize
	minSize *window.Size

	visible       bool
	fullscreen    bool
	maximized     bool
	minimized     bool
	alwaysOnTop   bool
	resizable     bool
	decorated     bool
	allWorkspaces bool
	focused       bool
	closed        bool

	panel   *window.PanelOptions
	onEnter func()
}

// PanelSurface is a Surface that also satisfies window.Panel
type PanelSurface struct {
	*Surface
}

// State is a snapshot of a surface's flags, for assertions
type State struct {
	Visible       bool
	Fullscreen    bool
	Maximized     bool
	Minimized     bool
	AlwaysOnTop   bool
	Resizable     bool
	Decorated     bool
	AllWorkspaces bool
	Focused       bool
	Panel         *window.PanelOptions
	URL           string
}

func (sf *Surface) Label() string {
	return sf.label
}

func (sf *Surface) OuterPosition() (window.PhysicalPoint, error) {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return window.PhysicalPoint{}, window.ErrSurfaceClosed
	}
	return sf.pos, nil
}

func (sf *Surface) OuterSize() (window.PhysicalSize, error) {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return window.PhysicalSize{}, window.ErrSurfaceClosed
	}
	return sf.size, nil
}

// InnerSize equals OuterSize: virtual surfaces have no decorations
func (sf *Surface) InnerSize() (window.PhysicalSize, error) {
	return sf.OuterSize()
}

func (sf *Surface) ScaleFactor() (float64, error) {
	return sf.sys.scale, nil
}

func (sf *Surface) CurrentMonitor() (*window.Monitor, error) {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return nil, window.ErrSurfaceClosed
	}
	return sf.sys.monitorAt(sf.pos, sf.size), nil
}

func (sf *Surface) IsVisible() bool {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	return sf.visible && !sf.closed
}

func (sf *Surface) IsMaximized() (bool, error) {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	return sf.maximized, nil
}

func (sf *Surface) SetPosition(p window.Point) error {
	return sf.mutate("move", func() {
		sf.pos = sf.sys.toPhysicalPoint(p)
	})
}

func (sf *Surface) SetSize(s window.Size) error {
	return sf.mutate("resize", func() {
		if sf.minSize != nil {
			s.Width = math.Max(s.Width, sf.minSize.Width)
			s.Height = math.Max(s.Height, sf.minSize.Height)
		}
		sf.size = sf.sys.toPhysicalSize(s)
	})
}

func (sf *Surface) SetMinSize(s *window.Size) error {
	return sf.mutate("min-size", func() {
		if s == nil {
			sf.minSize = nil
			return
		}
		m := *s
		sf.minSize = &m
	})
}

func (sf *Surface) SetResizable(v bool) error {
	return sf.mutate("resizable", func() { sf.resizable = v })
}

func (sf *Surface) SetAlwaysOnTop(v bool) error {
	return sf.mutate("always-on-top", func() { sf.alwaysOnTop = v })
}

func (sf *Surface) SetFullscreen(v bool) error {
	verb := "fullscreen-off"
	if v {
		verb = "fullscreen-on"
	}
	return sf.mutate(verb, func() {
		sf.fullscreen = v
		if !v {
			return
		}
		if m := sf.sys.monitorAt(sf.pos, sf.size); m != nil {
			sf.pos = m.Position
			sf.size = m.Size
		} else if m := sf.sys.primaryMonitor(); m != nil {
			sf.pos = m.Position
			sf.size = m.Size
		}
	})
}

func (sf *Surface) SetVisibleOnAllWorkspaces(v bool) error {
	return sf.mutate("all-workspaces", func() { sf.allWorkspaces = v })
}

func (sf *Surface) Show() error {
	return sf.mutate("show", func() {
		sf.visible = true
		sf.minimized = false
	})
}

func (sf *Surface) Hide() error {
	return sf.mutate("hide", func() {
		sf.visible = false
		sf.focused = false
	})
}

func (sf *Surface) SetFocus() error {
	return sf.mutate("focus", func() {
		for _, other := range sf.sys.surfaces {
			other.focused = false
		}
		sf.focused = true
	})
}

func (sf *Surface) Minimize() error {
	return sf.mutate("minimize", func() { sf.minimized = true })
}

func (sf *Surface) Maximize() error {
	return sf.mutate("maximize", func() { sf.maximized = true })
}

func (sf *Surface) Unmaximize() error {
	return sf.mutate("unmaximize", func() { sf.maximized = false })
}

func (sf *Surface) Close() error {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return window.ErrSurfaceClosed
	}
	sf.closed = true
	sf.visible = false
	if current, ok := sf.sys.surfaces[sf.label]; ok && current == sf {
		delete(sf.sys.surfaces, sf.label)
	}
	sf.sys.record(sf.label, "close")
	return nil
}

// Snapshot returns the current flags of the surface
func (sf *Surface) Snapshot() State {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()

	st := State{
		Visible:       sf.visible,
		Fullscreen:    sf.fullscreen,
		Maximized:     sf.maximized,
		Minimized:     sf.minimized,
		AlwaysOnTop:   sf.alwaysOnTop,
		Resizable:     sf.resizable,
		Decorated:     sf.decorated,
		AllWorkspaces: sf.allWorkspaces,
		Focused:       sf.focused,
		URL:           sf.url,
	}
	if sf.panel != nil {
		p := *sf.panel
		st.Panel = &p
	}
	return st
}

func (sf *Surface) mutate(verb string, fn func()) error {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return window.ErrSurfaceClosed
	}
	fn()
	sf.sys.record(sf.label, verb)
	return nil
}

func (p *PanelSurface) ConfigurePanel(opts window.PanelOptions) error {
	return p.mutate("configure-panel", func() {
		o := opts
		p.panel = &o
	})
}

func (p *PanelSurface) ShowAndMakeKey() error {
	return p.mutate("show-and-make-key", func() {
		p.visible = true
		for _, other := range p.sys.surfaces {
			other.focused = false
		}
		p.focused = true
	})
}

func (p *PanelSurface) OrderFrontRegardless() error {
	return p.mutate("order-front", func() {})
}

func (p *PanelSurface) OnPointerEnter(fn func()) {
	p.sys.mu.Lock()
	defer p.sys.mu.Unlock()
	p.onEnter = fn
}
