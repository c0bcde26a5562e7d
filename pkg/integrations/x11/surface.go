package x11

import (
	"encoding/binary"
	"math"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// Surface is a top-level X window. Fields other than win and label are
// guarded by the owning System's mutex.
type Surface struct {
	sys     *System
	label   string
	win     xproto.Window
	adopted bool

	mapped    bool
	closed    bool
	resizable bool
	minSize   *window.Size
	state     []xproto.Atom

	panel   *window.PanelOptions
	onEnter func()
}

// PanelSurface is a Surface that also satisfies window.Panel
type PanelSurface struct {
	*Surface
}

type checker interface {
	Check() error
}

func (sf *Surface) handle() window.Surface {
	if sf.panel != nil {
		return &PanelSurface{Surface: sf}
	}
	return sf
}

func (sf *Surface) Label() string {
	return sf.label
}

// XID returns the X window id
func (sf *Surface) XID() uint32 {
	return uint32(sf.win)
}

func (sf *Surface) alive() error {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	if sf.closed {
		return window.ErrSurfaceClosed
	}
	return nil
}

func (sf *Surface) check(verb string, c checker) error {
	if err := c.Check(); err != nil {
		return errors.Wrapf(err, "%s %q", verb, sf.label)
	}
	return nil
}

// frameExtents returns left, right, top, bottom decoration widths
func (sf *Surface) frameExtents() [4]int {
	var ext [4]int
	data, err := sf.sys.getCard32(sf.win, "_NET_FRAME_EXTENTS")
	if err != nil || len(data) < 16 {
		return ext
	}
	for i := range ext {
		ext[i] = int(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return ext
}

func (sf *Surface) OuterPosition() (window.PhysicalPoint, error) {
	if err := sf.alive(); err != nil {
		return window.PhysicalPoint{}, err
	}
	reply, err := xproto.TranslateCoordinates(sf.sys.conn, sf.win, sf.sys.screen.Root, 0, 0).Reply()
	if err != nil {
		return window.PhysicalPoint{}, errors.Wrapf(err, "position of %q", sf.label)
	}
	ext := sf.frameExtents()
	return window.PhysicalPoint{X: int(reply.DstX) - ext[0], Y: int(reply.DstY) - ext[2]}, nil
}

func (sf *Surface) InnerSize() (window.PhysicalSize, error) {
	if err := sf.alive(); err != nil {
		return window.PhysicalSize{}, err
	}
	geom, err := xproto.GetGeometry(sf.sys.conn, xproto.Drawable(sf.win)).Reply()
	if err != nil {
		return window.PhysicalSize{}, errors.Wrapf(err, "geometry of %q", sf.label)
	}
	return window.PhysicalSize{Width: int(geom.Width), Height: int(geom.Height)}, nil
}

func (sf *Surface) OuterSize() (window.PhysicalSize, error) {
	inner, err := sf.InnerSize()
	if err != nil {
		return inner, err
	}
	ext := sf.frameExtents()
	return window.PhysicalSize{
		Width:  inner.Width + ext[0] + ext[1],
		Height: inner.Height + ext[2] + ext[3],
	}, nil
}

func (sf *Surface) ScaleFactor() (float64, error) {
	return sf.sys.scale, nil
}

func (sf *Surface) CurrentMonitor() (*window.Monitor, error) {
	pos, err := sf.OuterPosition()
	if err != nil {
		return nil, err
	}
	size, err := sf.OuterSize()
	if err != nil {
		return nil, err
	}
	return monitorAt(sf.sys.Monitors(), pos, size), nil
}

func monitorAt(monitors []window.Monitor, pos window.PhysicalPoint, size window.PhysicalSize) *window.Monitor {
	cx := pos.X + size.Width/2
	cy := pos.Y + size.Height/2
	for _, m := range monitors {
		if cx >= m.Position.X && cx < m.Position.X+m.Size.Width &&
			cy >= m.Position.Y && cy < m.Position.Y+m.Size.Height {
			found := m
			return &found
		}
	}
	return nil
}

func (sf *Surface) IsVisible() bool {
	sf.sys.mu.Lock()
	defer sf.sys.mu.Unlock()
	return sf.mapped && !sf.closed
}

func (sf *Surface) IsMaximized() (bool, error) {
	if err := sf.alive(); err != nil {
		return false, err
	}
	data, err := sf.sys.getCard32(sf.win, "_NET_WM_STATE")
	if err != nil {
		return false, err
	}
	atoms := bytesToAtoms(data)
	return hasAtom(atoms, sf.sys.atoms["_NET_WM_STATE_MAXIMIZED_VERT"]) &&
		hasAtom(atoms, sf.sys.atoms["_NET_WM_STATE_MAXIMIZED_HORZ"]), nil
}

func (sf *Surface) SetPosition(p window.Point) error {
	if err := sf.alive(); err != nil {
		return err
	}
	x, y := sf.sys.physical(p.X), sf.sys.physical(p.Y)
	return sf.check("move", xproto.ConfigureWindowChecked(sf.sys.conn, sf.win,
		xproto.ConfigWindowX|xproto.ConfigWindowY, []uint32{uint32(int32(x)), uint32(int32(y))}))
}

func (sf *Surface) SetSize(s window.Size) error {
	if err := sf.alive(); err != nil {
		return err
	}
	sf.sys.mu.Lock()
	if sf.minSize != nil {
		s.Width = math.Max(s.Width, sf.minSize.Width)
		s.Height = math.Max(s.Height, sf.minSize.Height)
	}
	resizable := sf.resizable
	sf.sys.mu.Unlock()

	w, h := sf.sys.physical(s.Width), sf.sys.physical(s.Height)
	if !resizable {
		// The fixed size lives in the max hint, so it has to move first
		sf.writeHints(uint32(w), uint32(h))
	}
	return sf.check("resize", xproto.ConfigureWindowChecked(sf.sys.conn, sf.win,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight, []uint32{uint32(w), uint32(h)}))
}

func (sf *Surface) SetMinSize(s *window.Size) error {
	if err := sf.alive(); err != nil {
		return err
	}
	sf.sys.mu.Lock()
	if s == nil {
		sf.minSize = nil
	} else {
		m := *s
		sf.minSize = &m
	}
	resizable := sf.resizable
	sf.sys.mu.Unlock()

	sf.writeSizeHints(resizable)
	return nil
}

func (sf *Surface) SetResizable(v bool) error {
	if err := sf.alive(); err != nil {
		return err
	}
	sf.writeSizeHints(v)
	return nil
}

// writeSizeHints stores the resizable flag and rewrites WM_NORMAL_HINTS. A
// non-resizable window pins its max size to the current size.
func (sf *Surface) writeSizeHints(resizable bool) {
	sf.sys.mu.Lock()
	sf.resizable = resizable
	sf.sys.mu.Unlock()

	var maxW, maxH uint32
	if !resizable {
		if size, err := sf.InnerSize(); err == nil {
			maxW, maxH = uint32(size.Width), uint32(size.Height)
		}
	}
	sf.writeHints(maxW, maxH)
}

func (sf *Surface) writeHints(maxW, maxH uint32) {
	sf.sys.mu.Lock()
	var minW, minH uint32
	if sf.minSize != nil {
		minW = uint32(sf.sys.physical(sf.minSize.Width))
		minH = uint32(sf.sys.physical(sf.minSize.Height))
	}
	sf.sys.mu.Unlock()

	sf.sys.setCard32(sf.win, "WM_NORMAL_HINTS", sf.sys.atoms["WM_SIZE_HINTS"], normalHints(minW, minH, maxW, maxH)...)
}

// netState toggles a _NET_WM_STATE atom. Unmapped windows get the property
// written directly since window managers only read it on map.
func (sf *Surface) netState(verb string, add bool, names ...string) error {
	if err := sf.alive(); err != nil {
		return err
	}

	sf.sys.mu.Lock()
	for _, name := range names {
		sf.state = withAtom(sf.state, sf.sys.atoms[name], add)
	}
	state := append([]xproto.Atom(nil), sf.state...)
	mapped := sf.mapped
	sf.sys.mu.Unlock()

	if !mapped {
		sf.sys.changeProperty(sf.win, sf.sys.atoms["_NET_WM_STATE"], xproto.AtomAtom, atomsToBytes(state))
		return nil
	}

	action := uint32(stateRemove)
	if add {
		action = stateAdd
	}
	data := []uint32{action, uint32(sf.sys.atoms[names[0]]), 0, 1}
	if len(names) > 1 {
		data[2] = uint32(sf.sys.atoms[names[1]])
	}
	if err := sf.sys.clientMessage(sf.win, "_NET_WM_STATE", data...); err != nil {
		return errors.Wrapf(err, "%s %q", verb, sf.label)
	}
	return nil
}

func (sf *Surface) SetAlwaysOnTop(v bool) error {
	return sf.netState("always-on-top", v, "_NET_WM_STATE_ABOVE")
}

func (sf *Surface) SetFullscreen(v bool) error {
	return sf.netState("fullscreen", v, "_NET_WM_STATE_FULLSCREEN")
}

func (sf *Surface) SetVisibleOnAllWorkspaces(v bool) error {
	if err := sf.netState("sticky", v, "_NET_WM_STATE_STICKY"); err != nil {
		return err
	}
	desktop := uint32(0)
	if v {
		desktop = allDesktops
	}
	sf.sys.setCard32(sf.win, "_NET_WM_DESKTOP", xproto.AtomCardinal, desktop)
	return nil
}

func (sf *Surface) Show() error {
	if err := sf.alive(); err != nil {
		return err
	}
	if err := sf.check("show", xproto.MapWindowChecked(sf.sys.conn, sf.win)); err != nil {
		return err
	}
	sf.sys.setMapped(sf.win, true)
	return nil
}

func (sf *Surface) Hide() error {
	if err := sf.alive(); err != nil {
		return err
	}
	if err := sf.check("hide", xproto.UnmapWindowChecked(sf.sys.conn, sf.win)); err != nil {
		return err
	}
	sf.sys.setMapped(sf.win, false)
	return nil
}

// SetFocus asks the window manager to activate the window
func (sf *Surface) SetFocus() error {
	if err := sf.alive(); err != nil {
		return err
	}
	if err := sf.sys.clientMessage(sf.win, "_NET_ACTIVE_WINDOW", 1, xproto.TimeCurrentTime); err != nil {
		return errors.Wrapf(err, "focus %q", sf.label)
	}
	return nil
}

func (sf *Surface) Minimize() error {
	if err := sf.alive(); err != nil {
		return err
	}
	if err := sf.sys.clientMessage(sf.win, "WM_CHANGE_STATE", iconicState); err != nil {
		return errors.Wrapf(err, "minimize %q", sf.label)
	}
	return nil
}

func (sf *Surface) Maximize() error {
	return sf.netState("maximize", true, "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ")
}

func (sf *Surface) Unmaximize() error {
	return sf.netState("unmaximize", false, "_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ")
}

// Close destroys a window created by this process. Adopted windows are
// asked to close themselves through WM_DELETE_WINDOW.
func (sf *Surface) Close() error {
	if err := sf.alive(); err != nil {
		return err
	}

	var err error
	if sf.adopted {
		err = sf.deleteRequest()
	} else {
		err = sf.check("close", xproto.DestroyWindowChecked(sf.sys.conn, sf.win))
	}
	sf.sys.forget(sf.win)
	return err
}

func (sf *Surface) deleteRequest() error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: sf.win,
		Type:   sf.sys.atoms["WM_PROTOCOLS"],
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(sf.sys.atoms["WM_DELETE_WINDOW"]), xproto.TimeCurrentTime, 0, 0, 0,
		}),
	}
	return sf.check("close", xproto.SendEventChecked(sf.sys.conn, false, sf.win, xproto.EventMaskNoEvent, string(ev.Bytes())))
}

// ConfigurePanel applies overlay hints: utility type, above, sticky
func (p *PanelSurface) ConfigurePanel(opts window.PanelOptions) error {
	if err := p.alive(); err != nil {
		return err
	}
	p.sys.mu.Lock()
	o := opts
	p.panel = &o
	p.sys.mu.Unlock()

	p.sys.setCard32(p.win, "_NET_WM_WINDOW_TYPE", xproto.AtomAtom, uint32(p.sys.atoms["_NET_WM_WINDOW_TYPE_UTILITY"]))
	if err := p.netState("panel", opts.Floating, "_NET_WM_STATE_ABOVE", "_NET_WM_STATE_SKIP_TASKBAR"); err != nil {
		return err
	}
	return p.SetVisibleOnAllWorkspaces(opts.JoinAllSpaces)
}

func (p *PanelSurface) ShowAndMakeKey() error {
	if err := p.Show(); err != nil {
		return err
	}
	return p.SetFocus()
}

// OrderFrontRegardless raises the panel to the top of the stack
func (p *PanelSurface) OrderFrontRegardless() error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.check("raise", xproto.ConfigureWindowChecked(p.sys.conn, p.win,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}))
}

func (p *PanelSurface) OnPointerEnter(fn func()) {
	p.sys.mu.Lock()
	defer p.sys.mu.Unlock()
	p.onEnter = fn
}
