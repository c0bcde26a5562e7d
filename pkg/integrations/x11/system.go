// Package x11 implements window.System on an X11 connection. Surfaces are
// plain X windows managed through EWMH hints; panels additionally get the
// utility window type, stay above and sticky, and activate on pointer enter.
package x11

import (
	"math"
	"sort"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/pkg/window"
)

var atomNames = []string{
	"_NET_WM_STATE",
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_STATE_MAXIMIZED_VERT",
	"_NET_WM_STATE_MAXIMIZED_HORZ",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_DESKTOP",
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_FRAME_EXTENTS",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_MOTIF_WM_HINTS",
	"WM_PROTOCOLS",
	"WM_DELETE_WINDOW",
	"WM_CHANGE_STATE",
	"WM_NORMAL_HINTS",
	"WM_SIZE_HINTS",
	"UTF8_STRING",
	"_TASKFOCUS_LABEL",
	"_TASKFOCUS_URL",
}

// Options configures a System
type Options struct {
	// Display overrides $DISPLAY
	Display string

	// ScaleFactor is the ratio of physical to logical pixels
	ScaleFactor float64

	// PrimaryXID adopts an existing window as the given label (usually "main")
	PrimaryXID   uint32
	PrimaryLabel string

	// Dispatch runs pointer callbacks, typically on the UI loop
	Dispatch func(func())

	Logger *zap.Logger
}

// System is a window.System backed by an X server
type System struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	atoms  map[string]xproto.Atom
	randr  bool
	scale  float64
	logger *zap.Logger

	dispatch func(func())

	mu       sync.Mutex
	surfaces map[string]*Surface
	byWindow map[xproto.Window]*Surface

	done chan struct{}
}

// New connects to the X server and starts the event loop
func New(opts Options) (*System, error) {
	conn, err := xgb.NewConnDisplay(opts.Display)
	if err != nil {
		return nil, errors.Wrap(err, "connect to X server")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}

	s := &System{
		conn:     conn,
		screen:   xproto.Setup(conn).DefaultScreen(conn),
		atoms:    make(map[string]xproto.Atom, len(atomNames)),
		scale:    window.NormalizeScale(opts.ScaleFactor),
		logger:   logger.Named("x11"),
		dispatch: dispatch,
		surfaces: make(map[string]*Surface),
		byWindow: make(map[xproto.Window]*Surface),
		done:     make(chan struct{}),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "intern atom %s", name)
		}
		s.atoms[name] = reply.Atom
	}

	if err := randr.Init(conn); err != nil {
		s.logger.Info("randr unavailable, using the root window as the only monitor", zap.Error(err))
	} else {
		s.randr = true
	}

	if opts.PrimaryXID != 0 {
		label := opts.PrimaryLabel
		if label == "" {
			label = "main"
		}
		if _, err := s.Adopt(label, opts.PrimaryXID); err != nil {
			conn.Close()
			return nil, err
		}
	}

	go s.eventLoop()
	return s, nil
}

func (s *System) Name() string {
	return "x11"
}

func (s *System) Get(label string) (window.Surface, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, ok := s.surfaces[label]
	if !ok {
		return nil, false
	}
	return sf.handle(), true
}

func (s *System) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := make([]string, 0, len(s.surfaces))
	for label := range s.surfaces {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Adopt registers an existing top-level window under label
func (s *System) Adopt(label string, xid uint32) (window.Surface, error) {
	win := xproto.Window(xid)
	attrs, err := xproto.GetWindowAttributes(s.conn, win).Reply()
	if err != nil {
		return nil, errors.Wrapf(err, "adopt window 0x%x", xid)
	}

	// Watch the window without taking over its event mask
	mask := attrs.YourEventMask | xproto.EventMaskStructureNotify
	if err := xproto.ChangeWindowAttributesChecked(s.conn, win, xproto.CwEventMask, []uint32{mask}).Check(); err != nil {
		return nil, errors.Wrapf(err, "select events on 0x%x", xid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.surfaces[label]; exists {
		return nil, errors.Wrapf(window.ErrLabelInUse, "adopt %q", label)
	}

	sf := &Surface{
		sys:     s,
		label:   label,
		win:     win,
		adopted: true,
		mapped:  attrs.MapState == xproto.MapStateViewable,
	}
	s.surfaces[label] = sf
	s.byWindow[win] = sf
	return sf.handle(), nil
}

// Create builds a new X window for opts
func (s *System) Create(opts window.Options) (window.Surface, error) {
	if opts.Label == "" {
		return nil, errors.New("surface label cannot be empty")
	}

	s.mu.Lock()
	_, exists := s.surfaces[opts.Label]
	s.mu.Unlock()
	if exists {
		return nil, errors.Wrapf(window.ErrLabelInUse, "create surface %q", opts.Label)
	}

	win, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return nil, errors.Wrap(err, "allocate window id")
	}

	w, h := s.physical(opts.Size.Width), s.physical(opts.Size.Height)
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}

	eventMask := uint32(xproto.EventMaskStructureNotify | xproto.EventMaskEnterWindow)
	err = xproto.CreateWindowChecked(s.conn, s.screen.RootDepth, win, s.screen.Root,
		0, 0, uint16(w), uint16(h), 0,
		xproto.WindowClassInputOutput, s.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{s.screen.WhitePixel, eventMask}).Check()
	if err != nil {
		return nil, errors.Wrapf(err, "create surface %q", opts.Label)
	}

	sf := &Surface{sys: s, label: opts.Label, win: win}
	if opts.MinSize != nil {
		m := *opts.MinSize
		sf.minSize = &m
	}
	if opts.Panel != nil {
		p := *opts.Panel
		sf.panel = &p
	}

	s.setString(win, "WM_NAME", xproto.AtomString, opts.Title)
	s.setString(win, "_NET_WM_NAME", s.atoms["UTF8_STRING"], opts.Title)
	s.setString(win, "_TASKFOCUS_LABEL", s.atoms["UTF8_STRING"], opts.Label)
	s.setString(win, "_TASKFOCUS_URL", s.atoms["UTF8_STRING"], opts.URL)
	s.setString(win, "WM_CLASS", xproto.AtomString, "taskfocus\x00TaskFocus\x00")
	s.setCard32(win, "WM_PROTOCOLS", xproto.AtomAtom, uint32(s.atoms["WM_DELETE_WINDOW"]))

	if !opts.Decorated || opts.Panel != nil {
		s.setCard32(win, "_MOTIF_WM_HINTS", s.atoms["_MOTIF_WM_HINTS"], motifHints(false)...)
	}

	var state []xproto.Atom
	if opts.AlwaysOnTop || opts.Panel != nil {
		state = append(state, s.atoms["_NET_WM_STATE_ABOVE"])
	}
	if opts.Fullscreen {
		state = append(state, s.atoms["_NET_WM_STATE_FULLSCREEN"])
	}
	if opts.Panel != nil {
		s.setCard32(win, "_NET_WM_WINDOW_TYPE", xproto.AtomAtom, uint32(s.atoms["_NET_WM_WINDOW_TYPE_UTILITY"]))
		state = append(state, s.atoms["_NET_WM_STATE_SKIP_TASKBAR"])
		if opts.Panel.JoinAllSpaces {
			state = append(state, s.atoms["_NET_WM_STATE_STICKY"])
			s.setCard32(win, "_NET_WM_DESKTOP", xproto.AtomCardinal, allDesktops)
		}
	}
	sf.state = state
	if len(state) > 0 {
		s.changeProperty(win, s.atoms["_NET_WM_STATE"], xproto.AtomAtom, atomsToBytes(state))
	}

	s.mu.Lock()
	s.surfaces[opts.Label] = sf
	s.byWindow[win] = sf
	s.mu.Unlock()

	sf.writeSizeHints(opts.Resizable)

	if opts.Visible {
		if err := sf.Show(); err != nil {
			return nil, err
		}
		if opts.Focused {
			_ = sf.SetFocus()
		}
	}
	return sf.handle(), nil
}

// Close destroys every created window and closes the connection
func (s *System) Close() error {
	s.mu.Lock()
	surfaces := make([]*Surface, 0, len(s.surfaces))
	for _, sf := range s.surfaces {
		surfaces = append(surfaces, sf)
	}
	s.mu.Unlock()

	for _, sf := range surfaces {
		if !sf.adopted {
			_ = sf.Close()
		}
	}
	s.conn.Close()
	<-s.done
	return nil
}

// Monitors returns the active CRTCs, or the root window when randr is missing
func (s *System) Monitors() []window.Monitor {
	root := window.Monitor{
		Name:        "root",
		Size:        window.PhysicalSize{Width: int(s.screen.WidthInPixels), Height: int(s.screen.HeightInPixels)},
		ScaleFactor: s.scale,
	}
	if !s.randr {
		return []window.Monitor{root}
	}

	res, err := randr.GetScreenResources(s.conn, s.screen.Root).Reply()
	if err != nil {
		s.logger.Debug("get screen resources", zap.Error(err))
		return []window.Monitor{root}
	}

	var monitors []window.Monitor
	for _, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(s.conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 {
			continue
		}
		name := "crtc"
		if len(info.Outputs) > 0 {
			if out, err := randr.GetOutputInfo(s.conn, info.Outputs[0], res.ConfigTimestamp).Reply(); err == nil {
				name = string(out.Name)
			}
		}
		monitors = append(monitors, window.Monitor{
			Name:        name,
			Position:    window.PhysicalPoint{X: int(info.X), Y: int(info.Y)},
			Size:        window.PhysicalSize{Width: int(info.Width), Height: int(info.Height)},
			ScaleFactor: s.scale,
		})
	}
	if len(monitors) == 0 {
		return []window.Monitor{root}
	}
	return monitors
}

func (s *System) eventLoop() {
	defer close(s.done)
	for {
		ev, xerr := s.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			s.logger.Debug("x11 error", zap.String("error", xerr.Error()))
			continue
		}

		switch e := ev.(type) {
		case xproto.EnterNotifyEvent:
			if cb := s.enterCallback(e.Event); cb != nil {
				s.dispatch(cb)
			}
		case xproto.MapNotifyEvent:
			s.setMapped(e.Window, true)
		case xproto.UnmapNotifyEvent:
			s.setMapped(e.Window, false)
		case xproto.DestroyNotifyEvent:
			s.forget(e.Window)
		}
	}
}

func (s *System) enterCallback(win xproto.Window) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sf, ok := s.byWindow[win]; ok {
		return sf.onEnter
	}
	return nil
}

func (s *System) setMapped(win xproto.Window, mapped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sf, ok := s.byWindow[win]; ok {
		sf.mapped = mapped
	}
}

// forget drops a window destroyed by someone else (e.g. the user closing it)
func (s *System) forget(win xproto.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.byWindow[win]
	if !ok {
		return
	}
	sf.closed = true
	delete(s.byWindow, win)
	if current, ok := s.surfaces[sf.label]; ok && current == sf {
		delete(s.surfaces, sf.label)
	}
}

func (s *System) physical(v float64) int {
	return int(math.Round(v * s.scale))
}

func (s *System) changeProperty(win xproto.Window, prop, typ xproto.Atom, data []byte) {
	err := xproto.ChangePropertyChecked(s.conn, xproto.PropModeReplace, win, prop, typ, 32,
		uint32(len(data)/4), data).Check()
	if err != nil {
		s.logger.Debug("change property", zap.Uint32("window", uint32(win)), zap.Error(err))
	}
}

// atom resolves predefined atoms before interned ones
func (s *System) atom(name string) xproto.Atom {
	switch name {
	case "WM_NAME":
		return xproto.AtomWmName
	case "WM_CLASS":
		return xproto.AtomWmClass
	}
	return s.atoms[name]
}

func (s *System) setCard32(win xproto.Window, name string, typ xproto.Atom, values ...uint32) {
	s.changeProperty(win, s.atom(name), typ, u32s(values...))
}

func (s *System) setString(win xproto.Window, name string, typ xproto.Atom, value string) {
	err := xproto.ChangePropertyChecked(s.conn, xproto.PropModeReplace, win, s.atom(name), typ, 8,
		uint32(len(value)), []byte(value)).Check()
	if err != nil {
		s.logger.Debug("set string property", zap.String("name", name), zap.Error(err))
	}
}

// getCard32 reads a 32-bit property; a missing property yields nil
func (s *System) getCard32(win xproto.Window, name string) ([]byte, error) {
	reply, err := xproto.GetProperty(s.conn, false, win, s.atom(name), xproto.GetPropertyTypeAny, 0, 64).Reply()
	if err != nil {
		return nil, errors.Wrapf(err, "get property %s", name)
	}
	if reply.Format != 32 {
		return nil, nil
	}
	return reply.Value, nil
}

// clientMessage sends a 32-bit client message about win to the root window
func (s *System) clientMessage(win xproto.Window, typ string, data ...uint32) error {
	for len(data) < 5 {
		data = append(data, 0)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   s.atoms[typ],
		Data:   xproto.ClientMessageDataUnionData32New(data),
	}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	return xproto.SendEventChecked(s.conn, false, s.screen.Root, mask, string(ev.Bytes())).Check()
}
