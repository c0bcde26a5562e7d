// Package virtual provides an in-memory window system. It backs the daemon
// when no display server is reachable and is the reference backend in tests:
// every mutating call is appended to an ordered operation journal.
package virtual

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// Op is one recorded window-system call
type Op struct {
	Label string
	Verb  string
}

// Option configures a System
type Option func(*System)

// WithMonitors sets the monitors reported to surfaces
func WithMonitors(monitors ...window.Monitor) Option {
	return func(s *System) {
		s.monitors = append([]window.Monitor(nil), monitors...)
	}
}

// WithScaleFactor sets the scale factor of every surface
func WithScaleFactor(scale float64) Option {
	return func(s *System) {
		s.scale = window.NormalizeScale(scale)
	}
}

// WithDispatcher routes pointer callbacks through fn (typically the UI loop)
func WithDispatcher(fn func(func())) Option {
	return func(s *System) {
		s.dispatch = fn
	}
}

// System is an in-memory window.System
type System struct {
	mu         sync.Mutex
	surfaces   map[string]*Surface
	monitors   []window.Monitor
	scale      float64
	ops        []Op
	failCreate error
	dispatch   func(func())
}

// New creates an empty virtual window system
func New(opts ...Option) *System {
	s := &System{
		surfaces: make(map[string]*Surface),
		scale:    1.0,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "virtual"
func (s *System) Name() string {
	return "virtual"
}

// Get returns a live surface by label
func (s *System) Get(label string) (window.Surface, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, ok := s.surfaces[label]
	if !ok {
		return nil, false
	}
	if sf.panel != nil {
		return &PanelSurface{Surface: sf}, true
	}
	return sf, true
}

// Labels returns all live labels in sorted order
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

// Create builds a new in-memory surface
func (s *System) Create(opts window.Options) (window.Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		err := s.failCreate
		s.failCreate = nil
		return nil, errors.Wrapf(err, "create surface %q", opts.Label)
	}
	if opts.Label == "" {
		return nil, errors.New("surface label cannot be empty")
	}
	if _, exists := s.surfaces[opts.Label]; exists {
		return nil, errors.Wrapf(window.ErrLabelInUse, "create surface %q", opts.Label)
	}

	sf := &Surface{
		sys:         s,
		label:       opts.Label,
		title:       opts.Title,
		url:         opts.URL,
		size:        s.toPhysicalSize(opts.Size),
		minSize:     opts.MinSize,
		visible:     opts.Visible,
		fullscreen:  opts.Fullscreen,
		alwaysOnTop: opts.AlwaysOnTop,
		resizable:   opts.Resizable,
		decorated:   opts.Decorated,
		focused:     opts.Focused,
	}
	if opts.Panel != nil {
		p := *opts.Panel
		sf.panel = &p
	}
	if opts.Fullscreen {
		if m := s.primaryMonitor(); m != nil {
			sf.pos = m.Position
			sf.size = m.Size
		}
	}
	s.surfaces[opts.Label] = sf
	s.record(opts.Label, "create")

	if sf.panel != nil {
		return &PanelSurface{Surface: sf}, nil
	}
	return sf, nil
}

// Close destroys every surface
func (s *System) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for label, sf := range s.surfaces {
		sf.closed = true
		delete(s.surfaces, label)
	}
	return nil
}

// FailNextCreate makes the next Create call fail with err
func (s *System) FailNextCreate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = err
}

// Ops returns a copy of the operation journal
func (s *System) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// ResetOps clears the operation journal
func (s *System) ResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

// Hover simulates the pointer entering the surface. It returns false when
// the surface does not exist or has no hover callback.
func (s *System) Hover(label string) bool {
	s.mu.Lock()
	sf, ok := s.surfaces[label]
	var cb func()
	if ok {
		cb = sf.onEnter
	}
	dispatch := s.dispatch
	s.mu.Unlock()

	if cb == nil {
		return false
	}
	dispatch(cb)
	return true
}

// Lookup returns the concrete surface behind a label
func (s *System) Lookup(label string) (*Surface, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, ok := s.surfaces[label]
	return sf, ok
}

// VisibleLabels returns labels of visible surfaces in sorted order
func (s *System) VisibleLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var labels []string
	for label, sf := range s.surfaces {
		if sf.visible {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

func (s *System) record(label, verb string) {
	s.ops = append(s.ops, Op{Label: label, Verb: verb})
}

func (s *System) toPhysicalSize(sz window.Size) window.PhysicalSize {
	return window.PhysicalSize{
		Width:  int(math.Round(sz.Width * s.scale)),
		Height: int(math.Round(sz.Height * s.scale)),
	}
}

func (s *System) toPhysicalPoint(p window.Point) window.PhysicalPoint {
	return window.PhysicalPoint{
		X: int(math.Round(p.X * s.scale)),
		Y: int(math.Round(p.Y * s.scale)),
	}
}

func (s *System) primaryMonitor() *window.Monitor {
	if len(s.monitors) == 0 {
		return nil
	}
	m := s.monitors[0]
	return &m
}

func (s *System) monitorAt(pos window.PhysicalPoint, size window.PhysicalSize) *window.Monitor {
	cx := pos.X + size.Width/2
	cy := pos.Y + size.Height/2
	for _, m := range s.monitors {
		if cx >= m.Position.X && cx < m.Position.X+m.Size.Width &&
			cy >= m.Position.Y && cy < m.Position.Y+m.Size.Height {
			found := m
			return &found
		}
	}
	return nil
}
