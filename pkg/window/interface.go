package window

import "errors"

// Point is a position in logical (DPI-independent) units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in logical units
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a rectangle in logical units
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner of the rectangle
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the dimensions of the rectangle
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// PhysicalPoint is a position in device pixels
type PhysicalPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PhysicalSize is a width/height pair in device pixels
type PhysicalSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToLogical divides the point by the scale factor
func (p PhysicalPoint) ToLogical(scale float64) Point {
	scale = NormalizeScale(scale)
	return Point{X: float64(p.X) / scale, Y: float64(p.Y) / scale}
}

// ToLogical divides the size by the scale factor
func (s PhysicalSize) ToLogical(scale float64) Size {
	scale = NormalizeScale(scale)
	return Size{Width: float64(s.Width) / scale, Height: float64(s.Height) / scale}
}

// NormalizeScale maps unusable scale factors to 1.0
func NormalizeScale(scale float64) float64 {
	if scale <= 0 {
		return 1.0
	}
	return scale
}

// Monitor describes a physical display
type Monitor struct {
	Name        string
	Position    PhysicalPoint
	Size        PhysicalSize
	ScaleFactor float64
}

// Bounds returns the monitor rectangle in logical units of the given scale
func (m Monitor) Bounds(scale float64) Rect {
	origin := m.Position.ToLogical(scale)
	size := m.Size.ToLogical(scale)
	return Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

// Surface is a top-level window owned by the window system.
// All mutating calls must be made from the UI thread.
type Surface interface {
	// Label returns the unique identifier the surface was created with
	Label() string

	// OuterPosition returns the top-left corner including decorations
	OuterPosition() (PhysicalPoint, error)

	// OuterSize returns the size including decorations
	OuterSize() (PhysicalSize, error)

	// InnerSize returns the size of the client area
	InnerSize() (PhysicalSize, error)

	// ScaleFactor returns the ratio of physical to logical pixels
	ScaleFactor() (float64, error)

	// CurrentMonitor returns the monitor hosting the surface, or nil when unknown
	CurrentMonitor() (*Monitor, error)

	IsVisible() bool
	IsMaximized() (bool, error)

	SetPosition(Point) error
	SetSize(Size) error
	SetMinSize(*Size) error
	SetResizable(bool) error
	SetAlwaysOnTop(bool) error
	SetFullscreen(bool) error
	SetVisibleOnAllWorkspaces(bool) error

	Show() error
	Hide() error
	SetFocus() error
	Minimize() error
	Maximize() error
	Unmaximize() error

	// Close destroys the surface; the label becomes free again
	Close() error
}

// PanelOptions configures overlay behavior of a floating panel
type PanelOptions struct {
	Floating            bool
	JoinAllSpaces       bool
	FullscreenAuxiliary bool
	NonActivating       bool
	CornerRadius        float64
}

// Panel is implemented by surfaces that can behave as floating overlay panels.
// Panels are hidden rather than closed once created.
type Panel interface {
	Surface

	ConfigurePanel(PanelOptions) error

	// ShowAndMakeKey shows the panel and gives it key focus
	ShowAndMakeKey() error

	// OrderFrontRegardless raises the panel even when the app is inactive
	OrderFrontRegardless() error

	// OnPointerEnter registers the hover-activation callback; nil clears it
	OnPointerEnter(func())
}

// Options describes a surface to create
type Options struct {
	Label       string
	Title       string
	URL         string
	Size        Size
	MinSize     *Size
	AlwaysOnTop bool
	Decorated   bool
	Resizable   bool
	Focused     bool
	Fullscreen  bool
	Transparent bool
	Visible     bool

	// Panel requests an overlay panel; systems that cannot provide one
	// return a plain Surface
	Panel *PanelOptions
}

// System is a window system: it owns every surface and hands them out by label.
// Get and Labels are safe for concurrent use.
type System interface {
	// Name returns the backend identifier ("x11", "virtual", ...)
	Name() string

	// Get returns the live surface with the given label
	Get(label string) (Surface, bool)

	// Labels returns the labels of all live surfaces, sorted
	Labels() []string

	// Create builds a new surface
	Create(opts Options) (Surface, error)

	// Close releases the connection to the window system
	Close() error
}

var (
	// ErrLabelInUse is returned by Create when a live surface already has the label
	ErrLabelInUse = errors.New("window label already in use")

	// ErrSurfaceClosed is returned by operations on a destroyed surface
	ErrSurfaceClosed = errors.New("window surface is closed")
)
