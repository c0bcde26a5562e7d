// Package focus manages the lifecycle of per-task focus surfaces: a floating
// panel per task, an optional fullscreen surface reached by handoff, and the
// primary window that is hidden and restored around them.
//
// Manager methods are not safe for concurrent use. They are meant to run on
// the single UI thread (see internal/uithread), which serializes them.
package focus

import (
	"time"

	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// Tier is the capability level of the window system in use
type Tier int

const (
	// TierRich backs panels with overlay surfaces that float above
	// fullscreen spaces and activate on hover
	TierRich Tier = iota
	// TierPlain backs panels with ordinary always-on-top windows
	TierPlain
)

func (t Tier) String() string {
	if t == TierPlain {
		return "plain"
	}
	return "rich"
}

// State is the explicit session state of one task
type State int

const (
	StateClosed State = iota
	StatePanelOpen
	StateFullscreenOpen
)

func (s State) String() string {
	switch s {
	case StatePanelOpen:
		return "panel-open"
	case StateFullscreenOpen:
		return "fullscreen-open"
	default:
		return "closed"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name; unknown names are an error
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateClosed, StatePanelOpen, StateFullscreenOpen} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return errors.Errorf("unknown focus state %q", b)
}

// Op names a transition
type Op string

const (
	OpOpen            Op = "open"
	OpResize          Op = "resize"
	OpResizeHeight    Op = "resize-height"
	OpEnterFullscreen Op = "enter-fullscreen"
	OpExitFullscreen  Op = "exit-fullscreen"
	OpEnterHandoff    Op = "enter-handoff"
	OpExitHandoff     Op = "exit-handoff"
	OpExitToHome      Op = "exit-to-home"
	OpClose           Op = "close"
)

var (
	// PanelMinSize is the smallest a panel may be resized to
	PanelMinSize = window.Size{Width: 270, Height: 48}
	// PanelInitialSize is the size of a newly created panel
	PanelInitialSize = window.Size{Width: 360, Height: 56}
)

// OpenRequest opens or re-shows the panel of a task
type OpenRequest struct {
	TaskID                 string   `json:"taskId"`
	TaskName               string   `json:"taskName"`
	Duration               *float64 `json:"duration,omitempty"`
	TimeSpent              *float64 `json:"timeSpent,omitempty"`
	AnchorLeft             *float64 `json:"anchorLeft,omitempty"`
	AnchorRight            *float64 `json:"anchorRight,omitempty"`
	AnchorTop              *float64 `json:"anchorTop,omitempty"`
	PreserveWindowGeometry bool     `json:"preserveWindowGeometry,omitempty"`
}

// Anchor returns the placement anchor, or nil unless both edges are set
func (r OpenRequest) Anchor() *Anchor {
	if r.AnchorLeft == nil || r.AnchorRight == nil {
		return nil
	}
	return &Anchor{Left: *r.AnchorLeft, Right: *r.AnchorRight, Top: r.AnchorTop}
}

// Target names the surface an operation applies to: the calling focus
// surface when there is one, otherwise the panel of TaskID.
type Target struct {
	Caller string `json:"-"`
	TaskID string `json:"taskId,omitempty"`
}

// HandoffRequest moves a task between its panel and its fullscreen surface
type HandoffRequest struct {
	Caller    string   `json:"-"`
	TaskID    string   `json:"taskId"`
	TaskName  string   `json:"taskName"`
	Duration  *float64 `json:"duration,omitempty"`
	TimeSpent *float64 `json:"timeSpent,omitempty"`
}

// HomeRequest ends focus on a task and returns to the primary window
type HomeRequest struct {
	Caller         string   `json:"-"`
	TaskID         string   `json:"taskId"`
	CompleteOnHome *bool    `json:"completeOnHome,omitempty"`
	ElapsedMs      *float64 `json:"elapsedMs,omitempty"`
}

// CloseRequest closes the surfaces of a task, or of the caller when
// TaskID is empty
type CloseRequest struct {
	Caller string `json:"-"`
	TaskID string `json:"taskId,omitempty"`
}

// SessionInfo is a snapshot of one task's session
type SessionInfo struct {
	TaskID          string `json:"taskId"`
	State           State  `json:"state"`
	PanelLabel      string `json:"panelLabel"`
	FullscreenLabel string `json:"fullscreenLabel"`
	PanelVisible    bool   `json:"panelVisible"`
}

// Transition describes one completed request
type Transition struct {
	Op             Op
	TaskID         string
	TaskName       string
	From           State
	To             State
	Tier           Tier
	CompleteOnHome bool
	ElapsedMs      *float64
	VisiblePanels  int
	Err            error
	At             time.Time
	Took           time.Duration
}

// Observer is told about every transition after it completes
type Observer interface {
	ObserveTransition(Transition)
}

// Emitter delivers best-effort events; it never reports failure
type Emitter interface {
	Send(label, event string, payload interface{})
	Broadcast(event string, payload interface{})
}

// Controller is the tier-independent set of focus requests
type Controller interface {
	Open(OpenRequest) error
	Resize(t Target, width float64) error
	ResizeHeight(t Target, height float64) error
	EnterFullscreen(Target) error
	ExitFullscreen(Target) error
	EnterHandoff(HandoffRequest) error
	ExitHandoff(HandoffRequest) error
	ExitToHome(HomeRequest) error
	Close(CloseRequest) error
	Sessions() []SessionInfo
	Tier() Tier
}

// WindowCommands are chrome and broadcast commands issued by surfaces
type WindowCommands interface {
	Minimize(label string) error
	ToggleMaximize(label string) error
	CloseWindow(label string) error
	SetFocusModeState(label string, enabled bool) error
	TaskUpdated(taskID, text string)
	FocusStatusChanged(activeTaskID *string)
	RefreshPrimary()
}
