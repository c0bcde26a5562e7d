package focus

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/notify"
	"github.com/taskfocus/taskfocus/pkg/window"
)

// DefaultRetryDelay is how long the plain tier waits before re-sending the
// payload of a newly created panel
const DefaultRetryDelay = 160 * time.Millisecond

// Options configures a Manager
type Options struct {
	Tier       Tier
	Logger     *zap.Logger
	Emitter    Emitter
	Observers  []Observer
	Stores     *Stores
	RetryDelay time.Duration
}

// DefaultOptions returns options for the tier of this build
func DefaultOptions() Options {
	return Options{
		Tier:       DefaultTier,
		RetryDelay: DefaultRetryDelay,
	}
}

type session struct {
	taskID          string
	state           State
	panelLabel      string
	fullscreenLabel string
	// simulated is set while a plain-tier panel stands in for the
	// fullscreen surface
	simulated bool
}

// Manager is the focus session state machine
type Manager struct {
	sys        window.System
	adapter    adapter
	stores     *Stores
	emitter    Emitter
	observers  []Observer
	logger     *zap.Logger
	retryDelay time.Duration
	sessions   map[string]*session
	now        func() time.Time
}

// New creates a manager over a window system
func New(sys window.System, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stores := opts.Stores
	if stores == nil {
		stores = NewStores()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = notify.New(nil, nil)
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	m := &Manager{
		sys:        sys,
		stores:     stores,
		emitter:    emitter,
		observers:  opts.Observers,
		logger:     logger.Named("focus"),
		retryDelay: delay,
		sessions:   make(map[string]*session),
		now:        time.Now,
	}

	if opts.Tier == TierPlain {
		m.adapter = &plainAdapter{sys: sys, stores: stores, logger: m.logger, native: nativeFullscreenReliable}
	} else {
		m.adapter = &richAdapter{sys: sys, logger: m.logger}
	}
	return m
}

// AddObserver registers an observer for subsequent transitions
func (m *Manager) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// Tier returns the capability tier of the manager
func (m *Manager) Tier() Tier {
	return m.adapter.tier()
}

// Stores exposes the geometry stores
func (m *Manager) Stores() *Stores {
	return m.stores
}

// Open shows the panel of a task, creating it when needed. Any other visible
// panel is hidden first.
func (m *Manager) Open(req OpenRequest) error {
	start, from := m.begin(req.TaskID)
	err := m.open(req)
	m.finish(Transition{Op: OpOpen, TaskID: req.TaskID, TaskName: req.TaskName, From: from}, start, err)
	return err
}

func (m *Manager) open(req OpenRequest) error {
	label := LabelFor(req.TaskID, KindPanel)
	m.retireOthers(label)

	sf, exists := m.sys.Get(label)
	if exists {
		if s, ok := m.sessions[req.TaskID]; ok && s.simulated {
			m.unsimulate(s, sf)
		}
		m.adapter.reusePanel(sf)
	} else {
		created, err := m.adapter.createPanel(label, req)
		if err != nil {
			return errors.Wrapf(err, "create focus panel for task %q", req.TaskID)
		}
		sf = created
	}

	if !exists || !req.PreserveWindowGeometry {
		if !m.restoreLastPanel(sf) {
			m.position(sf, req.Anchor())
		}
	}

	if err := m.adapter.presentPanel(sf); err != nil {
		return errors.Wrapf(err, "show focus panel %s", label)
	}

	preserve := req.PreserveWindowGeometry
	payload := notify.EnterFocusPayload{
		TaskID:                 req.TaskID,
		TaskName:               req.TaskName,
		Duration:               req.Duration,
		InitialTimeSpent:       valueOr(req.TimeSpent, 0),
		PreserveWindowGeometry: &preserve,
	}
	m.emitter.Send(label, notify.EventEnterFocusMode, payload)
	if !exists && m.adapter.retriesPayload() {
		m.retry(label, notify.EventEnterFocusMode, payload)
	}

	s := m.session(req.TaskID)
	s.state = StatePanelOpen
	s.simulated = false

	id := req.TaskID
	m.emitter.Send(PrimaryLabel, notify.EventFocusStatusChanged, notify.StatusEvent{
		ActiveTaskID: &id,
		OpenedTaskID: &id,
	})

	if m.adapter.hidesPrimary() {
		if main, ok := m.sys.Get(PrimaryLabel); ok {
			m.warn("hide primary window", PrimaryLabel, main.Hide())
		}
	}
	return nil
}

// Resize sets the panel width; the height is fixed at PanelHeight
func (m *Manager) Resize(t Target, width float64) error {
	sf, taskID := m.resolve(t)
	start, from := m.begin(taskID)
	var err error
	if sf != nil {
		m.adapter.prepareResize(sf)
		if serr := sf.SetSize(window.Size{Width: width, Height: PanelHeight}); serr != nil {
			err = errors.Wrapf(serr, "resize %s", sf.Label())
		}
	}
	m.finish(Transition{Op: OpResize, TaskID: taskID, From: from}, start, err)
	return err
}

// ResizeHeight sets the panel height and keeps its current logical width
func (m *Manager) ResizeHeight(t Target, height float64) error {
	sf, taskID := m.resolve(t)
	start, from := m.begin(taskID)
	var err error
	if sf != nil {
		err = m.resizeHeight(sf, height)
	}
	m.finish(Transition{Op: OpResizeHeight, TaskID: taskID, From: from}, start, err)
	return err
}

func (m *Manager) resizeHeight(sf window.Surface, height float64) error {
	size, err := sf.InnerSize()
	if err != nil {
		m.warn("read panel size", sf.Label(), err)
		return nil
	}
	width := size.ToLogical(scaleOf(sf)).Width
	if err := sf.SetSize(window.Size{Width: width, Height: height}); err != nil {
		return errors.Wrapf(err, "resize height of %s", sf.Label())
	}
	return nil
}

// EnterFullscreen makes the target cover its monitor
func (m *Manager) EnterFullscreen(t Target) error {
	sf, taskID := m.resolve(t)
	start, from := m.begin(taskID)
	var err error
	if sf != nil {
		m.warn("set resizable", sf.Label(), sf.SetResizable(true))
		m.warn("set always on top", sf.Label(), sf.SetAlwaysOnTop(true))
		if ferr := m.adapter.enterFullscreen(sf); ferr != nil {
			err = errors.Wrapf(ferr, "enter fullscreen on %s", sf.Label())
		}
	}
	m.finish(Transition{Op: OpEnterFullscreen, TaskID: taskID, From: from}, start, err)
	return err
}

// ExitFullscreen restores the geometry the target had before EnterFullscreen
func (m *Manager) ExitFullscreen(t Target) error {
	sf, taskID := m.resolve(t)
	start, from := m.begin(taskID)
	var err error
	if sf != nil {
		if ferr := m.adapter.exitFullscreen(sf); ferr != nil {
			err = errors.Wrapf(ferr, "exit fullscreen on %s", sf.Label())
		}
	}
	m.finish(Transition{Op: OpExitFullscreen, TaskID: taskID, From: from}, start, err)
	return err
}

// EnterHandoff moves a task from its panel to a fullscreen presentation,
// remembering the panel geometry for the way back
func (m *Manager) EnterHandoff(req HandoffRequest) error {
	start, from := m.begin(req.TaskID)
	err := m.enterHandoff(req)
	m.finish(Transition{Op: OpEnterHandoff, TaskID: req.TaskID, TaskName: req.TaskName, From: from}, start, err)
	return err
}

func (m *Manager) enterHandoff(req HandoffRequest) error {
	panelLabel := LabelFor(req.TaskID, KindPanel)
	source := m.handoffSource(req.Caller, panelLabel)
	if source != nil {
		if r, err := Capture(source, false); err == nil {
			m.stores.Handoff.Put(req.TaskID, r)
		} else {
			m.warn("capture handoff geometry", source.Label(), err)
		}
	}

	payload := notify.EnterFocusPayload{
		TaskID:           req.TaskID,
		TaskName:         req.TaskName,
		Duration:         req.Duration,
		InitialTimeSpent: valueOr(req.TimeSpent, 0),
	}
	s := m.session(req.TaskID)

	if !m.adapter.distinctHandoffSurface() {
		panel, ok := m.sys.Get(panelLabel)
		if !ok {
			return nil
		}
		if err := m.adapter.enterFullscreen(panel); err != nil {
			return errors.Wrapf(err, "enter fullscreen on %s", panelLabel)
		}
		m.emitter.Send(panelLabel, notify.EventEnterFocusMode, payload)
		s.state = StateFullscreenOpen
		s.simulated = true
		return nil
	}

	fsLabel := LabelFor(req.TaskID, KindFullscreen)
	if fs, ok := m.sys.Get(fsLabel); ok {
		m.warn("set fullscreen", fsLabel, fs.SetFullscreen(true))
		m.warn("show", fsLabel, fs.Show())
		m.warn("focus", fsLabel, fs.SetFocus())
		m.emitter.Send(fsLabel, notify.EventEnterFocusMode, payload)
	} else {
		fs, err := m.sys.Create(window.Options{
			Label:       fsLabel,
			Title:       req.TaskName,
			URL:         surfaceURL(req.TaskID, req.TaskName, req.Duration, req.TimeSpent, true),
			AlwaysOnTop: true,
			Resizable:   true,
			Fullscreen:  true,
			Visible:     true,
			Focused:     true,
		})
		if err != nil {
			return errors.Wrapf(err, "create fullscreen surface for task %q", req.TaskID)
		}
		m.emitter.Send(fsLabel, notify.EventEnterFocusMode, payload)
		m.warn("focus", fsLabel, fs.SetFocus())
	}

	if panel, ok := m.sys.Get(panelLabel); ok {
		m.warn("hide panel", panelLabel, m.adapter.retirePanel(panel))
	}
	s.state = StateFullscreenOpen
	s.simulated = false
	return nil
}

// ExitHandoff returns a task from fullscreen to its panel at the geometry
// captured by EnterHandoff
func (m *Manager) ExitHandoff(req HandoffRequest) error {
	start, from := m.begin(req.TaskID)
	err := m.exitHandoff(req)
	m.finish(Transition{Op: OpExitHandoff, TaskID: req.TaskID, TaskName: req.TaskName, From: from}, start, err)
	return err
}

func (m *Manager) exitHandoff(req HandoffRequest) error {
	panelLabel := LabelFor(req.TaskID, KindPanel)
	if !m.adapter.distinctHandoffSurface() {
		if panel, ok := m.sys.Get(panelLabel); ok {
			m.warn("exit fullscreen", panelLabel, m.adapter.exitFullscreen(panel))
		}
		if s, ok := m.sessions[req.TaskID]; ok {
			s.simulated = false
		}
	}

	err := m.open(OpenRequest{
		TaskID:                 req.TaskID,
		TaskName:               req.TaskName,
		Duration:               req.Duration,
		TimeSpent:              req.TimeSpent,
		PreserveWindowGeometry: true,
	})
	if err != nil {
		return err
	}

	if r, ok := m.stores.Handoff.Take(req.TaskID); ok {
		if panel, ok := m.sys.Get(panelLabel); ok {
			m.warn("restore handoff geometry", panelLabel, Apply(panel, r))
		}
	}

	m.closeFullscreen(req.Caller, req.TaskID)
	return nil
}

// ExitToHome ends focus on a task: the fullscreen surface is closed, the
// panel dismissed, and the primary window restored
func (m *Manager) ExitToHome(req HomeRequest) error {
	if req.TaskID == "" {
		req.TaskID = m.taskForLabel(req.Caller)
	}
	start, from := m.begin(req.TaskID)

	m.stores.Handoff.Remove(req.TaskID)
	m.closeFullscreen(req.Caller, req.TaskID)
	m.dismiss(LabelFor(req.TaskID, KindPanel))

	id := req.TaskID
	complete := valueOr(req.CompleteOnHome, false)
	m.emitter.Send(PrimaryLabel, notify.EventFocusStatusChanged, notify.StatusEvent{
		ClosedTaskID:   &id,
		CompleteOnHome: &complete,
		ElapsedMs:      req.ElapsedMs,
	})
	m.restorePrimary()
	m.settle(req.TaskID)

	m.finish(Transition{
		Op:             OpExitToHome,
		TaskID:         req.TaskID,
		From:           from,
		CompleteOnHome: complete,
		ElapsedMs:      req.ElapsedMs,
	}, start, nil)
	return nil
}

// Close performs the cleanup of ExitToHome without the completion details.
// Without a task it acts on the caller, and does nothing when the caller is
// not a focus surface.
func (m *Manager) Close(req CloseRequest) error {
	taskID := req.TaskID
	panelLabel := ""
	if taskID != "" {
		panelLabel = LabelFor(taskID, KindPanel)
	} else {
		kind, ok := KindOf(req.Caller)
		if !ok {
			return nil
		}
		if s := m.sessionByLabel(req.Caller); s != nil {
			taskID = s.taskID
			panelLabel = s.panelLabel
		} else if kind == KindPanel {
			panelLabel = req.Caller
		}
	}

	start, from := m.begin(taskID)
	if taskID != "" {
		m.stores.Handoff.Remove(taskID)
	}
	m.closeFullscreen(req.Caller, taskID)
	if panelLabel != "" {
		m.dismiss(panelLabel)
	}

	var closed *string
	if taskID != "" {
		id := taskID
		closed = &id
	}
	m.emitter.Send(PrimaryLabel, notify.EventFocusStatusChanged, notify.StatusEvent{ClosedTaskID: closed})
	m.restorePrimary()
	if taskID != "" {
		m.settle(taskID)
	}

	m.finish(Transition{Op: OpClose, TaskID: taskID, From: from}, start, nil)
	return nil
}

// Sessions returns the state of every known task, sorted by task id
func (m *Manager) Sessions() []SessionInfo {
	m.reconcile()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		info := SessionInfo{
			TaskID:          s.taskID,
			State:           s.state,
			PanelLabel:      s.panelLabel,
			FullscreenLabel: s.fullscreenLabel,
		}
		if sf, ok := m.sys.Get(s.panelLabel); ok {
			info.PanelVisible = sf.IsVisible()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// State returns the session state of a task
func (m *Manager) State(taskID string) State {
	m.reconcile()
	if s, ok := m.sessions[taskID]; ok {
		return s.state
	}
	return StateClosed
}

// VisiblePanels counts panel surfaces currently shown
func (m *Manager) VisiblePanels() int {
	n := 0
	for _, label := range m.sys.Labels() {
		if !IsPanelLabel(label) {
			continue
		}
		if sf, ok := m.sys.Get(label); ok && sf.IsVisible() {
			n++
		}
	}
	return n
}

func (m *Manager) begin(taskID string) (time.Time, State) {
	m.reconcile()
	from := StateClosed
	if s, ok := m.sessions[taskID]; ok {
		from = s.state
	}
	return m.now(), from
}

func (m *Manager) finish(t Transition, start time.Time, err error) {
	m.reconcile()
	t.To = StateClosed
	if s, ok := m.sessions[t.TaskID]; ok {
		t.To = s.state
	}
	t.Tier = m.adapter.tier()
	t.VisiblePanels = m.VisiblePanels()
	t.Err = err
	t.At = start
	t.Took = m.now().Sub(start)

	if err != nil {
		m.logger.Warn("focus transition failed",
			zap.String("op", string(t.Op)),
			zap.String("task", t.TaskID),
			zap.Error(err))
	} else {
		m.logger.Debug("focus transition",
			zap.String("op", string(t.Op)),
			zap.String("task", t.TaskID),
			zap.Stringer("from", t.From),
			zap.Stringer("to", t.To))
	}

	for _, o := range m.observers {
		o.ObserveTransition(t)
	}
}

// reconcile aligns session states with the surfaces that still exist
func (m *Manager) reconcile() {
	for id, s := range m.sessions {
		_, panel := m.sys.Get(s.panelLabel)
		_, fs := m.sys.Get(s.fullscreenLabel)
		if s.simulated {
			fs = panel
		}
		switch {
		case !panel && !fs:
			delete(m.sessions, id)
		case s.state == StateFullscreenOpen && !fs:
			s.state = StateClosed
			s.simulated = false
		case s.state == StatePanelOpen && !panel:
			s.state = StateClosed
		}
	}
}

func (m *Manager) session(taskID string) *session {
	s, ok := m.sessions[taskID]
	if !ok {
		s = &session{
			taskID:          taskID,
			panelLabel:      LabelFor(taskID, KindPanel),
			fullscreenLabel: LabelFor(taskID, KindFullscreen),
		}
		m.sessions[taskID] = s
	}
	return s
}

// settle marks a task closed after its surfaces were dismissed
func (m *Manager) settle(taskID string) {
	if s, ok := m.sessions[taskID]; ok {
		s.state = StateClosed
		s.simulated = false
	}
	m.reconcile()
}

func (m *Manager) sessionByLabel(label string) *session {
	for _, s := range m.sessions {
		if s.panelLabel == label || s.fullscreenLabel == label {
			return s
		}
	}
	return nil
}

func (m *Manager) taskForLabel(label string) string {
	if s := m.sessionByLabel(label); s != nil {
		return s.taskID
	}
	return ""
}

// resolve finds the focus surface a request targets. A missing target
// yields nil and is not an error.
func (m *Manager) resolve(t Target) (window.Surface, string) {
	if _, ok := KindOf(t.Caller); ok {
		if sf, ok := m.sys.Get(t.Caller); ok {
			taskID := t.TaskID
			if taskID == "" {
				taskID = m.taskForLabel(t.Caller)
			}
			return sf, taskID
		}
	}
	if t.TaskID != "" {
		if sf, ok := m.sys.Get(LabelFor(t.TaskID, KindPanel)); ok {
			return sf, t.TaskID
		}
	}
	return nil, t.TaskID
}

func (m *Manager) handoffSource(caller, panelLabel string) window.Surface {
	if IsPanelLabel(caller) {
		if sf, ok := m.sys.Get(caller); ok {
			return sf
		}
	}
	if sf, ok := m.sys.Get(panelLabel); ok {
		return sf
	}
	return nil
}

// retireOthers hides every visible panel except keep, before keep is shown
func (m *Manager) retireOthers(keep string) {
	for _, label := range m.sys.Labels() {
		if label == keep || !IsPanelLabel(label) {
			continue
		}
		sf, ok := m.sys.Get(label)
		if !ok || !sf.IsVisible() {
			continue
		}
		s := m.sessionByLabel(label)
		if s != nil && s.simulated {
			m.unsimulate(s, sf)
		}
		m.warn("retire panel", label, m.adapter.retirePanel(sf))
		if s != nil && s.state == StatePanelOpen {
			s.state = StateClosed
		}
	}
}

// unsimulate takes a plain-tier panel out of its stand-in fullscreen and
// drops the handoff snapshot that would have restored it.
func (m *Manager) unsimulate(s *session, sf window.Surface) {
	m.warn("leave simulated fullscreen", sf.Label(), m.adapter.exitFullscreen(sf))
	m.stores.Handoff.Remove(s.taskID)
	m.stores.PreFullscreen.Remove(sf.Label())
	s.state = StateClosed
	s.simulated = false
}

// cascade counts the panels that exist for other tasks
func (m *Manager) cascade(label string) int {
	n := 0
	for _, other := range m.sys.Labels() {
		if other != label && IsPanelLabel(other) {
			n++
		}
	}
	return n
}

func (m *Manager) position(sf window.Surface, anchor *Anchor) {
	in := PlacementInput{Anchor: anchor, Cascade: m.cascade(sf.Label())}

	if main, ok := m.sys.Get(PrimaryLabel); ok {
		if pos, err := main.OuterPosition(); err == nil {
			scale := scaleOf(main)
			frame := &Frame{Origin: pos.ToLogical(scale)}
			if mon, err := main.CurrentMonitor(); err == nil && mon != nil {
				bounds := mon.Bounds(scale)
				frame.Monitor = &bounds
			}
			in.Primary = frame
			if size, err := sf.OuterSize(); err == nil {
				in.WindowWidth = size.ToLogical(scale).Width
			}
		}
	}

	m.warn("position panel", sf.Label(), sf.SetPosition(Place(in)))
}

func (m *Manager) restoreLastPanel(sf window.Surface) bool {
	r, ok := m.stores.LastPanel.Take(LastPanelKey)
	if !ok {
		return false
	}
	m.warn("restore panel geometry", sf.Label(), Apply(sf, r))
	return true
}

func (m *Manager) dismiss(panelLabel string) {
	sf, ok := m.sys.Get(panelLabel)
	if !ok {
		return
	}
	if r, err := Capture(sf, false); err == nil {
		m.stores.LastPanel.Put(LastPanelKey, r)
	}
	m.warn("dismiss panel", panelLabel, m.adapter.dismissPanel(sf))
}

func (m *Manager) closeFullscreen(caller, taskID string) {
	if kind, ok := KindOf(caller); ok && kind == KindFullscreen {
		if sf, ok := m.sys.Get(caller); ok {
			m.warn("close fullscreen surface", caller, sf.Close())
		}
		return
	}
	if taskID == "" {
		return
	}
	label := LabelFor(taskID, KindFullscreen)
	if sf, ok := m.sys.Get(label); ok {
		m.warn("close fullscreen surface", label, sf.Close())
	}
}

func (m *Manager) restorePrimary() {
	main, ok := m.sys.Get(PrimaryLabel)
	if !ok {
		return
	}
	m.warn("show primary window", PrimaryLabel, main.Show())
	m.warn("focus primary window", PrimaryLabel, main.SetFocus())
}

// warn logs a best-effort window-system failure
func (m *Manager) warn(op, label string, err error) {
	if err == nil {
		return
	}
	m.logger.Warn("window operation failed",
		zap.String("op", op),
		zap.String("label", label),
		zap.Error(err))
}

func scaleOf(sf window.Surface) float64 {
	scale, err := sf.ScaleFactor()
	if err != nil {
		return 1.0
	}
	return window.NormalizeScale(scale)
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
