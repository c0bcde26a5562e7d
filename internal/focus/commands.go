package focus

import (
	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/internal/notify"
)

// Minimize minimizes the window with the given label
func (m *Manager) Minimize(label string) error {
	sf, ok := m.sys.Get(label)
	if !ok {
		return nil
	}
	return errors.Wrapf(sf.Minimize(), "minimize %s", label)
}

// ToggleMaximize maximizes the window, or restores it when already maximized
func (m *Manager) ToggleMaximize(label string) error {
	sf, ok := m.sys.Get(label)
	if !ok {
		return nil
	}
	maximized, err := sf.IsMaximized()
	if err != nil {
		m.warn("read maximized state", label, err)
	}
	if maximized {
		return errors.Wrapf(sf.Unmaximize(), "unmaximize %s", label)
	}
	return errors.Wrapf(sf.Maximize(), "maximize %s", label)
}

// CloseWindow closes the window with the given label
func (m *Manager) CloseWindow(label string) error {
	sf, ok := m.sys.Get(label)
	if !ok {
		return nil
	}
	return errors.Wrapf(sf.Close(), "close %s", label)
}

// SetFocusModeState switches the primary window in or out of focus mode:
// kept above other windows, and on the rich tier shown on every workspace
func (m *Manager) SetFocusModeState(label string, enabled bool) error {
	sf, ok := m.sys.Get(label)
	if !ok {
		return nil
	}
	if err := sf.SetAlwaysOnTop(enabled); err != nil {
		return errors.Wrapf(err, "set always on top of %s", label)
	}
	if m.Tier() == TierRich {
		m.warn("set visible on all workspaces", label, sf.SetVisibleOnAllWorkspaces(enabled))
	}
	if focusModeMinSize != nil {
		size := normalMinSize
		if enabled {
			size = focusModeMinSize
		}
		m.warn("set min size", label, sf.SetMinSize(size))
	}
	if enabled {
		m.warn("focus", label, sf.SetFocus())
	}
	return nil
}

// TaskUpdated tells every surface that a task's text changed
func (m *Manager) TaskUpdated(taskID, text string) {
	m.emitter.Broadcast(notify.EventTaskUpdated, notify.ContentEvent{TaskID: taskID, Text: text})
}

// FocusStatusChanged tells every surface which task is in focus
func (m *Manager) FocusStatusChanged(activeTaskID *string) {
	m.emitter.Broadcast(notify.EventFocusStatusChanged, notify.StatusEvent{ActiveTaskID: activeTaskID})
}

// RefreshPrimary asks the primary window to reload its data
func (m *Manager) RefreshPrimary() {
	m.emitter.Send(PrimaryLabel, notify.EventRefreshData, nil)
}

var (
	_ Controller     = (*Manager)(nil)
	_ WindowCommands = (*Manager)(nil)
)
