// Package notify delivers best-effort UI events from the focus core to the
// surfaces that subscribed to them.
package notify

// Event names understood by the UI
const (
	EventEnterFocusMode     = "enter-focus-mode"
	EventFocusStatusChanged = "focus-status-changed"
	EventTaskUpdated        = "task-updated"
	EventRefreshData        = "refresh-data"
	EventConnectorError     = "connector-error"
)

// EnterFocusPayload is delivered to a focus surface when it is opened or
// handed a task
type EnterFocusPayload struct {
	TaskID                 string   `json:"taskId"`
	TaskName               string   `json:"taskName"`
	Duration               *float64 `json:"duration"`
	InitialTimeSpent       float64  `json:"initialTimeSpent"`
	PreserveWindowGeometry *bool    `json:"preserveWindowGeometry,omitempty"`
}

// StatusEvent tells the primary window which task is in focus.
// ActiveTaskID is always present and null once focus ends.
type StatusEvent struct {
	ActiveTaskID   *string  `json:"activeTaskId"`
	OpenedTaskID   *string  `json:"openedTaskId,omitempty"`
	ClosedTaskID   *string  `json:"closedTaskId,omitempty"`
	CompleteOnHome *bool    `json:"completeOnHome,omitempty"`
	ElapsedMs      *float64 `json:"elapsedMs,omitempty"`
}

// ContentEvent announces a change to a task's content
type ContentEvent struct {
	TaskID string `json:"taskId"`
	Text   string `json:"text"`
}

// ConnectorErrorEvent reports a failed reminders connector call
type ConnectorErrorEvent struct {
	Verb  string `json:"verb"`
	Error string `json:"error"`
}

// Envelope is the wire frame pushed to subscribers
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}
