package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/connector"
	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/focus"
	"github.com/taskfocus/taskfocus/internal/metrics"
	"github.com/taskfocus/taskfocus/internal/models"
	"github.com/taskfocus/taskfocus/internal/notify"
	"github.com/taskfocus/taskfocus/internal/uithread"
	"github.com/taskfocus/taskfocus/pkg/integrations/virtual"
	"github.com/taskfocus/taskfocus/pkg/window"
)

type fakeReminders struct {
	lists    []connector.List
	err      error
	created  []string
	statuses map[string]bool
}

func (f *fakeReminders) Lists(context.Context) ([]connector.List, error) {
	return f.lists, f.err
}

func (f *fakeReminders) Tasks(_ context.Context, listID string) ([]connector.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []connector.Task{{ID: listID + "-t1", Name: "First"}}, nil
}

func (f *fakeReminders) CreateTask(_ context.Context, listID, title string) (connector.Result, error) {
	if f.err != nil {
		return connector.Result{}, f.err
	}
	f.created = append(f.created, listID+":"+title)
	ok, id := true, "new-1"
	return connector.Result{Success: &ok, ID: &id}, nil
}

func (f *fakeReminders) UpdateStatus(_ context.Context, taskID string, completed bool) (connector.Result, error) {
	if f.err != nil {
		return connector.Result{}, f.err
	}
	if f.statuses == nil {
		f.statuses = map[string]bool{}
	}
	f.statuses[taskID] = completed
	ok := true
	return connector.Result{Success: &ok}, nil
}

func (f *fakeReminders) UpdateTitle(context.Context, string, string) (connector.Result, error) {
	return connector.Result{}, f.err
}

func (f *fakeReminders) UpdateNotes(context.Context, string, string) (connector.Result, error) {
	return connector.Result{}, f.err
}

func (f *fakeReminders) DeleteTask(context.Context, string) (connector.Result, error) {
	return connector.Result{}, f.err
}

func (f *fakeReminders) OpenPrivacySettings(context.Context) error {
	return f.err
}

type testEnv struct {
	server    *Server
	sys       *virtual.System
	hub       *notify.Hub
	repo      *database.Repository
	reminders *fakeReminders
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sys := virtual.New(virtual.WithMonitors(window.Monitor{
		Name: "virtual-0",
		Size: window.PhysicalSize{Width: 1920, Height: 1080},
	}))
	main, err := sys.Create(window.Options{
		Label:   focus.PrimaryLabel,
		Size:    window.Size{Width: 1000, Height: 700},
		Visible: true,
	})
	require.NoError(t, err)
	require.NoError(t, main.SetPosition(window.Point{X: 100, Y: 100}))

	db, err := database.Connect(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "web.db")})
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { _ = db.Close() })
	repo := database.NewRepository(db)

	hub := notify.NewHub(nil)
	m := metrics.New()
	manager := focus.New(sys, focus.Options{
		Tier:      focus.TierRich,
		Emitter:   notify.New(hub, nil),
		Observers: []focus.Observer{m},
	})

	ctx, cancel := context.WithCancel(context.Background())
	loop := uithread.New(16)
	loop.Start(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Close()
	})

	cfg := config.Default()
	cfg.Report.TimeZone = "UTC"
	reminders := &fakeReminders{lists: []connector.List{{ID: "l1", Name: "Inbox"}}}

	srv := NewServer(cfg, Deps{
		Focus:     manager,
		Loop:      loop,
		Hub:       hub,
		Repo:      repo,
		Reminders: reminders,
		Metrics:   m,
		Backend:   "virtual",
		Version:   "test",
	}, 0)

	return &testEnv{server: srv, sys: sys, hub: hub, repo: repo, reminders: reminders, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = env.do(t, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "test", info["version"])
	assert.Equal(t, "rich", info["tier"])
	assert.Equal(t, "virtual", info["backend"])
}

func TestFocusLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/focus/open", focus.PrimaryLabel, map[string]interface{}{
		"taskId":   "task-1",
		"taskName": "Write tests",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	panel := focus.LabelFor("task-1", focus.KindPanel)
	sf, ok := env.sys.Lookup(panel)
	require.True(t, ok)
	assert.True(t, sf.Snapshot().Visible)

	w = env.do(t, http.MethodGet, "/api/focus/sessions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[[]map[string]interface{}](t, w)
	require.Len(t, sessions, 1)
	assert.Equal(t, "task-1", sessions[0]["taskId"])
	assert.Equal(t, "panel-open", sessions[0]["state"])

	w = env.do(t, http.MethodPost, "/api/focus/resize", panel, map[string]float64{"width": 480})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	size, err := sf.OuterSize()
	require.NoError(t, err)
	assert.Equal(t, 480, size.Width)

	w = env.do(t, http.MethodPost, "/api/focus/home", panel, map[string]interface{}{
		"completeOnHome": true,
		"elapsedMs":      1200,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, sf.Snapshot().Visible)

	w = env.do(t, http.MethodGet, "/api/focus/sessions", "", nil)
	for _, s := range decode[[]map[string]interface{}](t, w) {
		assert.Equal(t, "closed", s["state"])
	}
}

func TestFocusBadRequests(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/focus/open", "", map[string]string{"taskName": "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/focus/resize", "", map[string]string{"taskId": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/focus/close", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingTargetsAreNoOps(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/focus/close", "/api/focus/fullscreen/enter", "/api/focus/fullscreen/exit"} {
		w := env.do(t, http.MethodPost, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := env.do(t, http.MethodPost, "/api/focus/resize", "", map[string]interface{}{"taskId": "ghost", "width": 400})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWindowSystemFailureIsReturned(t *testing.T) {
	env := newTestEnv(t)
	env.sys.FailNextCreate(errors.New("display gone"))

	w := env.do(t, http.MethodPost, "/api/focus/open", "", map[string]string{"taskId": "t", "taskName": "T"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "display gone")
}

func TestWindowCommands(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/window/focus-mode-state", "", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	main, _ := env.sys.Lookup(focus.PrimaryLabel)
	assert.True(t, main.Snapshot().AlwaysOnTop)

	w = env.do(t, http.MethodPost, "/api/window/maximize", focus.PrimaryLabel, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, main.Snapshot().Maximized)

	w = env.do(t, http.MethodPost, "/api/window/minimize", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, main.Snapshot().Minimized)
}

func TestEventsReachSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?label=" + focus.PrimaryLabel
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := env.do(t, http.MethodPost, "/api/events/task-updated", "", map[string]string{"taskId": "t1", "text": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env1 notify.Envelope
	require.NoError(t, conn.ReadJSON(&env1))
	assert.Equal(t, notify.EventTaskUpdated, env1.Event)

	w = env.do(t, http.MethodPost, "/api/events/refresh", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env2 notify.Envelope
	require.NoError(t, conn.ReadJSON(&env2))
	assert.Equal(t, notify.EventRefreshData, env2.Event)

	w = env.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminderRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/reminders/lists", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []connector.List{{ID: "l1", Name: "Inbox"}}, decode[[]connector.List](t, w))

	w = env.do(t, http.MethodGet, "/api/reminders/lists/l1/tasks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "l1-t1", decode[[]connector.Task](t, w)[0].ID)

	w = env.do(t, http.MethodPost, "/api/reminders/lists/l1/tasks", "", map[string]string{"title": "Call Bob"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"l1:Call Bob"}, env.reminders.created)

	w = env.do(t, http.MethodPatch, "/api/reminders/tasks/t9/status", "", map[string]bool{"completed": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"t9": false}, env.reminders.statuses)

	w = env.do(t, http.MethodPatch, "/api/reminders/tasks/t9/status", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminderErrors(t *testing.T) {
	env := newTestEnv(t)

	env.reminders.err = errors.Wrap(connector.ErrUnavailable, "reminders-connector")
	w := env.do(t, http.MethodGet, "/api/reminders/lists", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = env.do(t, http.MethodDelete, "/api/reminders/tasks/t1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[connector.Result](t, w)
	require.NotNil(t, res.Success)
	assert.False(t, *res.Success)

	env.reminders.err = errors.New("reminders connector error: no such list")
	w = env.do(t, http.MethodGet, "/api/reminders/lists/x/tasks", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env.reminders.err = errors.Wrap(connector.ErrPermissionDenied, "reminders-connector")
	w = env.do(t, http.MethodGet, "/api/reminders/lists", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConnectorErrorIsBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?label=" + focus.PrimaryLabel
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.reminders.err = errors.New("reminders connector error: boom")
	w := env.do(t, http.MethodPatch, "/api/reminders/tasks/t1/title", "", map[string]string{"title": "x"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Event   string                     `json:"event"`
		Payload notify.ConnectorErrorEvent `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, notify.EventConnectorError, got.Event)
	assert.Equal(t, "update-title", got.Payload.Verb)
	assert.Contains(t, got.Payload.Error, "boom")
}

func TestReportAndJournal(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	require.NoError(t, env.repo.Create(&models.SessionEvent{
		Timestamp: now, TaskID: "t1", TaskName: "Deep work", Operation: "open",
		FromState: "closed", ToState: "panel-open", Tier: "rich",
	}))
	require.NoError(t, env.repo.Create(&models.SessionEvent{
		Timestamp: now.Add(time.Second), TaskID: "t1", Operation: "exit-to-home",
		FromState: "panel-open", ToState: "closed", Tier: "rich", ElapsedMs: 60000,
	}))

	w := env.do(t, http.MethodGet, "/api/report?period=day", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[models.Report](t, w)
	require.Len(t, report.Tasks, 1)
	assert.Equal(t, int64(60000), report.TotalMs)

	w = env.do(t, http.MethodGet, "/api/report?period=day&format=text", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Deep work")

	w = env.do(t, http.MethodGet, "/api/report?period=decade", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/journal?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[[]models.SessionEvent](t, w)
	require.Len(t, events, 1)
	assert.Equal(t, "exit-to-home", events[0].Operation)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/focus/open", "", map[string]string{"taskId": "m", "taskName": "M"})

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `taskfocus_transitions_total{op="open",result="success",tier="rich"} 1`)
	assert.Contains(t, body, "taskfocus_visible_panels 1")
}
