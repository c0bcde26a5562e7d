package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/internal/focus"
)

type captured struct {
	method string
	path   string
	caller string
	body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, reply interface{}) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.RequestURI()
		got.caller = r.Header.Get(CallerHeader)
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second), got
}

func TestOpenPostsRequest(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, map[string]bool{"ok": true})

	err := c.Open(context.Background(), focus.OpenRequest{TaskID: "t1", TaskName: "Plan"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/focus/open", got.path)
	assert.Equal(t, focus.PrimaryLabel, got.caller)
	assert.Equal(t, "t1", got.body["taskId"])
	assert.Equal(t, "Plan", got.body["taskName"])
}

func TestErrorBodyIsReturned(t *testing.T) {
	c, _ := newTestServer(t, http.StatusInternalServerError, map[string]string{"error": "create surface: boom"})

	err := c.Close(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create surface: boom")
}

func TestSessionsDecodeStates(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, []map[string]interface{}{
		{"taskId": "a", "state": "fullscreen-open", "panelLabel": "focus-a", "fullscreenLabel": "focusfs-a"},
	})

	sessions, err := c.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, focus.StateFullscreenOpen, sessions[0].State)
	assert.Equal(t, "/api/focus/sessions", got.path)
}

func TestReportQuery(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, map[string]interface{}{"total_ms": 1000, "tasks": []interface{}{}})

	report, err := c.Report(context.Background(), "week")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), report.TotalMs)
	assert.Equal(t, "/api/report?period=week", got.path)
}

func TestNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, time.Second).Health(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}
