package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/internal/focus"
)

func TestObserveTransition(t *testing.T) {
	m := New()

	m.ObserveTransition(focus.Transition{Op: focus.OpOpen, Tier: focus.TierRich, VisiblePanels: 1, Took: time.Millisecond})
	m.ObserveTransition(focus.Transition{Op: focus.OpOpen, Tier: focus.TierRich, VisiblePanels: 2})
	m.ObserveTransition(focus.Transition{Op: focus.OpEnterFullscreen, Tier: focus.TierPlain, Err: errors.New("boom")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("open", "rich", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("enter-fullscreen", "plain", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WindowErrors.WithLabelValues("enter-fullscreen")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.VisiblePanels))
}

func TestSetSubscribers(t *testing.T) {
	m := New()
	m.SetSubscribers(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Subscribers))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetSubscribers(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Subscribers))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/focus/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/focus/sessions", "/api/focus/sessions", "/nope"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/focus/sessions", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskfocus_http_requests_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
