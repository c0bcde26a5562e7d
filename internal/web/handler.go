// Package web exposes the focus manager, the event hub and the journal over
// HTTP for the surfaces' UI and the CLI.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/connector"
	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/focus"
	"github.com/taskfocus/taskfocus/internal/metrics"
	"github.com/taskfocus/taskfocus/internal/notify"
	"github.com/taskfocus/taskfocus/internal/reporter"
)

// CallerHeader names the surface that issued a request
const CallerHeader = "X-Window-Label"

// Focus is what the handlers need from the focus manager
type Focus interface {
	focus.Controller
	focus.WindowCommands
}

// Executor runs functions on the UI thread
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

// Reminders is the connector surface served under /api/reminders
type Reminders interface {
	Lists(ctx context.Context) ([]connector.List, error)
	Tasks(ctx context.Context, listID string) ([]connector.Task, error)
	CreateTask(ctx context.Context, listID, title string) (connector.Result, error)
	UpdateStatus(ctx context.Context, taskID string, completed bool) (connector.Result, error)
	UpdateTitle(ctx context.Context, taskID, title string) (connector.Result, error)
	UpdateNotes(ctx context.Context, taskID, notes string) (connector.Result, error)
	DeleteTask(ctx context.Context, taskID string) (connector.Result, error)
	OpenPrivacySettings(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. Repo, Hub, Reminders and
// Metrics are optional; their routes answer 503 when absent.
type Deps struct {
	Focus     Focus
	Loop      Executor
	Hub       *notify.Hub
	Repo      *database.Repository
	Reminders Reminders
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Backend   string
	Version   string
}

type Handler struct {
	config    *config.Config
	focus     Focus
	loop      Executor
	hub       *notify.Hub
	repo      *database.Repository
	reporter  *reporter.Reporter
	reminders Reminders
	metrics   *metrics.Metrics
	logger    *zap.Logger
	backend   string
	version   string
	started   time.Time
}

func NewHandler(cfg *config.Config, deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		config:    cfg,
		focus:     deps.Focus,
		loop:      deps.Loop,
		hub:       deps.Hub,
		repo:      deps.Repo,
		reminders: deps.Reminders,
		metrics:   deps.Metrics,
		logger:    logger.Named("web"),
		backend:   deps.Backend,
		version:   deps.Version,
		started:   time.Now(),
	}
	if deps.Repo != nil {
		h.reporter = reporter.New(cfg, deps.Repo)
	}
	return h
}

func (h *Handler) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	fm := api.Group("/focus")
	fm.POST("/open", h.open)
	fm.POST("/resize", h.resize)
	fm.POST("/resize-height", h.resizeHeight)
	fm.POST("/fullscreen/enter", h.enterFullscreen)
	fm.POST("/fullscreen/exit", h.exitFullscreen)
	fm.POST("/handoff/enter", h.enterHandoff)
	fm.POST("/handoff/exit", h.exitHandoff)
	fm.POST("/home", h.exitToHome)
	fm.POST("/close", h.close)
	fm.GET("/sessions", h.sessions)

	win := api.Group("/window")
	win.POST("/minimize", h.minimize)
	win.POST("/maximize", h.toggleMaximize)
	win.POST("/close", h.closeWindow)
	win.POST("/focus-mode-state", h.focusModeState)

	ev := api.Group("/events")
	ev.POST("/task-updated", h.taskUpdated)
	ev.POST("/focus-status", h.focusStatus)
	ev.POST("/refresh", h.refresh)

	rem := api.Group("/reminders")
	rem.GET("/lists", h.reminderLists)
	rem.GET("/lists/:id/tasks", h.reminderTasks)
	rem.POST("/lists/:id/tasks", h.createReminder)
	rem.PATCH("/tasks/:id/status", h.updateReminderStatus)
	rem.PATCH("/tasks/:id/title", h.updateReminderTitle)
	rem.PATCH("/tasks/:id/notes", h.updateReminderNotes)
	rem.DELETE("/tasks/:id", h.deleteReminder)
	rem.POST("/privacy-settings", h.openPrivacySettings)

	api.GET("/version", h.versionInfo)
	api.GET("/status", h.status)
	api.GET("/report", h.report)
	api.GET("/journal", h.journal)

	r.GET("/ws", h.subscribe)
	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// onUI runs fn on the UI thread and answers {"ok": true} or the error
func (h *Handler) onUI(c *gin.Context, fn func() error) {
	if err := h.loop.Do(c.Request.Context(), fn); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// bind decodes an optional JSON body into v; an empty body leaves v as is
func bind(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func caller(c *gin.Context) string {
	return c.GetHeader(CallerHeader)
}

// windowLabel is the caller, or the primary window when none is given
func windowLabel(c *gin.Context) string {
	if label := caller(c); label != "" {
		return label
	}
	return focus.PrimaryLabel
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) versionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": h.version,
		"tier":    h.focus.Tier().String(),
		"backend": h.backend,
	})
}

func (h *Handler) status(c *gin.Context) {
	var sessions []focus.SessionInfo
	err := h.loop.Do(c.Request.Context(), func() error {
		sessions = h.focus.Sessions()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	status := gin.H{
		"running":       true,
		"uptime":        time.Since(h.started).Round(time.Second).String(),
		"tier":          h.focus.Tier().String(),
		"backend":       h.backend,
		"sessions":      sessions,
		"database_path": h.config.Database.Path,
	}
	if h.hub != nil {
		status["subscribers"] = h.hub.Labels()
	}
	if h.repo != nil {
		if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
			status["latest_event"] = latest
		}
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) subscribe(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event hub not available"})
		return
	}
	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}
	h.hub.Handle(c.Writer, c.Request, label)
}

func (h *Handler) report(c *gin.Context) {
	if h.reporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not available"})
		return
	}

	report, err := h.reporter.GenerateReport(c.DefaultQuery("period", "day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, h.reporter.FormatReportText(report))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) journal(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not available"})
		return
	}

	limit := 100
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	events, err := h.repo.GetRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
