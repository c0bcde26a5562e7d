package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/connector"
	"github.com/taskfocus/taskfocus/internal/notify"
)

func (h *Handler) remindersReady(c *gin.Context) bool {
	if h.reminders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reminders connector not configured"})
		return false
	}
	return true
}

// connectorFailed answers a rejected connector call and broadcasts the
// failure to every surface
func (h *Handler) connectorFailed(c *gin.Context, verb string, err error) {
	h.logger.Warn("reminders connector failed", zap.String("verb", verb), zap.Error(err))
	if h.hub != nil {
		event := notify.ConnectorErrorEvent{Verb: verb, Error: err.Error()}
		if berr := h.hub.Broadcast(notify.EventConnectorError, event); berr != nil {
			h.logger.Debug("broadcast connector error", zap.Error(berr))
		}
	}
	status := http.StatusBadGateway
	if errors.Is(err, connector.ErrPermissionDenied) {
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// result answers a mutating verb; a missing connector is reported in the result
func (h *Handler) result(c *gin.Context, verb string, res connector.Result, err error) {
	if errors.Is(err, connector.ErrUnavailable) {
		c.JSON(http.StatusOK, connector.Unsupported(err.Error()))
		return
	}
	if err != nil {
		h.connectorFailed(c, verb, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) reminderLists(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	lists, err := h.reminders.Lists(c.Request.Context())
	if errors.Is(err, connector.ErrUnavailable) {
		c.JSON(http.StatusOK, []connector.List{})
		return
	}
	if err != nil {
		h.connectorFailed(c, "lists", err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *Handler) reminderTasks(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	tasks, err := h.reminders.Tasks(c.Request.Context(), c.Param("id"))
	if errors.Is(err, connector.ErrUnavailable) {
		c.JSON(http.StatusOK, []connector.Task{})
		return
	}
	if err != nil {
		h.connectorFailed(c, "tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) createReminder(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	res, err := h.reminders.CreateTask(c.Request.Context(), c.Param("id"), req.Title)
	h.result(c, "create-task", res, err)
}

func (h *Handler) updateReminderStatus(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	res, err := h.reminders.UpdateStatus(c.Request.Context(), c.Param("id"), *req.Completed)
	h.result(c, "update-status", res, err)
}

func (h *Handler) updateReminderTitle(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	res, err := h.reminders.UpdateTitle(c.Request.Context(), c.Param("id"), req.Title)
	h.result(c, "update-title", res, err)
}

func (h *Handler) updateReminderNotes(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	res, err := h.reminders.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes)
	h.result(c, "update-notes", res, err)
}

func (h *Handler) deleteReminder(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	res, err := h.reminders.DeleteTask(c.Request.Context(), c.Param("id"))
	h.result(c, "delete-task", res, err)
}

func (h *Handler) openPrivacySettings(c *gin.Context) {
	if !h.remindersReady(c) {
		return
	}
	if err := h.reminders.OpenPrivacySettings(c.Request.Context()); err != nil {
		h.connectorFailed(c, "privacy-settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
