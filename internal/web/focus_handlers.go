package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskfocus/taskfocus/internal/focus"
)

type resizeRequest struct {
	TaskID string   `json:"taskId"`
	Width  *float64 `json:"width" binding:"required"`
}

type resizeHeightRequest struct {
	TaskID string   `json:"taskId"`
	Height *float64 `json:"height" binding:"required"`
}

type focusModeRequest struct {
	Enabled bool `json:"enabled"`
}

type focusStatusRequest struct {
	ActiveTaskID *string `json:"activeTaskId"`
}

func (h *Handler) open(c *gin.Context) {
	var req focus.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId is required"})
		return
	}
	h.onUI(c, func() error { return h.focus.Open(req) })
}

func (h *Handler) resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	t := focus.Target{Caller: caller(c), TaskID: req.TaskID}
	h.onUI(c, func() error { return h.focus.Resize(t, *req.Width) })
}

func (h *Handler) resizeHeight(c *gin.Context) {
	var req resizeHeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	t := focus.Target{Caller: caller(c), TaskID: req.TaskID}
	h.onUI(c, func() error { return h.focus.ResizeHeight(t, *req.Height) })
}

func (h *Handler) enterFullscreen(c *gin.Context) {
	var t focus.Target
	if !bind(c, &t) {
		return
	}
	t.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.EnterFullscreen(t) })
}

func (h *Handler) exitFullscreen(c *gin.Context) {
	var t focus.Target
	if !bind(c, &t) {
		return
	}
	t.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.ExitFullscreen(t) })
}

func (h *Handler) enterHandoff(c *gin.Context) {
	var req focus.HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	req.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.EnterHandoff(req) })
}

func (h *Handler) exitHandoff(c *gin.Context) {
	var req focus.HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	req.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.ExitHandoff(req) })
}

func (h *Handler) exitToHome(c *gin.Context) {
	var req focus.HomeRequest
	if !bind(c, &req) {
		return
	}
	req.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.ExitToHome(req) })
}

func (h *Handler) close(c *gin.Context) {
	var req focus.CloseRequest
	if !bind(c, &req) {
		return
	}
	req.Caller = caller(c)
	h.onUI(c, func() error { return h.focus.Close(req) })
}

func (h *Handler) sessions(c *gin.Context) {
	var sessions []focus.SessionInfo
	err := h.loop.Do(c.Request.Context(), func() error {
		sessions = h.focus.Sessions()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []focus.SessionInfo{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) minimize(c *gin.Context) {
	label := windowLabel(c)
	h.onUI(c, func() error { return h.focus.Minimize(label) })
}

func (h *Handler) toggleMaximize(c *gin.Context) {
	label := windowLabel(c)
	h.onUI(c, func() error { return h.focus.ToggleMaximize(label) })
}

func (h *Handler) closeWindow(c *gin.Context) {
	label := windowLabel(c)
	h.onUI(c, func() error { return h.focus.CloseWindow(label) })
}

func (h *Handler) focusModeState(c *gin.Context) {
	var req focusModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	label := windowLabel(c)
	h.onUI(c, func() error { return h.focus.SetFocusModeState(label, req.Enabled) })
}

func (h *Handler) taskUpdated(c *gin.Context) {
	var req struct {
		TaskID string `json:"taskId" binding:"required"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	h.onUI(c, func() error {
		h.focus.TaskUpdated(req.TaskID, req.Text)
		return nil
	})
}

func (h *Handler) focusStatus(c *gin.Context) {
	var req focusStatusRequest
	if !bind(c, &req) {
		return
	}
	h.onUI(c, func() error {
		h.focus.FocusStatusChanged(req.ActiveTaskID)
		return nil
	})
}

func (h *Handler) refresh(c *gin.Context) {
	h.onUI(c, func() error {
		h.focus.RefreshPrimary()
		return nil
	})
}
