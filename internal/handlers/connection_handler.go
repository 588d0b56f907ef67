package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/monitor"
	"github.com/edforge/test-session-service/internal/utils"
)

type ConnectionHandler struct {
	BaseHandler
	monitor *monitor.Monitor
}

func NewConnectionHandler(m *monitor.Monitor, logger utils.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		BaseHandler: NewBaseHandler(logger),
		monitor:     m,
	}
}

// Status reports the transport status and the caller's presence. The
// result is advisory; no session operation depends on it.
func (h *ConnectionHandler) Status(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	status := h.monitor.Status()
	online, err := h.monitor.IsOnline(c.Request.Context(), userID)
	if err != nil {
		h.LogError(c, err, "Presence lookup failed")
		online = false
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"connected": status.IsConnected(),
		"online":    online,
	})
}

// Heartbeat records the caller's presence.
func (h *ConnectionHandler) Heartbeat(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	if err := h.monitor.Heartbeat(c.Request.Context(), userID); err != nil {
		h.LogError(c, err, "Heartbeat failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Heartbeat could not be recorded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": h.monitor.Status()})
}
