package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/gateway"
)

// PresenceHandler handles presence-related HTTP requests.
type PresenceHandler struct {
	presence *gateway.Presence
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(presence *gateway.Presence) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetPresence returns the connected client count and online members as JSON.
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	if h.presence == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "unavailable", Message: "presence service not available"})
	}
	return c.JSON(http.StatusOK, PresenceResponse{
		TotalClients: h.presence.TotalClients(),
		Members:      h.presence.Members(),
	})
}

// HealthCheck reports that the gateway is serving.
func (h *PresenceHandler) HealthCheck(c echo.Context) error {
	status := "ok"
	if h.presence == nil {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}
