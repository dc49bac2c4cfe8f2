package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HomeHandler handles requests for the home page.
type HomeHandler struct {
	target string
}

// NewHomeHandler creates a HomeHandler that sends visitors to target.
func NewHomeHandler(target string) *HomeHandler {
	return &HomeHandler{target: target}
}

// HomeGet redirects to the project listing.
func (h *HomeHandler) HomeGet(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.target)
}
