package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/middleware"
	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/nfrund/homeplace/internal/view"
)

// SessionHandler signs members in by storing their identity in the session cookie.
type SessionHandler struct {
	redirect string
}

// NewSessionHandler creates a SessionHandler. Form sign-ins redirect to redirect.
func NewSessionHandler(redirect string) *SessionHandler {
	return &SessionHandler{redirect: redirect}
}

func (h *SessionHandler) bind(c echo.Context) (protocol.MemberData, error) {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return protocol.MemberData{}, err
	}
	if err := c.Validate(&req); err != nil {
		return protocol.MemberData{}, err
	}
	return protocol.MemberData{ID: req.MemberID, Nick: req.Nick, Image: req.Image}, nil
}

// Create handles POST /api/session.
func (h *SessionHandler) Create(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	m, err := h.bind(c)
	if err != nil {
		logger.Warn("Rejected session request", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: err.Error()})
	}
	if err := middleware.SaveMember(c, m); err != nil {
		logger.Error("Failed to save member session", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "session_error", Message: "could not save session"})
	}

	logger.Info("Member signed in", "member_id", m.ID)
	return c.JSON(http.StatusCreated, SessionResponse{Member: m})
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(c echo.Context) error {
	m, ok := middleware.MemberFromSession(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "no_session", Message: "member session required"})
	}
	return c.JSON(http.StatusOK, SessionResponse{Member: *m})
}

// CreateForm handles POST /session from the HTML sign-in form.
func (h *SessionHandler) CreateForm(c echo.Context) error {
	m, err := h.bind(c)
	if err != nil {
		view.SetFlashError(c, "Please enter a valid member id.")
		return c.Redirect(http.StatusSeeOther, h.redirect)
	}
	if err := middleware.SaveMember(c, m); err != nil {
		middleware.FromContext(c.Request().Context()).Error("Failed to save member session", "error", err)
		view.SetFlashError(c, "Could not sign you in.")
		return c.Redirect(http.StatusSeeOther, h.redirect)
	}

	name := m.Nick
	if name == "" {
		name = m.ID
	}
	view.SetFlashSuccess(c, "Signed in as "+name)
	return c.Redirect(http.StatusSeeOther, h.redirect)
}
