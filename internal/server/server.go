package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/config"
	"github.com/nfrund/homeplace/internal/filter"
	"github.com/nfrund/homeplace/internal/gateway"
	"github.com/nfrund/homeplace/internal/handlers"
	"github.com/nfrund/homeplace/internal/middleware"
	"github.com/nfrund/homeplace/internal/rendering"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Bridge   *gateway.Bridge
	Catalog  *catalog.Catalog
	Defaults filter.Defaults
}

// New creates a Server with middleware and routes registered.
func New(cfg config.Provider, bridge *gateway.Bridge, cat *catalog.Catalog) *Server {
	lo, hi := cfg.GetPriceRange()
	defaults := filter.NewDefaults(filter.Range{Start: lo, End: hi}, cfg.GetDefaultPageLimit())

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.Renderer = rendering.NewNodeRenderer()
	setupErrorHandling(e)

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}
	e.Use(session.Middleware(store))

	s := &Server{
		E:        e,
		Cfg:      cfg,
		Bridge:   bridge,
		Catalog:  cat,
		Defaults: defaults,
	}
	s.RegisterRoutes()
	return s
}

// setupErrorHandling logs unhandled errors with a stack trace and leaves
// echo.HTTPErrors to the default handler.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
			"error", err.Error(),
			"stack_trace", string(debug.Stack()),
		)
		if err := c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Code:    "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		}); err != nil {
			slog.Error("Failed to write error response", "error", err)
		}
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.Cfg.GetServerAddr()
}
