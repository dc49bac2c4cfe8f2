package server

import (
	"github.com/nfrund/homeplace/internal/handlers"
	"github.com/nfrund/homeplace/internal/middleware"
)

const projectsPath = "/projects"

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	homeHandler := handlers.NewHomeHandler(projectsPath)
	sessionHandler := handlers.NewSessionHandler(projectsPath)
	projectsHandler := handlers.NewProjectsHandler(s.Catalog, s.Defaults)
	presenceHandler := handlers.NewPresenceHandler(s.Bridge.Presence())
	rateLimiter := middleware.RateLimiter(20)

	s.E.GET("/", homeHandler.HomeGet)

	s.E.POST("/api/session", sessionHandler.Create, rateLimiter)
	s.E.GET("/api/session", sessionHandler.Get)
	s.E.POST("/session", sessionHandler.CreateForm, rateLimiter)

	s.E.GET("/api/projects", projectsHandler.List)
	s.E.GET(projectsPath, projectsHandler.Page)

	s.E.GET("/ws/chat", s.Bridge.Handler(), middleware.Member)
	s.E.GET("/api/presence", presenceHandler.GetPresence)

	s.E.GET("/health", presenceHandler.HealthCheck)
}
