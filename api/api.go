package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/eduverse/api/mcp"
	"github.com/papercomputeco/eduverse/pkg/learning"
	"github.com/papercomputeco/eduverse/pkg/logger"
)

// Server is the API server for the EduVerse study backend
type Server struct {
	config  Config
	service *learning.Service
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The service is injected to allow sharing with other components
// (e.g., the cache sweeper run by the same process).
func NewServer(config Config, service *learning.Service, log *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("learning service is required")
	}
	log = logger.OrNop(log)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		service: service,
		logger:  log,
		app:     app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/content", s.handleGetOrGenerate)
	app.Get("/content/status", s.handleContentStatus)

	app.Post("/assessments", s.handleRecordAssessment)
	app.Get("/assessments", s.handleListAssessments)

	app.Get("/progress/:user_id/:fingerprint", s.handleGetProgress)
	app.Get("/progress/:user_id/:fingerprint/recommendations", s.handleRecommendations)
	app.Get("/progress/:user_id/:fingerprint/statistics", s.handleStatistics)

	app.Get("/plan/:user_id/:fingerprint", s.handlePlan)

	app.Get("/cache/stats/:user_id", s.handleCacheStats)
	app.Post("/cache/sweep", s.handleSweep)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Service: service,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}
