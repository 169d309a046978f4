package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"junction-worker-go/internal/analysis"
	"junction-worker-go/internal/api/handlers"
	"junction-worker-go/internal/api/middleware"
	"junction-worker-go/internal/config"
)

// Deps are the components the HTTP surface reads from and commands.
type Deps struct {
	State    handlers.StateReader
	Commands handlers.SignalCommander
	// History is nil when storage is disabled.
	History handlers.History
	// Ping checks storage for /health; nil skips the check.
	Ping    func() error
	Metrics http.Handler
	Logger  zerolog.Logger
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	metrics       http.Handler
	healthHandler *handlers.HealthHandler
	zoneHandler   *handlers.ZoneHandler
	signalHandler *handlers.SignalHandler
	systemHandler *handlers.SystemHandler
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	flow := analysis.DefaultFlowConfig()
	if cfg.FlowWindow > 0 {
		flow.Window = cfg.FlowWindow
	}

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.State, deps.Ping),
		zoneHandler:   handlers.NewZoneHandler(deps.State, deps.History, flow),
		signalHandler: handlers.NewSignalHandler(deps.State, deps.Commands, deps.History),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID, deps.State),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// Start serves until Shutdown. A clean shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting junction worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping junction worker API")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
