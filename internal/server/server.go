package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wager_bank/internal/config"
	"github.com/congo-pay/wager_bank/internal/routes"
)

// Server wraps the Fiber application and the metrics side server.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	metrics *http.Server
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// metricsSrv may be nil.
func New(deps routes.Deps, metricsSrv *http.Server) (*Server, error) {
	app := fiber.New(routes.AppConfig(deps))

	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: deps.Cfg, metrics: metricsSrv}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP and metrics servers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if s.metrics != nil {
		err = errors.Join(err, s.metrics.Shutdown(ctx))
	}
	return err
}
