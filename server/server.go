package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info("starting server", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		s.logger.Fatal("failed to start server", zap.Error(err))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc) {
	s.echo.GET(path, handler)
}

func (s *Server) Post(path string, handler echo.HandlerFunc) {
	s.echo.POST(path, handler)
}

func (s *Server) Patch(path string, handler echo.HandlerFunc) {
	s.echo.PATCH(path, handler)
}

func (s *Server) Group(prefix string) *echo.Group {
	return s.echo.Group(prefix)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
