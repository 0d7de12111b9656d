// Package server exposes training progress over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
)

// Provider is the read side of an optimizer run.
type Provider interface {
	Status() models.TrainingStatus
	History() []models.GenerationSnapshot
	Best() (models.Individual, bool)
}

type Server struct {
	echo     *echo.Echo
	provider Provider
	addr     string
}

// New wires the routes. gatherer backs /metrics; nil uses the default registry.
func New(addr string, provider Provider, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogging)

	s := &Server{echo: e, provider: provider, addr: addr}
	e.GET("/status", s.status)
	e.GET("/history", s.history)
	e.GET("/best", s.best)

	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	e.GET("/metrics", echo.WrapHandler(handler))
	return s
}

// Handler is the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logger.Infof("Status server listening on %s", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdown)
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.provider.Status())
}

func (s *Server) history(c echo.Context) error {
	history := s.provider.History()
	if history == nil {
		history = []models.GenerationSnapshot{}
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) best(c echo.Context) error {
	best, ok := s.provider.Best()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no generation has completed"})
	}
	return c.JSON(http.StatusOK, best)
}

func requestLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		logger.WithFields(logger.Fields{
			"method":  c.Request().Method,
			"path":    c.Path(),
			"status":  c.Response().Status,
			"latency": time.Since(start).String(),
		}).Debug("http request")
		return err
	}
}
