// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the annotation index, the filter resolver, the
// result provider and the insight views as a JSON API for the dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/corpus"
	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/index"
	"github.com/pdiddy/litcurate/internal/insight"
	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/internal/results"
	"github.com/pdiddy/litcurate/internal/session"
	"github.com/pdiddy/litcurate/pkg/types"
)

// Deps are the components the API serves.
type Deps struct {
	Index    *index.Index
	Results  *results.Provider
	Insights *insight.Service
	Sessions session.Store
	Log      *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	app      *fiber.App
	cfg      types.ServerConfig
	ix       *index.Index
	resolver *filter.Resolver
	results  *results.Provider
	insights *insight.Service
	sessions session.Store
	log      *zap.Logger
}

// New builds the API and registers its routes.
func New(cfg types.ServerConfig, d Deps) *Server {
	log := logging.OrNop(d.Log)
	s := &Server{
		cfg:      cfg,
		ix:       d.Index,
		resolver: filter.NewResolver(d.Index, log),
		results:  d.Results,
		insights: d.Insights,
		sessions: d.Sessions,
		log:      log,
	}
	metrics.Register(prometheus.DefaultRegisterer)

	s.app = fiber.New(fiber.Config{
		AppName:               "litcurate",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.instrument)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api/v1")

	api.Get("/tasks", s.listTasks)
	api.Get("/tasks/:task/labels", s.listLabels)
	api.Get("/tasks/:task/frequency", s.labelFrequency)
	api.Get("/grouped", s.groupedLabels)
	api.Get("/ids", s.paperIDs)

	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id/filters", s.getFilters)
	api.Post("/sessions/:id/filters", s.addFilter)
	api.Delete("/sessions/:id/filters", s.removeFilter)
	api.Post("/sessions/:id/rows", s.rows)
	api.Get("/sessions/:id/export", s.export)

	api.Get("/papers/:id", s.paper)

	api.Get("/insights", s.listInsights)
	api.Get("/insights/:name", s.runInsight)
	api.Get("/dual-task", s.dualTask)
	api.Get("/timeline", s.timeline)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	errc := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("address", addr))
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

// instrument counts requests by route and status class and logs them.
func (s *Server) instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	route := c.Route().Path
	metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)))
	return err
}

// badRequest marks malformed parameters.
var badRequest = errors.New("bad request")

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, session.ErrUnknownSession),
		errors.Is(err, corpus.ErrNotFound),
		errors.Is(err, insight.ErrUnknownInsight):
		return fiber.StatusNotFound
	case errors.Is(err, filter.ErrInvalidFilterState):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, badRequest),
		errors.Is(err, index.ErrUnsupportedTask),
		errors.Is(err, filter.ErrEmptySelection),
		errors.Is(err, results.ErrInvalidRequest),
		errors.Is(err, insight.ErrInvalidRange):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
