// Package server assembles the Inkwell HTTP surface: the chi router, the
// middleware stack, and the article production pipeline behind it.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/keyword"
	"github.com/potensia/inkwell/llm"
	"github.com/potensia/inkwell/llm/anthropic"
	"github.com/potensia/inkwell/llm/openai"
	"github.com/potensia/inkwell/media"
	"github.com/potensia/inkwell/server/handlers"
	"github.com/potensia/inkwell/server/metrics"
	"github.com/potensia/inkwell/server/middleware"
	"github.com/potensia/inkwell/server/validation"
	"github.com/potensia/inkwell/writer"
)

// Server is the Inkwell HTTP server with its pipeline wiring.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	queue      *middleware.QueueMiddleware
	httpServer *http.Server
	watcher    config.Watcher
}

// New builds a server from the configuration. The primary completion
// client drives refinement, generation, validation, fixing, and keyword
// analysis; the fallback client only enters the generation chain.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	primary, fallback, imageClient, err := buildClients(cfg, logger)
	if err != nil {
		return nil, err
	}

	requests, err := validation.New(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("build request validator: %w", err)
	}

	m := metrics.NewMetrics()

	generator := writer.NewGenerator(primary, fallback, cfg.Pipeline, logger)
	contentValidator := writer.NewValidator(primary, cfg.Pipeline.ValidatorModel, logger)
	fixer := writer.NewFixer(primary, cfg.Pipeline.FixerModel, logger)
	analyzer := keyword.NewAnalyzer(primary, logger)

	articles := handlers.NewArticleHandler(generator, contentValidator, fixer, requests, m, logger)
	topics := handlers.NewTopicHandler(generator, requests, logger)
	keywords := handlers.NewKeywordHandler(analyzer, requests, logger)

	var thumbnails *handlers.MediaHandler
	if imageClient != nil {
		thumbnails = handlers.NewMediaHandler(
			media.NewGenerator(imageClient, cfg.Pipeline, logger), requests, logger)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
	if cfg.Queue.Enabled {
		s.queue = middleware.NewQueueMiddleware(cfg.Queue, m)
	}

	router := s.buildRouter(articles, topics, keywords, thumbnails)
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// NewWithWatcher builds a server from the watcher's current config and
// reacts to config reloads while running. Only the queue bound is applied
// live; other changes take effect on restart.
func NewWithWatcher(w config.Watcher, logger *zap.Logger) (*Server, error) {
	s, err := New(w.GetCurrentConfig(), logger)
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return s, nil
}

// buildClients constructs the completion adapters from the provider map.
// An openai-typed provider is preferred as primary, anthropic as
// fallback; with a single provider it serves both chain roles. The image
// client is only available when an openai provider is configured.
func buildClients(cfg *config.Config, logger *zap.Logger) (primary, fallback llm.Client, imageClient *openai.Client, err error) {
	var oa *openai.Client
	var an *anthropic.Client

	for name, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			oa = openai.New(p, cfg.Pipeline, logger.Named(name))
		case "anthropic":
			an = anthropic.New(p, cfg.Pipeline, logger.Named(name))
		}
	}

	switch {
	case oa != nil && an != nil:
		return oa, an, oa, nil
	case oa != nil:
		return oa, oa, oa, nil
	case an != nil:
		return an, an, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("no usable providers configured")
	}
}

// buildRouter assembles the middleware stack and mounts the routes. The
// admission queue guards only the pipeline endpoints; health and metrics
// stay reachable under load.
func (s *Server) buildRouter(articles *handlers.ArticleHandler, topics *handlers.TopicHandler,
	keywords *handlers.KeywordHandler, thumbnails *handlers.MediaHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS)
	r.Use(middleware.PrometheusMetrics(s.metrics))
	r.Use(middleware.NewRateLimiter(s.cfg.RateLimit, s.metrics).Middleware)

	r.Get("/health", handlers.Health)
	r.Method("GET", "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.queue != nil {
			r.Use(s.queue.Handler)
		}

		r.Post("/v1/articles/generate", articles.Generate)
		r.Post("/v1/articles/validate", articles.Validate)
		r.Post("/v1/articles/fix", articles.Fix)
		r.Post("/v1/topics/refine", topics.Refine)
		r.Post("/v1/keywords/analyze", keywords.Analyze)
		if thumbnails != nil {
			r.Post("/v1/media/thumbnail", thumbnails.Thumbnail)
		}
	})

	return r
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if s.watcher != nil {
		go s.watchConfig(ctx)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if s.queue != nil {
			if err := s.queue.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("Queue did not drain before shutdown", zap.Error(err))
			}
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// watchConfig applies live-tunable settings from config reloads.
func (s *Server) watchConfig(ctx context.Context) {
	updates := s.watcher.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			s.logger.Info("Configuration reloaded")
			if s.queue != nil && cfg.Queue.Enabled {
				s.queue.SetMaxSize(cfg.Queue.MaxSize)
			}
			if cfg.Server.Port != s.cfg.Server.Port {
				s.logger.Warn("Server port change requires restart",
					zap.Int("current", s.cfg.Server.Port),
					zap.Int("configured", cfg.Server.Port))
			}
		}
	}
}
