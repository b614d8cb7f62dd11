// Package api exposes the analysis engine over HTTP
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apimiddleware "scifig/adapters/api/middleware"
	"scifig/adapters/excel"
	"scifig/domain/analysis"
	"scifig/internal/engine"
	"scifig/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MaxUploadBytes bounds request bodies and uploaded files
const MaxUploadBytes = 32 << 20

// Analyzer is the engine surface the handlers use
type Analyzer interface {
	Run(req engine.Request) analysis.AnalysisOutcome
	RunBatch(ctx context.Context, reqs []engine.Request, concurrency int) ([]analysis.AnalysisOutcome, error)
	Recommend(req engine.Request) (analysis.DataProfile, analysis.Recommendation, error)
	CheckAssumptions(req engine.Request) (analysis.Assumptions, error)
}

// Dependencies are the collaborators of the HTTP adapter
type Dependencies struct {
	Engine     Analyzer
	Repository ports.AnalysisRepository
	Reader     *excel.DataReader
}

// Config holds server settings
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	BatchWorkers    int
	Dependencies    Dependencies
}

// WebAPI is the HTTP server
type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewWebAPI wires routes and middleware
func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	h := newHandler(config.Dependencies, config.BatchWorkers)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(apimiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	router.Get("/health", h.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", h.CreateAnalysis)
		r.Post("/analyses/batch", h.CreateBatch)
		r.Get("/analyses", h.ListAnalyses)
		r.Get("/analyses/{id}", h.GetAnalysis)
		r.Get("/analyses/{id}/report", h.GetReport)
		r.Post("/recommendations", h.Recommend)
		r.Post("/assumptions", h.CheckAssumptions)
	})

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

// Handler returns the root handler; used by tests
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully
func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		if err := w.server.Shutdown(ctx); err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			return w.server.Close()
		}
	}
	return nil
}
