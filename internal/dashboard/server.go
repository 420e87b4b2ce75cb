package dashboard

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dashboardmiddleware "github.com/outofoffice3/org-guardrails/internal/dashboard/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	Store           Store
}

// ConfigureRouter builds the dashboard routes.
func ConfigureRouter(logger zerolog.Logger, config Config) http.Handler {
	handler := NewHandler(config.Store, config.MaxUploadBytes)

	router := chi.NewRouter()
	router.Use(dashboardmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", handler.Health)
	router.Get("/", handler.Index)
	router.Post("/datasets", handler.Upload)
	router.Get("/datasets/{id}", handler.View)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", handler.ListDatasets)
		r.Post("/datasets", handler.CreateDataset)
		r.Get("/datasets/{id}", handler.GetDataset)
		r.Get("/datasets/{id}/rows", handler.GetRows)
	})
	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	if config.Store == nil {
		config.Store = NewStore(1, nil)
	}
	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &WebAPI{
		logger:          &logger,
		shutdownTimeout: shutdownTimeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           ConfigureRouter(logger, config),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the server fails, ctx is done, or the process is interrupted.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
	case <-ctx.Done():
	}

	w.logger.Info().Msg("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()

	err := w.server.Shutdown(shutdownCtx)
	if err != nil {
		w.logger.Error().Err(err).Msg("graceful shutdown failed")
		err = w.server.Close()
	}
	return err
}
