package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flashdeck/flashdeck/internal/auth"
	"github.com/flashdeck/flashdeck/internal/config"
	"github.com/flashdeck/flashdeck/internal/database"
	"github.com/flashdeck/flashdeck/internal/export"
	"github.com/flashdeck/flashdeck/internal/flashcards"
	"github.com/flashdeck/flashdeck/internal/storage"
	"github.com/flashdeck/flashdeck/internal/store"
)

const shutdownTimeout = 10 * time.Second

type Api struct {
	Config   *config.Config
	Router   *chi.Mux
	log      *slog.Logger
	db       *sql.DB
	store    *store.Store
	auth     *auth.Service
	cards    *flashcards.Service
	exporter *export.Exporter
}

// NewApi opens the database, applies migrations and wires the services.
func NewApi(cfg *config.Config, log *slog.Logger) (*Api, error) {
	if cfg.API.Port == 0 {
		return nil, fmt.Errorf("must have at least a port to start API")
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(cfg.Database, nil, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	st := store.New(db, cfg.Database.Type)
	cards := flashcards.NewService(st, cfg.StudyLog.AuthPolicy, log)

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		client, err := storage.NewS3Client(context.Background(), cfg.Export)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating export storage: %w", err)
		}
		exporter = export.NewExporter(cards, client, cfg.Export.URLTTL, log)
	}

	api := New(cfg, log, st, auth.NewService(st, cfg.Auth, log), cards, exporter)
	api.db = db
	return api, nil
}

// New builds an Api from already constructed services. exporter may be nil,
// in which case the export route is not mounted.
func New(cfg *config.Config, log *slog.Logger, st *store.Store, authSvc *auth.Service, cards *flashcards.Service, exporter *export.Exporter) *Api {
	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		log:      log.With("component", "api"),
		store:    st,
		auth:     authSvc,
		cards:    cards,
		exporter: exporter,
	}
	api.setupRoutes()
	return api
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully.
func (api *Api) Serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return api.ServeContext(ctx)
}

// ServeContext runs the HTTP server until ctx is done.
func (api *Api) ServeContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", api.Config.API.Port),
		Handler:      api.Router,
		ReadTimeout:  api.Config.API.ReadTimeout,
		WriteTimeout: api.Config.API.WriteTimeout,
		IdleTimeout:  api.Config.API.IdleTimeout,
	}

	go api.auth.RunCleanup(ctx, api.Config.Auth.CleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		api.log.Info("starting API server", "addr", srv.Addr, "study_log_policy", api.cards.StudyLogPolicy())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	api.log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Close releases the database connection opened by NewApi.
func (api *Api) Close() error {
	if api.db == nil {
		return nil
	}
	return api.db.Close()
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := api.store.Ping(r.Context()); err != nil {
		api.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
