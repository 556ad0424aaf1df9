package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fleet-telemetry/internal/api"
	"fleet-telemetry/internal/config"
	"fleet-telemetry/internal/poller"
	"fleet-telemetry/internal/scheduler"
	"fleet-telemetry/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Serve runs the telemetry HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot serve")
	}
	if closeStore != nil {
		defer closeStore()
	}

	handler := api.NewHandler(store, store, a.Logger)
	router := api.NewRouter(handler, a.Logger)

	server := &http.Server{
		Addr:         a.Config.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("starting telemetry API")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancelShutdown()

	a.Logger.Info().Msg("shutting down telemetry API")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.Logger.Info().Msg("telemetry API stopped")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// PollOptions override poller configuration from the CLI.
type PollOptions struct {
	AssetID string
	Window  int
}

// Poll runs the simulated telemetry client loop until interrupted.
func (a *App) Poll(ctx context.Context, opts PollOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config.Poller
	if opts.AssetID != "" {
		cfg.AssetID = opts.AssetID
	}
	if opts.Window > 0 {
		cfg.Window = opts.Window
	}

	p := poller.New(poller.Options{
		APIBase:   cfg.APIBase,
		AssetID:   cfg.AssetID,
		Window:    cfg.Window,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	}, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     cfg.Interval,
		StartupDelay: cfg.StartupDelay,
	}, a.Logger)

	a.Logger.Info().
		Str("api_base", cfg.APIBase).
		Str("asset_id", cfg.AssetID).
		Dur("interval", cfg.Interval).
		Int("window", cfg.Window).
		Msg("starting telemetry poller")

	err := sched.Run(ctx, p.Tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("poller terminated with error")
		return err
	}

	a.Logger.Info().Msg("telemetry poller stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	AssetID string
	Limit   int
}

// ExportOptions hold parameters for exporting historical readings.
type ExportOptions struct {
	AssetID   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
