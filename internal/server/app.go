// Package server builds the lead service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagespeed-leads/internal/api"
	"github.com/JakeFAU/pagespeed-leads/internal/config"
	"github.com/JakeFAU/pagespeed-leads/internal/lead"
	"github.com/JakeFAU/pagespeed-leads/internal/logging"
	"github.com/JakeFAU/pagespeed-leads/internal/pagespeed"
	"github.com/JakeFAU/pagespeed-leads/internal/ratelimit"
	"github.com/JakeFAU/pagespeed-leads/internal/storage/postgres"
)

const defaultShutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	apiServer  *api.Server
	httpServer *http.Server
	store      *postgres.LeadStore
	analyzer   *pagespeed.Client

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("port", cfg.Server.Port),
		zap.String("cors_origin", cfg.CORS.AllowedOrigin),
		zap.Bool("pagespeed_key_set", cfg.PageSpeed.APIKey != ""),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Build creates the application's dependencies. The pool connects lazily, so
// an unreachable database only fails Build when auto-migration is on.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}

	store, err := postgres.NewLeadStore(ctx, postgres.LeadStoreConfig{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns), //nolint:gosec // Validate caps max_conns at MaxInt32
		MinConns:        int32(cfg.DB.MinConns), //nolint:gosec // Validate keeps min_conns within max_conns
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("lead store init failed: %w", err)
	}
	app.store = store

	if cfg.DB.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("schema migration failed: %w", err)
		}
		logger.Info("schema migration applied")
	}

	app.analyzer = pagespeed.New(pagespeed.Config{
		APIKey:  cfg.PageSpeed.APIKey,
		BaseURL: cfg.PageSpeed.BaseURL,
		Timeout: cfg.PageSpeed.Timeout,
	}, nil, logger.Named("pagespeed"))

	svc := lead.NewService(app.analyzer, store, logger.Named("lead"))

	var limiter api.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			RPS:        cfg.RateLimit.RPS,
			Burst:      cfg.RateLimit.Burst,
			MaxClients: cfg.RateLimit.MaxClients,
		})
	}

	app.apiServer = api.NewServer(svc, store, limiter, *cfg, logger.Named("api"))
	app.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.apiServer.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run listens on the configured port and blocks until ctx is canceled or a
// termination signal arrives, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("listen %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is canceled or a termination signal
// arrives, then shuts down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := a.Shutdown(shutdownCtx)
	select {
	case serr := <-serveErr:
		return errors.Join(serr, err)
	default:
		return err
	}
}

// Shutdown stops the HTTP server and releases the pool and HTTP client. Only
// the first call does any work; later calls return its result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(ctx); err != nil {
				a.logger.Error("server shutdown error", zap.Error(err))
				a.shutdownErr = fmt.Errorf("http shutdown: %w", err)
			}
		}
		if a.analyzer != nil {
			a.analyzer.Close()
		}
		if a.store != nil {
			a.store.Close()
			a.logger.Info("database pool closed")
		}
		a.logger.Info("shutdown complete")
		// Sync fails on console sinks; nothing useful can be done about it.
		_ = a.logger.Sync()
	})
	return a.shutdownErr
}
