// Command server runs the z-score calculator: the JSON API, the live form
// WebSocket, the embedded page and the API docs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/zscore/internal/adapters/http/api"
	"github.com/okian/zscore/internal/adapters/http/live"
	"github.com/okian/zscore/internal/adapters/http/site"
	"github.com/okian/zscore/internal/adapters/http/swagger"
	service "github.com/okian/zscore/internal/app"
	"github.com/okian/zscore/internal/config"
	"github.com/okian/zscore/pkg/logger"
	"github.com/okian/zscore/pkg/metrics"
)

const readHeaderTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		// The logger may not be initialised yet.
		fmt.Fprintln(os.Stderr, "zscore server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}
	log := logger.Get()

	metrics.Init(metrics.WithNamespace(cfg.MetricsNamespace))

	svc := service.New(service.WithLogger(logger.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	hub := live.New(svc,
		live.WithPingInterval(cfg.WSPingInterval),
		live.WithReadLimit(cfg.WSMaxMessageBytes),
		live.WithAllowedOrigins(cfg.AllowedOrigins),
		live.WithLogger(logger.Named("live")),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, hub),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		startSystemMetricsUpdater(gctx, metrics.RefreshInterval())
		return nil
	})

	if path := os.Getenv(config.EnvConfigPath); path != "" {
		g.Go(func() error {
			return config.Watch(gctx, path, reloader(gctx, *cfg))
		})
	}

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// newHandler builds the mux with every route and wraps it in the shared
// middleware chain.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service, hub *live.Hub) http.Handler {
	mux := http.NewServeMux()

	api.NewServer(svc, svc).Register(ctx, mux)
	hub.Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	return api.Chain(logger.Named("http"), api.CORSOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Verbose:        cfg.VerboseCORS,
	}).Then(mux)
}

// reloader applies what can change at runtime from a reloaded config. Only
// the log level is live; other changes are logged and need a restart.
func reloader(ctx context.Context, current config.Config) func(*config.Config) {
	log := logger.Named("config")
	return func(next *config.Config) {
		if next.LogLevel != current.LogLevel {
			if err := logger.SetLevelString(next.LogLevel); err != nil {
				log.Warn(ctx, "invalid log_level in reloaded config", logger.Error(err))
			} else {
				log.Info(ctx, "log level changed",
					logger.String("from", current.LogLevel), logger.String("to", next.LogLevel))
			}
		}
		if next.Addr != current.Addr || next.LogFormat != current.LogFormat ||
			next.MetricsNamespace != current.MetricsNamespace {
			log.Warn(ctx, "config change requires a restart to take effect",
				logger.String("addr", next.Addr),
				logger.String("log_format", next.LogFormat),
				logger.String("metrics_namespace", next.MetricsNamespace))
		}
		current = *next
	}
}

// startSystemMetricsUpdater updates system metrics every interval until ctx
// is cancelled.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	updateSystemMetrics()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
