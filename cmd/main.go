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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/drcal/internal/adapters/http/api"
	"github.com/okian/drcal/internal/adapters/http/site"
	"github.com/okian/drcal/internal/adapters/http/swagger"
	app "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/config"
	"github.com/okian/drcal/internal/domain/schedule"
	"github.com/okian/drcal/pkg/logger"
	"github.com/okian/drcal/pkg/metrics"
)

// HTTP server and background loop constants.
const (
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// The service exports its own system gauges on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := start(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func start(ctx context.Context) error {
	// Defaults -> optional file -> env.
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	l := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		l.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	return run(ctx, cfg, l)
}

// run serves the calendar until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, l logger.Logger) error {
	svc := newService(cfg, l)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	handler, err := newHandler(ctx, cfg, svc, l)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
			return err
		}
		l.Info(shutdownCtx, "server stopped")
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	return g.Wait()
}

func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l.Named("service")),
		app.WithPlannerOptions(
			schedule.WithAutoLeadTime(cfg.AutoLeadTime()),
			schedule.WithAutoStartHour(cfg.AutoStartHour),
			schedule.WithAutoDuration(cfg.AutoDuration()),
		),
		app.WithAutoScheduleCron(cfg.AutoScheduleCron),
	)
}

// newHandler wires every route behind request ids and the rate limiter.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) (http.Handler, error) {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(l.Named("api"))).Register(ctx, mux)
	if err := site.Register(ctx, mux, svc, l.Named("site")); err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if limiter.Enabled() {
		l.Info(ctx, "rate limiting enabled",
			logger.Float64("rps", cfg.RateLimitRPS),
			logger.Int("burst", cfg.RateLimitBurst))
	}
	return api.RequestID(limiter.Wrap(mux)), nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

// startServiceMetricsUpdater refreshes the stored events gauge until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if total, ok := stats["totalEvents"].(int); ok {
		metrics.UpdateStoredEvents(total)
	}
}
