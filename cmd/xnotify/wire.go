package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/config"
	"github.com/notifyhub/xnft-notify/internal/db"
	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/holders"
	"github.com/notifyhub/xnft-notify/internal/logger"
	"github.com/notifyhub/xnft-notify/internal/metrics"
	"github.com/notifyhub/xnft-notify/internal/provider"
	"github.com/notifyhub/xnft-notify/internal/ratelimiter"
	"github.com/notifyhub/xnft-notify/internal/repository"
	"github.com/notifyhub/xnft-notify/internal/service"
)

const metricsJob = "xnft_notify"

// app holds everything a command needs for one run.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	orch    *service.Orchestrator
	closers []func()
}

// setup loads configuration and wires the run's dependencies. The cache
// backend is only opened when withCache is set, so replays and app runs
// never touch Postgres or Redis.
func setup(ctx context.Context, withCache bool) (*app, error) {
	cfg, err := config.Load(vip, envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := cfg.ValidatePush(); err != nil {
		log.Warn("push notification will not be sent", zap.Error(err))
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	// ---- metrics ----
	reg := prometheus.NewRegistry()
	a.metrics = metrics.New(reg)

	// ---- cache ----
	var cache repository.UserCache
	if withCache {
		cache, err = a.openCache(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	// ---- providers ----
	limiter := ratelimiter.New(cfg.LookupRateLimit)
	resolver := provider.NewUserInfoClient(cfg.UserInfoEndpoint, cfg.HTTPTimeout, limiter, log, a.metrics.LookupHooks())
	dispatcher := provider.NewPushClient(cfg.PushNotificationEndpoint, cfg.Secret, cfg.HTTPTimeout, log)

	a.orch = service.NewOrchestrator(cfg, resolver, cache, dispatcher, log, service.Hooks{
		OnHolders:  a.metrics.ObserveHolders,
		OnBatch:    a.metrics.OnBatch(),
		OnDispatch: a.metrics.ObserveDispatch,
	})
	return a, nil
}

func (a *app) openCache(ctx context.Context) (repository.UserCache, error) {
	switch a.cfg.CacheBackend {
	case config.CacheBackendPostgres:
		if err := db.Migrate(a.cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := db.Connect(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.logger.Info("using postgres user cache")
		return repository.NewPgUserCache(pool, a.logger), nil

	case config.CacheBackendRedis:
		c := repository.NewRedisUserCache(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.cfg.RedisCacheKey, a.logger)
		a.closers = append(a.closers, func() { _ = c.Close() })
		a.logger.Info("using redis user cache",
			zap.String("addr", a.cfg.RedisAddr),
			zap.String("key", a.cfg.RedisCacheKey),
		)
		return c, nil

	default:
		a.logger.Info("using file user cache", zap.String("path", a.cfg.CacheFile))
		return repository.NewFileUserCache(a.cfg.CacheFile, a.logger), nil
	}
}

func (a *app) source(name string) (holders.Source, error) {
	switch name {
	case sourceSnapshot:
		return holders.NewSnapshotSource(a.cfg.HoldersSnapshot), nil
	case sourceScan:
		if err := a.cfg.ValidateScan(); err != nil {
			return nil, err
		}
		return holders.NewScanSource(a.cfg.RPC, a.cfg.XNFTProgramID, a.cfg.Mint), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", domain.ErrUnknownSource, name, sourceSnapshot, sourceScan)
	}
}

// finish prints the run summary and pushes metrics when a Pushgateway is
// configured.
func (a *app) finish(w io.Writer, r domain.RunReport) {
	printSummary(w, r)

	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(a.cfg.PushgatewayURL, metricsJob); err != nil {
		a.logger.Warn("failed to push metrics", zap.Error(err))
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func printSummary(w io.Writer, r domain.RunReport) {
	state := color.New(color.FgGreen, color.Bold)
	if r.State == domain.StateFailed {
		state = color.New(color.FgRed, color.Bold)
	}

	fmt.Fprintf(w, "\n%s run %s ", r.Mode, r.RunID)
	state.Fprintln(w, r.State)
	fmt.Fprintf(w, "  holders:    %d\n", r.Holders)
	fmt.Fprintf(w, "  batches:    %d\n", r.Batches)
	fmt.Fprintf(w, "  resolved:   %d\n", r.Resolved)
	fmt.Fprintf(w, "  unresolved: %d\n", r.Unresolved)

	switch {
	case r.Dispatch.Skipped:
		color.New(color.FgYellow).Fprintln(w, "  push:       skipped, nobody to notify")
	case r.Dispatch.Sent:
		color.New(color.FgGreen).Fprintf(w, "  push:       sent to %d users (status %d)\n", len(r.Recipients), r.Dispatch.StatusCode)
	case r.State != domain.StateFailed:
		color.New(color.FgRed).Fprintf(w, "  push:       failed (status %d)\n", r.Dispatch.StatusCode)
	}
	fmt.Fprintf(w, "  duration:   %s\n", r.Duration.Round(time.Millisecond))
}
