package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/app"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/cache"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/config"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/lease"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/storage/postgres"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/tracing"
	transporthttp "github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/transport/http"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "flashsale-api",
		Usage: "flash-sale checkout API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pretty-log", Usage: "use console-friendly log output"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := logging.New(c.Bool("pretty-log"))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Apply(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	tp, err := tracing.InitTracerProvider("flashsale-api", cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	metricsRegistry := metrics.New(prometheus.DefaultRegisterer)

	store := postgres.NewStore(pool)
	clk := clock.NewSystem()

	holdEngine := app.NewHoldEngine(store, clk,
		app.WithHoldTTL(cfg.HoldTTL),
		app.WithHoldMaxRetries(cfg.TransientMaxRetries),
		app.WithHoldLogger(logger),
		app.WithHoldMetrics(metricsRegistry),
	)
	orderEngine := app.NewOrderEngine(store, clk,
		app.WithOrderMaxRetries(cfg.TransientMaxRetries),
		app.WithOrderLogger(logger),
		app.WithOrderMetrics(metricsRegistry),
	)
	webhookEngine := app.NewWebhookEngine(store, clk,
		app.WithWebhookMaxRetries(cfg.TransientMaxRetries),
		app.WithWebhookLogger(logger),
		app.WithWebhookMetrics(metricsRegistry),
	)

	reaperLease, closeLease, err := buildLease(startupCtx, cfg, pool)
	if err != nil {
		return fmt.Errorf("build reaper lease: %w", err)
	}
	defer closeLease()

	reaper := app.NewExpiryReaper(store, clk, reaperLease,
		app.WithReaperPageSize(cfg.ReaperPageSize),
		app.WithReaperConcurrency(cfg.ReaperConcurrency),
		app.WithReaperLogger(logger),
		app.WithReaperMetrics(metricsRegistry),
	)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	productCache := cache.NewProductCache(redisClient, cfg.ProductCacheTTL)
	productQuery := app.NewProductQuery(store, productCache)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Holds:        holdEngine,
		HoldReads:    store,
		Orders:       orderEngine,
		OrderReads:   store,
		Products:     productQuery,
		ProductAdmin: store,
		Webhooks:     webhookEngine,
		ReaperAdmin:  reaper,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Event("api_starting").Str("port", cfg.Port).Send()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorEvent("api_server_error", err).Send()
		}
	case <-stopCtx.Done():
		logger.Event("api_shutdown_signal").Send()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorEvent("api_shutdown_error", err).Send()
	}
	logger.Event("api_stopped").Send()
	return nil
}

// buildLease prefers a ZooKeeper-backed lease when ZOOKEEPER_HOSTS is
// configured, falling back to a Postgres advisory lock otherwise.
func buildLease(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (lease.Lease, func(), error) {
	if cfg.ZookeeperHosts == "" {
		return lease.NewPgLease(pool), func() {}, nil
	}

	hosts := strings.Split(cfg.ZookeeperHosts, ",")
	conn, events, err := zk.Connect(hosts, 10*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("connect zookeeper: %w", err)
	}
	go func() {
		for range events {
		}
	}()

	return lease.NewZKLease(conn, cfg.LockWaitTimeout), conn.Close, nil
}
