package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/app"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/config"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/lease"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/metrics"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/storage/postgres"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/migrations"
)

func main() {
	cliApp := &cli.App{
		Name:  "flashsale-reaper",
		Usage: "periodically expires stale holds and restores stock",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pretty-log", Usage: "use console-friendly log output"},
			&cli.BoolFlag{Name: "run-once", Usage: "run a single reaper pass and exit"},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
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

	metricsRegistry := metrics.New(prometheus.DefaultRegisterer)
	store := postgres.NewStore(pool)
	clk := clock.NewSystem()

	reaperLease, closeLease, err := buildLease(cfg, pool)
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

	if c.Bool("run-once") {
		reaped, err := reaper.RunOnce(context.Background())
		if err != nil {
			return fmt.Errorf("run-once: %w", err)
		}
		logger.Event("reaper_run_once").Int("reaped", reaped).Send()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.ReaperInterval)
	defer ticker.Stop()

	logger.Event("reaper_starting").Dur("interval", cfg.ReaperInterval).Send()

	for {
		select {
		case <-ctx.Done():
			logger.Event("reaper_stopped").Send()
			return nil
		case <-ticker.C:
			reaped, err := reaper.RunOnce(ctx)
			if err != nil {
				logger.ErrorEvent("reaper_run_failed", err).Send()
				continue
			}
			if reaped > 0 {
				logger.Event("reaper_run_complete").Int("reaped", reaped).Send()
			}
		}
	}
}

// buildLease mirrors cmd/api's lease selection: ZooKeeper when
// ZOOKEEPER_HOSTS is set, a Postgres advisory lock otherwise. The API
// process takes the same lease for its admin run-once endpoint. The
// lease keeps two passes from sweeping the same page at once; a hold
// is never expired twice either way, since each one is re-checked
// under its row lock.
func buildLease(cfg config.Config, pool *pgxpool.Pool) (lease.Lease, func(), error) {
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
