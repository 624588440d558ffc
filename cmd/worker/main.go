package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/leadfunnel/internal/awsclient"
	"github.com/ignite/leadfunnel/internal/bootstrap"
	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/repository/postgres"
	"github.com/ignite/leadfunnel/internal/storage"
	"github.com/ignite/leadfunnel/internal/tracking"
	"github.com/ignite/leadfunnel/internal/worker"
)

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	bootstrap.ConfigureLogger(cfg.Log)
	logger.Info("starting background worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using postgres advisory lock", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("report storage disabled", "error", err)
		store = nil
	}
	relaySvc := bootstrap.NewRelay(cfg.Relay, db, rdb, store)

	// Lease reclaimer (returns claims from crashed runs to pending)
	reclaimer := worker.NewLeaseReclaimer(relaySvc, 2*time.Minute, cfg.Relay.Lease())
	go reclaimer.Start(ctx)
	logger.Info("lease reclaimer started", "lease", cfg.Relay.Lease().String())

	// Data cleanup (rate-limit rows and old lead events)
	cleanup := worker.NewDataCleanupWorker(db,
		cfg.Cleanup.Interval(),
		cfg.RateLimit.Retention(),
		time.Duration(cfg.Tracking.RetentionDays)*24*time.Hour,
	)
	go cleanup.Start(ctx)
	logger.Info("data cleanup worker started", "interval", cfg.Cleanup.Interval().String())

	// Tracking consumer (SQS -> lead_events)
	var consumer *tracking.Consumer
	if cfg.Tracking.SQSQueueURL != "" {
		awsCfg, err := awsclient.Load(ctx, awsclient.Options{Region: cfg.Tracking.AWSRegion})
		if err != nil {
			logger.Warn("tracking consumer disabled", "error", err)
		} else {
			consumer = tracking.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL, postgres.NewEventRepo(db))
			consumer.Start(ctx)
			logger.Info("tracking consumer started")
		}
	}

	// Periodic relay, for deployments without an external cron
	var scheduler *worker.RelayScheduler
	if cfg.Relay.Interval() > 0 {
		scheduler = worker.NewRelayScheduler(relaySvc, cfg.Relay.Interval())
		scheduler.Start(ctx)
		logger.Info("relay scheduler started", "interval", cfg.Relay.Interval().String())
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	if consumer != nil {
		consumer.Stop()
	}
	if scheduler != nil {
		scheduler.Stop()
		stats := scheduler.Stats()
		logger.Info("relay scheduler stopped", "runs", stats.Runs, "sent", stats.Sent)
	}

	// Give in-flight batch deletes time to observe the cancellation
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}
