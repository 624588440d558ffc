// Command relay runs one relay batch from the command line and prints the
// report, for operators and host cron jobs that prefer a binary over the
// HTTP trigger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/leadfunnel/internal/bootstrap"
	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/service/relay"
	"github.com/ignite/leadfunnel/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	reclaim := flag.Bool("reclaim", false, "release expired claims before the run")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	bootstrap.ConfigureLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	svc := bootstrap.NewRelay(cfg.Relay, db, rdb, store)

	if *reclaim {
		n, err := svc.ReclaimStale(ctx, cfg.Relay.Lease())
		if err != nil {
			log.Fatalf("Reclaim failed: %v", err)
		}
		logger.Info("expired claims released", "count", n)
	}

	report, err := svc.Run(ctx)
	if errors.Is(err, relay.ErrRunInProgress) {
		fmt.Fprintln(os.Stderr, "another relay run is in progress")
		os.Exit(2)
	}
	if report == nil {
		log.Fatalf("Relay run failed: %v", err)
	}
	fmt.Print(relay.RenderText(report))
	if err != nil || report.Failed > 0 {
		os.Exit(1)
	}
}
