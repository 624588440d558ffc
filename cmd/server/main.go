package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/leadfunnel/internal/api"
	"github.com/ignite/leadfunnel/internal/awsclient"
	"github.com/ignite/leadfunnel/internal/bootstrap"
	"github.com/ignite/leadfunnel/internal/config"
	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/notify"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
	"github.com/ignite/leadfunnel/internal/ratelimit"
	"github.com/ignite/leadfunnel/internal/repository/postgres"
	"github.com/ignite/leadfunnel/internal/service/admin"
	"github.com/ignite/leadfunnel/internal/service/intake"
	"github.com/ignite/leadfunnel/internal/storage"
	"github.com/ignite/leadfunnel/internal/tracking"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %v", addr, err)
	}
	ln.Close()
	return nil
}

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

	trustedProxies, err := cfg.Server.TrustedNets()
	if err != nil {
		log.Fatalf("Invalid server.trusted_proxies: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, falling back to postgres", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Rate limiting
	limiter, err := ratelimit.New(cfg.RateLimit.Backend, db, rdb, ratelimit.Settings{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
		Retention:   cfg.RateLimit.Retention(),
	})
	if err != nil {
		logger.Warn("rate limiter backend unavailable, using sql", "backend", cfg.RateLimit.Backend, "error", err)
		limiter = ratelimit.NewSQLLimiter(db, ratelimit.Settings{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window(),
			Retention:   cfg.RateLimit.Retention(),
		})
	}

	// Lead events: SQS when a queue is configured, lead_events otherwise
	events := postgres.NewEventRepo(db)
	var publisher *tracking.Publisher
	if cfg.Tracking.SQSQueueURL != "" {
		awsCfg, err := awsclient.Load(ctx, awsclient.Options{Region: cfg.Tracking.AWSRegion})
		if err != nil {
			logger.Warn("sqs unavailable, events go straight to postgres", "error", err)
		} else {
			publisher = tracking.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)
			logger.Info("tracking events published to sqs")
		}
	}
	trackingHandler := tracking.NewHandler(publisher, events)

	// Notifications
	var sesClient notify.SESAPI
	if cfg.Mail.SES.Enabled {
		awsCfg, err := awsclient.Load(ctx, awsclient.Options{
			Region:    cfg.Mail.SES.Region,
			AccessKey: cfg.Mail.SES.AccessKey,
			SecretKey: cfg.Mail.SES.SecretKey,
		})
		if err != nil {
			logger.Warn("ses mail stage disabled", "error", err)
		} else {
			sesClient = sesv2.NewFromConfig(awsCfg)
		}
	}
	var webhook *notify.Webhook
	if cfg.Webhook.URL != "" {
		webhook = notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout(), cfg.Webhook.MaxRetries, cfg.Webhook.InsecureSkipVerify)
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherOptions{
		Mail:     notify.NewMailChain(cfg.Mail, sesClient),
		Renderer: notify.NewRenderer(cfg.Server.PublicBaseURL, cfg.Mail.FromEmail, cfg.Mail.FromName),
		Webhook:  webhook,
		Events:   trackingHandler,
		Policies: map[domain.Funnel]notify.Policy{
			domain.FunnelROI:       {Email: cfg.Funnels.ROI.NotifyEmail, Webhook: cfg.Funnels.ROI.Webhook},
			domain.FunnelRevolving: {Email: cfg.Funnels.Revolving.NotifyEmail, Webhook: cfg.Funnels.Revolving.Webhook},
		},
	})

	// Services
	intakeSvc, err := intake.NewService(postgres.NewLeadRepo(db), limiter, dispatcher, intake.Options{
		ROIStrategy:      cfg.Calculator.ROIStrategy,
		RecoveryStrategy: cfg.Calculator.RecoveryStrategy,
		LegalRate:        cfg.Calculator.LegalRate,
	})
	if err != nil {
		log.Fatalf("Invalid calculator config: %v", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("report storage disabled", "error", err)
		store = nil
	}
	relaySvc := bootstrap.NewRelay(cfg.Relay, db, rdb, store)
	adminSvc := admin.NewService(postgres.NewAdminRepo(db))

	var health *api.HealthChecker
	if s3Client, bucket := store.S3(); s3Client != nil {
		health = api.NewHealthChecker(db, rdb, s3Client, bucket)
	} else {
		health = api.NewHealthChecker(db, rdb, nil, "")
	}

	opts := api.Options{
		Leads:          intakeSvc,
		Admin:          adminSvc,
		Tracking:       trackingHandler,
		Health:         health,
		Funnels:        cfg.Funnels,
		CronToken:      cfg.Relay.CronToken,
		AdminToken:     cfg.Admin.Token,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: trustedProxies,
	}
	if cfg.Relay.CronToken != "" {
		opts.Relay = relaySvc
	} else {
		logger.Warn("cron token not set, /cron/relay disabled")
	}
	if store != nil {
		opts.Runs = store
	}
	server := api.NewServer(cfg.Server, api.NewHandlers(opts))

	go func() {
		logger.Info("server listening", "addr", addr, "relay_enabled", cfg.Relay.Enabled)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Let queued notifications finish before the pool closes.
	dispatcher.Wait()
	logger.Info("server stopped")
}
