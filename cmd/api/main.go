package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eek-site/eek-sub001/internal/api"
	"github.com/eek-site/eek-sub001/internal/config"
	"github.com/eek-site/eek-sub001/internal/events"
	"github.com/eek-site/eek-sub001/internal/logging"
	"github.com/eek-site/eek-sub001/internal/maps"
	"github.com/eek-site/eek-sub001/internal/metrics"
	"github.com/eek-site/eek-sub001/internal/notify"
	"github.com/eek-site/eek-sub001/internal/repository"
	"github.com/eek-site/eek-sub001/internal/service"
	"github.com/eek-site/eek-sub001/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	defer func() { _ = repository.Close(redisClient) }()

	if err := repository.Ping(context.Background(), redisClient); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	mailer, err := initMailer(cfg, logger)
	if err != nil {
		return err
	}

	mailWorker := worker.NewMailWorker(mailer, redisClient, worker.RetryPolicy{
		MaxRetries:   cfg.Worker.MaxRetries,
		InitialDelay: time.Duration(cfg.Worker.InitialDelaySec) * time.Second,
		MaxDelay:     time.Duration(cfg.Worker.MaxDelaySec) * time.Second,
	}, logger)
	mailWorker.SetPollInterval(time.Duration(cfg.Worker.PollIntervalSec) * time.Second)

	notifier := notify.NewNotifier(mailer, mailWorker, cfg.Mail, cfg.SMS, cfg.Links, logger)

	jobs := repository.NewJobStore(redisClient, logger)
	suppliers := repository.NewSupplierDirectory(redisClient, logger)
	bus := events.NewEventBus()
	subscribeJobEvents(bus, logger)

	geo := maps.New(cfg.Maps)
	if geo == nil {
		logger.Info().Msg("maps api key not set, geocoding disabled")
	}

	booking := service.NewBookingService(jobs, suppliers, notifier, geo, bus, cfg.Links, logger)
	portal := service.NewPortalService(jobs, suppliers, notifier, bus, logger)

	server := api.NewServer(cfg.Server, cfg.Admin, booking, portal, suppliers, redisClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)
	go mailWorker.Start(ctx)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("dispatch service stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, &logger, closer, nil
}

func initMailer(cfg *config.Config, logger *zerolog.Logger) (notify.Mailer, error) {
	if cfg.Mail.Demo() {
		logger.Warn().Msg("mail credentials not set, running in demo mode")
		return nil, nil
	}

	mailer, err := notify.NewGraphMailer(cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("graph mailer: %w", err)
	}
	logger.Info().Str("from", cfg.Mail.FromAddress).Msg("graph mailer configured")
	return mailer, nil
}

// subscribeJobEvents wires the metrics and audit-log consumers.
func subscribeJobEvents(bus *events.EventBus, logger *zerolog.Logger) {
	auditLogger := logger.With().Str("component", "audit").Logger()

	for _, eventType := range []string{
		events.EventJobCreated,
		events.EventPaymentCompleted,
		events.EventJobDispatched,
		events.EventSupplierInvoice,
		events.EventJobPurged,
	} {
		eventType := eventType
		bus.Subscribe(eventType, func(e *events.Event) error {
			metrics.IncJobEvent(eventType)
			auditLogger.Info().Str("event", eventType).RawJSON("payload", e.Payload).Msg("job event")
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
