// Package main provides the entrypoint for the ZoneSentry worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zonesentry/zonesentry/internal/alert"
	"github.com/zonesentry/zonesentry/internal/database"
	"github.com/zonesentry/zonesentry/internal/detection"
	"github.com/zonesentry/zonesentry/internal/location"
	"github.com/zonesentry/zonesentry/internal/membership"
	"github.com/zonesentry/zonesentry/internal/notifier"
	"github.com/zonesentry/zonesentry/internal/quiethours"
	"github.com/zonesentry/zonesentry/internal/reminder"
	"github.com/zonesentry/zonesentry/internal/telemetry"
	"github.com/zonesentry/zonesentry/internal/throttle"
	"github.com/zonesentry/zonesentry/internal/worker"
	"github.com/zonesentry/zonesentry/internal/zone"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "zonesentry-worker"

	// Local development convenience; missing file is fine.
	_ = godotenv.Load() //nolint:errcheck

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ZoneSentry worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	cfg := worker.ConfigFromEnv()

	// Repositories
	directory := zone.NewPostgresDirectory(pool)
	membershipRepo := membership.NewPostgresRepository(pool)
	throttleRepo := throttle.NewPostgresRepository(pool)
	quietRepo := quiethours.NewPostgresRepository(pool)
	alertRepo := alert.NewPostgresRepository(pool)
	locationRepo := location.NewPostgresRepository(pool)

	throttles := throttle.NewStore(throttle.StoreConfig{
		Repo:   throttleRepo,
		Logger: log,
	})
	quietService := quiethours.NewService(quietRepo, log)
	tracker := membership.NewTracker(membershipRepo)

	// Notification transport: Pub/Sub when configured, log-only otherwise.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	notifyTopic := os.Getenv("PUBSUB_NOTIFY_TOPIC")

	var notify notifier.Notifier
	var pubsubNotifier *notifier.PubSubNotifier
	if projectID != "" && notifyTopic != "" {
		pubsubNotifier, err = notifier.NewPubSubNotifier(ctx, notifier.PubSubNotifierConfig{
			ProjectID: projectID,
			TopicName: notifyTopic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub notifier")
		}
		notify = notifier.NewResilient(pubsubNotifier, notifier.DefaultBreakerConfig("notify-dispatch"), log)
		log.Info().Str("topic", notifyTopic).Msg("pubsub notifier initialized")
	} else {
		notify = notifier.NewLogNotifier(log)
		log.Warn().Msg("no pubsub notify topic configured, logging notifications only")
	}
	defer func() {
		if pubsubNotifier != nil {
			if closeErr := pubsubNotifier.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub notifier")
			}
		}
	}()

	engine, err := detection.NewEngine(detection.EngineConfig{
		Directory:      directory,
		Tracker:        tracker,
		Throttles:      throttles,
		Quiet:          quietService,
		Alerts:         alertRepo,
		Notifier:       notify,
		Logger:         log,
		SearchRadiusM:  cfg.SearchRadiusM,
		DangerAlertTTL: cfg.DangerAlertTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create detection engine")
	}
	log.Info().
		Float64("search_radius_m", cfg.SearchRadiusM).
		Dur("danger_alert_ttl", cfg.DangerAlertTTL).
		Msg("detection engine initialized")

	scheduler := reminder.NewScheduler(reminder.SchedulerConfig{
		Alerts:       alertRepo,
		Directory:    directory,
		Locations:    locationRepo,
		Quiet:        quietService,
		Notifier:     notify,
		Logger:       log,
		Spacing:      cfg.ReminderSpacing,
		MaxReminders: cfg.MaxReminders,
	})

	// Background loops
	go worker.RunReminderLoop(ctx, scheduler, cfg.ReminderInterval, log)
	go worker.RunSweepLoop(ctx, throttles, cfg.SweepInterval, log)

	// Queue consumer
	subscription := os.Getenv("PUBSUB_BATCH_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Engine:           engine,
			Locations:        locationRepo,
			Config:           cfg,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if closeErr := handler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub handler")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("no pubsub batch subscription configured, queue consumer disabled")
	}

	// Ops endpoints for platform probes
	router := worker.NewOpsRouter(worker.OpsRouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Engine:    engine,
		Scheduler: scheduler,
		Throttles: throttles,
		Logger:    log,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("ops server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
