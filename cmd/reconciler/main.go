package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"medqueue/internal/tokens/reconcile"
	"medqueue/internal/tokens/repository"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/config"
	"medqueue/pkg/kafka"
	kafkaconfig "medqueue/pkg/kafka/config"
	kafkamiddleware "medqueue/pkg/kafka/middleware"
	"medqueue/pkg/metrics"
)

const ServiceName = "medqueue-reconciler"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.UsesMongo() {
		cfg.Log.Fatal("The reconciler requires the mongo storage backend", "storage_backend", cfg.StorageBackend)
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	m := metrics.New()
	v := validator.NewTokenValidator()
	reconciler := reconcile.NewReconciler(
		repository.NewMongoTokenLedger(cfg),
		repository.NewMongoPatientDirectory(cfg, v),
		v,
		cfg.Log,
	)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.TokenEventsTopic, cfg.ReconcilerGroupID, cfg.TokenEventsDLQTopic, reconciler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafkamiddleware.MetricsConsumerMiddleware(m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server = &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadTimeout: cfg.ReadTimeout}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cfg.Log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	cfg.Log.Info("Starting profile link reconciler", "topic", cfg.TokenEventsTopic, "group_id", cfg.ReconcilerGroupID)
	exitCode := 0
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			cfg.Log.Error("Metrics server shutdown failed", "error", err)
		}
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Reconciler stopped", "exit_code", exitCode)
	if exitCode != 0 {
		cfg.GracefulShutdown()
		os.Exit(exitCode)
	}
}
