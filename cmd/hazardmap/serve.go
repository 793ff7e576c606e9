package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hazard-map-service/internal/adapter/eonet"
	httpadapter "github.com/couchcryptid/hazard-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-map-service/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/hazard-map-service/internal/adapter/mqtt"
	"github.com/couchcryptid/hazard-map-service/internal/config"
	"github.com/couchcryptid/hazard-map-service/internal/controller"
	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/couchcryptid/hazard-map-service/internal/loader"
	"github.com/couchcryptid/hazard-map-service/internal/observability"
	"github.com/couchcryptid/hazard-map-service/internal/refresh"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the hazard map over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder, err := newGeocoder(cfg, metrics, logger)
	if err != nil {
		return err
	}

	surface := newSurface(cfg)
	notices := httpadapter.NewNotices()

	// Optional marker publishers.
	var publishers []loader.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, kafkaWriter)
		logger.Info("kafka publisher enabled", "topic", cfg.KafkaTopic)
	}
	var mqttPublisher *mqttadapter.Publisher
	if cfg.MQTTEnabled() {
		mqttPublisher, err = mqttadapter.Connect(cfg, logger)
		if err != nil {
			return err
		}
		publishers = append(publishers, mqttPublisher)
		logger.Info("mqtt publisher enabled", "topic_prefix", cfg.MQTTTopicPrefix)
	}

	source := eonet.NewClient(cfg.EONETURL, cfg.EONETTimeout, logger)
	registry := loader.NewRegistry(surface, geocoder, logger)
	l := loader.New(source, registry, notices, logger, metrics, publishers...)
	l.SetPublishTimeout(cfg.PublishTimeout)

	ctrl := controller.New(func(ctx context.Context, f domain.Filter) error {
		_, err := l.Load(ctx, f)
		return err
	}, notices.RequestScoped(), controller.Options{RequireBothDates: cfg.FormRequireBothDates})

	srv, err := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Controller: ctrl,
		Surface:    surface,
		Notices:    notices,
		Ready:      l,
		SessionKey: cfg.SessionKey,
	}, logger)
	if err != nil {
		return err
	}

	var scheduler *refresh.Scheduler
	if cfg.RefreshSchedule != "" {
		scheduler, err = refresh.New(cfg.RefreshSchedule, ctrl.Reload, logger)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Page-load unfiltered draw.
	go func() {
		if err := ctrl.LoadInitial(ctx); err != nil {
			logger.Warn("initial load failed", "error", err)
		}
	}()

	if scheduler != nil {
		scheduler.Start()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
		logger.Error("http server error", "error", runErr)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("refresh scheduler stop error", "error", err)
		}
	}
	if err := l.Flush(shutdownCtx); err != nil {
		logger.Warn("marker sets left unpublished", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if mqttPublisher != nil {
		mqttPublisher.Close()
	}

	logger.Info("shutdown complete")
	return runErr
}
