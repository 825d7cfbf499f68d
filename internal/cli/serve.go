package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	dapr "github.com/dapr/go-sdk/client"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"newsletter-go/internal/app"
	"newsletter-go/internal/config"
	"newsletter-go/internal/logging"
	"newsletter-go/internal/metrics"
	"newsletter-go/internal/repository"
	"newsletter-go/internal/storage"
	"newsletter-go/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the subscription HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(configDir)
		if err != nil {
			return err
		}

		logger, err := logging.New(settings.Log)
		if err != nil {
			return err
		}

		return serve(cmd.Context(), settings, logger)
	},
}

func serve(ctx context.Context, settings config.Settings, logger *logging.ContextLogger) error {
	tp, err := telemetry.InitTracing(settings.Application.ServiceName, settings.Application.ServiceVersion, settings.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := telemetry.ShutdownTracing(context.Background(), tp); err != nil {
			logger.WithError(err).Error("Error shutting down tracer provider")
		}
	}()

	repo, closeRepo, err := openRepository(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	listener, err := net.Listen("tcp", settings.Application.Address())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", settings.Application.Address(), err)
	}

	var m *metrics.Metrics
	if settings.Application.MetricsPath != "" {
		m = metrics.New()
	}

	application, err := app.Build(listener, repo, &app.Config{
		Settings:       settings.Application,
		Logger:         logger,
		TracerProvider: otel.GetTracerProvider(),
		Metrics:        m,
	})
	if err != nil {
		_ = listener.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Application.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

// openRepository picks the storage backend. The returned func releases the pool or client.
func openRepository(ctx context.Context, settings config.Settings, logger *logging.ContextLogger) (repository.SubscriptionRepository, func(), error) {
	switch settings.Database.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory storage, subscriptions are lost on exit")
		return repository.NewInMemorySubscriptionRepository(logger), func() {}, nil

	case config.BackendDapr:
		var (
			client dapr.Client
			err    error
		)
		if settings.Dapr.Address != "" {
			client, err = dapr.NewClientWithAddress(settings.Dapr.Address)
		} else {
			client, err = dapr.NewClient()
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create dapr client: %w", err)
		}
		return repository.NewDaprSubscriptionRepository(client, settings.Dapr.Binding, logger), client.Close, nil

	default:
		db, err := storage.Open(ctx, settings.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.WithFields(logrus.Fields{
			"host":     settings.Database.Host,
			"port":     settings.Database.Port,
			"database": settings.Database.Name,
		}).Info("Connected to database")

		return repository.NewPostgresSubscriptionRepository(db, logger), func() { _ = db.Close() }, nil
	}
}
