package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"newsletter-go/internal/config"
	"newsletter-go/internal/logging"
	"newsletter-go/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply the subscriptions schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(storage.Up), string(storage.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := storage.Up
		if len(args) == 1 {
			direction = storage.Direction(args[0])
		}

		settings, err := config.Load(configDir)
		if err != nil {
			return err
		}

		logger, err := logging.New(settings.Log)
		if err != nil {
			return err
		}

		return migrate(cmd.Context(), settings.Database, direction, logger)
	},
}

func migrate(ctx context.Context, settings config.Database, direction storage.Direction, logger *logging.ContextLogger) error {
	settings.PingOnStartup = true

	db, err := storage.Open(ctx, settings)
	if err != nil {
		return err
	}

	// Migrate closes db
	version, err := storage.Migrate(db.DB, direction)
	if err != nil {
		logger.WithError(err).Error("Migration failed")
		return err
	}

	logger.WithFields(logrus.Fields{
		"direction": string(direction),
		"version":   version,
		"database":  settings.Name,
	}).Info("Migrations complete")

	return nil
}
