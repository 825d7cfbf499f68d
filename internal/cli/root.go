// Package cli implements the newsletter commands.
package cli

import (
	"github.com/spf13/cobra"
)

var configDir string // directory holding configuration.yaml

var rootCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "newsletter accepts subscription form submissions and stores them in Postgres",
	Args:  cobra.OnlyValidArgs,
	// main prints the returned error
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing configuration.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
