// Package cmd wires the harvester CLI.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/app"
	"github.com/kbforge/harvester/internal/logging"
	"github.com/kbforge/harvester/pkg/config"
)

type appKeyType struct{}

var appKey = appKeyType{}

// newApp is a seam for tests; commands build the container through it.
var newApp = app.New

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Bounded web crawler that captures HTML, PDF, and image artifacts into a knowledge base",
	Long: `harvester crawls outward from a seed URL to a bounded depth, stores every
distinct artifact once (content-addressed by checksum), records metadata and
lineage in the relational store, and converts binary artifacts to markdown in
the background.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	logging.InitLogger()
	cobra.OnInitialize(config.InitConfig, configureLogging)

	if err := rootCmd.Execute(); err != nil {
		logging.L.Error("Command failed", zap.Error(err))
		_ = logging.L.Sync()
		os.Exit(1)
	}
	_ = logging.L.Sync()
}

// configureLogging rebuilds the shared logger once viper has read the
// config file.
func configureLogging() {
	cfg := logging.Config{
		Development: viper.GetBool("logging.development"),
		File: logging.FileConfig{
			Enabled:    viper.GetBool("logging.file.enabled"),
			Path:       viper.GetString("logging.file.path"),
			MaxSizeMB:  viper.GetInt("logging.file.max_size_mb"),
			MaxBackups: viper.GetInt("logging.file.max_backups"),
			MaxAgeDays: viper.GetInt("logging.file.max_age_days"),
			Compress:   viper.GetBool("logging.file.compress"),
		},
	}
	if err := logging.Configure(cfg); err != nil {
		logging.L.Error("Configure logger failed", zap.Error(err))
	}
}

// withApp builds the container and injects it into the command context.
func withApp(cmd *cobra.Command) (*app.App, error) {
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
	return a, nil
}

// appFromContext retrieves the container injected by withApp.
func appFromContext(ctx context.Context) *app.App {
	a, _ := ctx.Value(appKey).(*app.App)
	return a
}
