// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kbforge/harvester/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets defaults, defines config search paths, and enables environment
// variable overrides. Called once at startup via cobra.OnInitialize.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                // Current working directory
	viper.AddConfigPath("/etc/harvester/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.harvester") // User-specific configuration

	// Crawl policy.
	viper.SetDefault("crawler.user_agent", "harvester/1.0 (+https://github.com/kbforge/harvester)")
	viper.SetDefault("crawler.max_depth", 2)
	viper.SetDefault("crawler.follow", true)
	viper.SetDefault("crawler.concurrency", 8)
	viper.SetDefault("crawler.respect_robots", true)
	viper.SetDefault("crawler.request_timeout", "15s")
	viper.SetDefault("crawler.max_page_bytes", 10*1024*1024)
	viper.SetDefault("crawler.frontier_capacity", 4096)

	// Frontier backend: memory (default) or redis for crawls whose visited
	// set will not fit in a single process.
	viper.SetDefault("frontier.provider", "memory")
	viper.SetDefault("frontier.redis.addr", "localhost:6379")

	// Object store.
	viper.SetDefault("storage.provider", "memory")
	viper.SetDefault("storage.gcs.bucket_name", "")

	// Metadata store.
	viper.SetDefault("metadata.provider", "memory")
	viper.SetDefault("metadata.postgres.dsn", "")
	viper.SetDefault("metadata.postgres.table", "artifacts")
	viper.SetDefault("metadata.postgres.max_conns", 8)

	// Conversion stage.
	viper.SetDefault("convert.enabled", true)
	viper.SetDefault("convert.endpoint", "")
	viper.SetDefault("convert.api_key", "")
	viper.SetDefault("convert.timeout", "120s")
	viper.SetDefault("convert.workers", 2)
	viper.SetDefault("convert.queue_size", 64)
	viper.SetDefault("convert.max_attempts", 3)
	viper.SetDefault("convert.drain_timeout", "5m")

	// Ingest-event publishing.
	viper.SetDefault("publisher.provider", "noop")
	viper.SetDefault("publisher.gcp.project_id", "")
	viper.SetDefault("publisher.gcp.topic_id", "")

	// Status/metrics HTTP surface.
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.addr", ":8080")

	// Logging.
	viper.SetDefault("logging.development", false)
	viper.SetDefault("logging.file.enabled", false)
	viper.SetDefault("logging.file.path", "logs/harvester.log")
	viper.SetDefault("logging.file.max_size_mb", 10)
	viper.SetDefault("logging.file.max_backups", 3)
	viper.SetDefault("logging.file.max_age_days", 28)
	viper.SetDefault("logging.file.compress", true)

	viper.SetEnvPrefix("CRAWLER") // e.g. CRAWLER_STORAGE_PROVIDER=gcs
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
