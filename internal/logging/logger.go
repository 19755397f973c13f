// Package logging provides zap logger helpers and the shared process logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the shared logger. It is replaced by InitLogger/Configure and is safe
// to use from any package after Execute() has started.
var L = zap.NewNop()

// FileConfig controls the optional rotating file sink.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config captures logger construction options.
type Config struct {
	Development bool
	File        FileConfig
}

// InitLogger installs a console logger before configuration is available.
// The CRAWLER_LOG_MODE environment variable selects the development encoder
// since this runs ahead of Viper.
func InitLogger() {
	development := os.Getenv("CRAWLER_LOG_MODE") == "development"
	logger, err := New(Config{Development: development})
	if err != nil {
		// Nothing sensible to do without a logger; fall back to noop.
		return
	}
	L = logger
}

// Configure rebuilds the shared logger from full configuration. Called once
// the config file has been read, so the file sink settings are known.
func Configure(cfg Config) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	L = logger
	return nil
}

// New builds a zap.Logger configured for development or production, with an
// optional lumberjack-rotated file core teed alongside the console core.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.DisableStacktrace = false
	}
	zcfg.EncoderConfig.TimeKey = "ts"

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if !cfg.File.Enabled {
		return logger, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File.Path,
		MaxSize:    cfg.File.MaxSizeMB,
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAgeDays,
		Compress:   cfg.File.Compress,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zcfg.EncoderConfig),
		zapcore.AddSync(rotator),
		zcfg.Level,
	)
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	return logger, nil
}
