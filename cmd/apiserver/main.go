// API server entry point for the cooperative map service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigtopo/coop-driouch/internal/app"
	"github.com/sigtopo/coop-driouch/internal/config"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, fromFile, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if fromFile {
		config.Watch(*configPath, func(next *config.Config) {
			if logging.SetLevel(logger, next.Log.Level) {
				logger.Info("log level reloaded", logging.String("level", next.Log.Level))
			}
		}, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire service", logging.Err(err))
	}
	logger.Info("starting coopmap API server",
		logging.String("version", app.Version),
		logging.Int("port", cfg.Server.Port),
		logging.String("features_url", cfg.Source.FeaturesURL))

	if err := a.Run(ctx); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("server exited")
}

// loadConfig reads the file when it exists and falls back to COOPMAP_*
// environment variables otherwise.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := config.Load(path)
		return cfg, true, err
	}
	cfg, err := config.LoadFromEnv()
	return cfg, false, err
}
