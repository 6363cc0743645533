package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/marmos91/idmapd/internal/logger"
	"github.com/marmos91/idmapd/pkg/api"
	"github.com/marmos91/idmapd/pkg/config"
	"github.com/marmos91/idmapd/pkg/metrics"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/idmapd/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the idmapd daemon",
	Long: `Start the idmapd daemon in the foreground.

The daemon constructs the identity resolver from the configuration and,
when enabled, serves the admin API with health, stats, metrics and
cache-flush endpoints.

Examples:
  # Start with the default config location
  idmapd start

  # Start with a custom config file
  idmapd start --config /etc/idmapd/config.yaml

  # Start with environment variable overrides
  IDMAPD_LOGGING_LEVEL=DEBUG idmapd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("metrics enabled")
	}

	resolver, err := cfg.CreateResolver(metrics.NewIdmapMetrics())
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Error("resolver close error", "error", err)
		}
	}()

	logger.Info("idmapd started",
		"version", Version,
		"source", cfg.Idmap.Source,
		"local_domain", cfg.Idmap.LocalDomain,
	)

	if cfg.API.Enabled {
		server := api.NewServer(cfg.API.Listen, resolver)
		if err := server.Start(ctx); err != nil {
			return err
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("idmapd stopped")
	return nil
}

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}
