package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"labreport/api/internal/config"
	"labreport/api/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "api",
		Short:        "Lab report notebook server and tools",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), renderCmd(), clientCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "json", "Log format (json, console)")
	return root
}

// setup reads configuration (defaults, config file, LAB_* env, then flags)
// and builds the logger.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	v, err := config.NewViper()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("read config: %w", err)
	}
	if err := bindFlags(v, cmd); err != nil {
		return config.Config{}, nil, err
	}
	cfg := config.Load(v)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info("loaded config file", zap.String("path", used))
	}
	return cfg, logger, nil
}

// bindFlags lets explicitly set flags override env and file values.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}
