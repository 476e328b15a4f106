package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/crosscall/internal/config"
	"github.com/aretw0/crosscall/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crosscall",
	Short: "crosscall runs an orchestrator contract that calls a greeting service across accounts",
	Long: `crosscall hosts two contracts on an in-process host: an orchestrator and a
greeting service. Orchestrator entry methods schedule calls into the service
and collect the outcomes in private continuations.

Configuration is read from crosscall.yaml (or the file given by --config).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "crosscall.yaml", "Path to the configuration file (yaml or json)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle traces")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: 'text' or 'json'")
}

// loadConfig reads the --config file and builds the logger the commands share.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, bool, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	format, _ := cmd.Flags().GetString("log-format")

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, debug, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, nil, debug, err
	}
	if debug {
		level = slog.LevelDebug
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return cfg, nil, debug, err
	}

	logger := logging.NewWriter(os.Stderr, level, f)
	slog.SetDefault(logger)
	return cfg, logger, debug, nil
}
