package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gplotter/logging"
	"gplotter/standalone"
	"gplotter/standalone/config"
)

// logger is set up by the root command before any subcommand runs
var logger = logging.NewNop()

var rootCmd = &cobra.Command{
	Use:   "gplotter",
	Short: "gplotter drives a pen plotter from GRBL senders",
	Long: `gplotter speaks enough of the GRBL protocol for G-code senders to stream
drawings to a two-axis pen plotter built from unipolar steppers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logger, err = logging.New(level, format)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Machine configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// loadConfig reads --config, falling back to the built-in plotter
func loadConfig(cmd *cobra.Command) (*standalone.MachineConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.DefaultPlotterConfig(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", slog.String("path", path), slog.String("name", cfg.Name))
	return cfg, nil
}
