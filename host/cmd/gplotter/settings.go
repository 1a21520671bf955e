package main

import (
	"github.com/spf13/cobra"

	"gplotter/standalone/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the effective machine configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}
