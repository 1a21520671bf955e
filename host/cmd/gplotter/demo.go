package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gplotter/standalone/planner"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Plan the built-in relative drawing and print its motion primitives",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rec := planner.NewRecorder(nil)
		if err := planner.RelativeDemo(planner.NewPlanner(cfg, rec, logger)); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, op := range rec.Ops {
			fmt.Fprintln(w, op)
		}
		fmt.Fprintf(w, "%d operations, %d moves\n", len(rec.Ops), rec.Count(planner.OpMove))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
