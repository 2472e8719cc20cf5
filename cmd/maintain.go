package main

import (
	"github.com/spf13/cobra"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Embed jobs and profiles missing vectors, then rescore stale matches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		_, worker, err := a.enrichment(ctx)
		if err != nil {
			return err
		}
		return worker.CatchUp(ctx)
	},
}

func init() {
	rootCmd.AddCommand(maintainCmd)
}
