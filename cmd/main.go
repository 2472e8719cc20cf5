// matching-service discovers job postings from several providers, stores
// them once per user and scores them against the user's profile.
//
// Commands:
//
//	serve     HTTP + gRPC APIs, enrichment worker, scheduler
//	ingest    one ingestion run, or every active search config (--all)
//	maintain  embedding backfill and stale-match sweep
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "2.0.0"

var rootCmd = &cobra.Command{
	Use:           "matching-service",
	Short:         "Job ingestion and matching pipeline",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
