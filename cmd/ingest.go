package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/matching-service/internal/ingestion"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion, or every active search config with --all",
	Long: "Fetches listings from every enabled provider, stores them and publishes " +
		"jobs:ingested so a running server enriches them. The scheduler runs " +
		"`ingest --all` in a child process on every tick.",
	RunE: runIngest,
}

var (
	ingestUser     string
	ingestKeyword  string
	ingestLocation string
	ingestLimit    int
	ingestAll      bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "User id owning the ingested jobs")
	ingestCmd.Flags().StringVar(&ingestKeyword, "keyword", "", "Search keyword, also used as the title filter")
	ingestCmd.Flags().StringVar(&ingestLocation, "location", "", "Location passed to providers")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "Maximum listings per provider (0 = provider default)")
	ingestCmd.Flags().BoolVar(&ingestAll, "all", false, "Run every active search config")
	ingestCmd.MarkFlagsMutuallyExclusive("all", "user")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if !ingestAll && ingestUser == "" {
		return errors.New("either --user or --all is required")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// events reach the server's enrichment worker through redis
	a.bridge.EnableForwarding()

	if ingestAll {
		configs, err := a.db.LoadActiveConfigs(ctx)
		if err != nil {
			return err
		}
		if len(configs) == 0 {
			a.log.Info("no active search configs, nothing to ingest")
			return nil
		}
		sum := a.ingestion.RunSearchConfigs(ctx, configs)
		if sum.Runs > 0 && sum.Failed == sum.Runs {
			return fmt.Errorf("all %d ingestion runs failed", sum.Runs)
		}
		return nil
	}

	res, err := a.ingestion.Run(ctx, ingestUser, ingestKeyword, ingestion.Options{
		Location: ingestLocation,
		Limit:    ingestLimit,
	})
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		a.log.Warn("provider error", zap.String("error", e))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
