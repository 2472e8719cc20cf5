package ingestion

import (
	"context"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/model"
)

// ConfigSummary totals a RunSearchConfigs pass.
type ConfigSummary struct {
	Runs   int
	Saved  int
	Failed int
}

// RunSearchConfigs executes one run per (jobTitle × location) pair of every
// config, applying the config's red flags. A failing pair is logged and the
// pass continues.
func (s *Service) RunSearchConfigs(ctx context.Context, configs []model.SearchConfig) ConfigSummary {
	var sum ConfigSummary

	for _, cfg := range configs {
		s.log.Info("running search config",
			zap.String("configId", cfg.ID),
			zap.String("userId", cfg.UserID),
			zap.Strings("titles", cfg.JobTitles),
			zap.Strings("locations", cfg.Locations),
		)

		locations := cfg.Locations
		if len(locations) == 0 {
			locations = []string{""}
		}

		for _, title := range cfg.JobTitles {
			for _, location := range locations {
				sum.Runs++
				res, err := s.Run(ctx, cfg.UserID, title, Options{Location: location, RedFlags: cfg.RedFlags})
				if err != nil {
					sum.Failed++
					s.log.Error("search config run failed, continuing",
						zap.String("configId", cfg.ID),
						zap.String("title", title),
						zap.String("location", location),
						zap.Error(err),
					)
					continue
				}
				sum.Saved += len(res.Jobs)
			}
		}
	}

	s.log.Info("search configs done",
		zap.Int("configs", len(configs)),
		zap.Int("runs", sum.Runs),
		zap.Int("saved", sum.Saved),
		zap.Int("failed", sum.Failed),
	)
	return sum
}
