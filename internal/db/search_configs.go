package db

import (
	"context"
	"fmt"

	"jobmate/matching-service/internal/model"
)

// LoadActiveConfigs fetches all is_active = true search configs.
func (d *DB) LoadActiveConfigs(ctx context.Context) ([]model.SearchConfig, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id::text, user_id::text, job_titles, locations, red_flags
		 FROM search_configs
		 WHERE is_active = true
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query search_configs: %w", err)
	}
	defer rows.Close()

	var configs []model.SearchConfig
	for rows.Next() {
		var c model.SearchConfig
		if err := rows.Scan(&c.ID, &c.UserID, &c.JobTitles, &c.Locations, &c.RedFlags); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		configs = append(configs, c)
	}

	return configs, rows.Err()
}
