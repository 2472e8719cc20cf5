package db

import (
	"context"
	"fmt"

	"jobmate/matching-service/internal/model"
)

// SaveProgress overwrites the user's single discovery_progress row.
func (d *DB) SaveProgress(ctx context.Context, p model.DiscoveryProgress) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO discovery_progress
		   (user_id, status, current_step, total_steps, percentage, message, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   status       = EXCLUDED.status,
		   current_step = EXCLUDED.current_step,
		   total_steps  = EXCLUDED.total_steps,
		   percentage   = EXCLUDED.percentage,
		   message      = EXCLUDED.message,
		   updated_at   = NOW()`,
		p.UserID, string(p.Status), p.CurrentStep, p.TotalSteps, p.Percentage, p.Message,
	)
	if err != nil {
		return fmt.Errorf("saveProgress: %w", err)
	}
	return nil
}

// GetProgress returns the user's latest progress or ErrNotFound when no run
// has ever started.
func (d *DB) GetProgress(ctx context.Context, userID string) (*model.DiscoveryProgress, error) {
	var p model.DiscoveryProgress
	err := d.pool.QueryRow(ctx,
		`SELECT user_id::text, status, current_step, total_steps, percentage, message, updated_at
		 FROM discovery_progress WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Status, &p.CurrentStep, &p.TotalSteps, &p.Percentage, &p.Message, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
