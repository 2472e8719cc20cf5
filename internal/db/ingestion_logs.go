package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"jobmate/matching-service/internal/model"
)

// StartIngestionRun appends an in_progress record for one provider and
// returns its id.
func (d *DB) StartIngestionRun(ctx context.Context, userID, provider string) (string, error) {
	id := uuid.NewString()
	_, err := d.pool.Exec(ctx,
		`INSERT INTO ingestion_logs (id, user_id, provider, status, started_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		id, userID, provider, string(model.RunInProgress),
	)
	if err != nil {
		return "", fmt.Errorf("startIngestionRun: %w", err)
	}
	return id, nil
}

// FinishIngestionRun closes a run record with its final status and stats.
func (d *DB) FinishIngestionRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("finishIngestionRun marshal: %w", err)
	}
	tag, err := d.pool.Exec(ctx,
		`UPDATE ingestion_logs
		 SET status = $2, stats = $3::jsonb, completed_at = NOW()
		 WHERE id = $1`,
		runID, string(status), string(payload),
	)
	if err != nil {
		return fmt.Errorf("finishIngestionRun: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIngestionRuns returns the user's most recent run records.
func (d *DB) ListIngestionRuns(ctx context.Context, userID string, limit int) ([]model.IngestionRun, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id::text, user_id::text, provider, status, stats, started_at, completed_at
		 FROM ingestion_logs
		 WHERE user_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listIngestionRuns query: %w", err)
	}
	defer rows.Close()

	runs := make([]model.IngestionRun, 0)
	for rows.Next() {
		var (
			r     model.IngestionRun
			stats []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Provider, &r.Status, &stats, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("listIngestionRuns scan: %w", err)
		}
		if err := json.Unmarshal(stats, &r.Stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
