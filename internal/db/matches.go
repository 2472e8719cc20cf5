package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"jobmate/matching-service/internal/model"
)

// Similarity is the cosine similarity of one job against a profile vector.
type Similarity struct {
	JobID      string
	Similarity float64
}

// JobSimilarity computes 1 - cosine distance between the job's embedding and
// vec inside Postgres. ok is false when the job exists but has no embedding.
func (d *DB) JobSimilarity(ctx context.Context, userID, jobID string, vec []float32) (sim float64, ok bool, err error) {
	var s *float64
	err = d.pool.QueryRow(ctx,
		`SELECT 1 - (embedding <=> $3)
		 FROM jobs
		 WHERE id = $1 AND user_id = $2`,
		jobID, userID, pgvector.NewVector(vec),
	).Scan(&s)
	if err != nil {
		return 0, false, notFound(err)
	}
	if s == nil {
		return 0, false, nil
	}
	return *s, true, nil
}

// StaleSimilarities returns similarities for every embedded job of the user
// that has no match yet, or whose match predates the latest job or profile
// embedding. One set-based query regardless of job count.
func (d *DB) StaleSimilarities(ctx context.Context, userID string, vec []float32) ([]Similarity, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT j.id::text, 1 - (j.embedding <=> $2)
		 FROM jobs j
		 JOIN profiles p ON p.user_id = j.user_id
		 LEFT JOIN job_matches m ON m.user_id = j.user_id AND m.job_id = j.id
		 WHERE j.user_id = $1
		   AND j.embedding IS NOT NULL
		   AND (m.job_id IS NULL
		        OR m.updated_at < j.embedded_at
		        OR m.updated_at < p.embedded_at)`,
		userID, pgvector.NewVector(vec),
	)
	if err != nil {
		return nil, fmt.Errorf("staleSimilarities query: %w", err)
	}
	defer rows.Close()

	sims := make([]Similarity, 0)
	for rows.Next() {
		var s Similarity
		if err := rows.Scan(&s.JobID, &s.Similarity); err != nil {
			return nil, fmt.Errorf("staleSimilarities scan: %w", err)
		}
		sims = append(sims, s)
	}
	return sims, rows.Err()
}

type matchRow struct {
	UserID        string  `json:"user_id"`
	JobID         string  `json:"job_id"`
	Score         int     `json:"score"`
	RawSimilarity float64 `json:"raw_similarity"`
	Label         string  `json:"label"`
}

// UpsertMatches writes every match in one statement and mirrors score,
// rawSimilarity and matchLabel into jobs.metadata. labels is keyed by job id.
// Returns the number of jobs updated.
func (d *DB) UpsertMatches(ctx context.Context, matches []model.JobMatch, labels map[string]string) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	rows := make([]matchRow, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, matchRow{
			UserID:        m.UserID,
			JobID:         m.JobID,
			Score:         m.Score,
			RawSimilarity: m.RawSimilarity,
			Label:         labels[m.JobID],
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("upsertMatches marshal: %w", err)
	}

	tag, err := d.pool.Exec(ctx,
		`WITH input AS (
		   SELECT * FROM jsonb_to_recordset($1::jsonb)
		     AS r(user_id uuid, job_id uuid, score int, raw_similarity double precision, label text)
		 ), upserted AS (
		   INSERT INTO job_matches (user_id, job_id, score, raw_similarity, updated_at)
		   SELECT user_id, job_id, score, raw_similarity, NOW() FROM input
		   ON CONFLICT (user_id, job_id) DO UPDATE SET
		     score          = EXCLUDED.score,
		     raw_similarity = EXCLUDED.raw_similarity,
		     updated_at     = NOW()
		   RETURNING user_id, job_id
		 )
		 UPDATE jobs j
		 SET metadata = j.metadata || jsonb_build_object(
		       'score', i.score,
		       'rawSimilarity', i.raw_similarity,
		       'matchLabel', i.label)
		 FROM upserted u
		 JOIN input i ON i.user_id = u.user_id AND i.job_id = u.job_id
		 WHERE j.id = u.job_id AND j.user_id = u.user_id`,
		string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("upsertMatches: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
