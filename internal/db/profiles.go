package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"jobmate/matching-service/internal/model"
)

const profileColumns = `user_id::text, headline, summary, skills, work_history,
	bio_embedding, embedding_text_hash, updated_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p       model.Profile
		history []byte
		emb     *pgvector.Vector
	)
	if err := row.Scan(
		&p.UserID, &p.Headline, &p.Summary, &p.Skills, &history,
		&emb, &p.EmbeddingTextHash, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.WorkHistory); err != nil {
			return nil, fmt.Errorf("decode work_history: %w", err)
		}
	}
	if emb != nil {
		p.BioEmbedding = emb.Slice()
	}
	return &p, nil
}

// GetProfile returns the user's profile or ErrNotFound.
func (d *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(d.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// UpsertProfile creates or replaces the editable profile fields. The stored
// embedding and its text hash are left alone; the embedding service decides
// whether the new text needs a fresh vector.
func (d *DB) UpsertProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	history := p.WorkHistory
	if history == nil {
		history = []model.WorkExperience{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("upsertProfile marshal: %w", err)
	}

	out, err := scanProfile(d.pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id, headline, summary, skills, work_history, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   headline     = EXCLUDED.headline,
		   summary      = EXCLUDED.summary,
		   skills       = EXCLUDED.skills,
		   work_history = EXCLUDED.work_history,
		   updated_at   = NOW()
		 RETURNING `+profileColumns,
		p.UserID, p.Headline, p.Summary, nonNil(p.Skills), string(historyJSON),
	))
	if err != nil {
		return nil, fmt.Errorf("upsertProfile: %w", err)
	}
	return out, nil
}

// UpdateProfileEmbedding stores the profile vector together with the hash of
// the text it was computed from.
func (d *DB) UpdateProfileEmbedding(ctx context.Context, userID string, vec []float32, textHash string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE profiles
		 SET bio_embedding = $2, embedding_text_hash = $3, embedded_at = NOW()
		 WHERE user_id = $1`,
		userID, pgvector.NewVector(vec), textHash,
	)
	if err != nil {
		return fmt.Errorf("updateProfileEmbedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProfilesNeedingEmbedding returns profiles that have never been
// embedded.
func (d *DB) ListProfilesNeedingEmbedding(ctx context.Context, limit int) ([]model.Profile, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE bio_embedding IS NULL
		 ORDER BY updated_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listProfilesNeedingEmbedding query: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("listProfilesNeedingEmbedding scan: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// ListUsersWithEmbedding returns the ids of users that can be scored.
func (d *DB) ListUsersWithEmbedding(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT user_id::text FROM profiles WHERE bio_embedding IS NOT NULL ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listUsersWithEmbedding query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listUsersWithEmbedding scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
