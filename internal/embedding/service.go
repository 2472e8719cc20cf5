// Package embedding turns jobs and profiles into fixed-length vectors and
// stores them next to the rows they describe.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/config"
	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
)

// Dimensions is the vector length of the storage columns.
const Dimensions = 1536

// ErrEmptyText is returned when there is nothing to embed.
var ErrEmptyText = errors.New("embedding: empty text")

// Embedder produces one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder builds the embedder selected by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model)
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Store is the persistence the embedding service needs.
type Store interface {
	GetJob(ctx context.Context, userID, jobID string) (*model.Job, error)
	UpdateJobEmbedding(ctx context.Context, userID, jobID string, vec []float32, textHash string) error
	ListJobsNeedingEmbedding(ctx context.Context, limit int) ([]model.Job, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfileEmbedding(ctx context.Context, userID string, vec []float32, textHash string) error
	ListProfilesNeedingEmbedding(ctx context.Context, limit int) ([]model.Profile, error)
}

// Service computes and persists embeddings.
type Service struct {
	store    Store
	embedder Embedder
	log      *zap.Logger
}

// NewService returns an embedding Service.
func NewService(store Store, embedder Embedder, log *zap.Logger) *Service {
	return &Service{store: store, embedder: embedder, log: log.With(zap.String("component", "embedding"))}
}

// GenerateEmbedding embeds text. Vectors of any length other than
// Dimensions are rejected.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != Dimensions {
		return nil, fmt.Errorf("embedding: got %d dimensions, want %d", len(vec), Dimensions)
	}
	return vec, nil
}

// UpdateJobEmbedding embeds the job and stores the vector. A job with a
// blank description, or whose text is unchanged since its last embedding,
// is skipped without calling the model.
func (s *Service) UpdateJobEmbedding(ctx context.Context, userID, jobID string) (bool, error) {
	job, err := s.store.GetJob(ctx, userID, jobID)
	if err != nil {
		return false, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return s.embedJob(ctx, job)
}

func (s *Service) embedJob(ctx context.Context, job *model.Job) (bool, error) {
	if strings.TrimSpace(job.Description) == "" {
		s.log.Debug("skip job embedding, no description", zap.String("jobId", job.ID))
		return false, nil
	}
	text := AggregateJobText(job)
	hash := TextHash(text)
	if len(job.Embedding) > 0 && hash == job.EmbeddingTextHash {
		s.log.Debug("skip job embedding, text unchanged", zap.String("jobId", job.ID))
		return false, nil
	}

	vec, err := s.GenerateEmbedding(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed job %s: %w", job.ID, err)
	}
	if err := s.store.UpdateJobEmbedding(ctx, job.UserID, job.ID, vec, hash); err != nil {
		return false, fmt.Errorf("store job embedding: %w", err)
	}
	return true, nil
}

// UpdateProfileEmbedding recomputes the user's profile vector when the
// aggregated text changed since the last run.
func (s *Service) UpdateProfileEmbedding(ctx context.Context, userID string) (bool, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load profile: %w", err)
	}
	return s.embedProfile(ctx, p)
}

func (s *Service) embedProfile(ctx context.Context, p *model.Profile) (bool, error) {
	text := AggregateProfileText(p)
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	hash := TextHash(text)
	if hash == p.EmbeddingTextHash && p.HasEmbedding() {
		return false, nil
	}

	vec, err := s.GenerateEmbedding(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed profile %s: %w", p.UserID, err)
	}
	if err := s.store.UpdateProfileEmbedding(ctx, p.UserID, vec, hash); err != nil {
		return false, fmt.Errorf("store profile embedding: %w", err)
	}
	return true, nil
}

// BackfillJobs embeds up to limit jobs that have a description but no
// vector. Individual failures are logged and skipped.
func (s *Service) BackfillJobs(ctx context.Context, limit int) (int, error) {
	jobs, err := s.store.ListJobsNeedingEmbedding(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list jobs needing embedding: %w", err)
	}
	var n int
	for i := range jobs {
		ok, err := s.embedJob(ctx, &jobs[i])
		if err != nil {
			s.log.Warn("backfill job embedding failed", zap.String("jobId", jobs[i].ID), zap.Error(err))
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// BackfillProfiles is BackfillJobs for profiles.
func (s *Service) BackfillProfiles(ctx context.Context, limit int) (int, error) {
	profiles, err := s.store.ListProfilesNeedingEmbedding(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list profiles needing embedding: %w", err)
	}
	var n int
	for i := range profiles {
		ok, err := s.embedProfile(ctx, &profiles[i])
		if err != nil {
			s.log.Warn("backfill profile embedding failed", zap.String("userId", profiles[i].UserID), zap.Error(err))
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}
