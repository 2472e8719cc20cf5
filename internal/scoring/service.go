// Package scoring maps profile/job cosine similarity onto 0-100 match
// scores and persists them.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
)

// Score thresholds used for labels.
const (
	HighMatchThreshold = 90
	GoodMatchThreshold = 70
)

// Match labels.
const (
	LabelHigh    = "high"
	LabelGood    = "good"
	LabelNeutral = "neutral"
)

// NormalizeScore clamps sim to [0,1] and rounds it half-up onto 0..100.
func NormalizeScore(sim float64) int {
	return int(math.Floor(clampSimilarity(sim)*100 + 0.5))
}

// clampSimilarity bounds sim to [0,1]. A zero vector yields NaN, read as 0.
func clampSimilarity(sim float64) float64 {
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(0, math.Min(1, sim))
}

// Label classifies a normalized score.
func Label(score int) string {
	switch {
	case score >= HighMatchThreshold:
		return LabelHigh
	case score >= GoodMatchThreshold:
		return LabelGood
	default:
		return LabelNeutral
	}
}

// Store is the persistence scoring needs. Similarity is computed by the
// store, next to the vectors.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	JobSimilarity(ctx context.Context, userID, jobID string, vec []float32) (float64, bool, error)
	StaleSimilarities(ctx context.Context, userID string, vec []float32) ([]db.Similarity, error)
	UpsertMatches(ctx context.Context, matches []model.JobMatch, labels map[string]string) (int, error)
	ListUsersWithEmbedding(ctx context.Context) ([]string, error)
}

// MatchResult is the outcome of scoring one job.
type MatchResult struct {
	JobID         string  `json:"jobId"`
	Score         int     `json:"score"`
	RawSimilarity float64 `json:"rawSimilarity"`
	Label         string  `json:"label"`
}

// BatchResult is the outcome of BatchScoring.
type BatchResult struct {
	Count int `json:"count"`
}

// Service scores jobs against profiles.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService returns a scoring Service.
func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log.With(zap.String("component", "scoring"))}
}

// profileVector returns nil when the user has no profile embedding.
func (s *Service) profileVector(ctx context.Context, userID string) ([]float32, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !p.HasEmbedding() {
		return nil, nil
	}
	return p.BioEmbedding, nil
}

// CalculateJobMatch scores one job. It returns nil, nil when either side
// has no embedding yet.
func (s *Service) CalculateJobMatch(ctx context.Context, userID, jobID string) (*MatchResult, error) {
	vec, err := s.profileVector(ctx, userID)
	if err != nil || vec == nil {
		return nil, err
	}

	sim, ok, err := s.store.JobSimilarity(ctx, userID, jobID, vec)
	if err != nil {
		return nil, fmt.Errorf("job similarity: %w", err)
	}
	if !ok {
		return nil, nil
	}
	sim = clampSimilarity(sim)

	res := &MatchResult{JobID: jobID, Score: NormalizeScore(sim), RawSimilarity: sim}
	res.Label = Label(res.Score)

	match := model.JobMatch{UserID: userID, JobID: jobID, Score: res.Score, RawSimilarity: sim}
	if _, err := s.store.UpsertMatches(ctx, []model.JobMatch{match}, map[string]string{jobID: res.Label}); err != nil {
		return nil, fmt.Errorf("save match: %w", err)
	}
	return res, nil
}

// BatchScoring scores every unscored or stale job of the user with one
// similarity query and one upsert.
func (s *Service) BatchScoring(ctx context.Context, userID string) (*BatchResult, error) {
	vec, err := s.profileVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return &BatchResult{}, nil
	}

	sims, err := s.store.StaleSimilarities(ctx, userID, vec)
	if err != nil {
		return nil, err
	}
	if len(sims) == 0 {
		return &BatchResult{}, nil
	}

	matches := make([]model.JobMatch, 0, len(sims))
	labels := make(map[string]string, len(sims))
	for _, sim := range sims {
		raw := clampSimilarity(sim.Similarity)
		score := NormalizeScore(raw)
		matches = append(matches, model.JobMatch{
			UserID:        userID,
			JobID:         sim.JobID,
			Score:         score,
			RawSimilarity: raw,
		})
		labels[sim.JobID] = Label(score)
	}

	n, err := s.store.UpsertMatches(ctx, matches, labels)
	if err != nil {
		return nil, fmt.Errorf("save matches: %w", err)
	}
	s.log.Info("batch scoring done", zap.String("userId", userID), zap.Int("count", n))
	return &BatchResult{Count: n}, nil
}

// Sweep runs BatchScoring for every user with a profile embedding and
// returns the total number of jobs scored. Per-user failures are logged.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	users, err := s.store.ListUsersWithEmbedding(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	var total int
	for _, u := range users {
		res, err := s.BatchScoring(ctx, u)
		if err != nil {
			s.log.Warn("sweep: batch scoring failed", zap.String("userId", u), zap.Error(err))
			continue
		}
		total += res.Count
	}
	return total, nil
}
