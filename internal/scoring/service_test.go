package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/model"
)

type fakeStore struct {
	profiles    map[string]*model.Profile
	sims        map[string]float64 // jobID -> similarity; absent means no embedding
	stale       []db.Similarity
	staleCalls  int
	upsertCalls int
	upserted    []model.JobMatch
	labels      map[string]string
	upsertErr   error
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) JobSimilarity(_ context.Context, _, jobID string, _ []float32) (float64, bool, error) {
	s, ok := f.sims[jobID]
	return s, ok, nil
}

func (f *fakeStore) StaleSimilarities(context.Context, string, []float32) ([]db.Similarity, error) {
	f.staleCalls++
	return f.stale, nil
}

func (f *fakeStore) UpsertMatches(_ context.Context, m []model.JobMatch, labels map[string]string) (int, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, m...)
	f.labels = labels
	return len(m), nil
}

func (f *fakeStore) ListUsersWithEmbedding(context.Context) ([]string, error) {
	var out []string
	for id, p := range f.profiles {
		if p.HasEmbedding() {
			out = append(out, id)
		}
	}
	return out, nil
}

func embeddedProfile(userID string) *model.Profile {
	return &model.Profile{UserID: userID, BioEmbedding: []float32{1, 0, 0}}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		sim  float64
		want int
	}{
		{0.85, 85},
		{0.856, 86},
		{0.854, 85},
		{1, 100},
		{0, 0},
		{1.2, 100},
		{-0.3, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeScore(tt.sim), "sim=%v", tt.sim)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, LabelHigh, Label(90))
	assert.Equal(t, LabelHigh, Label(100))
	assert.Equal(t, LabelGood, Label(89))
	assert.Equal(t, LabelGood, Label(70))
	assert.Equal(t, LabelNeutral, Label(69))
	assert.Equal(t, LabelNeutral, Label(0))
}

func TestCalculateJobMatch(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{"u1": embeddedProfile("u1")},
		sims:     map[string]float64{"j1": 0.856},
	}
	svc := NewService(store, zap.NewNop())

	res, err := svc.CalculateJobMatch(context.Background(), "u1", "j1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 86, res.Score)
	assert.Equal(t, LabelGood, res.Label)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, 86, store.upserted[0].Score)
	assert.Equal(t, map[string]string{"j1": LabelGood}, store.labels)
}

func TestCalculateJobMatch_MissingEmbeddings(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{
			"u1":        embeddedProfile("u1"),
			"no-vector": {UserID: "no-vector"},
		},
		sims: map[string]float64{"j1": 0.9},
	}
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	res, err := svc.CalculateJobMatch(ctx, "no-vector", "j1")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = svc.CalculateJobMatch(ctx, "no-profile", "j1")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = svc.CalculateJobMatch(ctx, "u1", "job-without-embedding")
	require.NoError(t, err)
	assert.Nil(t, res)

	assert.Zero(t, store.upsertCalls)
}

func TestBatchScoring_SingleQueryAndUpsert(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{"u1": embeddedProfile("u1")},
		stale: []db.Similarity{
			{JobID: "j1", Similarity: 0.95},
			{JobID: "j2", Similarity: 0.72},
			{JobID: "j3", Similarity: 0.1},
		},
	}
	svc := NewService(store, zap.NewNop())

	res, err := svc.BatchScoring(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, store.staleCalls)
	assert.Equal(t, 1, store.upsertCalls)
	assert.Equal(t, map[string]string{"j1": LabelHigh, "j2": LabelGood, "j3": LabelNeutral}, store.labels)
	assert.Equal(t, 10, store.upserted[2].Score)
}

func TestBatchScoring_ClampsOutOfRangeSimilarity(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{"u1": embeddedProfile("u1")},
		stale: []db.Similarity{
			{JobID: "zero-vector", Similarity: math.NaN()},
			{JobID: "opposite", Similarity: -0.25},
			{JobID: "rounding", Similarity: 1.0000001},
		},
	}
	res, err := NewService(store, zap.NewNop()).BatchScoring(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)

	require.Len(t, store.upserted, 3)
	for _, m := range store.upserted {
		assert.GreaterOrEqual(t, m.RawSimilarity, 0.0, m.JobID)
		assert.LessOrEqual(t, m.RawSimilarity, 1.0, m.JobID)
	}
	assert.Equal(t, 0, store.upserted[0].Score)
	assert.Equal(t, 0, store.upserted[1].Score)
	assert.Equal(t, 100, store.upserted[2].Score)

	_, err = json.Marshal(store.upserted)
	assert.NoError(t, err)
}

func TestCalculateJobMatch_ZeroVectorSimilarity(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{"u1": embeddedProfile("u1")},
		sims:     map[string]float64{"j1": math.NaN()},
	}
	res, err := NewService(store, zap.NewNop()).CalculateJobMatch(context.Background(), "u1", "j1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.RawSimilarity)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, LabelNeutral, res.Label)

	_, err = json.Marshal(res)
	assert.NoError(t, err)
}

func TestBatchScoring_NothingToDo(t *testing.T) {
	store := &fakeStore{profiles: map[string]*model.Profile{"u1": embeddedProfile("u1")}}
	svc := NewService(store, zap.NewNop())

	res, err := svc.BatchScoring(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Zero(t, store.upsertCalls)

	res, err = svc.BatchScoring(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Equal(t, 1, store.staleCalls)
}

func TestBatchScoring_UpsertError(t *testing.T) {
	store := &fakeStore{
		profiles:  map[string]*model.Profile{"u1": embeddedProfile("u1")},
		stale:     []db.Similarity{{JobID: "j1", Similarity: 0.5}},
		upsertErr: errors.New("deadlock"),
	}
	_, err := NewService(store, zap.NewNop()).BatchScoring(context.Background(), "u1")
	assert.ErrorContains(t, err, "deadlock")
}

func TestSweep(t *testing.T) {
	store := &fakeStore{
		profiles: map[string]*model.Profile{
			"u1": embeddedProfile("u1"),
			"u2": embeddedProfile("u2"),
			"u3": {UserID: "u3"},
		},
		stale: []db.Similarity{{JobID: "j1", Similarity: 0.8}},
	}
	total, err := NewService(store, zap.NewNop()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, store.upsertCalls)
}
