package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/matching-service/internal/model"
)

// getTestDB connects to TEST_DATABASE_URL (or DATABASE_URL) after applying
// the schema. Tests are skipped when neither is set.
func getTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, url))
	d, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// newTestUser returns a fresh user id whose rows are removed after the test.
func newTestUser(t *testing.T, d *DB) string {
	t.Helper()
	userID := uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		for _, q := range []string{
			`DELETE FROM job_matches WHERE user_id = $1`,
			`DELETE FROM jobs WHERE user_id = $1`,
			`DELETE FROM profiles WHERE user_id = $1`,
		} {
			if _, err := d.pool.Exec(ctx, q, userID); err != nil {
				t.Errorf("cleanup: %v", err)
			}
		}
	})
	return userID
}

func listing(userID, title, hash, description string) model.Job {
	return model.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Company:     "Acme",
		Description: description,
		SourceName:  "mock",
		SourceID:    "mock-" + hash,
		Hash:        hash,
	}
}

func unitVector(i int) []float32 {
	v := make([]float32, 1536)
	v[i] = 1
	return v
}

func countJobs(t *testing.T, d *DB, userID string) int {
	t.Helper()
	var n int
	require.NoError(t, d.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM jobs WHERE user_id = $1`, userID).Scan(&n))
	return n
}

func TestIntegration_UpsertJobs_ConflictKeepsStatusAndRowCount(t *testing.T) {
	d := getTestDB(t)
	user := newTestUser(t, d)
	ctx := context.Background()

	first, err := d.UpsertJobs(ctx, []model.Job{
		listing(user, "Senior Data Analyst", "h1", "Build dashboards"),
		listing(user, "Lead Data Analyst", "h2", "Own the warehouse"),
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	ids := map[string]string{}
	for _, j := range first {
		ids[j.Hash] = j.ID
		assert.Equal(t, model.JobRecommended, j.Status)
	}

	_, err = d.UpdateJobStatus(ctx, user, ids["h1"], model.JobRecommended, model.JobApplied)
	require.NoError(t, err)

	// same listings seen again: new ids from normalization, one blank
	// description, one changed description
	again := []model.Job{
		listing(user, "Senior Data Analyst", "h1", ""),
		listing(user, "Lead Data Analyst", "h2", "Own the warehouse and the BI stack"),
	}
	second, err := d.UpsertJobs(ctx, again)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, 2, countJobs(t, d, user))

	for _, j := range second {
		assert.Equal(t, ids[j.Hash], j.ID, "conflict keeps the stored id")
	}

	applied, err := d.GetJob(ctx, user, ids["h1"])
	require.NoError(t, err)
	assert.Equal(t, model.JobApplied, applied.Status)
	assert.Equal(t, "Build dashboards", applied.Description)

	changed, err := d.GetJob(ctx, user, ids["h2"])
	require.NoError(t, err)
	assert.Equal(t, model.JobRecommended, changed.Status)
	assert.Equal(t, "Own the warehouse and the BI stack", changed.Description)

	_, err = d.UpsertJobs(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 2, countJobs(t, d, user))
}

func TestIntegration_JobEmbeddingTextHash(t *testing.T) {
	d := getTestDB(t)
	user := newTestUser(t, d)
	ctx := context.Background()

	written, err := d.UpsertJobs(ctx, []model.Job{listing(user, "Go Developer", "h1", "APIs")})
	require.NoError(t, err)
	jobID := written[0].ID

	require.NoError(t, d.UpdateJobEmbedding(ctx, user, jobID, unitVector(0), "text-hash"))

	j, err := d.GetJob(ctx, user, jobID)
	require.NoError(t, err)
	assert.Len(t, j.Embedding, 1536)
	assert.Equal(t, "text-hash", j.EmbeddingTextHash)

	// a later upsert of the same listing leaves the embedding alone
	_, err = d.UpsertJobs(ctx, []model.Job{listing(user, "Go Developer", "h1", "APIs")})
	require.NoError(t, err)
	j, err = d.GetJob(ctx, user, jobID)
	require.NoError(t, err)
	assert.Len(t, j.Embedding, 1536)
	assert.Equal(t, "text-hash", j.EmbeddingTextHash)

	assert.ErrorIs(t, d.UpdateJobEmbedding(ctx, user, uuid.NewString(), unitVector(0), "x"), ErrNotFound)
}

func TestIntegration_StaleSimilarities(t *testing.T) {
	d := getTestDB(t)
	user := newTestUser(t, d)
	ctx := context.Background()

	written, err := d.UpsertJobs(ctx, []model.Job{
		listing(user, "Go Developer", "h1", "APIs"),
		listing(user, "Rust Developer", "h2", "Systems"),
	})
	require.NoError(t, err)
	ids := map[string]string{}
	for _, j := range written {
		ids[j.Hash] = j.ID
	}
	// h2 stays unembedded and is never scored
	require.NoError(t, d.UpdateJobEmbedding(ctx, user, ids["h1"], unitVector(0), "a"))

	_, err = d.UpsertProfile(ctx, &model.Profile{UserID: user, Headline: "Backend engineer"})
	require.NoError(t, err)
	profileVec := unitVector(0)
	require.NoError(t, d.UpdateProfileEmbedding(ctx, user, profileVec, "p1"))

	sims, err := d.StaleSimilarities(ctx, user, profileVec)
	require.NoError(t, err)
	require.Len(t, sims, 1)
	assert.Equal(t, ids["h1"], sims[0].JobID)
	assert.InDelta(t, 1.0, sims[0].Similarity, 1e-6)

	sim, ok, err := d.JobSimilarity(ctx, user, ids["h1"], profileVec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-6)

	_, ok, err = d.JobSimilarity(ctx, user, ids["h2"], profileVec)
	require.NoError(t, err)
	assert.False(t, ok)

	score := func() {
		t.Helper()
		n, err := d.UpsertMatches(ctx,
			[]model.JobMatch{{UserID: user, JobID: ids["h1"], Score: 100, RawSimilarity: 1}},
			map[string]string{ids["h1"]: "high"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	score()

	sims, err = d.StaleSimilarities(ctx, user, profileVec)
	require.NoError(t, err)
	assert.Empty(t, sims, "fresh match is not stale")

	j, err := d.GetJob(ctx, user, ids["h1"])
	require.NoError(t, err)
	assert.EqualValues(t, 100, j.Metadata["score"])
	assert.Equal(t, "high", j.Metadata["matchLabel"])

	// re-embedding the profile makes every match stale
	profileVec = unitVector(1)
	require.NoError(t, d.UpdateProfileEmbedding(ctx, user, profileVec, "p2"))
	sims, err = d.StaleSimilarities(ctx, user, profileVec)
	require.NoError(t, err)
	require.Len(t, sims, 1)
	assert.InDelta(t, 0.0, sims[0].Similarity, 1e-6)

	score()
	sims, err = d.StaleSimilarities(ctx, user, profileVec)
	require.NoError(t, err)
	assert.Empty(t, sims)

	// so does re-embedding the job
	require.NoError(t, d.UpdateJobEmbedding(ctx, user, ids["h1"], unitVector(1), "b"))
	sims, err = d.StaleSimilarities(ctx, user, profileVec)
	require.NoError(t, err)
	require.Len(t, sims, 1)
	assert.InDelta(t, 1.0, sims[0].Similarity, 1e-6)
}

func TestIntegration_CountHydratedJobs(t *testing.T) {
	d := getTestDB(t)
	user := newTestUser(t, d)
	ctx := context.Background()

	written, err := d.UpsertJobs(ctx, []model.Job{
		listing(user, "Go Developer", "h1", "APIs"),
		listing(user, "Rust Developer", "h2", ""),
	})
	require.NoError(t, err)

	n, err := d.CountHydratedJobs(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, j := range written {
		require.NoError(t, d.UpdateJobDetails(ctx, user, j.ID, &model.JobDetails{Technographics: []string{"Kubernetes"}}))
	}
	n, err = d.CountHydratedJobs(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a job without a description is not hydrated")
}
