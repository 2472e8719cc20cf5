package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/matching-service/internal/events"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/progress"
	"jobmate/matching-service/internal/provider"
	"jobmate/matching-service/internal/validation"
)

const testUser = "6f1c2b8a-3d4e-4f5a-9b6c-7d8e9f0a1b2c"

// ── fakes ────────────────────────────────────────────────────────────────────

type stubProvider struct {
	name     string
	listings []model.RawListing
	err      error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(context.Context, string, provider.FetchOptions) ([]model.RawListing, error) {
	return p.listings, p.err
}

type finishedRun struct {
	status model.RunStatus
	stats  model.RunStats
}

// memStore keeps jobs keyed on the same conflict key as the jobs table.
type memStore struct {
	mu          sync.Mutex
	rows        map[string]model.Job
	upsertCalls int
	upsertErr   error
	runs        map[string]string
	finished    map[string]finishedRun
	progress    []model.DiscoveryProgress
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[string]model.Job),
		runs:     make(map[string]string),
		finished: make(map[string]finishedRun),
	}
}

func (m *memStore) UpsertJobs(_ context.Context, jobs []model.Job) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		key := j.UserID + "|" + j.SourceName + "|" + j.Hash
		if existing, ok := m.rows[key]; ok {
			j.ID = existing.ID
		} else {
			j.ID = fmt.Sprintf("job-%d", len(m.rows)+1)
		}
		m.rows[key] = j
		out = append(out, j)
	}
	return out, nil
}

func (m *memStore) StartIngestionRun(_ context.Context, _ string, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "run-" + name
	m.runs[id] = name
	return id, nil
}

func (m *memStore) FinishIngestionRun(_ context.Context, runID string, status model.RunStatus, stats model.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[m.runs[runID]] = finishedRun{status: status, stats: stats}
	return nil
}

func (m *memStore) SaveProgress(_ context.Context, p model.DiscoveryProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, p)
	return nil
}

func (m *memStore) GetProgress(context.Context, string) (*model.DiscoveryProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.progress) == 0 {
		return nil, errors.New("not found")
	}
	p := m.progress[len(m.progress)-1]
	return &p, nil
}

func (m *memStore) lastProgress() model.DiscoveryProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress[len(m.progress)-1]
}

func newService(store *memStore, providers ...provider.Provider) (*Service, *[]events.Event) {
	bus := events.NewBus(zap.NewNop())
	published := &[]events.Event{}
	bus.SubscribeAll(func(_ context.Context, e events.Event) { *published = append(*published, e) })
	svc := NewService(store, provider.NewRegistryFrom(providers...), progress.NewTracker(store, zap.NewNop()), bus, zap.NewNop())
	return svc, published
}

func listing(id, title, company string) model.RawListing {
	return model.RawListing{SourceID: id, Title: title, Company: company, Location: "Paris"}
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestRun_KeepsOnlyTitleMatches(t *testing.T) {
	store := newMemStore()
	svc, published := newService(store, &stubProvider{name: "adzuna", listings: []model.RawListing{
		listing("1", "Senior Data Analyst", "Acme"),
		listing("2", "Backend Engineer", "Acme"),
		listing("3", "Lead Data Analyst", "Globex"),
		listing("4", "React Developer", "Initech"),
	}})

	res, err := svc.Run(context.Background(), testUser, "Data Analyst", Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalFound)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "Senior Data Analyst", res.Jobs[0].Title)
	assert.Equal(t, "Lead Data Analyst", res.Jobs[1].Title)
	assert.Empty(t, res.Errors)

	require.Len(t, *published, 1)
	assert.Equal(t, events.JobsIngested, (*published)[0].Name)
	assert.Equal(t, []string{res.Jobs[0].ID, res.Jobs[1].ID}, (*published)[0].JobIDs)

	assert.Equal(t, finishedRun{status: model.RunSuccess, stats: model.RunStats{JobsFound: 4, JobsSaved: 2}}, store.finished["adzuna"])
	assert.Equal(t, model.ProgressCompleted, store.lastProgress().Status)
	assert.Equal(t, 100, store.lastProgress().Percentage)
}

func TestRun_NoMatchesSkipsPersistence(t *testing.T) {
	store := newMemStore()
	svc, published := newService(store, &stubProvider{name: "adzuna", listings: []model.RawListing{
		listing("1", "Backend Engineer", "Acme"),
	}})

	res, err := svc.Run(context.Background(), testUser, "Data Analyst", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalFound)
	assert.NotNil(t, res.Jobs)
	assert.Empty(t, res.Jobs)
	assert.Zero(t, store.upsertCalls)
	assert.Empty(t, *published)
}

func TestRun_IsIdempotent(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store, &stubProvider{name: "mock", listings: []model.RawListing{
		listing("1", "Go Developer", "Acme"),
		listing("2", "Senior Go Developer", "Globex"),
	}})

	first, err := svc.Run(context.Background(), testUser, "go developer", Options{})
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), testUser, "go developer", Options{})
	require.NoError(t, err)

	assert.Len(t, store.rows, 2)
	assert.Equal(t, first.Jobs[0].ID, second.Jobs[0].ID)
	assert.Equal(t, first.Jobs[1].ID, second.Jobs[1].ID)
}

func TestRun_DeduplicatesWithinBatch(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store, &stubProvider{name: "mock", listings: []model.RawListing{
		listing("1", "Go Developer", "Acme"),
		listing("1", "  go developer ", "ACME"),
	}})

	res, err := svc.Run(context.Background(), testUser, "go", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalFound)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Go Developer", res.Jobs[0].Title)
}

func TestRun_ProviderFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store,
		&stubProvider{name: "adzuna", err: errors.New("adzuna returned 503: unavailable")},
		&stubProvider{name: "mock", listings: []model.RawListing{listing("1", "Data Analyst", "Acme")}},
	)

	res, err := svc.Run(context.Background(), testUser, "data analyst", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"adzuna: adzuna returned 503: unavailable"}, res.Errors)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "mock", res.Jobs[0].SourceName)
	assert.Equal(t, model.RunFailure, store.finished["adzuna"].status)
	assert.Equal(t, model.RunSuccess, store.finished["mock"].status)
}

func TestRun_AllProvidersFailingIsNotAnError(t *testing.T) {
	store := newMemStore()
	svc, published := newService(store,
		&stubProvider{name: "adzuna", err: errors.New("timeout")},
		&stubProvider{name: "theirstack", err: errors.New("unauthorized")},
	)

	res, err := svc.Run(context.Background(), testUser, "go", Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Jobs)
	assert.Zero(t, res.TotalFound)
	assert.ElementsMatch(t, []string{"adzuna: timeout", "theirstack: unauthorized"}, res.Errors)
	assert.Empty(t, *published)
	assert.Equal(t, model.ProgressCompleted, store.lastProgress().Status)
}

func TestRun_RedFlagsDiscardListings(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store, &stubProvider{name: "mock", listings: []model.RawListing{
		listing("1", "Go Developer", "Acme"),
		listing("2", "Go Developer", "Crypto Casino"),
	}})

	res, err := svc.Run(context.Background(), testUser, "go", Options{RedFlags: []string{"casino"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalFound)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Acme", res.Jobs[0].Company)
}

func TestRun_UpsertErrorFailsRun(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("connection reset")
	svc, published := newService(store, &stubProvider{name: "mock", listings: []model.RawListing{
		listing("1", "Go Developer", "Acme"),
	}})

	_, err := svc.Run(context.Background(), testUser, "go", Options{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, *published)
	assert.Equal(t, model.ProgressFailed, store.lastProgress().Status)
	assert.Equal(t, model.RunFailure, store.finished["mock"].status)
}

func TestRun_ValidatesInput(t *testing.T) {
	svc, _ := newService(newMemStore())

	_, err := svc.Run(context.Background(), "not-a-uuid", "go", Options{})
	assert.True(t, validation.IsValidation(err))

	_, err = svc.Run(context.Background(), testUser, "go", Options{Limit: 10_000})
	assert.True(t, validation.IsValidation(err))
}

func TestRunSearchConfigs_ExpandsTitlesAndLocations(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store, provider.NewMock())

	sum := svc.RunSearchConfigs(context.Background(), []model.SearchConfig{
		{ID: "c1", UserID: testUser, JobTitles: []string{"Data Analyst", "Go Developer"}, Locations: []string{"Paris", "Lyon"}},
		{ID: "c2", UserID: testUser, JobTitles: []string{"Designer"}},
		{ID: "c3", UserID: "bad", JobTitles: []string{"Designer"}},
	})

	assert.Equal(t, 6, sum.Runs)
	assert.Equal(t, 1, sum.Failed)
	assert.Positive(t, sum.Saved)
}
