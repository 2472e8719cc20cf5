// Package ingestion runs the fetch, normalize, dedupe and persist pipeline
// across every enabled provider.
package ingestion

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobmate/matching-service/internal/events"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/normalize"
	"jobmate/matching-service/internal/progress"
	"jobmate/matching-service/internal/provider"
	"jobmate/matching-service/internal/validation"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	UpsertJobs(ctx context.Context, jobs []model.Job) ([]model.Job, error)
	StartIngestionRun(ctx context.Context, userID, provider string) (string, error)
	FinishIngestionRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats) error
}

// Options narrows a run.
type Options struct {
	Location string
	Limit    int
	RedFlags []string
}

// Result summarises a run. TotalFound counts raw listings before any
// filtering, so TotalFound - len(Jobs) is what was filtered or deduplicated.
// All providers failing is not an error: callers must inspect Errors.
type Result struct {
	Jobs       []model.Job `json:"jobs"`
	TotalFound int         `json:"totalFound"`
	Errors     []string    `json:"errors,omitempty"`
}

type runRequest struct {
	UserID  string `validate:"required,uuid"`
	Keyword string `validate:"max=200"`
	Limit   int    `validate:"min=0,max=500"`
}

// Service is the ingestion orchestrator.
type Service struct {
	store    Store
	registry *provider.Registry
	progress *progress.Tracker
	bus      events.Publisher
	log      *zap.Logger
}

// NewService returns a configured Service.
func NewService(store Store, registry *provider.Registry, tracker *progress.Tracker, bus events.Publisher, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		progress: tracker,
		bus:      bus,
		log:      log.With(zap.String("component", "ingestion")),
	}
}

// fetchOutcome is one provider's share of a run.
type fetchOutcome struct {
	runID    string
	listings []model.RawListing
	err      error
}

// Run executes one ingestion run for keyword across every enabled provider.
// Providers are fetched concurrently; a failing provider is recorded as
// "<provider>: <error>" and never stops the others. Persistence is a single
// batch upsert. When rows were written, jobs:ingested is published; its
// subscribers only enqueue work, so Run never waits on enrichment.
func (s *Service) Run(ctx context.Context, userID, keyword string, opts Options) (*Result, error) {
	if err := validation.Struct(runRequest{UserID: userID, Keyword: keyword, Limit: opts.Limit}); err != nil {
		return nil, err
	}

	providers := s.registry.Providers()
	rep := s.progress.Begin(ctx, userID, len(providers)+2,
		fmt.Sprintf("Searching %d provider(s) for %q", len(providers), keyword))

	outcomes := s.fetchAll(ctx, rep, providers, userID, keyword, opts)

	result := &Result{Jobs: []model.Job{}}
	stats := make([]model.RunStats, len(providers))
	candidates := make([]model.Job, 0)
	seen := make(map[string]bool)
	var filtered int

	for i, p := range providers {
		o := outcomes[i]
		if o.err != nil {
			msg := fmt.Sprintf("%s: %v", p.Name(), o.err)
			result.Errors = append(result.Errors, msg)
			stats[i].Errors = []string{msg}
			s.log.Warn("provider fetch failed", zap.String("provider", p.Name()), zap.Error(o.err))
			continue
		}

		result.TotalFound += len(o.listings)
		stats[i].JobsFound = len(o.listings)

		for _, raw := range o.listings {
			job := normalize.Normalize(raw, p.Name(), userID)
			if normalize.ContainsRedFlag(job.Title, job.Company, job.Description, opts.RedFlags) ||
				!normalize.MatchesKeyword(job.Title, keyword) {
				filtered++
				continue
			}
			if seen[job.Hash] {
				continue // first occurrence wins
			}
			seen[job.Hash] = true
			candidates = append(candidates, job)
		}
	}
	rep.Step(ctx, fmt.Sprintf("Kept %d of %d listing(s)", len(candidates), result.TotalFound))

	if len(candidates) > 0 {
		written, err := s.store.UpsertJobs(ctx, candidates)
		if err != nil {
			for i := range stats {
				stats[i].Errors = append(stats[i].Errors, "save: "+err.Error())
			}
			s.finishRuns(ctx, providers, outcomes, stats)
			rep.Fail(ctx, "Saving jobs failed")
			return nil, fmt.Errorf("upsert jobs: %w", err)
		}
		result.Jobs = written
	}

	saved := make(map[string]int)
	for _, j := range result.Jobs {
		saved[j.SourceName]++
	}
	for i, p := range providers {
		stats[i].JobsSaved = saved[p.Name()]
	}
	s.finishRuns(ctx, providers, outcomes, stats)
	rep.Step(ctx, fmt.Sprintf("Saved %d job(s)", len(result.Jobs)))

	if len(result.Jobs) > 0 {
		ids := make([]string, 0, len(result.Jobs))
		for _, j := range result.Jobs {
			ids = append(ids, j.ID)
		}
		s.bus.Publish(ctx, events.Event{Name: events.JobsIngested, UserID: userID, JobIDs: ids})
	}

	rep.Complete(ctx, completionMessage(result))
	s.log.Info("ingestion run done",
		zap.String("userId", userID),
		zap.String("keyword", keyword),
		zap.Int("found", result.TotalFound),
		zap.Int("filtered", filtered),
		zap.Int("saved", len(result.Jobs)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Service) fetchAll(
	ctx context.Context,
	rep *progress.Reporter,
	providers []provider.Provider,
	userID, keyword string,
	opts Options,
) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(providers))
	fetchOpts := provider.FetchOptions{Location: opts.Location, Limit: opts.Limit}

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			runID, err := s.store.StartIngestionRun(ctx, userID, p.Name())
			if err != nil {
				s.log.Warn("open ingestion log failed", zap.String("provider", p.Name()), zap.Error(err))
			}
			listings, err := p.Fetch(ctx, keyword, fetchOpts)
			outcomes[i] = fetchOutcome{runID: runID, listings: listings, err: err}
			rep.Step(ctx, fmt.Sprintf("%s returned %d listing(s)", p.Name(), len(listings)))
			return nil // failures are collected, never propagated
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) finishRuns(ctx context.Context, providers []provider.Provider, outcomes []fetchOutcome, stats []model.RunStats) {
	for i, p := range providers {
		if outcomes[i].runID == "" {
			continue
		}
		status := model.RunSuccess
		if len(stats[i].Errors) > 0 {
			status = model.RunFailure
		}
		if err := s.store.FinishIngestionRun(ctx, outcomes[i].runID, status, stats[i]); err != nil {
			s.log.Warn("close ingestion log failed", zap.String("provider", p.Name()), zap.Error(err))
		}
	}
}

func completionMessage(r *Result) string {
	msg := fmt.Sprintf("Found %d job(s), saved %d", r.TotalFound, len(r.Jobs))
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d provider error(s)", len(r.Errors))
	}
	return msg
}
