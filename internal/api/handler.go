// Package api implements the HTTP handlers of the matching service.
//
// All routes except /health expect an x-user-id header forwarded by the
// Gateway. User and job ids must be uuids; anything else is a 400.
//
// Routes:
//
//	GET  /health                  → liveness
//	POST /discovery/run           → run ingestion for a keyword
//	GET  /discovery/progress      → latest discovery progress
//	GET  /discovery/runs          → recent per-provider ingestion logs
//	GET  /jobs?minScore=          → jobs, best score first
//	POST /jobs/{id}/hydrate       → fetch deep details from a provider
//	POST /jobs/{id}/match         → score one job
//	POST /jobs/{id}/status        → move the job on the board
//	POST /matches/batch           → score every stale job
//	PUT  /profile                 → save profile, triggers re-embedding
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"jobmate/matching-service/internal/db"
	"jobmate/matching-service/internal/events"
	"jobmate/matching-service/internal/ingestion"
	"jobmate/matching-service/internal/model"
	"jobmate/matching-service/internal/scoring"
	"jobmate/matching-service/internal/validation"
)

// ─── Dependencies ─────────────────────────────────────────────────────────────

type Ingestor interface {
	Run(ctx context.Context, userID, keyword string, opts ingestion.Options) (*ingestion.Result, error)
}

type ProgressReader interface {
	Get(ctx context.Context, userID string) (*model.DiscoveryProgress, error)
}

type Hydrator interface {
	HydrateByName(ctx context.Context, userID, jobID, providerName string) (bool, error)
}

type Scorer interface {
	CalculateJobMatch(ctx context.Context, userID, jobID string) (*scoring.MatchResult, error)
	BatchScoring(ctx context.Context, userID string) (*scoring.BatchResult, error)
}

type Mover interface {
	MoveJob(ctx context.Context, userID, jobID, status string) (*model.Job, error)
}

// Store covers the read models and the profile write.
type Store interface {
	ListJobs(ctx context.Context, userID string, minScore int) ([]model.Job, error)
	CountHydratedJobs(ctx context.Context, userID string) (int, error)
	ListIngestionRuns(ctx context.Context, userID string, limit int) ([]model.IngestionRun, error)
	UpsertProfile(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

// Deps groups the services the handler dispatches to.
type Deps struct {
	Ingestor Ingestor
	Progress ProgressReader
	Hydrator Hydrator
	Scorer   Scorer
	Mover    Mover
	Store    Store
	Bus      events.Publisher
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	Deps
	log *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(deps Deps, log *zap.Logger) *Handler {
	return &Handler{Deps: deps, log: log.With(zap.String("component", "api"))}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /discovery/run", h.withUser(h.runDiscovery))
	mux.HandleFunc("GET /discovery/progress", h.withUser(h.getProgress))
	mux.HandleFunc("GET /discovery/runs", h.withUser(h.listRuns))
	mux.HandleFunc("GET /jobs", h.withUser(h.listJobs))
	mux.HandleFunc("POST /jobs/{id}/hydrate", h.withUser(h.hydrateJob))
	mux.HandleFunc("POST /jobs/{id}/match", h.withUser(h.matchJob))
	mux.HandleFunc("POST /jobs/{id}/status", h.withUser(h.moveJob))
	mux.HandleFunc("POST /matches/batch", h.withUser(h.batchScoring))
	mux.HandleFunc("PUT /profile", h.withUser(h.putProfile))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (h *Handler) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("x-user-id")
		if userID == "" {
			jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
			return
		}
		if err := validation.ID("x-user-id", userID); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		next(w, r, userID)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"status": "ok", "service": "matching-service"})
}

type runRequest struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

func (h *Handler) runDiscovery(w http.ResponseWriter, r *http.Request, userID string) {
	var body runRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.Ingestor.Run(r.Context(), userID, body.Keyword, ingestion.Options{
		Location: body.Location,
		Limit:    body.Limit,
	})
	if err != nil {
		h.fail(w, "runDiscovery", err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.Progress.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, "getProgress", err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request, userID string) {
	limit, ok := intQuery(w, r, "limit", 20)
	if !ok {
		return
	}
	runs, err := h.Store.ListIngestionRuns(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "listRuns", err)
		return
	}
	jsonOK(w, map[string]any{"runs": runs})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request, userID string) {
	minScore, ok := intQuery(w, r, "minScore", 0)
	if !ok {
		return
	}
	if minScore < 0 || minScore > 100 {
		jsonError(w, "minScore must be between 0 and 100", http.StatusBadRequest)
		return
	}
	jobs, err := h.Store.ListJobs(r.Context(), userID, minScore)
	if err != nil {
		h.fail(w, "listJobs", err)
		return
	}
	hydrated, err := h.Store.CountHydratedJobs(r.Context(), userID)
	if err != nil {
		h.fail(w, "countHydratedJobs", err)
		return
	}
	jsonOK(w, map[string]any{"jobs": jobs, "hydratedCount": hydrated})
}

func (h *Handler) hydrateJob(w http.ResponseWriter, r *http.Request, userID string) {
	jobID, valid := pathJobID(w, r)
	if !valid {
		return
	}
	var body struct {
		Provider string `json:"provider"`
	}
	if !decode(w, r, &body) {
		return
	}
	ok, err := h.Hydrator.HydrateByName(r.Context(), userID, jobID, body.Provider)
	if err != nil {
		h.fail(w, "hydrateJob", err)
		return
	}
	jsonOK(w, map[string]bool{"hydrated": ok})
}

func (h *Handler) matchJob(w http.ResponseWriter, r *http.Request, userID string) {
	jobID, ok := pathJobID(w, r)
	if !ok {
		return
	}
	res, err := h.Scorer.CalculateJobMatch(r.Context(), userID, jobID)
	if err != nil {
		h.fail(w, "matchJob", err)
		return
	}
	jsonOK(w, map[string]any{"match": res})
}

func (h *Handler) moveJob(w http.ResponseWriter, r *http.Request, userID string) {
	jobID, ok := pathJobID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}
	job, err := h.Mover.MoveJob(r.Context(), userID, jobID, body.Status)
	if err != nil {
		h.fail(w, "moveJob", err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) batchScoring(w http.ResponseWriter, r *http.Request, userID string) {
	res, err := h.Scorer.BatchScoring(r.Context(), userID)
	if err != nil {
		h.fail(w, "batchScoring", err)
		return
	}
	jsonOK(w, res)
}

type profileRequest struct {
	Headline    string                 `json:"headline" validate:"max=300"`
	Summary     string                 `json:"summary" validate:"max=10000"`
	Skills      []string               `json:"skills" validate:"max=200,dive,max=100"`
	WorkHistory []model.WorkExperience `json:"workHistory" validate:"max=50"`
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var body profileRequest
	if !decode(w, r, &body) {
		return
	}
	if err := validation.Struct(body); err != nil {
		h.fail(w, "putProfile", err)
		return
	}
	p, err := h.Store.UpsertProfile(r.Context(), &model.Profile{
		UserID:      userID,
		Headline:    body.Headline,
		Summary:     body.Summary,
		Skills:      body.Skills,
		WorkHistory: body.WorkHistory,
	})
	if err != nil {
		h.fail(w, "putProfile", err)
		return
	}
	h.Bus.Publish(r.Context(), events.Event{Name: events.ProfileUpdated, UserID: userID})
	jsonOK(w, p)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case validation.IsValidation(err):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, db.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		h.log.Error("request failed", zap.String("op", op), zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func pathJobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := validation.ID("jobId", id); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func intQuery(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(w, key+" must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
