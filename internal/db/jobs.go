package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"jobmate/matching-service/internal/model"
)

const jobColumns = `
	id::text, user_id::text, title, company, location, city, country,
	work_mode, employment_type, experience_level,
	salary_min, salary_max, salary_currency, salary_unit, salary_text,
	description, snippet, skills, qualifications, responsibilities,
	source_name, source_id, source_url, apply_url, hash, status,
	technographics, metadata, posted_at, created_at, updated_at, embedding_text_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, extra ...any) (*model.Job, error) {
	var j model.Job
	dest := []any{
		&j.ID, &j.UserID, &j.Title, &j.Company, &j.Location, &j.City, &j.Country,
		&j.WorkMode, &j.EmploymentType, &j.ExperienceLevel,
		&j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &j.SalaryUnit, &j.SalaryText,
		&j.Description, &j.Snippet, &j.Skills, &j.Qualifications, &j.Responsibilities,
		&j.SourceName, &j.SourceID, &j.SourceURL, &j.ApplyURL, &j.Hash, &j.Status,
		&j.Technographics, &j.Metadata, &j.PostedAt, &j.CreatedAt, &j.UpdatedAt,
		&j.EmbeddingTextHash,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &j, nil
}

// upsertRow is the JSON shape fed to jsonb_to_recordset.
type upsertRow struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	Company          string     `json:"company"`
	Location         string     `json:"location"`
	City             string     `json:"city"`
	Country          string     `json:"country"`
	WorkMode         string     `json:"work_mode"`
	EmploymentType   string     `json:"employment_type"`
	ExperienceLevel  string     `json:"experience_level"`
	SalaryMin        *float64   `json:"salary_min"`
	SalaryMax        *float64   `json:"salary_max"`
	SalaryCurrency   string     `json:"salary_currency"`
	SalaryUnit       string     `json:"salary_unit"`
	SalaryText       string     `json:"salary_text"`
	Description      string     `json:"description"`
	Snippet          string     `json:"snippet"`
	Skills           []string   `json:"skills"`
	Qualifications   []string   `json:"qualifications"`
	Responsibilities []string   `json:"responsibilities"`
	SourceName       string     `json:"source_name"`
	SourceID         string     `json:"source_id"`
	SourceURL        string     `json:"source_url"`
	ApplyURL         string     `json:"apply_url"`
	Hash             string     `json:"hash"`
	Status           string     `json:"status"`
	Technographics   []string   `json:"technographics"`
	PostedAt         *time.Time `json:"posted_at"`
}

// UpsertJobs writes the whole batch in one statement. New rows are inserted;
// rows whose (user_id, source_name, hash) already exists get their mutable
// listing fields refreshed. status, metadata, embedding and technographics
// are never touched on conflict (technographics are only set on first
// insert), and a blank incoming description never erases a hydrated one.
// Returns every row written.
func (d *DB) UpsertJobs(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	if len(jobs) == 0 {
		return []model.Job{}, nil
	}

	rows := make([]upsertRow, 0, len(jobs))
	for _, j := range jobs {
		status := string(j.Status)
		if status == "" {
			status = string(model.JobRecommended)
		}
		rows = append(rows, upsertRow{
			ID: j.ID, UserID: j.UserID, Title: j.Title, Company: j.Company,
			Location: j.Location, City: j.City, Country: j.Country,
			WorkMode: string(j.WorkMode), EmploymentType: string(j.EmploymentType),
			ExperienceLevel: string(j.ExperienceLevel),
			SalaryMin: j.SalaryMin, SalaryMax: j.SalaryMax,
			SalaryCurrency: j.SalaryCurrency, SalaryUnit: j.SalaryUnit, SalaryText: j.SalaryText,
			Description: j.Description, Snippet: j.Snippet,
			Skills: j.Skills, Qualifications: j.Qualifications, Responsibilities: j.Responsibilities,
			SourceName: j.SourceName, SourceID: j.SourceID, SourceURL: j.SourceURL, ApplyURL: j.ApplyURL,
			Hash: j.Hash, Status: status, Technographics: j.Technographics, PostedAt: j.PostedAt,
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("upsertJobs marshal: %w", err)
	}

	result, err := d.pool.Query(ctx,
		`INSERT INTO jobs (
		   id, user_id, title, company, location, city, country,
		   work_mode, employment_type, experience_level,
		   salary_min, salary_max, salary_currency, salary_unit, salary_text,
		   description, snippet, skills, qualifications, responsibilities,
		   source_name, source_id, source_url, apply_url, hash, status, technographics, posted_at)
		 SELECT r.id, r.user_id, r.title, r.company, r.location, r.city, r.country,
		        r.work_mode, r.employment_type, r.experience_level,
		        r.salary_min, r.salary_max, r.salary_currency, r.salary_unit, r.salary_text,
		        r.description, r.snippet,
		        COALESCE(r.skills, '{}'), COALESCE(r.qualifications, '{}'), COALESCE(r.responsibilities, '{}'),
		        r.source_name, r.source_id, r.source_url, r.apply_url, r.hash, r.status,
		        NULLIF(r.technographics, '{}'), r.posted_at
		 FROM jsonb_to_recordset($1::jsonb) AS r(
		   id uuid, user_id uuid, title text, company text, location text, city text, country text,
		   work_mode text, employment_type text, experience_level text,
		   salary_min double precision, salary_max double precision,
		   salary_currency text, salary_unit text, salary_text text,
		   description text, snippet text, skills text[], qualifications text[], responsibilities text[],
		   source_name text, source_id text, source_url text, apply_url text, hash text, status text,
		   technographics text[], posted_at timestamptz)
		 ON CONFLICT (user_id, source_name, hash) DO UPDATE SET
		   title            = EXCLUDED.title,
		   company          = EXCLUDED.company,
		   location         = EXCLUDED.location,
		   city             = EXCLUDED.city,
		   country          = EXCLUDED.country,
		   work_mode        = EXCLUDED.work_mode,
		   employment_type  = EXCLUDED.employment_type,
		   experience_level = EXCLUDED.experience_level,
		   salary_min       = COALESCE(EXCLUDED.salary_min, jobs.salary_min),
		   salary_max       = COALESCE(EXCLUDED.salary_max, jobs.salary_max),
		   salary_currency  = COALESCE(NULLIF(EXCLUDED.salary_currency, ''), jobs.salary_currency),
		   salary_unit      = COALESCE(NULLIF(EXCLUDED.salary_unit, ''), jobs.salary_unit),
		   salary_text      = COALESCE(NULLIF(EXCLUDED.salary_text, ''), jobs.salary_text),
		   description      = COALESCE(NULLIF(EXCLUDED.description, ''), jobs.description),
		   snippet          = EXCLUDED.snippet,
		   skills           = CASE WHEN cardinality(EXCLUDED.skills) > 0 THEN EXCLUDED.skills ELSE jobs.skills END,
		   source_url       = EXCLUDED.source_url,
		   apply_url        = COALESCE(NULLIF(EXCLUDED.apply_url, ''), jobs.apply_url),
		   posted_at        = COALESCE(EXCLUDED.posted_at, jobs.posted_at),
		   updated_at       = NOW()
		 RETURNING `+jobColumns,
		string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("upsertJobs query: %w", err)
	}
	defer result.Close()

	written := make([]model.Job, 0, len(jobs))
	for result.Next() {
		j, err := scanJob(result)
		if err != nil {
			return nil, fmt.Errorf("upsertJobs scan: %w", err)
		}
		written = append(written, *j)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("upsertJobs: %w", err)
	}
	return written, nil
}

// GetJob returns a single job, including its embedding when present.
func (d *DB) GetJob(ctx context.Context, userID, jobID string) (*model.Job, error) {
	var emb *pgvector.Vector
	j, err := scanJob(d.pool.QueryRow(ctx,
		`SELECT `+jobColumns+`, embedding
		 FROM jobs WHERE id = $1 AND user_id = $2`,
		jobID, userID,
	), &emb)
	if err != nil {
		return nil, notFound(err)
	}
	if emb != nil {
		j.Embedding = emb.Slice()
	}
	return j, nil
}

// UpdateJobDetails overwrites the deep fields a hydrating provider returned.
// Empty fields in d leave the stored value untouched.
func (d *DB) UpdateJobDetails(ctx context.Context, userID, jobID string, det *model.JobDetails) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE jobs SET
		   description      = COALESCE(NULLIF($3, ''), description),
		   skills           = CASE WHEN cardinality($4::text[]) > 0 THEN $4::text[] ELSE skills END,
		   qualifications   = CASE WHEN cardinality($5::text[]) > 0 THEN $5::text[] ELSE qualifications END,
		   responsibilities = CASE WHEN cardinality($6::text[]) > 0 THEN $6::text[] ELSE responsibilities END,
		   technographics   = CASE WHEN cardinality($7::text[]) > 0 THEN $7::text[] ELSE technographics END,
		   salary_text      = COALESCE(NULLIF($8, ''), salary_text),
		   salary_min       = COALESCE($9, salary_min),
		   salary_max       = COALESCE($10, salary_max),
		   salary_currency  = COALESCE(NULLIF($11, ''), salary_currency),
		   apply_url        = COALESCE(NULLIF($12, ''), apply_url),
		   updated_at       = NOW()
		 WHERE id = $1 AND user_id = $2`,
		jobID, userID,
		det.Description, nonNil(det.Skills), nonNil(det.Qualifications),
		nonNil(det.Responsibilities), nonNil(det.Technographics),
		det.SalaryText, det.SalaryMin, det.SalaryMax, det.SalaryCurrency, det.ApplyURL,
	)
	if err != nil {
		return fmt.Errorf("updateJobDetails: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateJobEmbedding stores the job's vector with the hash of the text it
// was computed from and stamps embedded_at, which marks existing matches for
// the job as stale.
func (d *DB) UpdateJobEmbedding(ctx context.Context, userID, jobID string, vec []float32, textHash string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE jobs SET embedding = $3, embedding_text_hash = $4, embedded_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		jobID, userID, pgvector.NewVector(vec), textHash,
	)
	if err != nil {
		return fmt.Errorf("updateJobEmbedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobsNeedingEmbedding returns jobs with a non-blank description but no vector,
// oldest first.
func (d *DB) ListJobsNeedingEmbedding(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE embedding IS NULL AND btrim(description) <> ''
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listJobsNeedingEmbedding query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobsNeedingEmbedding scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ListJobs returns a user's jobs whose mirrored match score is at least
// minScore, best matches first. Unscored jobs count as 0.
func (d *DB) ListJobs(ctx context.Context, userID string, minScore int) ([]model.Job, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE user_id = $1
		   AND COALESCE((metadata->>'score')::int, 0) >= $2
		 ORDER BY (metadata->>'score')::int DESC NULLS LAST, created_at DESC`,
		userID, minScore,
	)
	if err != nil {
		return nil, fmt.Errorf("listJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// GetJobStatus returns the current lifecycle status of a job.
func (d *DB) GetJobStatus(ctx context.Context, userID, jobID string) (model.JobStatus, error) {
	var status model.JobStatus
	err := d.pool.QueryRow(ctx,
		`SELECT status FROM jobs WHERE id = $1 AND user_id = $2`,
		jobID, userID,
	).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return status, nil
}

// UpdateJobStatus moves a job to a new status, provided it is still in the
// expected one. A concurrent move makes this return ErrNotFound.
func (d *DB) UpdateJobStatus(ctx context.Context, userID, jobID string, from, to model.JobStatus) (*model.Job, error) {
	j, err := scanJob(d.pool.QueryRow(ctx,
		`UPDATE jobs SET status = $4, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status = $3
		 RETURNING `+jobColumns,
		jobID, userID, string(from), string(to),
	))
	if err != nil {
		return nil, notFound(err)
	}
	return j, nil
}

// CountHydratedJobs counts jobs with both a description and technographics,
// the same predicate as model.Job.IsHydrated.
func (d *DB) CountHydratedJobs(ctx context.Context, userID string) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs
		 WHERE user_id = $1
		   AND description <> ''
		   AND cardinality(COALESCE(technographics, '{}')) > 0`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countHydratedJobs: %w", err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
