package model

import "time"

// WorkMode is the canonical remote policy of a job.
type WorkMode string

const (
	WorkModeRemote WorkMode = "remote"
	WorkModeHybrid WorkMode = "hybrid"
	WorkModeOnsite WorkMode = "onsite"
)

// EmploymentType is the canonical contract kind of a job.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
	EmploymentTemporary  EmploymentType = "temporary"
)

// ExperienceLevel is the canonical seniority of a job.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

// JobStatus mirrors the job_status enum in PostgreSQL. Transitions are
// owned by the kanban package.
type JobStatus string

const (
	JobRecommended  JobStatus = "recommended"
	JobApplied      JobStatus = "applied"
	JobInterviewing JobStatus = "interviewing"
	JobOffer        JobStatus = "offer"
	JobRejected     JobStatus = "rejected"
)

// Job is a discovered posting owned by one user.
type Job struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Title             string          `json:"title"`
	Company           string          `json:"company"`
	Location          string          `json:"location,omitempty"`
	City              string          `json:"city,omitempty"`
	Country           string          `json:"country,omitempty"`
	WorkMode          WorkMode        `json:"workMode,omitempty"`
	EmploymentType    EmploymentType  `json:"employmentType,omitempty"`
	ExperienceLevel   ExperienceLevel `json:"experienceLevel,omitempty"`
	SalaryMin         *float64        `json:"salaryMin,omitempty"`
	SalaryMax         *float64        `json:"salaryMax,omitempty"`
	SalaryCurrency    string          `json:"salaryCurrency,omitempty"`
	SalaryUnit        string          `json:"salaryUnit,omitempty"`
	SalaryText        string          `json:"salaryText,omitempty"`
	Description       string          `json:"description,omitempty"`
	Snippet           string          `json:"snippet,omitempty"`
	Skills            []string        `json:"skills,omitempty"`
	Qualifications    []string        `json:"qualifications,omitempty"`
	Responsibilities  []string        `json:"responsibilities,omitempty"`
	SourceName        string          `json:"sourceName"`
	SourceID          string          `json:"sourceId"`
	SourceURL         string          `json:"sourceUrl,omitempty"`
	ApplyURL          string          `json:"applyUrl,omitempty"`
	Hash              string          `json:"hash"`
	Status            JobStatus       `json:"status"`
	Embedding         []float32       `json:"-"`
	// EmbeddingTextHash is the hash of the aggregated text Embedding was
	// computed from.
	EmbeddingTextHash string          `json:"-"`
	Technographics    []string        `json:"technographics,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	PostedAt          *time.Time      `json:"postedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// IsHydrated reports whether deep details have been fetched for the job.
// The same predicate is used by db.CountHydratedJobs.
func (j *Job) IsHydrated() bool {
	return j.Description != "" && len(j.Technographics) > 0
}

// JobMatch is the persisted score of one job against one user's profile.
type JobMatch struct {
	UserID        string         `json:"userId"`
	JobID         string         `json:"jobId"`
	Score         int            `json:"score"`
	RawSimilarity float64        `json:"rawSimilarity"`
	GapAnalysis   map[string]any `json:"gapAnalysis,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
