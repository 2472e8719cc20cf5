// Package model defines shared data structures for the matching service.
package model

import "time"

// SearchConfig mirrors the search_configs table row relevant to scheduled
// discovery runs.
type SearchConfig struct {
	ID        string
	UserID    string
	JobTitles []string
	Locations []string
	RedFlags  []string // exclusion terms; any match discards the offer
}

// RawListing is a provider-agnostic offer returned by an adapter, before
// normalisation. Adapters translate their own wire schema into this shape;
// nothing past the adapter sees provider field names.
type RawListing struct {
	SourceID        string
	Title           string
	Company         string
	Location        string
	City            string
	Country         string
	Description     string
	Snippet         string
	SalaryText      string
	SalaryMin       float64
	SalaryMax       float64
	SalaryCurrency  string
	SalaryPeriod    string
	EmploymentType  string
	WorkMode        string
	Remote          bool
	ExperienceLevel string
	URL             string
	ApplyURL        string
	PostedAt        string
	Skills          []string
	Technographics  []string
}

// JobDetails holds the deep per-listing fields a hydrating provider can
// return. Empty fields mean "not provided" and are never written.
type JobDetails struct {
	Description      string
	Skills           []string
	Qualifications   []string
	Responsibilities []string
	Technographics   []string
	SalaryText       string
	SalaryMin        *float64
	SalaryMax        *float64
	SalaryCurrency   string
	ApplyURL         string
}

// IsEmpty reports whether the details carry nothing worth persisting.
func (d *JobDetails) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.Description == "" && len(d.Skills) == 0 && len(d.Qualifications) == 0 &&
		len(d.Responsibilities) == 0 && len(d.Technographics) == 0 &&
		d.SalaryText == "" && d.SalaryMin == nil && d.SalaryMax == nil && d.ApplyURL == ""
}

// RunStatus values mirror ingestion_logs.status.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSuccess    RunStatus = "success"
	RunFailure    RunStatus = "failure"
)

// RunStats is the stats payload of an ingestion_logs row.
type RunStats struct {
	JobsFound int      `json:"jobsFound"`
	JobsSaved int      `json:"jobsSaved"`
	Errors    []string `json:"errors,omitempty"`
}

// IngestionRun is one provider's bookkeeping record for an ingestion run.
type IngestionRun struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Provider    string     `json:"provider"`
	Status      RunStatus  `json:"status"`
	Stats       RunStats   `json:"stats"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ProgressStatus values mirror discovery_progress.status.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// DiscoveryProgress is the single-row-per-user state polled by clients
// while an ingestion run is in flight.
type DiscoveryProgress struct {
	UserID      string         `json:"userId"`
	Status      ProgressStatus `json:"status"`
	CurrentStep int            `json:"currentStep"`
	TotalSteps  int            `json:"totalSteps"`
	Percentage  int            `json:"percentage"`
	Message     string         `json:"message,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
