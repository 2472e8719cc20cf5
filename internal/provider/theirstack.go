package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"

	"jobmate/matching-service/internal/model"
)

const (
	theirStackURL          = "https://api.theirstack.com/v1/jobs/search"
	theirStackDefaultLimit = 25
	theirStackMaxAgeDays   = 30
)

// TheirStack queries the TheirStack jobs API (POST, JSON body, Bearer key).
// It also supports per-listing hydration by job id.
type TheirStack struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewTheirStack constructs an adapter with a shared HTTP client.
func NewTheirStack(apiKey string) *TheirStack {
	return &TheirStack{
		APIKey:  apiKey,
		BaseURL: theirStackURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Name implements Provider.
func (t *TheirStack) Name() string { return "theirstack" }

type theirStackRequest struct {
	Page                 int      `json:"page"`
	Limit                int      `json:"limit"`
	JobTitleOr           []string `json:"job_title_or,omitempty"`
	JobLocationPatternOr []string `json:"job_location_pattern_or,omitempty"`
	JobIDOr              []string `json:"job_id_or,omitempty"`
	PostedAtMaxAgeDays   int      `json:"posted_at_max_age_days,omitempty"`
}

type theirStackResponse struct {
	Data []map[string]any `json:"data"`
}

// theirStackJob is the subset of a TheirStack job item this adapter reads.
// Items are decoded loosely: ids arrive as numbers, salaries as numbers or
// null, and unknown keys are ignored.
type theirStackJob struct {
	ID                 string   `mapstructure:"id"`
	JobTitle           string   `mapstructure:"job_title"`
	Company            string   `mapstructure:"company"`
	Location           string   `mapstructure:"location"`
	ShortLocation      string   `mapstructure:"short_location"`
	Country            string   `mapstructure:"country"`
	Description        string   `mapstructure:"description"`
	URL                string   `mapstructure:"url"`
	FinalURL           string   `mapstructure:"final_url"`
	DatePosted         string   `mapstructure:"date_posted"`
	Remote             bool     `mapstructure:"remote"`
	Hybrid             bool     `mapstructure:"hybrid"`
	SalaryString       string   `mapstructure:"salary_string"`
	MinAnnualSalary    float64  `mapstructure:"min_annual_salary"`
	MaxAnnualSalary    float64  `mapstructure:"max_annual_salary"`
	SalaryCurrency     string   `mapstructure:"salary_currency"`
	EmploymentStatuses []string `mapstructure:"employment_statuses"`
	Seniority          string   `mapstructure:"seniority"`
	TechnologySlugs    []string `mapstructure:"technology_slugs"`
}

// Fetch runs one search request.
func (t *TheirStack) Fetch(ctx context.Context, keyword string, opts FetchOptions) ([]model.RawListing, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = theirStackDefaultLimit
	}
	req := theirStackRequest{
		Page:               0,
		Limit:              limit,
		PostedAtMaxAgeDays: theirStackMaxAgeDays,
	}
	if kw := strings.TrimSpace(keyword); kw != "" {
		req.JobTitleOr = []string{kw}
	}
	if opts.Location != "" {
		req.JobLocationPatternOr = []string{opts.Location}
	}

	jobs, err := t.search(ctx, req)
	if err != nil {
		return nil, err
	}

	listings := make([]model.RawListing, 0, len(jobs))
	for _, j := range jobs {
		l := model.RawListing{
			SourceID:        j.ID,
			Title:           j.JobTitle,
			Company:         j.Company,
			Location:        firstNonEmpty(j.ShortLocation, j.Location),
			Country:         j.Country,
			Description:     j.Description,
			SalaryText:      j.SalaryString,
			SalaryMin:       j.MinAnnualSalary,
			SalaryMax:       j.MaxAnnualSalary,
			SalaryCurrency:  j.SalaryCurrency,
			SalaryPeriod:    "year",
			EmploymentType:  strings.Join(j.EmploymentStatuses, " "),
			Remote:          j.Remote,
			ExperienceLevel: j.Seniority,
			URL:             j.URL,
			ApplyURL:        j.FinalURL,
			PostedAt:        j.DatePosted,
			Technographics:  j.TechnologySlugs,
		}
		if j.Hybrid {
			l.WorkMode = string(model.WorkModeHybrid)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// Hydrate looks a single job up by id. Returns (nil, nil) when TheirStack no
// longer knows the id.
func (t *TheirStack) Hydrate(ctx context.Context, sourceID string) (*model.JobDetails, error) {
	jobs, err := t.search(ctx, theirStackRequest{Page: 0, Limit: 1, JobIDOr: []string{sourceID}})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	j := jobs[0]
	d := &model.JobDetails{
		Description:    j.Description,
		Technographics: j.TechnologySlugs,
		SalaryText:     j.SalaryString,
		SalaryCurrency: j.SalaryCurrency,
		ApplyURL:       j.FinalURL,
	}
	if j.MinAnnualSalary > 0 {
		v := j.MinAnnualSalary
		d.SalaryMin = &v
	}
	if j.MaxAnnualSalary > 0 {
		v := j.MaxAnnualSalary
		d.SalaryMax = &v
	}
	return d, nil
}

func (t *TheirStack) search(ctx context.Context, body theirStackRequest) ([]theirStackJob, error) {
	if t.APIKey == "" {
		return nil, fmt.Errorf("theirstack: %w", ErrMissingCredentials)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp, "theirstack")
	if err != nil {
		return nil, err
	}

	var apiResp theirStackResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]theirStackJob, 0, len(apiResp.Data))
	for i, item := range apiResp.Data {
		var j theirStackJob
		if err := decodeLoose(item, &j); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
		if company, ok := item["company_object"].(map[string]any); ok && j.Company == "" {
			j.Company, _ = company["name"].(string)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func decodeLoose(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
