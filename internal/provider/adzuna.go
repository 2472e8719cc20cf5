package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"jobmate/matching-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per query when no limit is given
)

// Adzuna fetches job offers from the Adzuna public search API
// (GET, query-string parameters, paginated).
type Adzuna struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	BaseURL string
	client  *http.Client
}

// NewAdzuna constructs an adapter with a shared HTTP client.
func NewAdzuna(appID, appKey, country string) *Adzuna {
	if country == "" {
		country = "fr"
	}
	return &Adzuna{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		BaseURL: adzunaBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Name implements Provider.
func (a *Adzuna) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string   `json:"display_name"`
	Area        []string `json:"area"` // country first, most specific last
}

// Fetch iterates through pages until no more results, the limit, or
// adzunaMaxPages is reached. Any page failure fails the whole fetch.
func (a *Adzuna) Fetch(ctx context.Context, keyword string, opts FetchOptions) ([]model.RawListing, error) {
	if a.AppID == "" || a.AppKey == "" {
		return nil, fmt.Errorf("adzuna: %w", ErrMissingCredentials)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = adzunaPageSize * adzunaMaxPages
	}
	pageSize := min(limit, adzunaPageSize)

	var listings []model.RawListing
	for page := 1; len(listings) < limit; page++ {
		batch, err := a.fetchPage(ctx, keyword, opts.Location, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		listings = append(listings, batch...)
		if len(batch) < pageSize {
			break // Last page
		}
	}

	if len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, keyword, location string, page, pageSize int) ([]model.RawListing, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.BaseURL, a.Country, page)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("what", keyword)
	if location != "" {
		params.Set("where", location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp, "adzuna")
	if err != nil {
		return nil, err
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.RawListing, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		l := model.RawListing{
			SourceID:       r.ID,
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			Description:    r.Description,
			SalaryMin:      r.SalaryMin,
			SalaryMax:      r.SalaryMax,
			SalaryCurrency: adzunaCurrency(a.Country),
			SalaryPeriod:   "year",
			EmploymentType: r.ContractTime + " " + r.ContractType,
			URL:            r.RedirectURL,
			PostedAt:       r.Created,
		}
		if n := len(r.Location.Area); n > 0 {
			l.Country = r.Location.Area[0]
			if n > 1 {
				l.City = r.Location.Area[n-1]
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

var adzunaCurrencies = map[string]string{
	"gb": "GBP", "us": "USD", "ca": "CAD", "au": "AUD", "nz": "NZD",
	"in": "INR", "za": "ZAR", "sg": "SGD", "br": "BRL", "pl": "PLN",
	"ch": "CHF", "mx": "MXN",
}

// adzunaCurrency maps the country endpoint to its salary currency; the
// eurozone endpoints are the default.
func adzunaCurrency(country string) string {
	if c, ok := adzunaCurrencies[country]; ok {
		return c
	}
	return "EUR"
}
