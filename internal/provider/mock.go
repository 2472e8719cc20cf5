package provider

import (
	"context"
	"fmt"
	"strings"

	"jobmate/matching-service/internal/model"
)

// Mock returns deterministic listings without network access. It is meant
// for local development and demo accounts.
type Mock struct{}

// NewMock constructs the offline adapter.
func NewMock() *Mock { return &Mock{} }

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

var mockTemplates = []struct {
	title, company, location, workMode string
}{
	{"Senior %s", "Northwind Labs", "Paris, France", "hybrid"},
	{"%s", "Contoso", "Remote", "remote"},
	{"Lead %s", "Fabrikam", "Lyon, France", "onsite"},
	{"Junior %s", "Tailspin Toys", "Berlin, Germany", "hybrid"},
	{"Office Manager", "Wide World Importers", "Paris, France", "onsite"},
}

// Fetch returns one listing per template, built around keyword. The last
// template never matches the keyword, which exercises the relevance filter.
func (m *Mock) Fetch(_ context.Context, keyword string, opts FetchOptions) ([]model.RawListing, error) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		kw = "Software Engineer"
	}
	slug := strings.ToLower(strings.Join(strings.Fields(kw), "-"))

	listings := make([]model.RawListing, 0, len(mockTemplates))
	for i, tpl := range mockTemplates {
		title := tpl.title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(title, kw)
		}
		location := tpl.location
		if opts.Location != "" && tpl.workMode != "remote" {
			location = opts.Location
		}
		id := fmt.Sprintf("mock-%s-%d", slug, i+1)
		listings = append(listings, model.RawListing{
			SourceID:   id,
			Title:      title,
			Company:    tpl.company,
			Location:   location,
			WorkMode:   tpl.workMode,
			Snippet:    fmt.Sprintf("%s at %s.", title, tpl.company),
			SalaryText: fmt.Sprintf("€%dk-%dk", 40+i*5, 50+i*5),
			URL:        "https://jobs.example.com/" + id,
			PostedAt:   "2024-01-15",
		})
		if opts.Limit > 0 && len(listings) == opts.Limit {
			break
		}
	}
	return listings, nil
}

// Hydrate returns canned details for ids produced by Fetch.
func (m *Mock) Hydrate(_ context.Context, sourceID string) (*model.JobDetails, error) {
	if !strings.HasPrefix(sourceID, "mock-") {
		return nil, nil
	}
	return &model.JobDetails{
		Description:      "You will design, build and operate data-heavy services with a small product team.",
		Skills:           []string{"SQL", "Go", "Communication"},
		Qualifications:   []string{"3+ years of professional experience"},
		Responsibilities: []string{"Own services end to end", "Review code"},
		Technographics:   []string{"go", "postgresql", "kubernetes"},
	}, nil
}
