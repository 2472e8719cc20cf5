// Package normalize maps provider-agnostic listings into canonical Job
// records. Every function here is pure.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobmate/matching-service/internal/model"
)

const snippetLimit = 280

// Normalize converts a raw listing into an unsaved Job owned by userID.
// The returned job carries a fresh id and the recommended status; on
// conflict the database keeps the id of the existing row.
func Normalize(raw model.RawListing, sourceName, userID string) model.Job {
	title := collapse(raw.Title)
	company := collapse(raw.Company)
	location := collapse(raw.Location)
	if location == "" {
		location = joinNonEmpty(", ", raw.City, raw.Country)
	}

	description := StripHTML(raw.Description)
	snippet := collapse(StripHTML(raw.Snippet))
	if snippet == "" && description != "" {
		snippet = truncateRunes(collapse(description), snippetLimit)
	}

	job := model.Job{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Company:         company,
		Location:        location,
		City:            collapse(raw.City),
		Country:         collapse(raw.Country),
		WorkMode:        workMode(raw, title, location),
		EmploymentType:  ParseEmploymentType(raw.EmploymentType),
		ExperienceLevel: ParseExperienceLevel(raw.ExperienceLevel),
		SalaryText:      collapse(raw.SalaryText),
		Description:     description,
		Snippet:         snippet,
		Skills:          dedupe(raw.Skills),
		SourceName:      sourceName,
		SourceID:        raw.SourceID,
		SourceURL:       raw.URL,
		ApplyURL:        raw.ApplyURL,
		Hash:            Hash(title, company, location, raw.SourceID),
		Status:          model.JobRecommended,
		PostedAt:        parseTime(raw.PostedAt),
	}
	if job.ExperienceLevel == "" {
		job.ExperienceLevel = ParseExperienceLevel(title)
	}
	if job.ApplyURL == "" {
		job.ApplyURL = raw.URL
	}
	if techs := dedupe(raw.Technographics); len(techs) > 0 {
		job.Technographics = techs
	}

	applySalary(&job, raw)
	return job
}

// Hash is the dedup fingerprint: sha256 over the lower-cased, trimmed
// title, company, location and source id joined by "|", in that order.
func Hash(title, company, location, sourceID string) string {
	parts := []string{title, company, location, sourceID}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func applySalary(job *model.Job, raw model.RawListing) {
	if raw.SalaryMin > 0 || raw.SalaryMax > 0 {
		lo, hi := raw.SalaryMin, raw.SalaryMax
		if lo == 0 {
			lo = hi
		}
		if hi == 0 {
			hi = lo
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		job.SalaryMin, job.SalaryMax = &lo, &hi
		job.SalaryCurrency = strings.ToUpper(strings.TrimSpace(raw.SalaryCurrency))
		job.SalaryUnit = ParseSalaryUnit(raw.SalaryPeriod)
		if job.SalaryUnit == "" {
			job.SalaryUnit = UnitYear
		}
		return
	}

	s, ok := ParseSalary(raw.SalaryText)
	if !ok {
		return
	}
	lo, hi := s.Min, s.Max
	job.SalaryMin, job.SalaryMax = &lo, &hi
	job.SalaryCurrency = s.Currency
	if job.SalaryCurrency == "" {
		job.SalaryCurrency = strings.ToUpper(strings.TrimSpace(raw.SalaryCurrency))
	}
	job.SalaryUnit = s.Unit
}

func workMode(raw model.RawListing, title, location string) model.WorkMode {
	if m := ParseWorkMode(raw.WorkMode); m != "" {
		return m
	}
	if raw.Remote {
		return model.WorkModeRemote
	}
	if m := ParseWorkMode(location); m != "" {
		return m
	}
	if hasToken(tokens(title), "remote") {
		return model.WorkModeRemote
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = collapse(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// dedupe trims entries and drops blanks and case-insensitive repeats,
// keeping first-seen order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = collapse(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "..."
}
