package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"jobmate/matching-service/internal/model"
)

// AggregateJobText builds the text embedded for a job. Labels and order are
// fixed; absent sections are omitted.
func AggregateJobText(job *model.Job) string {
	var parts []string
	if t := strings.TrimSpace(job.Title); t != "" {
		parts = append(parts, "Title: "+t)
	}
	if d := strings.TrimSpace(job.Description); d != "" {
		parts = append(parts, "Description: "+d)
	}
	if len(job.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(job.Skills, ", "))
	}
	if len(job.Qualifications) > 0 {
		parts = append(parts, "Qualifications: "+strings.Join(job.Qualifications, ", "))
	}
	return strings.Join(parts, "\n")
}

// AggregateProfileText builds the text embedded for a profile.
func AggregateProfileText(p *model.Profile) string {
	var parts []string
	if h := strings.TrimSpace(p.Headline); h != "" {
		parts = append(parts, "Headline: "+h)
	}
	if s := strings.TrimSpace(p.Summary); s != "" {
		parts = append(parts, "Summary: "+s)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.WorkHistory) > 0 {
		entries := make([]string, 0, len(p.WorkHistory))
		for _, w := range p.WorkHistory {
			entry := w.Title + " at " + w.Company
			if d := strings.TrimSpace(w.Description); d != "" {
				entry += ": " + d
			}
			entries = append(entries, entry)
		}
		parts = append(parts, "Experience: "+strings.Join(entries, "; "))
	}
	return strings.Join(parts, "\n")
}

// TextHash identifies the aggregated text a vector was computed from.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
