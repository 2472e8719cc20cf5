package normalize

import (
	"strings"

	"jobmate/matching-service/internal/model"
)

// ParseWorkMode canonicalises free-form remote-policy text. Unknown input
// yields "".
func ParseWorkMode(s string) model.WorkMode {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "hybrid"):
		return model.WorkModeHybrid
	case strings.Contains(s, "remote"), strings.Contains(s, "telework"), strings.Contains(s, "télétravail"):
		return model.WorkModeRemote
	case strings.Contains(s, "on-site"), strings.Contains(s, "onsite"), strings.Contains(s, "on site"),
		strings.Contains(s, "in office"), strings.Contains(s, "in-office"), strings.Contains(s, "in person"):
		return model.WorkModeOnsite
	}
	return ""
}

// ParseEmploymentType canonicalises contract descriptions such as Adzuna's
// contract_time/contract_type values or "Full-time".
func ParseEmploymentType(s string) model.EmploymentType {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	switch {
	case strings.Contains(s, "intern"), strings.Contains(s, "apprentice"), strings.Contains(s, "stage"):
		return model.EmploymentInternship
	case strings.Contains(s, "part time"), strings.Contains(s, "parttime"):
		return model.EmploymentPartTime
	case strings.Contains(s, "contract"), strings.Contains(s, "freelance"):
		return model.EmploymentContract
	case strings.Contains(s, "temp"), strings.Contains(s, "seasonal"):
		return model.EmploymentTemporary
	case strings.Contains(s, "full time"), strings.Contains(s, "fulltime"), strings.Contains(s, "permanent"):
		return model.EmploymentFullTime
	}
	return ""
}

var levelTokens = map[string]model.ExperienceLevel{
	"intern":       model.ExperienceEntry,
	"internship":   model.ExperienceEntry,
	"junior":       model.ExperienceEntry,
	"jr":           model.ExperienceEntry,
	"entry":        model.ExperienceEntry,
	"graduate":     model.ExperienceEntry,
	"mid":          model.ExperienceMid,
	"intermediate": model.ExperienceMid,
	"associate":    model.ExperienceMid,
	"senior":       model.ExperienceSenior,
	"sr":           model.ExperienceSenior,
	"lead":         model.ExperienceLead,
	"principal":    model.ExperienceLead,
	"staff":        model.ExperienceLead,
	"director":     model.ExperienceExecutive,
	"head":         model.ExperienceExecutive,
	"vp":           model.ExperienceExecutive,
	"executive":    model.ExperienceExecutive,
	"chief":        model.ExperienceExecutive,
}

// ParseExperienceLevel returns the level of the first seniority word found in
// s. It is used on provider level fields and, as a fallback, on titles.
func ParseExperienceLevel(s string) model.ExperienceLevel {
	for _, tok := range tokens(strings.NewReplacer("-", " ", "_", " ").Replace(s)) {
		if lvl, ok := levelTokens[tok]; ok {
			return lvl
		}
	}
	return ""
}
