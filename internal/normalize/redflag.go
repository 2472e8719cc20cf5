package normalize

import "strings"

// ContainsRedFlag returns true if any red flag term appears (case-insensitive)
// in the combined title, company and description text. Ingestion drops such
// listings before dedup, so they never reach the database.
func ContainsRedFlag(title, company, description string, redFlags []string) bool {
	if len(redFlags) == 0 {
		return false
	}
	combined := strings.ToLower(strings.Join([]string{title, company, description}, "\n"))
	for _, flag := range redFlags {
		flag = strings.ToLower(strings.TrimSpace(flag))
		if flag == "" {
			continue
		}
		if strings.Contains(combined, flag) {
			return true
		}
	}
	return false
}
