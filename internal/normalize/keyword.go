package normalize

import (
	"strings"
	"unicode"
)

// MatchesKeyword is the relevance filter. Every token of keyword must appear
// as a whole token of title, case-insensitively, so "Data Analyst" keeps
// "Senior Data Analyst" and drops "Database Administrator". A blank keyword
// matches everything.
func MatchesKeyword(title, keyword string) bool {
	want := tokens(keyword)
	if len(want) == 0 {
		return true
	}
	have := tokens(title)
	for _, w := range want {
		if !hasToken(have, w) {
			return false
		}
	}
	return true
}

// tokens splits s on anything other than letters, digits and the
// "+", "#", "." characters that appear in names like C++, C# and Node.js.
// Trailing dots are trimmed so "Sr." and "Sr" compare equal.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func hasToken(toks []string, want string) bool {
	for _, t := range toks {
		if t == want {
			return true
		}
	}
	return false
}
