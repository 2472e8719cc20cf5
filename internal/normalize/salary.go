package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Salary units stored in jobs.salary_unit.
const (
	UnitHour  = "hour"
	UnitDay   = "day"
	UnitMonth = "month"
	UnitYear  = "year"
)

// Salary is a parsed salary range. Min equals Max for single figures.
type Salary struct {
	Min      float64
	Max      float64
	Currency string
	Unit     string
}

var (
	isoCurrencyRe = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|CAD|AUD|CHF|INR|JPY|SEK|NOK|DKK|PLN)\b`)
	amountRe      = regexp.MustCompile(`(\d{1,3}(?:[,.\s]\d{3})+|\d+(?:\.\d+)?)\s*([kK])?\b`)
	unitRe        = regexp.MustCompile(`(?i)(?:\bper\b|/|\ban?\b)\s*(hour|hr|h|day|month|mo|year|yr|annum)\b|\b(hourly|daily|monthly|annually|annual|yearly)\b`)
)

var currencySymbols = []struct{ symbol, code string }{
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"$", "USD"},
}

var unitWords = map[string]string{
	"hour": UnitHour, "hr": UnitHour, "h": UnitHour, "hourly": UnitHour,
	"day": UnitDay, "daily": UnitDay,
	"month": UnitMonth, "mo": UnitMonth, "monthly": UnitMonth,
	"year": UnitYear, "yr": UnitYear, "annum": UnitYear, "annual": UnitYear,
	"annually": UnitYear, "yearly": UnitYear,
}

// ParseSalary extracts a numeric range, ISO currency and pay period from
// free text like "$50,000 - $70,000 a year" or "€45k-55k". ok is false when
// the text holds no amount; callers then keep only the raw text.
func ParseSalary(text string) (Salary, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Salary{}, false
	}

	matches := amountRe.FindAllStringSubmatch(text, 2)
	if len(matches) == 0 {
		return Salary{}, false
	}

	amounts := make([]float64, 0, 2)
	kilo := make([]bool, 0, 2)
	for _, m := range matches {
		v, err := parseAmount(m[1])
		if err != nil || v <= 0 {
			continue
		}
		amounts = append(amounts, v)
		kilo = append(kilo, m[2] != "")
	}
	if len(amounts) == 0 {
		return Salary{}, false
	}

	// "50-60k" puts the suffix on the upper bound only.
	if len(amounts) == 2 && kilo[1] && !kilo[0] && amounts[0] < 1000 {
		kilo[0] = true
	}
	for i := range amounts {
		if kilo[i] {
			amounts[i] *= 1000
		}
	}

	s := Salary{Min: amounts[0], Max: amounts[0], Currency: parseCurrency(text), Unit: UnitYear}
	if len(amounts) == 2 {
		s.Max = amounts[1]
	}
	if s.Min > s.Max {
		s.Min, s.Max = s.Max, s.Min
	}
	if u := unitRe.FindStringSubmatch(text); u != nil {
		word := u[1]
		if word == "" {
			word = u[2]
		}
		s.Unit = unitWords[strings.ToLower(word)]
	}
	return s, true
}

// ParseSalaryUnit canonicalises a provider pay-period field.
func ParseSalaryUnit(period string) string {
	return unitWords[strings.ToLower(strings.TrimSpace(period))]
}

func parseCurrency(text string) string {
	if m := isoCurrencyRe.FindString(text); m != "" {
		return strings.ToUpper(m)
	}
	for _, c := range currencySymbols {
		if strings.Contains(text, c.symbol) {
			return c.code
		}
	}
	return ""
}

func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if groupedRe.MatchString(raw) {
		raw = strings.NewReplacer(",", "", ".", "", " ", "").Replace(raw)
	}
	return strconv.ParseFloat(raw, 64)
}

var groupedRe = regexp.MustCompile(`^\d{1,3}(?:[,.\s]\d{3})+$`)
