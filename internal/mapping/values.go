package mapping

import (
	"strings"
	"time"
	"unicode"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// dateLayouts are tried in order. Day-first layouts come before month-first
// so "13/05/1990" resolves without ambiguity; when both interpretations are
// valid the day-first one wins.
var dateLayouts = []string{
	"2006-01-02",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
	"2006/01/02",
	"2.1.2006",
	"1.2.2006",
}

// flexibleLayouts is the fallback pass for values exported by spreadsheet
// tools with richer formatting.
var flexibleLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"20060102",
}

// ParseDate attempts every known layout and rejects dates outside
// [1900, current year]. A failed parse is not an error condition for the
// mapper: the field is simply treated as absent.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return validateDateRange(t)
		}
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return validateDateRange(t)
		}
	}
	return time.Time{}, false
}

func validateDateRange(t time.Time) (time.Time, bool) {
	if t.Year() < 1900 || t.Year() > time.Now().Year() {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate renders any accepted date form in the canonical Y-M-D format,
// or "" when the value does not parse as a usable date.
func NormalizeDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return ""
	}
	return t.Format(domain.BirthdayFormat)
}

// NormalizeString trims and title-cases a value: each space-separated word is
// lowercased with its first letter capitalized ("DELA CRUZ" -> "Dela Cruz").
func NormalizeString(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	words := strings.Split(strings.ToLower(value), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// NormalizeGender maps the accepted codes onto titled Male/Female. Anything
// else passes through uppercased so unexpected source values stay visible to
// operators instead of silently vanishing.
func NormalizeGender(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	switch v {
	case "M", "MALE":
		return "Male"
	case "F", "FEMALE":
		return "Female"
	}
	return v
}

// NormalizeCoreValue applies the per-field normalization convention. An empty
// result means the value is logically absent and must not be stored.
func NormalizeCoreValue(field, value string) string {
	switch field {
	case domain.FieldBirthday:
		return NormalizeDate(value)
	case domain.FieldGender:
		return NormalizeGender(value)
	default:
		return NormalizeString(value)
	}
}
