package mapping

import (
	"regexp"
	"strings"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// fieldSecondName is a pseudo core field: spreadsheets from several sources
// split a compound given name across two columns. It never appears on a
// PersonRecord; the mapper folds it into first_name.
const fieldSecondName = "second_name"

// coreFieldAliases maps known column-name variants onto system field names.
// Lookup is case-insensitive, so keys are stored lowercase; "Surname",
// "SURNAME", and "surname" all resolve to last_name.
var coreFieldAliases = map[string]string{
	// UID / registration number
	"uid":             domain.FieldUID,
	"regsno":          domain.FieldUID,
	"regsnumber":      domain.FieldUID,
	"registration_no": domain.FieldUID,

	// Last name / surname
	"surname":   domain.FieldLastName,
	"lastname":  domain.FieldLastName,
	"last_name": domain.FieldLastName,

	// First name
	"firstname":  domain.FieldFirstName,
	"first_name": domain.FieldFirstName,
	"fname":      domain.FieldFirstName,

	// Second name (folds into a compound first name)
	"secondname":  fieldSecondName,
	"second_name": fieldSecondName,

	// Middle name
	"middlename":  domain.FieldMiddleName,
	"middle_name": domain.FieldMiddleName,
	"mname":       domain.FieldMiddleName,

	// Suffix / extension
	"extension": domain.FieldSuffix,
	"suffix":    domain.FieldSuffix,
	"ext":       domain.FieldSuffix,

	// Birthday / date of birth
	"dob":           domain.FieldBirthday,
	"birthday":      domain.FieldBirthday,
	"birthdate":     domain.FieldBirthday,
	"birth_date":    domain.FieldBirthday,
	"date_of_birth": domain.FieldBirthday,
	"dateofbirth":   domain.FieldBirthday,

	// Gender / sex
	"sex":    domain.FieldGender,
	"gender": domain.FieldGender,

	// Civil status
	"status":       domain.FieldCivilStatus,
	"civilstatus":  domain.FieldCivilStatus,
	"civil_status": domain.FieldCivilStatus,

	// Address
	"address":   domain.FieldStreet,
	"street":    domain.FieldStreet,
	"street_no": domain.FieldStreetNo,
	"streetno":  domain.FieldStreetNo,
	"city":      domain.FieldCity,
	"province":  domain.FieldProvince,

	// Barangay
	"brgydescription": domain.FieldBarangay,
	"brgy":            domain.FieldBarangay,
	"barangay":        domain.FieldBarangay,
}

// Classification is the outcome of classifying one raw column name.
type Classification struct {
	// Field is the canonical system field name for core columns, or the
	// sanitized dynamic key otherwise.
	Field string
	Core  bool
}

// Classify resolves a raw column name to either a core system field or a
// sanitized dynamic key. Unrecognized columns never fail; they always become
// dynamic keys.
func Classify(column string) Classification {
	if field, ok := coreFieldAliases[strings.ToLower(strings.TrimSpace(column))]; ok {
		return Classification{Field: field, Core: true}
	}
	return Classification{Field: NormalizeDynamicKey(column)}
}

// IsCoreColumn reports whether the column name is a known core field variant.
func IsCoreColumn(column string) bool {
	return Classify(column).Core
}

// SystemField returns the canonical system field for a column variant, or ""
// when the column is not a core variant.
func SystemField(column string) string {
	if c := Classify(column); c.Core {
		return c.Field
	}
	return ""
}

// Variations returns every lowercase column variant that maps to the given
// system field. Used to reverse-map summary output to original headers.
func Variations(systemField string) []string {
	var out []string
	for alias, field := range coreFieldAliases {
		if field == systemField {
			out = append(out, alias)
		}
	}
	return out
}

// RequiredFields are the core fields a row must carry to be insertable.
func RequiredFields() []string {
	return []string{domain.FieldLastName, domain.FieldFirstName}
}

var (
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	invalidKeyRuns = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRuns = regexp.MustCompile(`_+`)

	validFieldName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// NormalizeDynamicKey converts an arbitrary column name to a snake_case key
// matching ^[a-z0-9_]*$: camelCase boundaries become underscores, everything
// outside [a-z0-9_] collapses to a single underscore, and leading/trailing
// underscores are stripped. Distinct inputs may collapse to the same key;
// callers process columns in a stable order so the result is deterministic.
func NormalizeDynamicKey(column string) string {
	key := camelBoundary.ReplaceAllString(column, `${1}_${2}`)
	key = strings.ToLower(key)
	key = invalidKeyRuns.ReplaceAllString(key, "_")
	key = underscoreRuns.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// IsValidFieldName reports whether a custom field name is alphanumeric plus
// underscores, the only shape the dynamic attributes JSON accepts.
func IsValidFieldName(name string) bool {
	return validFieldName.MatchString(name)
}
