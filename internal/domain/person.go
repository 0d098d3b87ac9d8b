package domain

import (
	"strings"
	"time"
)

// CoreField names the fixed identity schema slots on a PersonRecord. Anything
// a spreadsheet carries beyond these lands in DynamicAttributes.
const (
	FieldUID         = "uid"
	FieldLastName    = "last_name"
	FieldFirstName   = "first_name"
	FieldMiddleName  = "middle_name"
	FieldSuffix      = "suffix"
	FieldBirthday    = "birthday"
	FieldGender      = "gender"
	FieldCivilStatus = "civil_status"
	FieldStreetNo    = "street_no"
	FieldStreet      = "street"
	FieldCity        = "city"
	FieldProvince    = "province"
	FieldBarangay    = "barangay"
)

// CoreFields lists every core schema slot in display order.
var CoreFields = []string{
	FieldUID,
	FieldLastName,
	FieldFirstName,
	FieldMiddleName,
	FieldSuffix,
	FieldBirthday,
	FieldGender,
	FieldCivilStatus,
	FieldStreetNo,
	FieldStreet,
	FieldCity,
	FieldProvince,
	FieldBarangay,
}

// BirthdayFormat is the canonical storage and comparison format for dates.
const BirthdayFormat = "2006-01-02"

// PersonRecord is the canonical registry entity. The UID is assigned once at
// creation and never regenerated. The *Normalized fields are shadow copies of
// the display names (lowercase, trimmed) used exclusively for matching; they
// are recomputed by Normalize whenever a display name changes and must never
// diverge from their display counterparts.
type PersonRecord struct {
	UID                 string         `json:"uid"`
	LastName            string         `json:"last_name,omitempty"`
	FirstName           string         `json:"first_name,omitempty"`
	MiddleName          string         `json:"middle_name,omitempty"`
	LastNameNormalized  string         `json:"-"`
	FirstNameNormalized string         `json:"-"`
	MiddleNameNormalized string        `json:"-"`
	Suffix              string         `json:"suffix,omitempty"`
	Birthday            *time.Time     `json:"birthday,omitempty"`
	Gender              string         `json:"gender,omitempty"`
	CivilStatus         string         `json:"civil_status,omitempty"`
	StreetNo            string         `json:"street_no,omitempty"`
	Street              string         `json:"street,omitempty"`
	City                string         `json:"city,omitempty"`
	Province            string         `json:"province,omitempty"`
	Barangay            string         `json:"barangay,omitempty"`
	DynamicAttributes   map[string]any `json:"dynamic_attributes,omitempty"`
	OriginBatchID       string         `json:"origin_batch_id,omitempty"`
	OriginMatchResultID string         `json:"origin_match_result_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NormalizeName produces the matching form of a display name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Normalize recomputes the shadow name fields from the display fields.
// Call it after any mutation of LastName, FirstName, or MiddleName.
func (p *PersonRecord) Normalize() {
	p.LastNameNormalized = NormalizeName(p.LastName)
	p.FirstNameNormalized = NormalizeName(p.FirstName)
	p.MiddleNameNormalized = NormalizeName(p.MiddleName)
}

// BirthdayString renders the birthday in the canonical format, or "" when
// absent.
func (p *PersonRecord) BirthdayString() string {
	if p.Birthday == nil {
		return ""
	}
	return p.Birthday.Format(BirthdayFormat)
}

// CoreFieldValue returns the display value of the named core field as it
// participates in confidence scoring. Unknown names return "".
func (p *PersonRecord) CoreFieldValue(field string) string {
	switch field {
	case FieldUID:
		return p.UID
	case FieldLastName:
		return p.LastName
	case FieldFirstName:
		return p.FirstName
	case FieldMiddleName:
		return p.MiddleName
	case FieldSuffix:
		return p.Suffix
	case FieldBirthday:
		return p.BirthdayString()
	case FieldGender:
		return p.Gender
	case FieldCivilStatus:
		return p.CivilStatus
	case FieldStreetNo:
		return p.StreetNo
	case FieldStreet:
		return p.Street
	case FieldCity:
		return p.City
	case FieldProvince:
		return p.Province
	case FieldBarangay:
		return p.Barangay
	}
	return ""
}

// SetCoreField assigns a mapped value onto the matching schema slot. The
// birthday must already be in canonical form; unparseable dates never reach
// this point. Unknown field names are ignored.
func (p *PersonRecord) SetCoreField(field, value string) {
	switch field {
	case FieldUID:
		p.UID = value
	case FieldLastName:
		p.LastName = value
	case FieldFirstName:
		p.FirstName = value
	case FieldMiddleName:
		p.MiddleName = value
	case FieldSuffix:
		p.Suffix = value
	case FieldBirthday:
		if t, err := time.Parse(BirthdayFormat, value); err == nil {
			p.Birthday = &t
		}
	case FieldGender:
		p.Gender = value
	case FieldCivilStatus:
		p.CivilStatus = value
	case FieldStreetNo:
		p.StreetNo = value
	case FieldStreet:
		p.Street = value
	case FieldCity:
		p.City = value
	case FieldProvince:
		p.Province = value
	case FieldBarangay:
		p.Barangay = value
	}
}
