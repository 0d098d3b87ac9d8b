package mapping

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/potchii/data-match-system-sub000/internal/domain"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
)

// MaxDynamicPayloadBytes caps the serialized dynamic attributes payload.
// Matches the TEXT column limit of the registry schema.
const MaxDynamicPayloadBytes = 65535

// Cell is one column of a raw upload row. Rows are ordered slices rather than
// maps because column order decides which write wins when two headers
// collapse to the same dynamic key.
type Cell struct {
	Column string
	Value  any
}

// Row is one raw upload row in original column order.
type Row []Cell

// Value returns the value of the named column (exact match) and whether the
// column exists.
func (r Row) Value(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// MappedRow is the transient output of mapping one upload row: core identity
// fields under canonical names, and everything else as sanitized dynamic
// attributes. The two maps are disjoint by construction.
type MappedRow struct {
	CoreFields    map[string]string
	DynamicFields map[string]any

	// PayloadBytes is the serialized size of DynamicFields; zero when the row
	// carried no dynamic attributes.
	PayloadBytes int
}

// HasRequiredNames reports whether the row carries both usable names, the
// minimum for insertion into the registry.
func (m MappedRow) HasRequiredNames() bool {
	return m.CoreFields[domain.FieldLastName] != "" && m.CoreFields[domain.FieldFirstName] != ""
}

// Summary is the per-batch operator feedback describing how the upload's
// columns were interpreted.
type Summary struct {
	CoreFieldsMapped      []string `json:"core_fields_mapped"`
	DynamicFieldsCaptured []string `json:"dynamic_fields_captured"`
	SkippedColumns        []string `json:"skipped_columns"`
}

// TemplateEntry is one ordered external-column -> system-field pair from a
// column mapping template.
type TemplateEntry struct {
	Column      string
	SystemField string
}

// Mapper turns raw upload rows into MappedRows. It is stateless and safe for
// concurrent use.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapRow classifies every column of the row, normalizes core values, folds
// compound first names, sanitizes dynamic values, and enforces the dynamic
// payload size limit. An unparseable date is treated as absent, never as an
// error; only an oversized dynamic payload fails the row.
func (m *Mapper) MapRow(row Row) (MappedRow, error) {
	mapped := MappedRow{
		CoreFields:    make(map[string]string),
		DynamicFields: make(map[string]any),
	}

	// Compound given name: a dedicated second-name column joins onto the
	// first name, in that order.
	first := firstNonEmpty(row, domain.FieldFirstName)
	second := firstNonEmpty(row, fieldSecondName)
	middle := firstNonEmpty(row, domain.FieldMiddleName)
	if first != "" && second != "" {
		mapped.CoreFields[domain.FieldFirstName] = strings.TrimSpace(first + " " + second)
	} else if first != "" {
		mapped.CoreFields[domain.FieldFirstName] = first
	}
	if middle != "" {
		mapped.CoreFields[domain.FieldMiddleName] = middle
	}

	for _, cell := range row {
		c := Classify(cell.Column)
		if c.Core && nameComponent(c.Field) {
			continue // folded above
		}

		if cell.Value == nil {
			continue
		}

		if c.Core {
			raw := valueToString(cell.Value)
			if raw == "" {
				continue
			}
			if normalized := NormalizeCoreValue(c.Field, raw); normalized != "" {
				mapped.CoreFields[c.Field] = normalized
			}
			continue
		}

		// Dynamic: empty strings are excluded, but 0, 0.0, false, and "0"
		// are real values and must be retained.
		if s, ok := cell.Value.(string); ok && s == "" {
			continue
		}
		if c.Field == "" {
			continue // header was entirely special characters
		}
		mapped.DynamicFields[c.Field] = sanitizeDynamicValue(cell.Value)
	}

	if len(mapped.DynamicFields) > 0 {
		size, err := validatePayloadSize(mapped.DynamicFields)
		if err != nil {
			return MappedRow{}, err
		}
		mapped.PayloadBytes = size
	}
	return mapped, nil
}

// Summarize explains, column by column, how a row was interpreted: which
// original headers fed core fields, which dynamic keys were captured, and
// which columns contributed nothing for this particular row.
func (m *Mapper) Summarize(row Row, mapped MappedRow) Summary {
	summary := Summary{
		CoreFieldsMapped:      []string{},
		DynamicFieldsCaptured: []string{},
		SkippedColumns:        []string{},
	}
	for _, cell := range row {
		c := Classify(cell.Column)
		switch {
		case c.Core && c.Field == fieldSecondName:
			if _, ok := mapped.CoreFields[domain.FieldFirstName]; ok && !isEmptyValue(cell.Value) {
				summary.CoreFieldsMapped = append(summary.CoreFieldsMapped, cell.Column)
				continue
			}
			summary.SkippedColumns = append(summary.SkippedColumns, cell.Column)
		case c.Core:
			if _, ok := mapped.CoreFields[c.Field]; ok && !isEmptyValue(cell.Value) {
				summary.CoreFieldsMapped = append(summary.CoreFieldsMapped, cell.Column)
				continue
			}
			summary.SkippedColumns = append(summary.SkippedColumns, cell.Column)
		default:
			if _, ok := mapped.DynamicFields[c.Field]; ok {
				summary.DynamicFieldsCaptured = append(summary.DynamicFieldsCaptured, c.Field)
				continue
			}
			summary.SkippedColumns = append(summary.SkippedColumns, cell.Column)
		}
	}
	return summary
}

// ApplyTemplate remaps a raw row through an ordered template: mapped columns
// are renamed to their system fields, declared custom fields pass through
// under their own names, and everything else is dropped. Values are copied
// verbatim, nulls and empties included. Returns the row unchanged when there
// are no entries at all.
func ApplyTemplate(row Row, entries []TemplateEntry, passthrough []string) Row {
	if len(entries) == 0 && len(passthrough) == 0 {
		return row
	}
	out := make(Row, 0, len(entries)+len(passthrough))
	for _, e := range entries {
		if v, ok := row.Value(e.Column); ok {
			out = append(out, Cell{Column: e.SystemField, Value: v})
		}
	}
	for _, name := range passthrough {
		if v, ok := row.Value(name); ok {
			out = append(out, Cell{Column: name, Value: v})
		}
	}
	return out
}

// GenerateTemplateFromSample classifies every column of a sample row and
// returns the ordered external-name -> system-field mapping an operator can
// save as a new template. Pure classification; no values are touched.
func GenerateTemplateFromSample(row Row) []TemplateEntry {
	entries := make([]TemplateEntry, 0, len(row))
	for _, cell := range row {
		c := Classify(cell.Column)
		if c.Field == "" {
			continue
		}
		entries = append(entries, TemplateEntry{Column: cell.Column, SystemField: c.Field})
	}
	return entries
}

// firstNonEmpty returns the normalized value of the first column classifying
// to the given core field with a usable value.
func firstNonEmpty(row Row, field string) string {
	for _, cell := range row {
		if c := Classify(cell.Column); !c.Core || c.Field != field {
			continue
		}
		if cell.Value == nil {
			continue
		}
		if raw := valueToString(cell.Value); raw != "" {
			if normalized := NormalizeString(raw); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func nameComponent(field string) bool {
	return field == domain.FieldFirstName || field == fieldSecondName || field == domain.FieldMiddleName
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// valueToString renders a scalar cell value for core-field normalization.
func valueToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(domain.BirthdayFormat)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// sanitizeDynamicValue coerces an arbitrary cell value into something
// JSON-serializable. It never fails: values with no better representation
// degrade to their type name.
func sanitizeDynamicValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return val.String()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeDynamicValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitizeDynamicValue(item)
		}
		return out
	default:
		// Structs and friends: keep whatever JSON shape they have.
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%T", val)
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Sprintf("%T", val)
		}
		return decoded
	}
}

func validatePayloadSize(dynamic map[string]any) (int, error) {
	raw, err := json.Marshal(dynamic)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeValidation, "dynamic attributes are not JSON-serializable")
	}
	if len(raw) > MaxDynamicPayloadBytes {
		return 0, domainerrors.Newf(domainerrors.CodeValidation,
			"dynamic attributes exceed maximum size (65KB): current size %d bytes", len(raw))
	}
	return len(raw), nil
}
