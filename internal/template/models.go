package template

import (
	"strings"
	"time"

	"github.com/potchii/data-match-system-sub000/internal/mapping"
)

// FieldType enumerates the typed custom-field declarations a template may
// carry.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldDecimal FieldType = "decimal"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
)

// ValidFieldType reports whether t is one of the declared types.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldString, FieldInteger, FieldDecimal, FieldDate, FieldBoolean:
		return true
	}
	return false
}

// Field is one typed custom-field declaration on a template.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Mapping is one ordered external-column -> system-field pair.
type Mapping struct {
	Column      string `json:"column"`
	SystemField string `json:"system_field"`
}

// ColumnMappingTemplate pre-remaps arbitrary spreadsheet headers onto system
// field names before the generic classifier runs. Consumed read-only by the
// import path.
type ColumnMappingTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mappings  []Mapping `json:"mappings"`
	Fields    []Field   `json:"fields,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyTo remaps a raw row through the template: mapped columns are renamed
// to their system fields (values copied verbatim, empties included), declared
// custom fields pass through, and everything else is dropped. Template
// entries with no matching row column are skipped silently.
func (t *ColumnMappingTemplate) ApplyTo(row mapping.Row) mapping.Row {
	if t == nil {
		return row
	}
	entries := make([]mapping.TemplateEntry, len(t.Mappings))
	for i, m := range t.Mappings {
		entries[i] = mapping.TemplateEntry{Column: m.Column, SystemField: m.SystemField}
	}
	passthrough := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		passthrough[i] = f.Name
	}
	return mapping.ApplyTemplate(row, entries, passthrough)
}

// ExpectedColumns returns every column name the template expects in an
// uploaded file: the external mapping columns plus declared custom fields.
func (t *ColumnMappingTemplate) ExpectedColumns() []string {
	out := make([]string, 0, len(t.Mappings)+len(t.Fields))
	for _, m := range t.Mappings {
		out = append(out, m.Column)
	}
	for _, f := range t.Fields {
		out = append(out, f.Name)
	}
	return out
}

// ColumnValidation reports how an uploaded file's header row compares to the
// template's expectations.
type ColumnValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Expected []string `json:"expected"`
	Missing  []string `json:"missing,omitempty"`
	Extra    []string `json:"extra,omitempty"`
}

// ValidateFileColumns compares file headers to expected columns,
// case-insensitively, and produces operator-readable errors for mismatches.
func (t *ColumnMappingTemplate) ValidateFileColumns(fileColumns []string) ColumnValidation {
	expected := t.ExpectedColumns()
	expectedSet := lowerSet(expected)
	fileSet := lowerSet(fileColumns)

	v := ColumnValidation{Expected: expected}
	seen := make(map[string]bool)
	for _, raw := range expected {
		col := strings.ToLower(raw)
		if !fileSet[col] && !seen[col] {
			seen[col] = true
			v.Missing = append(v.Missing, col)
			v.Errors = append(v.Errors,
				"Required column '"+col+"' is missing from your file. Please add this column to proceed.")
		}
	}
	seen = make(map[string]bool)
	for _, raw := range fileColumns {
		col := strings.ToLower(raw)
		if !expectedSet[col] && !seen[col] {
			seen[col] = true
			v.Extra = append(v.Extra, col)
			v.Errors = append(v.Errors,
				"Column '"+col+"' is not expected in this template. Please remove it or update your template.")
		}
	}
	v.Valid = len(v.Errors) == 0
	return v
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
