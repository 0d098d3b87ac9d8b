package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/potchii/data-match-system-sub000/internal/mapping"
)

// ValidateValue checks one uploaded value against the field's declared type.
// The returned error message is written for the operator fixing the source
// file, not for a log.
func (f Field) ValidateValue(value any) error {
	if value == nil || value == "" {
		if f.Required {
			return fmt.Errorf("the field '%s' is required and cannot be empty; please provide a value", f.Name)
		}
		return nil
	}

	switch f.Type {
	case FieldString:
		return nil
	case FieldInteger:
		return f.validateInteger(value)
	case FieldDecimal:
		return f.validateDecimal(value)
	case FieldDate:
		return f.validateDate(value)
	case FieldBoolean:
		return f.validateBoolean(value)
	default:
		return fmt.Errorf("field type '%s' is not recognized", f.Type)
	}
}

func (f Field) validateInteger(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		if v == float64(int64(v)) {
			return nil
		}
	case float32:
		if v == float32(int64(v)) {
			return nil
		}
	case string:
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return nil
		}
	}
	return fmt.Errorf("the field '%s' must be a whole number (e.g., 1, 42, 100); decimal values are not allowed", f.Name)
}

func (f Field) validateDecimal(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	case string:
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return nil
		}
	}
	return fmt.Errorf("the field '%s' must be a number (e.g., 3.14, 42, 0.5); please enter a valid numeric value", f.Name)
}

func (f Field) validateDate(value any) error {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	if _, ok := mapping.ParseDate(s); ok {
		return nil
	}
	return fmt.Errorf("the field '%s' must be a valid date (e.g., 2024-01-15 or 01/15/2024); the value '%s' could not be recognized as a date", f.Name, s)
}

func (f Field) validateBoolean(value any) error {
	if _, ok := value.(bool); ok {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(fmt.Sprint(value)))
	switch normalized {
	case "true", "1", "yes", "y", "false", "0", "no", "n":
		return nil
	}
	return fmt.Errorf("the field '%s' must be a yes/no value; accepted values: 'true', 'false', 'yes', 'no', '1', '0', 'y', or 'n'", f.Name)
}

// Validate checks the template's structural integrity: a name, at least one
// mapping, well-formed field names, and known field types.
func (t *ColumnMappingTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Mappings) == 0 {
		return fmt.Errorf("template must declare at least one column mapping")
	}
	for _, m := range t.Mappings {
		if m.Column == "" || m.SystemField == "" {
			return fmt.Errorf("template mappings must pair a column name with a system field")
		}
	}
	for _, f := range t.Fields {
		if !mapping.IsValidFieldName(f.Name) {
			return fmt.Errorf("field name '%s' may only contain letters, digits, and underscores", f.Name)
		}
		if !ValidFieldType(f.Type) {
			return fmt.Errorf("field '%s' has unknown type '%s'", f.Name, f.Type)
		}
	}
	return nil
}
