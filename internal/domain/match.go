package domain

import "time"

// MatchStatus is the operator-facing verdict for one uploaded row.
type MatchStatus string

const (
	StatusMatched           MatchStatus = "MATCHED"
	StatusPossibleDuplicate MatchStatus = "POSSIBLE DUPLICATE"
	StatusNewRecord         MatchStatus = "NEW RECORD"
)

// FieldComparison records one core field's audit comparison between the
// uploaded row and the matched registry record.
type FieldComparison struct {
	Status   string `json:"status"` // "match" or "mismatch"
	Uploaded any    `json:"uploaded"`
	Existing any    `json:"existing"`
}

// FieldBreakdown is the field-by-field audit trail backing a confidence
// score. Only fields the uploaded row supplied are compared.
type FieldBreakdown struct {
	TotalFields   int                        `json:"total_fields"`
	MatchedFields int                        `json:"matched_fields"`
	Fields        map[string]FieldComparison `json:"fields"`
}

// MatchVerdict is the transient outcome of evaluating one uploaded row
// against the candidate pool. MatchedUID is empty iff Status is
// StatusNewRecord. Confidence is the scorer's percentage; RuleConfidence is
// the firing rule's advisory tier. Both are exposed because the audit layer
// displays the scorer's number while the rule tier explains the decision.
type MatchVerdict struct {
	Status         MatchStatus     `json:"status"`
	Confidence     float64         `json:"confidence"`
	RuleConfidence float64         `json:"rule_confidence"`
	MatchedUID     string          `json:"matched_uid,omitempty"`
	RuleName       string          `json:"rule_name,omitempty"`
	Breakdown      *FieldBreakdown `json:"field_breakdown,omitempty"`
}

// MatchResult is the persisted audit record for one processed row.
type MatchResult struct {
	ID                 string          `json:"id"`
	BatchID            string          `json:"batch_id"`
	UploadedRecordID   string          `json:"uploaded_record_id"`
	UploadedLastName   string          `json:"uploaded_last_name"`
	UploadedFirstName  string          `json:"uploaded_first_name"`
	UploadedMiddleName string          `json:"uploaded_middle_name,omitempty"`
	Status             MatchStatus     `json:"match_status"`
	Confidence         float64         `json:"confidence_score"`
	MatchedUID         string          `json:"matched_system_id,omitempty"`
	RuleName           string          `json:"rule_name,omitempty"`
	Breakdown          *FieldBreakdown `json:"field_breakdown,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
