package audit

import "time"

// Action names the auditable outcomes of the import pipeline.
const (
	ActionRecordCreated = "record.created"
	ActionRecordMatched = "record.matched"
	ActionRowSkipped    = "row.skipped"
	ActionRowFailed     = "row.failed"
	ActionBatchStarted  = "batch.started"
	ActionBatchFinished = "batch.finished"
)

// Event is one audit trail entry. Events are facts about what the pipeline
// did, keyed by batch so consumers can reassemble a run in order.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	BatchID    string    `json:"batch_id"`
	RowIndex   int       `json:"row_index,omitempty"`
	RecordUID  string    `json:"record_uid,omitempty"`
	MatchedUID string    `json:"matched_uid,omitempty"`
	RuleName   string    `json:"rule_name,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
