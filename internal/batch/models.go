package batch

import "time"

// Status tracks an upload batch through its lifecycle.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Counters summarize how a batch's rows were resolved.
type Counters struct {
	TotalRows  int `json:"total_rows"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	NewRecords int `json:"new_records"`
	Matched    int `json:"matched"`
	Failed     int `json:"failed"`
}

// UploadBatch is the bookkeeping entity for one import run.
type UploadBatch struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	TemplateID string    `json:"template_id,omitempty"`
	Status     Status    `json:"status"`
	Counters   Counters  `json:"counters"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
