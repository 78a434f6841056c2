package core

// Batch status values.
const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// BatchRequest is the body of POST /v1/batches.
type BatchRequest struct {
	Records  []ClassifyRequest `json:"records"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Batch is a persisted run over a set of records.
type Batch struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	Source      string            `json:"source,omitempty"`
	Status      string            `json:"status"`
	CreatedAt   int64             `json:"created_at"`
	CompletedAt *int64            `json:"completed_at,omitempty"`
	Summary     BatchSummary      `json:"summary"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Results     []ClassifyResult  `json:"results,omitempty"`
}

// BatchSummary aggregates verdicts over a batch.
type BatchSummary struct {
	Total         int            `json:"total"`
	PII           int            `json:"pii"`
	ParseFailures int            `json:"parse_failures"`
	Errors        int            `json:"errors"`
	CacheHits     int            `json:"cache_hits"`
	Detections    map[string]int `json:"detections,omitempty"`
}

// BatchListResponse is returned by GET /v1/batches.
type BatchListResponse struct {
	Object  string  `json:"object"`
	Data    []Batch `json:"data"`
	HasMore bool    `json:"has_more"`
	FirstID string  `json:"first_id,omitempty"`
	LastID  string  `json:"last_id,omitempty"`
}
