package core

// ClassifyRequest is one record submitted for classification.
type ClassifyRequest struct {
	RecordID string `json:"record_id,omitempty"`
	Data     Record `json:"data"`
}

// ClassifyResult is the masked record plus its verdict.
type ClassifyResult struct {
	RecordID     string         `json:"record_id"`
	RedactedData RedactedRecord `json:"redacted_data"`
	IsPII        bool           `json:"is_pii"`
	Detections   map[string]int `json:"detections,omitempty"`
	WeakSignals  []string       `json:"weak_signals,omitempty"`
	ParseFailed  bool           `json:"parse_failed,omitempty"`
	Cached       bool           `json:"cached,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// VerdictString renders a verdict the way dataset output expects it.
func VerdictString(isPII bool) string {
	if isPII {
		return "True"
	}
	return "False"
}
