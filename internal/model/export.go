package model

import "time"

// ResultsExport is the top-level JSON structure for exam result export.
type ResultsExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	UserID      int64           `json:"user_id,omitempty"`
	Count       int             `json:"count"`
	Results     []ResultSummary `json:"results"`
}
