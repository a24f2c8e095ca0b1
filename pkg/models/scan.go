package models

import "time"

// Severity tiers for a detection.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Scan lifecycle states.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Match records one indicator rule firing inside a content item.
type Match struct {
	Match    string `json:"match"`
	Category string `json:"category"`
	Weight   int    `json:"weight"`
}

// Detection is one suspicious content item surfaced by a scan.
type Detection struct {
	ID       int     `json:"id"`
	Severity string  `json:"severity"`
	Source   string  `json:"source"`
	ItemType string  `json:"itemType"`
	Content  string  `json:"content"`
	Score    int     `json:"score"`
	Matches  []Match `json:"matches"`
}

// ScanSummary counts detections per severity tier.
type ScanSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// ScanResult is the terminal record of one scan invocation.
type ScanResult struct {
	ScanID     string      `json:"scanId"`
	Timestamp  time.Time   `json:"timestamp"`
	Tenant     string      `json:"tenant"`
	Status     string      `json:"status"`
	Summary    ScanSummary `json:"summary"`
	Detections []Detection `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

// SeverityForScore maps a normalized 0-100 score to a severity tier.
// Zero-score items are dropped by callers before this is consulted.
func SeverityForScore(score int) string {
	switch {
	case score > 70:
		return SeverityHigh
	case score > 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
