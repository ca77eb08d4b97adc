package domain

import "time"

// QueryAnsweredEvent is the analytics payload published after each answered
// query, consumed by the external dashboard service.
type QueryAnsweredEvent struct {
	QueryID           string            `json:"query_id"`
	Question          string            `json:"question"`
	Confidence        ConfidenceLevel   `json:"confidence"`
	CitationCount     int               `json:"citation_count"`
	CitationCoverage  float64           `json:"citation_coverage"`
	HallucinationRisk HallucinationRisk `json:"hallucination_risk,omitempty"`
	DurationMs        float64           `json:"duration_ms"`
	AnsweredAt        time.Time         `json:"answered_at"`
}

// QueryLogEntry is the audit record persisted per answered query.
type QueryLogEntry struct {
	ID                string
	Question          string
	Answer            string
	Confidence        ConfidenceLevel
	ConfidenceNumeric float64
	CitationCount     int
	CitationCoverage  float64
	HallucinationRisk HallucinationRisk
	DurationMs        float64
	CreatedAt         time.Time
}
