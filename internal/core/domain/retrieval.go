package domain

// SearchFilter narrows retrieval to records whose payload matches the given
// equality constraints. Empty fields are ignored.
type SearchFilter struct {
	DocumentType string
}

func (f SearchFilter) IsZero() bool {
	return f.DocumentType == ""
}

// CorpusRecord is one indexed document as loaded from the vector store at
// startup. Read-only for the process lifetime.
type CorpusRecord struct {
	ID         string
	Text       string
	Citation   string
	CitationID string
	Metadata   map[string]any
}

// SearchResult is a single ranked retrieval candidate. Values are never
// mutated after creation; re-scoring stages produce new values.
type SearchResult struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Citation   string         `json:"citation"`
	CitationID string         `json:"citation_id"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Citation is the numbered handle the generator and validator use to refer
// to a piece of evidence. Numbers are 1-indexed and positional.
type Citation struct {
	Number     int            `json:"number"`
	CitationID string         `json:"citation_id"`
	Citation   string         `json:"citation"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ConfidenceLevel string

const (
	ConfidenceNone   ConfidenceLevel = "none"
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ConfidenceScore is derived from the final post-rerank result scores.
type ConfidenceScore struct {
	Numeric  float64         `json:"numeric"`
	Level    ConfidenceLevel `json:"level"`
	TopScore float64         `json:"top_score"`
	AvgScore float64         `json:"avg_score"`
}

type HallucinationRisk string

const (
	RiskLow    HallucinationRisk = "low"
	RiskMedium HallucinationRisk = "medium"
	RiskHigh   HallucinationRisk = "high"
)

// ValidationResult reports how well the generated answer is grounded in the
// retrieved citations.
type ValidationResult struct {
	IsValid           bool              `json:"is_valid"`
	CitationCoverage  float64           `json:"citation_coverage"`
	Warnings          []string          `json:"warnings,omitempty"`
	HallucinationRisk HallucinationRisk `json:"hallucination_risk"`
	MissingCitations  []int             `json:"missing_citations,omitempty"`
}

// HistoryTurn is one prior question/answer pair supplied by the caller.
// History is opaque to this core; it is only folded into the prompt.
type HistoryTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QueryRequest is the inbound shape shared by query, query-with-history and
// query-stream.
type QueryRequest struct {
	Question           string        `json:"question"`
	FilterDocumentType string        `json:"filter_document_type,omitempty"`
	TopK               int           `json:"top_k,omitempty"`
	History            []HistoryTurn `json:"history,omitempty"`
}

// QueryResponse is returned once per query and never mutated afterwards.
type QueryResponse struct {
	Answer          string            `json:"answer"`
	Citations       []Citation        `json:"citations"`
	Sources         []string          `json:"sources"`
	Confidence      ConfidenceLevel   `json:"confidence"`
	ConfidenceScore *ConfidenceScore  `json:"confidence_score,omitempty"`
	RawContext      string            `json:"raw_context,omitempty"`
	Validation      *ValidationResult `json:"validation,omitempty"`
}

type StreamEventType string

const (
	StreamEventMetadata StreamEventType = "metadata"
	StreamEventChunk    StreamEventType = "chunk"
	StreamEventDone     StreamEventType = "done"
)

// StreamEvent is one element of the query_stream sequence. Ordering is
// metadata, then zero or more chunks, then done.
type StreamEvent struct {
	Type       StreamEventType   `json:"type"`
	Citations  []Citation        `json:"citations,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
	Content    string            `json:"content,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Confidence ConfidenceLevel   `json:"confidence,omitempty"`
}
