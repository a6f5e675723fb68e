package models

// AgentType identifies this processor in response envelopes.
const AgentType = "rag_processor"

type ClauseMatch struct {
	CurrentClauseText string   `json:"current_clause"`
	MatchedClauseText string   `json:"similar_clause"`
	SimilarityScore   float64  `json:"similarity_score"`
	Category          Category `json:"clause_type"`
}

type ComparisonResult struct {
	Matches                []ClauseMatch `json:"clause_matches"`
	UniqueClauses          []Clause      `json:"unique_clauses"`
	PotentialIssues        []string      `json:"potential_issues"`
	ImprovementSuggestions []string      `json:"improvement_suggestions"`
}

// RAGContext is the complete result of one pipeline run.
type RAGContext struct {
	EmbeddedClauses []EmbeddedClause `json:"current_clauses"`
	SimilarClauses  []SimilarClause  `json:"similar_clauses"`
	Comparison      ComparisonResult `json:"clause_comparison"`
	Summary         string           `json:"rag_summary"`
}

// Diagnostics counts the degradations absorbed during a run.
type Diagnostics struct {
	SkippedEmpty        int `json:"skipped_empty"`
	EmbeddingFailures   int `json:"embedding_failures"`
	SearchesUnavailable int `json:"searches_unavailable"`
}

type Analysis struct {
	EmbeddedClausesCount int         `json:"embedded_clauses_count"`
	SimilarClausesFound  int         `json:"similar_clauses_found"`
	RAGContext           *RAGContext `json:"rag_context"`
	Diagnostics          Diagnostics `json:"diagnostics"`
}

// Envelope is the payload handed to the reasoning layer. Exactly one of
// Analysis or Error is set.
type Envelope struct {
	Success   bool      `json:"success"`
	AgentType string    `json:"agent_type"`
	Analysis  *Analysis `json:"analysis,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Stage     string    `json:"stage,omitempty"`
}
