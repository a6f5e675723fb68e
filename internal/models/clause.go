package models

import (
	"encoding/json"
	"fmt"
)

// Category is a canonical clause category used to scope retrieval.
type Category string

const (
	CategorySalary       Category = "salary"
	CategoryWorkingHours Category = "working_hours"
	CategoryDuration     Category = "contract_duration"
	CategoryTermination  Category = "termination"
	CategoryObligations  Category = "obligations"
	// CategoryGeneral is the catch-all category. Reference clauses stored
	// under it are eligible for every query.
	CategoryGeneral Category = "general"
)

var knownCategories = []Category{
	CategorySalary,
	CategoryWorkingHours,
	CategoryDuration,
	CategoryTermination,
	CategoryObligations,
	CategoryGeneral,
}

// Categories returns every canonical category in declaration order.
func Categories() []Category {
	out := make([]Category, len(knownCategories))
	copy(out, knownCategories)
	return out
}

func (c Category) Valid() bool {
	for _, k := range knownCategories {
		if c == k {
			return true
		}
	}
	return false
}

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

func (i Importance) Valid() bool {
	return i == ImportanceHigh || i == ImportanceMedium || i == ImportanceLow
}

// Parties is the ordered list of parties mentioned by a clause. On input it
// also accepts a single string, which the extraction service emits for
// single-party clauses.
type Parties []string

func (p *Parties) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}

	var single *string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("parties_mentioned: %w", err)
	}
	if single == nil {
		*p = nil
		return nil
	}
	*p = Parties{*single}
	return nil
}

func (p Parties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

// Clause is a canonicalized contract clause. It is never mutated once it
// enters the pipeline.
type Clause struct {
	ID         string     `json:"clause_id"`
	Title      string     `json:"clause_title,omitempty"`
	Text       string     `json:"clause_text"`
	Category   Category   `json:"clause_type"`
	Importance Importance `json:"importance"`
	Parties    Parties    `json:"parties_mentioned"`
}

// Embedding is a fixed-dimension vector derived from a clause text. A
// zero-length Vector signals that the embedding could not be produced.
type Embedding struct {
	Vector     []float32 `json:"vector"`
	Dimension  int       `json:"dimension"`
	Normalized bool      `json:"normalized"`
}

func (e Embedding) Empty() bool {
	return len(e.Vector) == 0
}

type EmbeddedClause struct {
	Clause
	Embedding Embedding `json:"embedding"`
}

// SimilarClause is a reference clause returned by the retriever.
type SimilarClause struct {
	Text            string   `json:"clause_text"`
	Category        Category `json:"clause_type"`
	DocumentType    string   `json:"document_type"`
	SimilarityScore float64  `json:"similarity_score"`
	SourceReference string   `json:"source_contract"`
}
