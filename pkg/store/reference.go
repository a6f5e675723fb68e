// Package store holds the reference corpus backends searched by the
// retriever: a pgvector table and an in-memory brute-force index.
package store

import (
	"context"
	"fmt"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

// Reference is one clause of the reference corpus together with its vector.
type Reference struct {
	ID           string
	Text         string
	Category     models.Category
	DocumentType string
	Source       string
	Vector       []float32
}

// Sink accepts reference clauses. Both backends implement it.
type Sink interface {
	Add(ctx context.Context, refs []Reference) error
}

func (r Reference) validate(dim int) error {
	if r.ID == "" {
		return fmt.Errorf("reference clause has no id")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("reference clause %s: unknown category %q", r.ID, r.Category)
	}
	if len(r.Vector) != dim {
		return fmt.Errorf("reference clause %s: vector has %d components, want %d", r.ID, len(r.Vector), dim)
	}
	return nil
}

func categoryStrings(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
