package types

import (
	"context"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

// Core interfaces

// EmbeddingBackend turns a single text into a raw vector. Backends do not
// retry and do not enforce dimensionality; the embedding generator does.
type EmbeddingBackend interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReferenceHit is one scored entry of the reference corpus.
type ReferenceHit struct {
	ID           string
	Text         string
	Category     models.Category
	DocumentType string
	Source       string
	Score        float64
}

// VectorIndex is a read-only k-NN view over the reference corpus. Hits are
// restricted to the given categories and ordered by descending score, ties
// in insertion order.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, categories []models.Category, k int) ([]ReferenceHit, error)
	Close()
}
