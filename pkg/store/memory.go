package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/types"
)

// MemoryIndex is a brute-force cosine index over an in-memory corpus.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []Reference
	byID    map[string]int
}

func NewMemoryIndex(dim int) (*MemoryIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("memory index: dimension must be positive, got %d", dim)
	}
	return &MemoryIndex{dim: dim, byID: make(map[string]int)}, nil
}

// Add inserts refs. A reference whose id already exists replaces the stored
// entry but keeps its original position.
func (m *MemoryIndex) Add(_ context.Context, refs []Reference) error {
	for _, ref := range refs {
		if err := ref.validate(m.dim); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range refs {
		ref.Vector = append([]float32(nil), ref.Vector...)
		if i, ok := m.byID[ref.ID]; ok {
			m.entries[i] = ref
			continue
		}
		m.byID[ref.ID] = len(m.entries)
		m.entries = append(m.entries, ref)
	}
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, categories []models.Category, k int) ([]types.ReferenceHit, error) {
	if k <= 0 || len(categories) == 0 {
		return nil, nil
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("memory index: query has %d components, want %d", len(vector), m.dim)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]types.ReferenceHit, 0, len(m.entries))
	for _, ref := range m.entries {
		if !contains(categories, ref.Category) {
			continue
		}
		hits = append(hits, types.ReferenceHit{
			ID:           ref.ID,
			Text:         ref.Text,
			Category:     ref.Category,
			DocumentType: ref.DocumentType,
			Source:       ref.Source,
			Score:        CosineSimilarity(vector, ref.Vector),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Close() {}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func contains(categories []models.Category, c models.Category) bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}
