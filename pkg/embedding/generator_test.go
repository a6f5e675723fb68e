package embedding_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAI2003/AI-Legal-Checker/pkg/embedding"
)

type stubBackend struct {
	vec   []float32
	err   error
	delay time.Duration
	calls int
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Embed(ctx context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.vec, s.err
}

func newGenerator(t *testing.T, backend *stubBackend, config embedding.GeneratorConfig) *embedding.Generator {
	t.Helper()
	g, err := embedding.NewGenerator(backend, config, nil)
	require.NoError(t, err)
	return g
}

func TestNewGeneratorValidation(t *testing.T) {
	_, err := embedding.NewGenerator(nil, embedding.GeneratorConfig{Dimension: 4}, nil)
	assert.Error(t, err)

	_, err = embedding.NewGenerator(&stubBackend{}, embedding.GeneratorConfig{}, nil)
	assert.Error(t, err)

	_, err = embedding.NewGenerator(&stubBackend{}, embedding.GeneratorConfig{Dimension: 4, RateLimit: -1}, nil)
	assert.Error(t, err)
}

func TestGeneratorEmbedFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		backend *stubBackend
	}{
		{"blank text", "   \n\t", &stubBackend{vec: []float32{1, 0, 0}}},
		{"backend error", "نص", &stubBackend{err: errors.New("throttled")}},
		{"empty vector", "نص", &stubBackend{vec: []float32{}}},
		{"dimension mismatch", "نص", &stubBackend{vec: []float32{1, 0}}},
		{"nan component", "نص", &stubBackend{vec: []float32{1, float32(math.NaN()), 0}}},
		{"inf component", "نص", &stubBackend{vec: []float32{1, float32(math.Inf(1)), 0}}},
		{"zero vector", "نص", &stubBackend{vec: []float32{0, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(t, tt.backend, embedding.GeneratorConfig{Dimension: 3, Normalize: true})
			emb := g.Embed(context.Background(), tt.text)
			assert.True(t, emb.Empty())
			assert.Len(t, emb.Vector, 0)
		})
	}
}

func TestGeneratorBlankTextSkipsBackend(t *testing.T) {
	backend := &stubBackend{vec: []float32{1, 0, 0}}
	g := newGenerator(t, backend, embedding.GeneratorConfig{Dimension: 3})
	g.Embed(context.Background(), "  ")
	assert.Equal(t, 0, backend.calls)
}

func TestGeneratorNormalizes(t *testing.T) {
	backend := &stubBackend{vec: []float32{3, 4, 0}}
	g := newGenerator(t, backend, embedding.GeneratorConfig{Dimension: 3, Normalize: true})

	emb := g.Embed(context.Background(), "clause")
	require.False(t, emb.Empty())
	assert.Equal(t, 3, emb.Dimension)
	assert.True(t, emb.Normalized)
	assert.InDelta(t, 0.6, emb.Vector[0], 1e-6)
	assert.InDelta(t, 0.8, emb.Vector[1], 1e-6)

	// the backend slice is not mutated
	assert.Equal(t, []float32{3, 4, 0}, backend.vec)
}

func TestGeneratorWithoutNormalization(t *testing.T) {
	backend := &stubBackend{vec: []float32{3, 4, 0}}
	g := newGenerator(t, backend, embedding.GeneratorConfig{Dimension: 3})

	emb := g.Embed(context.Background(), "clause")
	assert.Equal(t, []float32{3, 4, 0}, emb.Vector)
	assert.False(t, emb.Normalized)
}

func TestGeneratorTimeout(t *testing.T) {
	backend := &stubBackend{vec: []float32{1, 0, 0}, delay: time.Second}
	g := newGenerator(t, backend, embedding.GeneratorConfig{Dimension: 3, Timeout: 10 * time.Millisecond})

	start := time.Now()
	emb := g.Embed(context.Background(), "slow")
	assert.True(t, emb.Empty())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGeneratorCancelledContextWithLimiter(t *testing.T) {
	backend := &stubBackend{vec: []float32{1, 0, 0}}
	g := newGenerator(t, backend, embedding.GeneratorConfig{Dimension: 3, RateLimit: 1, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, g.Embed(ctx, "first").Empty())

	cancel()
	assert.True(t, g.Embed(ctx, "second").Empty())
}
