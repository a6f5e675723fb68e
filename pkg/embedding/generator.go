// Package embedding turns clause text into fixed-dimension vectors.
//
// A Generator wraps exactly one backend for the lifetime of the process. It
// owns the numeric contract (dimension, normalization, finiteness) and
// converts every backend failure into the empty embedding, so a single slow
// or broken call never aborts a batch. Retry policy belongs to the caller.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/types"
)

// GeneratorConfig fixes the numeric contract of a Generator.
type GeneratorConfig struct {
	Dimension int
	// Normalize L2-normalizes every vector. Live backends are required to
	// return unit vectors; the offline hash backend is not normalized.
	Normalize bool
	// Timeout bounds each backend call. Zero disables the bound.
	Timeout time.Duration
	// RateLimit caps backend calls per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

type Generator struct {
	config  GeneratorConfig
	backend types.EmbeddingBackend
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewGenerator(backend types.EmbeddingBackend, config GeneratorConfig, logger *zap.Logger) (*Generator, error) {
	if backend == nil {
		return nil, fmt.Errorf("embedding: backend is nil")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", config.Dimension)
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("embedding: rate limit cannot be negative")
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Generator{
		config:  config,
		backend: backend,
		logger:  logger.With(zap.String("embedding_backend", backend.Name())),
	}
	if config.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}
	return g, nil
}

func (g *Generator) Dimension() int { return g.config.Dimension }

func (g *Generator) Backend() string { return g.backend.Name() }

// Embed returns the embedding of text, or the empty embedding if text is
// blank or the backend fails in any way.
func (g *Generator) Embed(ctx context.Context, text string) models.Embedding {
	if strings.TrimSpace(text) == "" {
		return models.Embedding{}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.logger.Warn("embedding rate limiter aborted", zap.Error(err))
			return models.Embedding{}
		}
	}

	callCtx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	raw, err := g.backend.Embed(callCtx, text)
	if err != nil {
		g.logger.Warn("embedding backend call failed", zap.Error(err))
		return models.Embedding{}
	}

	vec, err := g.check(raw)
	if err != nil {
		g.logger.Warn("embedding backend returned an unusable vector", zap.Error(err))
		return models.Embedding{}
	}

	return models.Embedding{
		Vector:     vec,
		Dimension:  g.config.Dimension,
		Normalized: g.config.Normalize,
	}
}

// Close releases backend resources, if the backend holds any.
func (g *Generator) Close() error {
	if c, ok := g.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (g *Generator) check(raw []float32) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	if len(raw) != g.config.Dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(raw), g.config.Dimension)
	}

	vec := make([]float32, len(raw))
	var sum float64
	for i, v := range raw {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite component at %d", i)
		}
		vec[i] = v
		sum += f * f
	}

	if !g.config.Normalize {
		return vec, nil
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("zero-magnitude vector cannot be normalized")
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
