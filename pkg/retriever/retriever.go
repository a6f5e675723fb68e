// Package retriever finds reference clauses similar to an embedded clause.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/types"
)

const (
	DefaultTopK = 5

	// Synthetic candidates stand in for the reference corpus when no index is
	// configured.
	SyntheticText   = "بند مشابه من عقد سابق"
	SyntheticSource = "عقد مرجعي"
	syntheticScale  = 0.9
	syntheticEmpty  = 0.5
)

type Status int

const (
	StatusOK Status = iota
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of one search. Candidates is empty both when nothing
// matched and when the backend was unavailable; Status tells them apart.
type Outcome struct {
	Status     Status
	Candidates []models.SimilarClause
	Err        error
}

func (o Outcome) Unavailable() bool { return o.Status == StatusUnavailable }

type Config struct {
	// TopK is fixed for the lifetime of the retriever.
	TopK int
	// CatchAll is eligible for every query in addition to the query category.
	CatchAll models.Category
	// Timeout bounds each backend search. Zero disables the bound.
	Timeout time.Duration
}

type Retriever struct {
	config Config
	index  types.VectorIndex
	logger *zap.Logger
}

// New returns a Retriever over index. A nil index puts the retriever in
// synthetic mode.
func New(index types.VectorIndex, config Config, logger *zap.Logger) (*Retriever, error) {
	if config.TopK == 0 {
		config.TopK = DefaultTopK
	}
	if config.TopK < 0 {
		return nil, fmt.Errorf("retriever: top_k must be positive, got %d", config.TopK)
	}
	if config.CatchAll == "" {
		config.CatchAll = models.CategoryGeneral
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{config: config, index: index, logger: logger}, nil
}

func (r *Retriever) TopK() int { return r.config.TopK }

func (r *Retriever) Synthetic() bool { return r.index == nil }

// Search returns up to TopK reference clauses whose category is either the
// query category or the catch-all, by descending similarity.
func (r *Retriever) Search(ctx context.Context, query models.Embedding, category models.Category, corpusContext string) Outcome {
	if r.index == nil {
		return Outcome{Status: StatusOK, Candidates: []models.SimilarClause{synthetic(query, category, corpusContext)}}
	}
	if query.Empty() {
		return Outcome{Status: StatusOK, Candidates: []models.SimilarClause{}}
	}

	callCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	hits, err := r.index.Search(callCtx, query.Vector, r.filter(category), r.config.TopK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("search timed out after %s: %w", r.config.Timeout, err)
		}
		r.logger.Warn("reference search unavailable", zap.String("category", string(category)), zap.Error(err))
		return Outcome{Status: StatusUnavailable, Candidates: []models.SimilarClause{}, Err: err}
	}

	candidates := make([]models.SimilarClause, 0, len(hits))
	for _, h := range hits {
		if len(candidates) == r.config.TopK {
			break
		}
		if h.Category != category && h.Category != r.config.CatchAll {
			r.logger.Warn("dropping hit outside the category filter",
				zap.String("id", h.ID), zap.String("category", string(h.Category)))
			continue
		}
		candidates = append(candidates, models.SimilarClause{
			Text:            h.Text,
			Category:        h.Category,
			DocumentType:    h.DocumentType,
			SimilarityScore: h.Score,
			SourceReference: h.Source,
		})
	}
	return Outcome{Status: StatusOK, Candidates: candidates}
}

func (r *Retriever) filter(category models.Category) []models.Category {
	if category == r.config.CatchAll {
		return []models.Category{category}
	}
	return []models.Category{category, r.config.CatchAll}
}

func (r *Retriever) Close() {
	if r.index != nil {
		r.index.Close()
	}
}

func synthetic(query models.Embedding, category models.Category, corpusContext string) models.SimilarClause {
	first := syntheticEmpty
	if !query.Empty() {
		first = float64(query.Vector[0])
	}
	return models.SimilarClause{
		Text:            SyntheticText,
		Category:        category,
		DocumentType:    corpusContext,
		SimilarityScore: math.Round(first*syntheticScale*1000) / 1000,
		SourceReference: SyntheticSource,
	}
}
