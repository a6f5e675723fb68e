// Package pipeline orchestrates one contract's clauses through embedding,
// retrieval and comparison, and assembles the RAG context handed to the
// reasoning layer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/category"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/retriever"
)

const (
	DefaultConcurrency  = 8
	DefaultRetryBackoff = 200 * time.Millisecond
)

// Embedder is satisfied by *embedding.Generator.
type Embedder interface {
	Embed(ctx context.Context, text string) models.Embedding
}

// Searcher is satisfied by *retriever.Retriever.
type Searcher interface {
	Search(ctx context.Context, query models.Embedding, c models.Category, corpusContext string) retriever.Outcome
}

// Comparer is satisfied by *comparator.Comparator.
type Comparer interface {
	Compare(embedded []models.EmbeddedClause, similar []models.SimilarClause) models.ComparisonResult
}

type Config struct {
	// Concurrency caps the embed and search worker pools.
	Concurrency int
	// Live enables retries of failed embeddings. Offline embeddings cannot
	// fail transiently.
	Live         bool
	MaxRetries   int
	RetryBackoff time.Duration
}

type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMapper(mapper *category.Mapper) Option {
	return func(p *Pipeline) {
		if mapper != nil {
			p.mapper = mapper
		}
	}
}

type Pipeline struct {
	config   Config
	embedder Embedder
	searcher Searcher
	comparer Comparer
	mapper   *category.Mapper
	logger   *zap.Logger
}

func New(embedder Embedder, searcher Searcher, comparer Comparer, config Config, opts ...Option) (*Pipeline, error) {
	if embedder == nil || searcher == nil || comparer == nil {
		return nil, fmt.Errorf("pipeline: embedder, searcher and comparer are required")
	}
	if config.Concurrency == 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.Concurrency < 0 {
		return nil, fmt.Errorf("pipeline: concurrency must be positive, got %d", config.Concurrency)
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("pipeline: max retries cannot be negative")
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}

	p := &Pipeline{
		config:   config,
		embedder: embedder,
		searcher: searcher,
		comparer: comparer,
		mapper:   category.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run returns the RAG context for records. documentCategory is passed to
// retrieval as corpus context.
func (p *Pipeline) Run(ctx context.Context, records []models.ClauseRecord, documentCategory string) (*models.RAGContext, error) {
	analysis, err := p.Analyze(ctx, records, documentCategory)
	if err != nil {
		return nil, err
	}
	return analysis.RAGContext, nil
}

// Process runs a whole document and wraps the outcome in an envelope. On
// failure both the error envelope and the error are returned.
func (p *Pipeline) Process(ctx context.Context, doc models.Document) (*models.Envelope, error) {
	start := time.Now()
	analysis, err := p.Analyze(ctx, doc.Clauses, doc.CategoryHint())
	if err != nil {
		p.logger.Error("pipeline run failed",
			zap.String("error_kind", string(KindOf(err))),
			zap.String("stage", StageOf(err)),
			zap.Error(err),
		)
		return ErrorEnvelope(err), err
	}

	p.logger.Info("pipeline run completed",
		zap.Int("clauses", len(doc.Clauses)),
		zap.Int("embedded", analysis.EmbeddedClausesCount),
		zap.Int("similar_found", analysis.SimilarClausesFound),
		zap.Int("searches_unavailable", analysis.Diagnostics.SearchesUnavailable),
		zap.Duration("duration", time.Since(start)),
	)
	return &models.Envelope{
		Success:   true,
		AgentType: models.AgentType,
		Analysis:  analysis,
	}, nil
}

// ErrorEnvelope converts a pipeline failure into its envelope.
func ErrorEnvelope(err error) *models.Envelope {
	return &models.Envelope{
		Success:   false,
		AgentType: models.AgentType,
		Error:     err.Error(),
		ErrorKind: string(KindOf(err)),
		Stage:     StageOf(err),
	}
}

// Analyze runs every stage and reports counts and diagnostics alongside the
// RAG context.
func (p *Pipeline) Analyze(ctx context.Context, records []models.ClauseRecord, documentCategory string) (*models.Analysis, error) {
	if len(records) == 0 {
		return nil, &Error{Kind: KindInput, Stage: StageValidation, Message: "clause list is empty", Err: ErrNoClauses}
	}

	var diag models.Diagnostics
	clauses, skipped := p.canonicalize(records)
	diag.SkippedEmpty = skipped

	embedded, failures, err := p.embedAll(ctx, clauses)
	if err != nil {
		return nil, err
	}
	diag.EmbeddingFailures = failures

	similar, unavailable, err := p.searchAll(ctx, embedded, documentCategory)
	if err != nil {
		return nil, err
	}
	diag.SearchesUnavailable = unavailable

	comparison, err := p.compare(embedded, similar)
	if err != nil {
		return nil, err
	}

	summary, err := summarize(embedded, similar, comparison)
	if err != nil {
		return nil, err
	}

	return &models.Analysis{
		EmbeddedClausesCount: len(embedded),
		SimilarClausesFound:  len(similar),
		RAGContext: &models.RAGContext{
			EmbeddedClauses: embedded,
			SimilarClauses:  similar,
			Comparison:      comparison,
			Summary:         summary,
		},
		Diagnostics: diag,
	}, nil
}

// canonicalize resolves labels and ids and drops clauses whose text is
// blank. Ids default to CL-<position> in the original list.
func (p *Pipeline) canonicalize(records []models.ClauseRecord) ([]models.Clause, int) {
	clauses := make([]models.Clause, 0, len(records))
	skipped := 0
	for i, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = fmt.Sprintf("CL-%d", i+1)
		}
		if strings.TrimSpace(rec.Text) == "" {
			skipped++
			p.logger.Warn("dropping clause with empty text",
				zap.String("clause_id", id), zap.String("stage", StageValidation))
			continue
		}
		clauses = append(clauses, models.Clause{
			ID:         id,
			Title:      rec.Title,
			Text:       rec.Text,
			Category:   p.mapper.Canonical(rec.Type),
			Importance: category.Importance(rec.Importance),
			Parties:    rec.Parties,
		})
	}
	return clauses, skipped
}

func (p *Pipeline) workers(n int) int {
	if n < p.config.Concurrency {
		if n == 0 {
			return 1
		}
		return n
	}
	return p.config.Concurrency
}

func (p *Pipeline) embedAll(ctx context.Context, clauses []models.Clause) ([]models.EmbeddedClause, int, error) {
	results := make([]models.Embedding, len(clauses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers(len(clauses)))
	for i := range clauses {
		g.Go(func() (err error) {
			defer recoverStage(StageEmbedding, &err)
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.embed(gctx, clauses[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, stageError(StageEmbedding, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, stageError(StageEmbedding, err)
	}

	embedded := make([]models.EmbeddedClause, 0, len(clauses))
	failures := 0
	for i, emb := range results {
		if emb.Empty() {
			failures++
			p.logger.Warn("dropping clause that could not be embedded",
				zap.String("clause_id", clauses[i].ID), zap.String("stage", StageEmbedding))
			continue
		}
		embedded = append(embedded, models.EmbeddedClause{Clause: clauses[i], Embedding: emb})
	}
	return embedded, failures, nil
}

// embed calls the embedder, retrying empty results with exponential backoff
// in live mode.
func (p *Pipeline) embed(ctx context.Context, c models.Clause) models.Embedding {
	attempts := 1
	if p.config.Live {
		attempts += p.config.MaxRetries
	}

	backoff := p.config.RetryBackoff
	for attempt := 1; ; attempt++ {
		emb := p.embedder.Embed(ctx, c.Text)
		if !emb.Empty() || attempt >= attempts {
			return emb
		}

		p.logger.Debug("retrying embedding",
			zap.String("clause_id", c.ID), zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return models.Embedding{}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (p *Pipeline) searchAll(ctx context.Context, embedded []models.EmbeddedClause, documentCategory string) ([]models.SimilarClause, int, error) {
	outcomes := make([]retriever.Outcome, len(embedded))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers(len(embedded)))
	for i := range embedded {
		g.Go(func() (err error) {
			defer recoverStage(StageRetrieval, &err)
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.searcher.Search(gctx, embedded[i].Embedding, embedded[i].Category, documentCategory)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, stageError(StageRetrieval, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, stageError(StageRetrieval, err)
	}

	similar := make([]models.SimilarClause, 0, len(embedded))
	unavailable := 0
	for i, out := range outcomes {
		if out.Unavailable() {
			unavailable++
			p.logger.Warn("reference search unavailable",
				zap.String("clause_id", embedded[i].ID), zap.String("stage", StageRetrieval), zap.Error(out.Err))
			continue
		}
		for _, c := range out.Candidates {
			if err := validateCandidate(c); err != nil {
				return nil, 0, &Error{
					Kind:    KindInternal,
					Stage:   StageRetrieval,
					Message: fmt.Sprintf("malformed candidate for clause %s", embedded[i].ID),
					Err:     err,
				}
			}
			similar = append(similar, c)
		}
	}
	return similar, unavailable, nil
}

func validateCandidate(c models.SimilarClause) error {
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("candidate has no text")
	}
	if math.IsNaN(c.SimilarityScore) || math.IsInf(c.SimilarityScore, 0) {
		return fmt.Errorf("candidate score %v is not finite", c.SimilarityScore)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("candidate has unknown category %q", c.Category)
	}
	return nil
}

func (p *Pipeline) compare(embedded []models.EmbeddedClause, similar []models.SimilarClause) (result models.ComparisonResult, err error) {
	defer recoverStage(StageComparison, &err)
	return p.comparer.Compare(embedded, similar), nil
}

func summarize(embedded []models.EmbeddedClause, similar []models.SimilarClause, comparison models.ComparisonResult) (summary string, err error) {
	defer recoverStage(StageSummary, &err)
	return buildSummary(embedded, similar, comparison), nil
}

func recoverStage(stage string, err *error) {
	if r := recover(); r != nil {
		*err = &Error{Kind: KindInternal, Stage: stage, Message: fmt.Sprintf("panic: %v", r)}
	}
}

func stageError(stage string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindBackend, Stage: stage, Message: "run aborted before completion", Err: err}
	}
	return &Error{Kind: KindInternal, Stage: stage, Message: "unexpected failure", Err: err}
}
