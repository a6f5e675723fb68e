package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/comparator"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/embedding"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/pipeline"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/retriever"
)

func offlinePipeline(t *testing.T, config pipeline.Config) *pipeline.Pipeline {
	t.Helper()

	backend, err := embedding.NewHashBackend(64)
	require.NoError(t, err)
	generator, err := embedding.NewGenerator(backend, embedding.GeneratorConfig{Dimension: 64}, nil)
	require.NoError(t, err)
	r, err := retriever.New(nil, retriever.Config{}, nil)
	require.NoError(t, err)
	c, err := comparator.New(comparator.Config{})
	require.NoError(t, err)

	p, err := pipeline.New(generator, r, c, config)
	require.NoError(t, err)
	return p
}

func record(id, text, label string) models.ClauseRecord {
	return models.ClauseRecord{ID: id, Text: text, Type: label, Importance: "عالية"}
}

func TestRunEmptyClauseList(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	rc, err := p.Run(context.Background(), nil, "عقد عمل")
	assert.Nil(t, rc)
	require.Error(t, err)
	assert.True(t, pipeline.IsInputError(err))
	assert.ErrorIs(t, err, pipeline.ErrNoClauses)
	assert.Equal(t, pipeline.KindInput, pipeline.KindOf(err))
	assert.Equal(t, pipeline.StageValidation, pipeline.StageOf(err))
}

func TestRunSingleSalaryClauseOffline(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	rc, err := p.Run(context.Background(), []models.ClauseRecord{
		record("", "يستحق الموظف راتباً شهرياً قدره 5000 ريال", "راتب"),
	}, "عقد عمل")
	require.NoError(t, err)

	require.Len(t, rc.EmbeddedClauses, 1)
	ec := rc.EmbeddedClauses[0]
	assert.Equal(t, "CL-1", ec.ID)
	assert.Equal(t, models.CategorySalary, ec.Category)
	assert.Equal(t, models.ImportanceHigh, ec.Importance)
	assert.Len(t, ec.Embedding.Vector, 64)

	require.Len(t, rc.SimilarClauses, 1)
	assert.Equal(t, models.CategorySalary, rc.SimilarClauses[0].Category)
	assert.Equal(t, "عقد عمل", rc.SimilarClauses[0].DocumentType)
	assert.Equal(t,
		math.Round(float64(ec.Embedding.Vector[0])*0.9*1000)/1000,
		rc.SimilarClauses[0].SimilarityScore)

	assert.Len(t, rc.Comparison.Matches, 1)
	assert.Empty(t, rc.Comparison.UniqueClauses)
	assert.Contains(t, rc.Summary, "عدد البنود المستخرجة: 1")
	assert.Contains(t, rc.Summary, "عدد البنود المشابهة الموجودة: 1")
}

func TestRunIdenticalClauses(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})
	text := "يلتزم الطرف الثاني بالعمل ثماني ساعات يومياً"

	rc, err := p.Run(context.Background(), []models.ClauseRecord{
		record("A", text, "ساعات_عمل"),
		record("B", text, "ساعات_عمل"),
	}, "")
	require.NoError(t, err)

	require.Len(t, rc.SimilarClauses, 2)
	assert.Equal(t, rc.SimilarClauses[0], rc.SimilarClauses[1])

	require.Len(t, rc.Comparison.Matches, 2)
	assert.Equal(t, rc.Comparison.Matches[0], rc.Comparison.Matches[1])
}

func TestRunDropsEmptyText(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	analysis, err := p.Analyze(context.Background(), []models.ClauseRecord{
		record("A", "   ", "راتب"),
		record("", "مدة العقد سنة واحدة", "مدة_عقد"),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, analysis.EmbeddedClausesCount)
	assert.Equal(t, 1, analysis.Diagnostics.SkippedEmpty)
	require.Len(t, analysis.RAGContext.EmbeddedClauses, 1)
	assert.Equal(t, "CL-2", analysis.RAGContext.EmbeddedClauses[0].ID)
	assert.Equal(t, models.CategoryDuration, analysis.RAGContext.EmbeddedClauses[0].Category)
}

func TestRunAllEmptyTexts(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	rc, err := p.Run(context.Background(), []models.ClauseRecord{record("A", "", "عام")}, "")
	require.NoError(t, err)
	assert.NotNil(t, rc.EmbeddedClauses)
	assert.Empty(t, rc.EmbeddedClauses)
	assert.NotNil(t, rc.SimilarClauses)
	assert.Empty(t, rc.Comparison.Matches)
}

func TestRunIdempotent(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{Concurrency: 3})

	records := make([]models.ClauseRecord, 0, 20)
	labels := []string{"راتب", "ساعات_عمل", "إنهاء", "التزامات", "سرية"}
	for i := 0; i < 20; i++ {
		records = append(records, record("", fmt.Sprintf("نص البند رقم %d", i), labels[i%len(labels)]))
	}

	first, err := p.Run(context.Background(), records, "عقد عمل")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), records, "عقد عمل")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first.EmbeddedClauses, 20)
	for i, ec := range first.EmbeddedClauses {
		assert.Equal(t, fmt.Sprintf("CL-%d", i+1), ec.ID)
	}
}

// slowEmbedder delays in reverse order to shuffle completion order.
type slowEmbedder struct {
	texts map[string]time.Duration
}

func (s slowEmbedder) Embed(ctx context.Context, text string) models.Embedding {
	select {
	case <-time.After(s.texts[text]):
	case <-ctx.Done():
		return models.Embedding{}
	}
	return models.Embedding{Vector: []float32{1}, Dimension: 1}
}

func TestRunPreservesOrder(t *testing.T) {
	texts := map[string]time.Duration{}
	records := make([]models.ClauseRecord, 0, 6)
	for i := 0; i < 6; i++ {
		text := fmt.Sprintf("clause %d", i)
		texts[text] = time.Duration(6-i) * 5 * time.Millisecond
		records = append(records, record("", text, "عام"))
	}

	r, err := retriever.New(nil, retriever.Config{}, nil)
	require.NoError(t, err)
	c, err := comparator.New(comparator.Config{})
	require.NoError(t, err)
	p, err := pipeline.New(slowEmbedder{texts: texts}, r, c, pipeline.Config{Concurrency: 6})
	require.NoError(t, err)

	rc, err := p.Run(context.Background(), records, "")
	require.NoError(t, err)
	require.Len(t, rc.EmbeddedClauses, 6)
	for i, ec := range rc.EmbeddedClauses {
		assert.Equal(t, fmt.Sprintf("clause %d", i), ec.Text)
	}
}

type flakyEmbedder struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) models.Embedding {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return models.Embedding{}
	}
	return models.Embedding{Vector: []float32{0.5}, Dimension: 1, Normalized: true}
}

func newWith(t *testing.T, e pipeline.Embedder, s pipeline.Searcher, c pipeline.Comparer, config pipeline.Config) *pipeline.Pipeline {
	t.Helper()
	if s == nil {
		r, err := retriever.New(nil, retriever.Config{}, nil)
		require.NoError(t, err)
		s = r
	}
	if c == nil {
		cmp, err := comparator.New(comparator.Config{})
		require.NoError(t, err)
		c = cmp
	}
	p, err := pipeline.New(e, s, c, config)
	require.NoError(t, err)
	return p
}

func TestRunRetriesInLiveMode(t *testing.T) {
	e := &flakyEmbedder{failures: 2}
	p := newWith(t, e, nil, nil, pipeline.Config{Live: true, MaxRetries: 2, RetryBackoff: time.Millisecond})

	analysis, err := p.Analyze(context.Background(), []models.ClauseRecord{record("A", "نص", "راتب")}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.EmbeddedClausesCount)
	assert.Equal(t, 3, e.calls)
}

func TestRunDoesNotRetryOffline(t *testing.T) {
	e := &flakyEmbedder{failures: 1}
	p := newWith(t, e, nil, nil, pipeline.Config{MaxRetries: 3, RetryBackoff: time.Millisecond})

	analysis, err := p.Analyze(context.Background(), []models.ClauseRecord{
		record("A", "first", "راتب"),
		record("B", "second", "راتب"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, e.calls)
	assert.Equal(t, 1, analysis.EmbeddedClausesCount)
	assert.Equal(t, 1, analysis.Diagnostics.EmbeddingFailures)
}

type stubSearcher struct {
	outcome retriever.Outcome
	panics  bool
}

func (s stubSearcher) Search(context.Context, models.Embedding, models.Category, string) retriever.Outcome {
	if s.panics {
		panic("index corrupted")
	}
	return s.outcome
}

func TestRunUnavailableSearches(t *testing.T) {
	s := stubSearcher{outcome: retriever.Outcome{Status: retriever.StatusUnavailable, Err: errors.New("down")}}
	p := newWith(t, &flakyEmbedder{}, s, nil, pipeline.Config{})

	analysis, err := p.Analyze(context.Background(), []models.ClauseRecord{record("A", "نص", "راتب")}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.Diagnostics.SearchesUnavailable)
	assert.Equal(t, 0, analysis.SimilarClausesFound)
	assert.Len(t, analysis.RAGContext.Comparison.UniqueClauses, 1)
}

func TestRunMalformedCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.SimilarClause
	}{
		{"nan score", models.SimilarClause{Text: "x", Category: models.CategorySalary, SimilarityScore: math.NaN()}},
		{"empty text", models.SimilarClause{Text: " ", Category: models.CategorySalary, SimilarityScore: 0.5}},
		{"unknown category", models.SimilarClause{Text: "x", Category: "perks", SimilarityScore: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stubSearcher{outcome: retriever.Outcome{Status: retriever.StatusOK, Candidates: []models.SimilarClause{tt.candidate}}}
			p := newWith(t, &flakyEmbedder{}, s, nil, pipeline.Config{})

			rc, err := p.Run(context.Background(), []models.ClauseRecord{record("A", "نص", "راتب")}, "")
			assert.Nil(t, rc)
			assert.True(t, pipeline.IsInternalError(err))
			assert.Equal(t, pipeline.StageRetrieval, pipeline.StageOf(err))
		})
	}
}

type panickingComparer struct{}

func (panickingComparer) Compare([]models.EmbeddedClause, []models.SimilarClause) models.ComparisonResult {
	panic("boom")
}

type panickingEmbedder struct{}

func (panickingEmbedder) Embed(context.Context, string) models.Embedding {
	panic("boom")
}

func TestRunRecoversPanics(t *testing.T) {
	records := []models.ClauseRecord{record("A", "نص", "راتب")}

	tests := []struct {
		name  string
		p     *pipeline.Pipeline
		stage string
	}{
		{"embedding", newWith(t, panickingEmbedder{}, nil, nil, pipeline.Config{}), pipeline.StageEmbedding},
		{"retrieval", newWith(t, &flakyEmbedder{}, stubSearcher{panics: true}, nil, pipeline.Config{}), pipeline.StageRetrieval},
		{"comparison", newWith(t, &flakyEmbedder{}, nil, panickingComparer{}, pipeline.Config{}), pipeline.StageComparison},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := tt.p.Run(context.Background(), records, "")
			assert.Nil(t, rc)
			require.Error(t, err)
			assert.Equal(t, pipeline.KindInternal, pipeline.KindOf(err))
			assert.Equal(t, tt.stage, pipeline.StageOf(err))
			assert.Contains(t, err.Error(), "panic")
		})
	}
}

func TestRunCancelledContext(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []models.ClauseRecord{record("A", "نص", "راتب")}, "")
	require.Error(t, err)
	assert.True(t, pipeline.IsBackendError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessEnvelope(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	var doc models.Document
	require.NoError(t, json.Unmarshal([]byte(`{
		"ocr_data": {
			"document_category": "عقد عمل",
			"clauses": [
				{"clause_id": "CL-9", "clause_text": "ينتهي العقد بإشعار مدته شهر", "clause_type": "إنهاء", "importance": "عالية", "parties_mentioned": "الطرف الأول"}
			]
		}
	}`), &doc))

	env, err := p.Process(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, models.AgentType, env.AgentType)
	require.NotNil(t, env.Analysis)
	assert.Equal(t, 1, env.Analysis.EmbeddedClausesCount)
	assert.Equal(t, 1, env.Analysis.SimilarClausesFound)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	analysis := decoded["analysis"].(map[string]any)
	rc := analysis["rag_context"].(map[string]any)
	for _, key := range []string{"current_clauses", "similar_clauses", "clause_comparison", "rag_summary"} {
		assert.Contains(t, rc, key)
	}
	comparison := rc["clause_comparison"].(map[string]any)
	for _, key := range []string{"clause_matches", "unique_clauses", "potential_issues", "improvement_suggestions"} {
		assert.NotNil(t, comparison[key], key)
	}
	current := rc["current_clauses"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"الطرف الأول"}, current["parties_mentioned"])
	assert.Equal(t, "termination", current["clause_type"])
}

func TestProcessErrorEnvelope(t *testing.T) {
	p := offlinePipeline(t, pipeline.Config{})

	env, err := p.Process(context.Background(), models.Document{})
	require.Error(t, err)
	assert.False(t, env.Success)
	assert.Nil(t, env.Analysis)
	assert.Equal(t, models.AgentType, env.AgentType)
	assert.Equal(t, "input", env.ErrorKind)
	assert.Equal(t, pipeline.StageValidation, env.Stage)
	assert.NotEmpty(t, env.Error)
}

func TestNewValidation(t *testing.T) {
	_, err := pipeline.New(nil, nil, nil, pipeline.Config{})
	assert.Error(t, err)

	e := &flakyEmbedder{}
	r, _ := retriever.New(nil, retriever.Config{}, nil)
	c, _ := comparator.New(comparator.Config{})
	_, err = pipeline.New(e, r, c, pipeline.Config{Concurrency: -1})
	assert.Error(t, err)
	_, err = pipeline.New(e, r, c, pipeline.Config{MaxRetries: -1})
	assert.Error(t, err)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, pipeline.KindInternal, pipeline.KindOf(errors.New("x")))
	assert.Equal(t, "", pipeline.StageOf(errors.New("x")))
}
