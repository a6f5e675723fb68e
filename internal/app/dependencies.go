package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/awscfg"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/types"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/category"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/comparator"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/config"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/embedding"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/pipeline"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/retriever"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/store"
)

// Dependencies holds the components of one pipeline built from a Config.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Mapper     *category.Mapper
	Generator  *embedding.Generator
	Retriever  *retriever.Retriever
	Comparator *comparator.Comparator
	Pipeline   *pipeline.Pipeline
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewDependencies validates cfg and wires every component. Close must be
// called on the result.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	mapper, err := category.NewMapper(cfg.Categories.Mapping)
	if err != nil {
		return nil, err
	}
	deps.Mapper = mapper

	if err := deps.initEmbedding(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize embedding: %w", err)
	}

	if err := deps.initRetrieval(ctx, cfg); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize retrieval: %w", err)
	}

	deps.Comparator, err = comparator.New(comparator.Config{
		Strategy:               comparator.Strategy(cfg.Comparison.Strategy),
		LowSimilarityThreshold: cfg.SimilarityThreshold(),
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Pipeline, err = pipeline.New(deps.Generator, deps.Retriever, deps.Comparator,
		pipeline.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			Live:        cfg.Live,
			MaxRetries:  cfg.Embedding.MaxRetries,
		},
		pipeline.WithLogger(logger),
		pipeline.WithMapper(mapper),
	)
	if err != nil {
		deps.Close()
		return nil, err
	}

	logger.Info("pipeline initialized",
		zap.Bool("live", cfg.Live),
		zap.String("embedding_backend", deps.Generator.Backend()),
		zap.Int("dimension", deps.Generator.Dimension()),
		zap.String("retrieval_backend", cfg.Retrieval.Backend),
		zap.Int("top_k", deps.Retriever.TopK()),
		zap.String("comparison_strategy", string(deps.Comparator.Strategy())),
	)
	return deps, nil
}

func (d *Dependencies) initEmbedding(ctx context.Context, cfg *config.Config) error {
	backend, err := newEmbeddingBackend(ctx, cfg)
	if err != nil {
		return err
	}

	genConfig := embedding.GeneratorConfig{
		Dimension: cfg.Embedding.Dimension,
		Normalize: cfg.Live,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
	}
	if cfg.Live {
		genConfig.RateLimit = cfg.Embedding.RateLimit
	}

	d.Generator, err = embedding.NewGenerator(backend, genConfig, d.Logger)
	return err
}

func newEmbeddingBackend(ctx context.Context, cfg *config.Config) (types.EmbeddingBackend, error) {
	if !cfg.Live {
		return embedding.NewHashBackend(cfg.Embedding.Dimension)
	}

	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		return embedding.NewOllamaBackend(embedding.OllamaConfig{
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
	case config.ProviderGemini:
		return embedding.NewGeminiBackend(ctx, embedding.GeminiConfig{
			APIKey: cfg.Embedding.APIKey,
			Model:  cfg.Embedding.Model,
		})
	default:
		return embedding.NewTitanBackend(ctx, embedding.TitanConfig{
			ModelID:   cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			AWS:       awsSettings(cfg),
		})
	}
}

func (d *Dependencies) initRetrieval(ctx context.Context, cfg *config.Config) error {
	var index types.VectorIndex

	switch cfg.Retrieval.Backend {
	case config.BackendPGVector:
		pg, err := store.NewPGVectorStore(ctx, store.PGVectorConfig{
			ConnString: cfg.Retrieval.Database.URL,
			TableName:  cfg.Retrieval.Database.TableName,
			VectorDim:  cfg.Embedding.Dimension,
		})
		if err != nil {
			return err
		}
		index = pg
		d.Logger.Info("reference corpus connected", zap.String("table", cfg.Retrieval.Database.TableName))

	case config.BackendMemory:
		mem, err := d.loadMemoryIndex(ctx, cfg)
		if err != nil {
			return err
		}
		index = mem
	}

	r, err := retriever.New(index, retriever.Config{
		TopK:    cfg.Retrieval.TopK,
		Timeout: time.Duration(cfg.Retrieval.TimeoutSecs) * time.Second,
	}, d.Logger)
	if err != nil {
		if index != nil {
			index.Close()
		}
		return err
	}
	d.Retriever = r
	return nil
}

func (d *Dependencies) loadMemoryIndex(ctx context.Context, cfg *config.Config) (*store.MemoryIndex, error) {
	snap := cfg.Retrieval.Snapshot

	var (
		entries []store.SnapshotEntry
		err     error
	)
	if snap.Path != "" {
		entries, err = store.ReadSnapshotFile(snap.Path)
	} else {
		var client store.S3Getter
		client, err = store.NewS3Client(ctx, awsSettings(cfg))
		if err == nil {
			entries, err = store.ReadSnapshotS3(ctx, client, snap.S3Bucket, snap.S3Key)
		}
	}
	if err != nil {
		return nil, err
	}

	mem, err := store.NewMemoryIndex(cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}
	n, err := store.LoadSnapshot(ctx, mem, entries, d.Mapper, d.Generator, d.Logger)
	if err != nil {
		return nil, err
	}

	d.Logger.Info("reference snapshot loaded", zap.Int("entries", len(entries)), zap.Int("indexed", n))
	return mem, nil
}

func awsSettings(cfg *config.Config) awscfg.Settings {
	return awscfg.Settings{
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
	}
}

// Close releases backend connections.
func (d *Dependencies) Close() {
	if d.Retriever != nil {
		d.Retriever.Close()
	}
	if d.Generator != nil {
		if err := d.Generator.Close(); err != nil {
			d.Logger.Warn("failed to close embedding backend", zap.Error(err))
		}
	}
}
