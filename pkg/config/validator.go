package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"

	"github.com/OmarAI2003/AI-Legal-Checker/pkg/category"
	"github.com/OmarAI2003/AI-Legal-Checker/pkg/comparator"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var titanDimensions = map[int]bool{256: true, 512: true, 1024: true}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Embedding config
	switch c.Embedding.Provider {
	case ProviderTitan, ProviderOllama, ProviderGemini:
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q (want titan, ollama or gemini)", c.Embedding.Provider),
		})
	}

	if c.Embedding.Dimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "dimension must be positive",
		})
	} else if c.Live && c.Embedding.Provider == ProviderTitan && !titanDimensions[c.Embedding.Dimension] {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimension",
			Message: "titan dimension must be 256, 512 or 1024",
		})
	}

	if c.Embedding.TimeoutSecs < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.timeout_secs",
			Message: "timeout_secs cannot be negative",
		})
	}

	if c.Embedding.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	if c.Embedding.MaxRetries < 0 || c.Embedding.MaxRetries > 10 {
		errors = append(errors, ValidationError{
			Field:   "embedding.max_retries",
			Message: "max_retries must be between 0 and 10",
		})
	}

	if c.Live && c.Embedding.Provider == ProviderOllama {
		if u, err := url.Parse(c.Embedding.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "embedding.base_url",
				Message: "invalid Ollama base URL",
			})
		}
	}

	if c.Live && c.Embedding.Provider == ProviderGemini && c.Embedding.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.api_key",
			Message: "Gemini API key is required",
		})
	}

	// Validate Retrieval config
	switch c.Retrieval.Backend {
	case BackendNone:
	case BackendPGVector:
		if !c.Live {
			errors = append(errors, ValidationError{
				Field:   "retrieval.backend",
				Message: "pgvector retrieval requires live mode",
			})
		}
		if u, err := url.Parse(c.Retrieval.Database.URL); c.Retrieval.Database.URL == "" || err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "retrieval.database.url",
				Message: "invalid database URL",
			})
		}
	case BackendMemory:
		s := c.Retrieval.Snapshot
		if s.Path == "" && (s.S3Bucket == "" || s.S3Key == "") {
			errors = append(errors, ValidationError{
				Field:   "retrieval.snapshot",
				Message: "memory retrieval needs a snapshot path or an s3_bucket and s3_key",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "retrieval.backend",
			Message: fmt.Sprintf("unknown backend %q (want none, pgvector or memory)", c.Retrieval.Backend),
		})
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 100 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be between 1 and 100",
		})
	}

	if c.Retrieval.TimeoutSecs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.timeout_secs",
			Message: "timeout_secs cannot be negative",
		})
	}

	// Validate Comparison config
	if !comparator.Strategy(c.Comparison.Strategy).Valid() {
		errors = append(errors, ValidationError{
			Field:   "comparison.strategy",
			Message: fmt.Sprintf("unknown strategy %q (want best_match or one_to_one)", c.Comparison.Strategy),
		})
	}

	if t := c.SimilarityThreshold(); t < -1 || t > 1 {
		errors = append(errors, ValidationError{
			Field:   "comparison.low_similarity_threshold",
			Message: "low_similarity_threshold must be between -1 and 1",
		})
	}

	if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 64 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.concurrency",
			Message: "concurrency must be between 1 and 64",
		})
	}

	if _, err := category.NewMapper(c.Categories.Mapping); err != nil {
		errors = append(errors, ValidationError{
			Field:   "categories.mapping",
			Message: err.Error(),
		})
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid log level %q", c.Log.Level),
		})
	}

	return errors
}
