package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OmarAI2003/AI-Legal-Checker/pkg/comparator"
)

const (
	ProviderTitan  = "titan"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	BackendNone     = "none"
	BackendPGVector = "pgvector"
	BackendMemory   = "memory"

	OfflineDimension = 64
)

type Config struct {
	// Live selects the real embedding service and reference corpus. When
	// false the pipeline runs on deterministic hash embeddings.
	Live bool `yaml:"live"`

	AWS struct {
		Region    string `yaml:"region"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"aws"`

	Embedding struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Dimension   int     `yaml:"dimension"`
		TimeoutSecs int     `yaml:"timeout_secs"`
		RateLimit   float64 `yaml:"rate_limit"`
		MaxRetries  int     `yaml:"max_retries"`
	} `yaml:"embedding"`

	Retrieval struct {
		Backend     string `yaml:"backend"`
		TopK        int    `yaml:"top_k"`
		TimeoutSecs int    `yaml:"timeout_secs"`

		Database struct {
			URL       string `yaml:"url"`
			TableName string `yaml:"table_name"`
		} `yaml:"database"`

		Snapshot struct {
			Path     string `yaml:"path"`
			S3Bucket string `yaml:"s3_bucket"`
			S3Key    string `yaml:"s3_key"`
		} `yaml:"snapshot"`
	} `yaml:"retrieval"`

	Comparison struct {
		Strategy               string  `yaml:"strategy"`
		// LowSimilarityThreshold is a pointer so that an explicit 0 (which
		// disables the low-similarity notes) survives applyDefaults.
		LowSimilarityThreshold *float64 `yaml:"low_similarity_threshold"`
	} `yaml:"comparison"`

	Pipeline struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"pipeline"`

	Categories struct {
		// Mapping extends and overrides the built-in label table.
		Mapping map[string]string `yaml:"mapping"`
	} `yaml:"categories"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/clauserag/config.yaml"),
			"/etc/clauserag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	if err := mergeWithEnv(&config); err != nil {
		return nil, err
	}

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	if err := mergeWithEnv(config); err != nil {
		return nil, err
	}
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.AWS.Region == "" {
		config.AWS.Region = "us-east-1"
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = ProviderTitan
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = defaultDimension(config)
	}
	if config.Embedding.TimeoutSecs == 0 {
		config.Embedding.TimeoutSecs = 30
	}
	if config.Embedding.Provider == ProviderOllama && config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}

	if config.Retrieval.Backend == "" {
		switch {
		case config.Live && config.Retrieval.Database.URL != "":
			config.Retrieval.Backend = BackendPGVector
		case config.Retrieval.Snapshot.Path != "" || config.Retrieval.Snapshot.S3Key != "":
			config.Retrieval.Backend = BackendMemory
		default:
			config.Retrieval.Backend = BackendNone
		}
	}
	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.Retrieval.TimeoutSecs == 0 {
		config.Retrieval.TimeoutSecs = 10
	}
	if config.Retrieval.Database.TableName == "" {
		config.Retrieval.Database.TableName = "reference_clauses"
	}

	if config.Comparison.Strategy == "" {
		config.Comparison.Strategy = "best_match"
	}
	if config.Comparison.LowSimilarityThreshold == nil {
		threshold := comparator.DefaultLowSimilarityThreshold
		config.Comparison.LowSimilarityThreshold = &threshold
	}

	if config.Pipeline.Concurrency == 0 {
		config.Pipeline.Concurrency = 8
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// defaultDimension follows the native output size of each provider's
// default model.
func defaultDimension(config *Config) int {
	if !config.Live {
		return OfflineDimension
	}
	switch config.Embedding.Provider {
	case ProviderOllama, ProviderGemini:
		return 768
	default:
		return 1024
	}
}

func mergeWithEnv(config *Config) error {
	if live := os.Getenv("CLAUSERAG_LIVE"); live != "" {
		v, err := strconv.ParseBool(live)
		if err != nil {
			return fmt.Errorf("invalid CLAUSERAG_LIVE %q: %w", live, err)
		}
		config.Live = v
	} else if mock := os.Getenv("USE_MOCK"); mock != "" {
		v, err := strconv.ParseBool(mock)
		if err != nil {
			return fmt.Errorf("invalid USE_MOCK %q: %w", mock, err)
		}
		config.Live = !v
	}

	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Retrieval.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	return nil
}

// SimilarityThreshold returns the configured low-similarity threshold, or the
// comparator default when unset.
func (c *Config) SimilarityThreshold() float64 {
	if c.Comparison.LowSimilarityThreshold == nil {
		return comparator.DefaultLowSimilarityThreshold
	}
	return *c.Comparison.LowSimilarityThreshold
}
