package model

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DedupPolicy selects how retrieval collapses several hits from one source.
type DedupPolicy string

const (
	// DedupFirstSeen keeps the first hit of each source in rank order.
	DedupFirstSeen DedupPolicy = "first_seen"
	// DedupBestScore keeps the highest scored hit of each source.
	DedupBestScore DedupPolicy = "best_score"
)

const (
	EmbeddingBackendHugot  = "hugot"
	EmbeddingBackendOpenAI = "openai"
	EmbeddingBackendHash   = "hash"

	StoreFile     = "file"
	StorePostgres = "postgres"

	LLMProviderNone   = "none"
	LLMProviderGroq   = "groq"
	LLMProviderOpenAI = "openai"

	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultGroqModel      = "llama-3.1-70b-versatile"
	DefaultOpenAIModel    = "gpt-4o-mini"
	GroqBaseURL           = "https://api.groq.com/openai/v1"

	// groqPlaceholderKey is the value shipped in example .env files.
	groqPlaceholderKey = "your_groq_api_key_here"
)

// Config is the complete runtime configuration
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Query     QueryConfig     `yaml:"query" json:"query"`
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ChunkingConfig bounds prose and table-row chunks, lengths are in characters
type ChunkingConfig struct {
	MaxChars    int `yaml:"max_chars" json:"max_chars"`
	Overlap     int `yaml:"overlap" json:"overlap"`
	RowMaxChars int `yaml:"row_max_chars" json:"row_max_chars"`
	MaxRows     int `yaml:"max_rows" json:"max_rows"` // 0 reads every CSV row
}

// EmbeddingConfig selects and tunes the embedding backend
type EmbeddingConfig struct {
	Backend      string `yaml:"backend" json:"backend"`
	Model        string `yaml:"model" json:"model"`
	ModelDir     string `yaml:"model_dir" json:"model_dir"`
	OnnxFilePath string `yaml:"onnx_file_path" json:"onnx_file_path"`
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`
	Dimension    int    `yaml:"dimension" json:"dimension"` // hash backend only
	OpenAIModel  string `yaml:"openai_model" json:"openai_model"`
	OpenAIAPIKey string `yaml:"-" json:"-"`
}

// IndexConfig locates the persisted snapshot
type IndexConfig struct {
	Path     string `yaml:"path" json:"path"`
	MetaPath string `yaml:"meta_path" json:"meta_path"`
	Store    string `yaml:"store" json:"store"`
}

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	TopK  int         `yaml:"top_k" json:"top_k"`
	Dedup DedupPolicy `yaml:"dedup" json:"dedup"`
}

// LLMConfig configures the OpenAI compatible chat backend
type LLMConfig struct {
	Provider    string        `yaml:"provider" json:"provider"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKey      string        `yaml:"-" json:"-"`
	Model       string        `yaml:"model" json:"model"`
	Temperature float32       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// LogConfig sets the log level name
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns the defaults used when nothing else is configured
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxChars:    1200,
			Overlap:     150,
			RowMaxChars: 1000,
		},
		Embedding: EmbeddingConfig{
			Backend:      EmbeddingBackendHugot,
			Model:        DefaultEmbeddingModel,
			ModelDir:     "./models",
			OnnxFilePath: "onnx/model.onnx",
			BatchSize:    32,
			Dimension:    384,
			OpenAIModel:  "text-embedding-3-small",
		},
		Index: IndexConfig{
			Store: StoreFile,
		},
		Query: DefaultQueryConfig(),
		LLM: LLMConfig{
			Provider:    LLMProviderNone,
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultQueryConfig returns the retrieval defaults
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:  6,
		Dedup: DedupFirstSeen,
	}
}

// DefaultMetaPath derives the metadata artifact path from the index path.
func DefaultMetaPath(indexPath string) string {
	return indexPath + ".meta.json"
}

// LoadConfig layers defaults, the optional YAML file at path and the environment.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config file %s: %v", ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: parse config file %s: %v", ErrConfiguration, path, err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("HRRAG_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("HRRAG_STORE"); v != "" {
		c.Index.Store = v
	}
	if v := os.Getenv("HRRAG_EMBEDDER"); v != "" {
		c.Embedding.Backend = v
	}
	if v := os.Getenv("HRRAG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.OpenAIAPIKey = v
	}

	if os.Getenv("USE_GROQ") == "1" {
		c.LLM.Provider = LLMProviderGroq
	}
	if v := os.Getenv("HRRAG_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}

	switch c.LLM.Provider {
	case LLMProviderGroq:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if v := os.Getenv("GROQ_MODEL"); v != "" {
			c.LLM.Model = v
		}
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultGroqModel
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = GroqBaseURL
		}
	case LLMProviderOpenAI:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultOpenAIModel
		}
	}
}

// HasLLMCredentials reports whether the LLM section carries a usable key.
func (c LLMConfig) HasLLMCredentials() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != groqPlaceholderKey
}

// Validate checks every section and wraps failures in ErrConfiguration.
// A missing LLM key is not a validation failure, it surfaces as a sentinel answer.
func (c *Config) Validate() error {
	var errs []error

	if c.Chunking.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("chunking.max_chars must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChars {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in [0, max_chars)"))
	}
	if c.Chunking.RowMaxChars <= 0 {
		errs = append(errs, fmt.Errorf("chunking.row_max_chars must be positive"))
	}
	if c.Chunking.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("chunking.max_rows must not be negative"))
	}

	switch c.Embedding.Backend {
	case EmbeddingBackendHugot, EmbeddingBackendOpenAI:
	case EmbeddingBackendHash:
		if c.Embedding.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("embedding.dimension must be positive for the hash backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.backend %q", c.Embedding.Backend))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding.batch_size must be positive"))
	}

	switch c.Index.Store {
	case StoreFile, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown index.store %q", c.Index.Store))
	}

	if c.Query.TopK <= 0 {
		errs = append(errs, fmt.Errorf("query.top_k must be positive"))
	}
	switch c.Query.Dedup {
	case DedupFirstSeen, DedupBestScore:
	default:
		errs = append(errs, fmt.Errorf("unknown query.dedup %q", c.Query.Dedup))
	}

	switch c.LLM.Provider {
	case "", LLMProviderNone, LLMProviderGroq, LLMProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be in [0, 2]"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
