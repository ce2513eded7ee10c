// Package config loads the service configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/aqua777/indexquery/rag/store"
	"github.com/aqua777/indexquery/rag/synthesizer"
	"github.com/aqua777/indexquery/textsplitter"
)

// EnvPrefix prefixes every environment override, e.g. INDEXQUERY_SERVER_PORT.
const EnvPrefix = "INDEXQUERY"

// Provider names.
const (
	ProviderAzure   = "azure"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Config is the root configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Azure        AzureConfig        `mapstructure:"azure" yaml:"azure"`
	Bedrock      BedrockConfig      `mapstructure:"bedrock" yaml:"bedrock"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding" yaml:"embedding"`
	PromptHelper PromptHelperConfig `mapstructure:"prompt_helper" yaml:"prompt_helper"`
	Data         DataConfig         `mapstructure:"data" yaml:"data"`
	Query        QueryConfig        `mapstructure:"query" yaml:"query"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AzureConfig holds the Azure OpenAI resource shared by the LLM and embedding clients.
type AzureConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	APIVersion string `mapstructure:"api_version" yaml:"api_version"`
}

// BedrockConfig configures the bedrock provider. Credentials come from the
// default AWS chain; empty values use the client defaults.
type BedrockConfig struct {
	Region         string `mapstructure:"region" yaml:"region"`
	Model          string `mapstructure:"model" yaml:"model"`
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	// EmbeddingDimensions is 256, 512 or 1024 for Titan v2.
	EmbeddingDimensions int `mapstructure:"embedding_dimensions" yaml:"embedding_dimensions"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Deployment  string  `mapstructure:"deployment" yaml:"deployment"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Deployment string `mapstructure:"deployment" yaml:"deployment"`
	Model      string `mapstructure:"model" yaml:"model"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// PromptHelperConfig sizes prompts and chunks, in tokens.
type PromptHelperConfig struct {
	MaxInputSize    int `mapstructure:"max_input_size" yaml:"max_input_size"`
	NumOutput       int `mapstructure:"num_output" yaml:"num_output"`
	ChunkSizeLimit  int `mapstructure:"chunk_size_limit" yaml:"chunk_size_limit"`
	MaxChunkOverlap int `mapstructure:"max_chunk_overlap" yaml:"max_chunk_overlap"`
	// SentenceSplitter is punkt or regex.
	SentenceSplitter string `mapstructure:"sentence_splitter" yaml:"sentence_splitter"`
}

// DataConfig locates documents and persisted indexes.
type DataConfig struct {
	DocsDir     string `mapstructure:"docs_dir" yaml:"docs_dir"`
	StorageDir  string `mapstructure:"storage_dir" yaml:"storage_dir"`
	VectorStore string `mapstructure:"vector_store" yaml:"vector_store"`
	Years       []int  `mapstructure:"years" yaml:"years"`
	// CatalogFile replaces the built-in document groups when set.
	CatalogFile string `mapstructure:"catalog_file" yaml:"catalog_file"`
	ReadWorkers int    `mapstructure:"read_workers" yaml:"read_workers"`
}

// QueryConfig configures the query engines.
type QueryConfig struct {
	TopK              int           `mapstructure:"top_k" yaml:"top_k"`
	ResponseMode      string        `mapstructure:"response_mode" yaml:"response_mode"`
	GraphResponseMode string        `mapstructure:"graph_response_mode" yaml:"graph_response_mode"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// ServerConfig configures the web UI. An empty DefaultIndex falls back to
// the catalog's default.
type ServerConfig struct {
	Host         string          `mapstructure:"host" yaml:"host"`
	Port         int             `mapstructure:"port" yaml:"port"`
	Title        string          `mapstructure:"title" yaml:"title"`
	DefaultIndex string          `mapstructure:"default_index" yaml:"default_index"`
	QueryTimeout time.Duration   `mapstructure:"query_timeout" yaml:"query_timeout"`
	Auth         AuthConfig      `mapstructure:"auth" yaml:"auth"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// AuthConfig holds the basic auth credentials. PasswordHash is a bcrypt
// hash; Password is hashed at startup when no hash is given.
type AuthConfig struct {
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

// Validate checks that the credentials can guard the UI.
func (a AuthConfig) Validate() error {
	if a.User == "" {
		return errors.New("server.auth.user is required")
	}
	if a.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
			return fmt.Errorf("server.auth.password_hash is not a bcrypt hash: %w", err)
		}
		return nil
	}
	if a.Password == "" {
		return errors.New("server.auth needs a password or a password_hash")
	}
	return nil
}

// RateLimitConfig limits queries per second across all clients. Zero disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// SetDefaults registers a default for every key so that environment
// overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.api_key", "")
	v.SetDefault("azure.api_version", "2024-02-15-preview")

	v.SetDefault("bedrock.region", "")
	v.SetDefault("bedrock.model", "")
	v.SetDefault("bedrock.embedding_model", "")
	v.SetDefault("bedrock.embedding_dimensions", 1024)

	v.SetDefault("llm.provider", ProviderAzure)
	v.SetDefault("llm.deployment", "AIHackathonLLM2")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0)

	v.SetDefault("embedding.provider", ProviderAzure)
	v.SetDefault("embedding.deployment", "AIHackathonModel")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.batch_size", 1)

	v.SetDefault("prompt_helper.max_input_size", 3000)
	v.SetDefault("prompt_helper.num_output", 256)
	v.SetDefault("prompt_helper.chunk_size_limit", 512)
	v.SetDefault("prompt_helper.max_chunk_overlap", 20)
	v.SetDefault("prompt_helper.sentence_splitter", textsplitter.StrategyPunkt)

	v.SetDefault("data.docs_dir", "../data")
	v.SetDefault("data.storage_dir", "../storage")
	v.SetDefault("data.vector_store", string(store.KindChromem))
	v.SetDefault("data.years", []int{2019, 2020, 2021, 2022})
	v.SetDefault("data.catalog_file", "")
	v.SetDefault("data.read_workers", 4)

	v.SetDefault("query.top_k", 2)
	v.SetDefault("query.response_mode", string(synthesizer.ResponseModeCompact))
	v.SetDefault("query.graph_response_mode", string(synthesizer.ResponseModeTreeSummarize))
	v.SetDefault("query.max_retries", 2)
	v.SetDefault("query.retry_delay", time.Second)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 80)
	v.SetDefault("server.title", "LLM Query with Custom Indexes")
	v.SetDefault("server.default_index", "")
	v.SetDefault("server.query_timeout", 2*time.Minute)
	v.SetDefault("server.auth.user", "queryuser")
	v.SetDefault("server.auth.password", "")
	v.SetDefault("server.auth.password_hash", "")
	v.SetDefault("server.rate_limit.rps", 2)
	v.SetDefault("server.rate_limit.burst", 5)
}

// Load reads .env, then the config file at path (or indexquery.yaml in . or
// ./config when path is empty), then INDEXQUERY_* environment variables.
// A missing default config file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("indexquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the Azure SDK variable names work too
	_ = v.BindEnv("azure.endpoint", EnvPrefix+"_AZURE_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
	_ = v.BindEnv("azure.api_key", EnvPrefix+"_AZURE_API_KEY", "AZURE_OPENAI_API_KEY")
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	for key, p := range map[string]string{"llm.provider": c.LLM.Provider, "embedding.provider": c.Embedding.Provider} {
		switch p {
		case ProviderAzure, ProviderOpenAI, ProviderBedrock:
		default:
			errs = append(errs, fmt.Errorf("%s must be %s, %s or %s, got %q", key, ProviderAzure, ProviderOpenAI, ProviderBedrock, p))
		}
	}
	if c.PromptHelper.MaxInputSize <= c.PromptHelper.NumOutput {
		errs = append(errs, errors.New("prompt_helper.max_input_size must exceed num_output"))
	}
	if c.PromptHelper.ChunkSizeLimit <= c.PromptHelper.MaxChunkOverlap {
		errs = append(errs, errors.New("prompt_helper.chunk_size_limit must exceed max_chunk_overlap"))
	}
	switch c.PromptHelper.SentenceSplitter {
	case textsplitter.StrategyPunkt, textsplitter.StrategyRegex:
	default:
		errs = append(errs, fmt.Errorf("prompt_helper.sentence_splitter must be %s or %s, got %q",
			textsplitter.StrategyPunkt, textsplitter.StrategyRegex, c.PromptHelper.SentenceSplitter))
	}
	switch store.Kind(c.Data.VectorStore) {
	case store.KindChromem, store.KindSimple:
	default:
		errs = append(errs, fmt.Errorf("data.vector_store must be %s or %s, got %q", store.KindChromem, store.KindSimple, c.Data.VectorStore))
	}
	for key, m := range map[string]string{"query.response_mode": c.Query.ResponseMode, "query.graph_response_mode": c.Query.GraphResponseMode} {
		if _, err := synthesizer.ParseResponseMode(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if c.Query.TopK <= 0 {
		errs = append(errs, errors.New("query.top_k must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.Auth.User == "" {
		errs = append(errs, errors.New("server.auth.user is required"))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Azure.APIKey = mask(c.Azure.APIKey)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Embedding.APIKey = mask(c.Embedding.APIKey)
	c.Server.Auth.Password = mask(c.Server.Auth.Password)
	c.Server.Auth.PasswordHash = mask(c.Server.Auth.PasswordHash)
	c.Data.Years = append([]int(nil), c.Data.Years...)
	return c
}
