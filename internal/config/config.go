// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CHATSCRIBE_* runtime override)
//  2. Config file (./config.yaml or ~/.chatscribe/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Server: listen address, proxy trust, rate limiting
//   - Storage: PostgreSQL connection (see storage.go)
//   - Auth: JWT secret and token lifetime
//   - Uploads: directory, size limit, allowed extensions
//   - AI: provider selection, hosted/local model names
//   - RAG: chunking parameters and retrieval depth
//   - Vector: index backend (pgvector or qdrant)
//
// Security: sensitive values (passwords, API keys, JWT secret) are masked
// in MarshalJSON and never logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.AIProvider.
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Vector index backend identifiers used in Config.VectorBackend.
const (
	VectorBackendPgvector = "pgvector"
	VectorBackendQdrant   = "qdrant"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Server configuration
	ServerAddr  string   `mapstructure:"server_addr" json:"server_addr"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Auth configuration
	JWTSecret       string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE: masked in MarshalJSON
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes" json:"token_ttl_minutes"`

	// Upload configuration
	UploadDir         string   `mapstructure:"upload_dir" json:"upload_dir"`
	MaxUploadBytes    int64    `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" json:"allowed_extensions"`

	// AI provider configuration
	AIProvider           string  `mapstructure:"ai_provider" json:"ai_provider"` // "auto" (default), "openai", "ollama", "none"
	OpenAIAPIKey         string  `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIModel          string  `mapstructure:"openai_model" json:"openai_model"`
	OpenAIEmbeddingModel string  `mapstructure:"openai_embedding_model" json:"openai_embedding_model"`
	OllamaHost           string  `mapstructure:"ollama_host" json:"ollama_host"`
	OllamaModel          string  `mapstructure:"ollama_model" json:"ollama_model"`
	OllamaEmbeddingModel string  `mapstructure:"ollama_embedding_model" json:"ollama_embedding_model"`
	Temperature          float64 `mapstructure:"temperature" json:"temperature"`
	MaxHistoryMessages   int     `mapstructure:"max_history_messages" json:"max_history_messages"`

	// RAG configuration
	ChunkSize       int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap    int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	RetrievalTopK   int `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	SummaryMaxChars int `mapstructure:"summary_max_chars" json:"summary_max_chars"`

	// Vector index configuration
	VectorBackend    string `mapstructure:"vector_backend" json:"vector_backend"` // "pgvector" (default), "qdrant"
	VectorDimension  int    `mapstructure:"vector_dimension" json:"vector_dimension"`
	QdrantHost       string `mapstructure:"qdrant_host" json:"qdrant_host"`
	QdrantPort       int    `mapstructure:"qdrant_port" json:"qdrant_port"`
	QdrantCollection string `mapstructure:"qdrant_collection" json:"qdrant_collection"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, in ascending priority.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".chatscribe"))
	}

	v.SetEnvPrefix("CHATSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; any other read error is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	// Well-known env vars honored without the CHATSCRIBE_ prefix.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = key
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "localhost:8000")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)
	v.SetDefault("cors_origins", []string{})

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "chatscribe")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl_minutes", 30)

	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_upload_bytes", int64(10*1024*1024))
	v.SetDefault("allowed_extensions", []string{".pdf", ".docx", ".txt"})

	v.SetDefault("ai_provider", ProviderAuto)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_embedding_model", "text-embedding-3-small")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3.2:1b")
	v.SetDefault("ollama_embedding_model", "nomic-embed-text")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_history_messages", 20)

	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("retrieval_top_k", 3)
	v.SetDefault("summary_max_chars", 2000)

	v.SetDefault("vector_backend", VectorBackendPgvector)
	v.SetDefault("vector_dimension", 1536)
	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_port", 6334)
	v.SetDefault("qdrant_collection", "chatscribe")
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	if masked.JWTSecret != "" {
		masked.JWTSecret = "********"
	}
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "********"
	}
	return json.Marshal(masked)
}
