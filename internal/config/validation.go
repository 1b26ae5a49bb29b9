package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for configuration validation. Callers check them with
// errors.Is; Validate wraps them with detail via fmt.Errorf("%w: ...").
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidServerAddr indicates the listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingJWTSecret indicates the JWT secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrInvalidTokenTTL indicates the token lifetime is out of range.
	ErrInvalidTokenTTL = errors.New("invalid token TTL")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidVectorBackend indicates the vector index backend is not supported.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrInvalidVectorDimension indicates the embedding dimension is out of range.
	ErrInvalidVectorDimension = errors.New("invalid vector dimension")

	// ErrInvalidUploadLimit indicates the maximum upload size is out of range.
	ErrInvalidUploadLimit = errors.New("invalid upload limit")
)

// minJWTSecretBytes is the minimum accepted JWT secret length. HS256 keys
// shorter than the hash output weaken the HMAC.
const minJWTSecretBytes = 32

// validSSLModes are the libpq sslmode values pgx accepts.
var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate checks all configuration values needed to run the server.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ServerAddr) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidServerAddr)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set CHATSCRIBE_JWT_SECRET", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("%w: need at least %d bytes, got %d",
			ErrInvalidJWTSecret, minJWTSecretBytes, len(c.JWTSecret))
	}
	if c.TokenTTLMinutes < 1 || c.TokenTTLMinutes > 24*60 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidTokenTTL, c.TokenTTLMinutes)
	}

	switch c.AIProvider {
	case ProviderAuto, ProviderOpenAI, ProviderOllama, ProviderNone:
	default:
		return fmt.Errorf("%w: %q (must be auto, openai, ollama, or none)",
			ErrInvalidProvider, c.AIProvider)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	switch c.VectorBackend {
	case VectorBackendPgvector, VectorBackendQdrant:
	default:
		return fmt.Errorf("%w: %q (must be pgvector or qdrant)",
			ErrInvalidVectorBackend, c.VectorBackend)
	}
	if c.VectorDimension < 1 || c.VectorDimension > 16000 {
		return fmt.Errorf("%w: %d", ErrInvalidVectorDimension, c.VectorDimension)
	}

	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidUploadLimit, c.MaxUploadBytes)
	}

	return nil
}
