package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/chatscribe/chatscribe/db"
	"github.com/chatscribe/chatscribe/internal/ai"
	"github.com/chatscribe/chatscribe/internal/api"
	"github.com/chatscribe/chatscribe/internal/auth"
	"github.com/chatscribe/chatscribe/internal/config"
	"github.com/chatscribe/chatscribe/internal/database"
	"github.com/chatscribe/chatscribe/internal/fileproc"
	"github.com/chatscribe/chatscribe/internal/log"
	"github.com/chatscribe/chatscribe/internal/rag"
	"github.com/chatscribe/chatscribe/internal/store"
	"github.com/chatscribe/chatscribe/internal/vectorindex"
	"github.com/chatscribe/chatscribe/internal/web"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // model calls can be slow
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false,
		"do not apply pending database migrations on startup")
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the application together and runs the HTTP server until
// SIGINT/SIGTERM.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting chatscribe", "version", AppVersion, "addr", cfg.ServerAddr)

	if !skipMigrations {
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, logger)

	files, err := fileproc.New(cfg.UploadDir, cfg.AllowedExtensions, logger)
	if err != nil {
		return fmt.Errorf("initializing upload storage: %w", err)
	}

	provider, err := ai.Select(ctx, ai.SelectConfig{
		Provider: cfg.AIProvider,
		OpenAI: ai.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			EmbeddingModel: cfg.OpenAIEmbeddingModel,
		},
		Ollama: ai.OllamaConfig{
			Host:           cfg.OllamaHost,
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbeddingModel,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("selecting AI provider: %w", err)
	}

	index, closeIndex, err := buildIndex(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	splitter, err := rag.NewSplitter(rag.SplitterConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("configuring splitter: %w", err)
	}

	pipeline := rag.NewPipeline(index, provider.Embedder, splitter, cfg.RetrievalTopK, logger)
	answerer := rag.NewAnswerer(provider, pipeline, rag.AnswererConfig{
		Temperature:        cfg.Temperature,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
		SummaryMaxChars:    cfg.SummaryMaxChars,
	}, logger)

	tokens := auth.NewTokens([]byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Users:          st,
		Documents:      st,
		Sessions:       st,
		Files:          files,
		Indexer:        pipeline,
		Answerer:       answerer,
		Tokens:         tokens,
		Pool:           pool,
		CORSOrigins:    cfg.CORSOrigins,
		TrustProxy:     cfg.TrustProxy,
		RateBurst:      cfg.RateBurst,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxHistory:     cfg.MaxHistoryMessages,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	webServer, err := web.NewServer(web.ServerConfig{
		Logger:         logger,
		Users:          st,
		Documents:      st,
		Sessions:       st,
		Files:          files,
		Indexer:        pipeline,
		Answerer:       answerer,
		Tokens:         tokens,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxHistory:     cfg.MaxHistoryMessages,
		SecureCookies:  cfg.PostgresSSLMode != "disable",
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	// API routes (plus /health, /ready) take precedence; everything else
	// is served by the page handlers.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Handler())
	mux.Handle("/health", apiServer.Handler())
	mux.Handle("/ready", apiServer.Handler())
	mux.Handle("/", webServer.Handler())

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ServerAddr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
		"provider", provider.Name,
		"vector_backend", cfg.VectorBackend,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// buildIndex constructs the configured vector index backend. The returned
// close function releases backend connections (a no-op for pgvector, which
// shares the application pool).
func buildIndex(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (vectorindex.Index, func(), error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		q, err := vectorindex.NewQdrant(ctx, vectorindex.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.VectorDimension,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return q, func() {
			if err := q.Close(); err != nil {
				logger.Warn("closing qdrant client", "error", err)
			}
		}, nil

	default:
		return vectorindex.NewPgvector(pool, cfg.VectorDimension, logger), func() {}, nil
	}
}
