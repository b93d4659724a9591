package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bduran04/festival-finder/api"
	"github.com/bduran04/festival-finder/internal/auth"
	"github.com/bduran04/festival-finder/internal/config"
	"github.com/bduran04/festival-finder/internal/enrich"
	"github.com/bduran04/festival-finder/internal/mcp"
	"github.com/bduran04/festival-finder/internal/ratelimit"
	"github.com/bduran04/festival-finder/internal/server"
	"github.com/bduran04/festival-finder/internal/storage"
	"github.com/bduran04/festival-finder/internal/telemetry"
	"github.com/bduran04/festival-finder/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("FESTFINDER_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("festival-finder starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Run migrations. RunMigrations tracks applied files in schema_migrations
	// and skips duplicates, so errors here indicate real failures.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Verify the core table exists after migration. A partially applied
	// migration would otherwise surface as confusing per-request errors.
	var schemaOK bool
	if err := db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'festivals')`,
	).Scan(&schemaOK); err != nil {
		return fmt.Errorf("schema verification: %w", err)
	}
	if !schemaOK {
		return fmt.Errorf("table 'festivals' does not exist after migration")
	}

	// Create JWT manager for the admin surface.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Hash the admin API key once at startup; only the hash is held in memory.
	var adminKeyHash string
	if cfg.AdminAPIKey != "" {
		adminKeyHash, err = auth.HashAPIKey(cfg.AdminAPIKey)
		if err != nil {
			return fmt.Errorf("auth: hash admin key: %w", err)
		}
	} else {
		logger.Info("admin surface: disabled (no FESTFINDER_ADMIN_API_KEY)")
	}

	// Create the enricher with the configured sentiment provider.
	enricher := enrich.New(newSentimentProvider(cfg, logger), logger)

	// Create MCP server.
	mcpSrv := mcp.New(db, version, logger)

	// Create rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = limiter.Close() }()
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// Create and start HTTP server (MCP mounted at /mcp).
	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		Enricher:            enricher,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AdminKeyHash:        adminKeyHash,
		ReenrichConcurrency: cfg.ReenrichConcurrency,
		OpenAPISpec:         api.OpenAPISpec,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting new requests and drain in-flight.
	slog.Info("festival-finder shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("festival-finder stopped")
	return nil
}

// newSentimentProvider creates a sentiment provider based on configuration.
// Provider selection: "heuristic", "huggingface", or "auto" (default).
// Auto mode uses Hugging Face when an API key is present, else the
// built-in lexicon heuristic. The heuristic needs no network and is
// deterministic, which keeps local development self-contained.
func newSentimentProvider(cfg config.Config, logger *slog.Logger) enrich.SentimentProvider {
	switch cfg.SentimentProvider {
	case "huggingface":
		logger.Info("sentiment provider: huggingface", "model", cfg.SentimentModel)
		return enrich.NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.SentimentModel)

	case "heuristic":
		logger.Info("sentiment provider: heuristic")
		return enrich.NewHeuristicProvider()

	case "auto":
		fallthrough
	default:
		if cfg.HuggingFaceAPIKey != "" {
			logger.Info("sentiment provider: huggingface (auto-detected)", "model", cfg.SentimentModel)
			return enrich.NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.SentimentModel)
		}
		logger.Info("sentiment provider: heuristic (no HUGGINGFACE_API_KEY)")
		return enrich.NewHeuristicProvider()
	}
}
