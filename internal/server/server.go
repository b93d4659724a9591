package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bduran04/festival-finder/internal/auth"
	"github.com/bduran04/festival-finder/internal/enrich"
	"github.com/bduran04/festival-finder/internal/ratelimit"
	"github.com/bduran04/festival-finder/internal/storage"
)

// Server is the festival-finder HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, MCPServer, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	DB       *storage.DB
	JWTMgr   *auth.JWTManager
	Enricher *enrich.Enricher
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string

	// Admin surface. Empty AdminKeyHash disables POST /auth/token.
	AdminKeyHash        string
	ReenrichConcurrency int

	// Optional embedded assets.
	OpenAPISpec []byte // Embedded OpenAPI YAML.
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		Enricher:            cfg.Enricher,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
		AdminKeyHash:        cfg.AdminKeyHash,
		ReenrichConcurrency: cfg.ReenrichConcurrency,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Rate limit groups, all keyed by client IP. Writes and auth share a
	// bucket so a client cannot dodge the write limit via token requests.
	readRL := ratelimit.Middleware(cfg.Limiter, "read", ratelimit.IPKeyFunc, reqIDFunc)
	writeRL := ratelimit.Middleware(cfg.Limiter, "write", ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Public read API.
	mux.Handle("GET /api/festivals", readRL(http.HandlerFunc(h.HandleListFestivals)))
	mux.Handle("GET /api/festivals/{id}", readRL(http.HandlerFunc(h.HandleGetFestival)))
	mux.Handle("GET /api/search", readRL(http.HandlerFunc(h.HandleSearch)))
	mux.Handle("GET /api/categories", readRL(http.HandlerFunc(h.HandleCategories)))
	mux.Handle("GET /api/stats", readRL(http.HandlerFunc(h.HandleStats)))

	// Public write API.
	mux.Handle("POST /api/festivals", writeRL(http.HandlerFunc(h.HandleCreateFestival)))
	mux.Handle("PUT /api/festivals/{id}", writeRL(http.HandlerFunc(h.HandleUpdateFestival)))

	// Admin surface. Token exchange is rate limited with the write
	// bucket; reenrich is JWT-gated by adminAuthMiddleware.
	mux.Handle("POST /auth/token", writeRL(http.HandlerFunc(h.HandleAuthToken)))
	mux.Handle("POST /api/admin/reenrich", http.HandlerFunc(h.HandleReenrich))

	// MCP StreamableHTTP transport (read-only tools, no auth).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// OpenAPI spec and health (no rate limit).
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Service index.
	mux.HandleFunc("GET /", h.HandleRoot)

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → admin auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = adminAuthMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handlers returns the underlying Handlers for use in tests.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
