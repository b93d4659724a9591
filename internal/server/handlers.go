package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bduran04/festival-finder/internal/auth"
	"github.com/bduran04/festival-finder/internal/enrich"
	"github.com/bduran04/festival-finder/internal/model"
	"github.com/bduran04/festival-finder/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	enricher            *enrich.Enricher
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte
	adminKeyHash        string
	reenrichConcurrency int
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): OpenAPISpec. An empty AdminKeyHash disables
// POST /auth/token.
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	Enricher            *enrich.Enricher
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
	AdminKeyHash        string
	ReenrichConcurrency int
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		enricher:            d.Enricher,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
		adminKeyHash:        d.AdminKeyHash,
		reenrichConcurrency: d.ReenrichConcurrency,
	}
}

// HandleRoot handles GET /. Returns service identity and the endpoint map.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "not found")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "festival-finder",
		"version": h.version,
		"endpoints": map[string]string{
			"festivals":  "/api/festivals",
			"search":     "/api/search?q={query}",
			"categories": "/api/categories",
			"stats":      "/api/stats",
			"health":     "/health",
			"openapi":    "/openapi.yaml",
		},
	})
}

// HandleListFestivals handles GET /api/festivals.
// Supports city (substring, case-insensitive), category (exact),
// limit, and offset query parameters.
func (h *Handlers) HandleListFestivals(w http.ResponseWriter, r *http.Request) {
	filters := model.ListFilters{
		City: strings.TrimSpace(r.URL.Query().Get("city")),
	}

	if cat := r.URL.Query().Get("category"); cat != "" {
		if !model.ValidCategory(model.Category(cat)) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				"unknown category "+strconv.Quote(cat))
			return
		}
		filters.Category = model.Category(cat)
	}

	var err error
	filters.Limit, err = queryLimit(r, 50, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	filters.Offset, err = queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	festivals, total, err := h.db.ListFestivals(r.Context(), filters)
	if err != nil {
		h.writeInternalError(w, r, "failed to list festivals", err)
		return
	}
	if festivals == nil {
		festivals = []model.Festival{}
	}

	writeList(w, r, http.StatusOK, festivals, total, filters.Limit, filters.Offset)
}

// HandleCreateFestival handles POST /api/festivals.
// Validates, normalizes, and enriches the submitted record before insert.
func (h *Handlers) HandleCreateFestival(w http.ResponseWriter, r *http.Request) {
	var in model.FestivalInput
	if err := decodeJSON(w, r, &in, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	enrichment := h.enricher.Apply(r.Context(), &in)

	festival, err := h.db.CreateFestival(r.Context(), in, enrichment)
	if err != nil {
		h.writeInternalError(w, r, "failed to create festival", err)
		return
	}

	h.logger.Info("festival created",
		"id", festival.ID,
		"name", festival.Name,
		"category", festival.Category,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusCreated, festival)
}

// HandleGetFestival handles GET /api/festivals/{id}.
func (h *Handlers) HandleGetFestival(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	festival, err := h.db.GetFestival(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "festival not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to get festival", err)
		return
	}

	writeJSON(w, r, http.StatusOK, festival)
}

// HandleUpdateFestival handles PUT /api/festivals/{id}.
// The full record is replaced and re-enriched; server-assigned fields
// (id, created_at) are preserved.
func (h *Handlers) HandleUpdateFestival(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	var in model.FestivalInput
	if err := decodeJSON(w, r, &in, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	enrichment := h.enricher.Apply(r.Context(), &in)

	festival, err := h.db.UpdateFestival(r.Context(), id, in, enrichment)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "festival not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to update festival", err)
		return
	}

	h.logger.Info("festival updated",
		"id", festival.ID,
		"category", festival.Category,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, festival)
}

// HandleSearch handles GET /api/search.
// Requires a non-empty q parameter; limit is optional.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "q parameter is required")
		return
	}

	limit, err := queryLimit(r, 20, 50)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	results, err := h.db.SearchFestivals(r.Context(), query, limit)
	if err != nil {
		h.writeInternalError(w, r, "search failed", err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	writeJSON(w, r, http.StatusOK, model.SearchResponse{
		Festivals: results,
		Query:     query,
		Total:     len(results),
	})
}

// HandleCategories handles GET /api/categories.
// Returns the categories present in the table; falls back to the full
// closed set when the table is empty so clients always see valid values.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.ListCategories(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to list categories", err)
		return
	}
	if len(categories) == 0 {
		for _, c := range model.Categories() {
			categories = append(categories, string(c))
		}
	}

	writeJSON(w, r, http.StatusOK, model.CategoriesResponse{Categories: categories})
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to compute stats", err)
		return
	}
	stats.Status = "operational"

	writeJSON(w, r, http.StatusOK, stats)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:        status,
		Version:       h.version,
		Postgres:      pgStatus,
		Sentiment:     h.enricher.SentimentProviderName(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

// writeInternalError logs the underlying error and returns a generic 500.
func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		"error", err,
		"path", r.URL.Path,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

// queryLimit parses a "limit" query parameter, rejecting values
// outside 1..max so the envelope always echoes the limit that was
// applied.
func queryLimit(r *http.Request, defaultVal, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > max {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", max)
	}
	return v, nil
}
