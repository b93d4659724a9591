package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/bduran04/festival-finder/internal/auth"
	"github.com/bduran04/festival-finder/internal/model"
	"github.com/bduran04/festival-finder/internal/storage"
)

const reenrichBatchSize = 100

// HandleAuthToken handles POST /auth/token.
// Exchanges the configured admin API key for a short-lived admin JWT.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if h.adminKeyHash == "" {
		// No admin key configured. Burn comparable time so the disabled
		// state is not distinguishable from a wrong key.
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, h.adminKeyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueAdminToken()
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	h.logger.Info("admin token issued",
		"expires_at", expiresAt,
		"ip", r.RemoteAddr,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// HandleReenrich handles POST /api/admin/reenrich.
// Recomputes category, sentiment, popularity, and summary for every
// stored festival. Runs synchronously; the response reports how many
// rows were updated. Records are walked in ID order with keyset
// pagination so the pass is stable under concurrent inserts.
func (h *Handlers) HandleReenrich(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var updated atomic.Int64
	var afterID int64

	for {
		batch, err := h.db.ListFestivalsAfter(ctx, afterID, reenrichBatchSize)
		if err != nil {
			h.writeInternalError(w, r, "re-enrichment failed", err)
			return
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.reenrichConcurrency)
		for _, f := range batch {
			g.Go(func() error {
				return h.reenrichOne(gctx, f, &updated)
			})
		}
		if err := g.Wait(); err != nil {
			h.writeInternalError(w, r, "re-enrichment failed", err)
			return
		}
	}

	h.logger.Info("re-enrichment complete",
		"updated", updated.Load(),
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, model.ReenrichResponse{Updated: int(updated.Load())})
}

// reenrichOne recomputes enrichment for a single stored festival.
func (h *Handlers) reenrichOne(ctx context.Context, f model.Festival, updated *atomic.Int64) error {
	in := model.FestivalInput{
		Name:        f.Name,
		Venue:       f.Venue,
		City:        f.City,
		State:       f.State,
		Date:        f.Date,
		Price:       f.Price,
		URL:         f.URL,
		Description: f.Description,
	}
	enrichment := h.enricher.Apply(ctx, &in)
	err := h.db.UpdateEnrichment(ctx, f.ID, enrichment)
	if errors.Is(err, storage.ErrNotFound) {
		// Row deleted out from under the pass; skip it.
		return nil
	}
	if err != nil {
		return err
	}
	updated.Add(1)
	return nil
}
