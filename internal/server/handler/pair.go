package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// PairHandler manages the curated market pairs.
type PairHandler struct {
	pairs  domain.MarketPairStore
	logger *slog.Logger
}

func NewPairHandler(pairs domain.MarketPairStore, logger *slog.Logger) *PairHandler {
	return &PairHandler{pairs: pairs, logger: logger}
}

// ListActive returns every active pair.
// GET /api/pairs
func (h *PairHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.pairs.ListActive(r.Context())
	if err != nil {
		logError(h.logger, r, "handler: list pairs failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list pairs")
		return
	}
	if pairs == nil {
		pairs = []domain.MarketPairRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": pairs})
}

type upsertPairRequest struct {
	Exchange1 string `json:"exchange1"`
	MarketID1 string `json:"market_id1"`
	Exchange2 string `json:"exchange2"`
	MarketID2 string `json:"market_id2"`
	Source    string `json:"source"`
}

// Upsert adds a pair, or reactivates it if it already exists.
// POST /api/pairs
func (h *PairHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertPairRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ex1, ok1 := domain.ParseExchange(req.Exchange1)
	ex2, ok2 := domain.ParseExchange(req.Exchange2)
	switch {
	case !ok1 || !ok2:
		writeError(w, http.StatusBadRequest, "unknown exchange")
		return
	case strings.TrimSpace(req.MarketID1) == "" || strings.TrimSpace(req.MarketID2) == "":
		writeError(w, http.StatusBadRequest, "market_id1 and market_id2 are required")
		return
	case ex1 == ex2:
		writeError(w, http.StatusBadRequest, "a pair must span two exchanges")
		return
	}

	rec := domain.MarketPairRecord{
		Exchange1: ex1,
		MarketID1: strings.TrimSpace(req.MarketID1),
		Exchange2: ex2,
		MarketID2: strings.TrimSpace(req.MarketID2),
		Source:    req.Source,
		Active:    true,
	}
	if err := h.pairs.Upsert(r.Context(), rec); err != nil {
		logError(h.logger, r, "handler: upsert pair failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save pair")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"pair_key": domain.PairKey(rec.Exchange1, rec.MarketID1, rec.Exchange2, rec.MarketID2),
	})
}

// Deactivate removes a pair from future scans.
// DELETE /api/pairs/{id}
func (h *PairHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pair id")
		return
	}
	if err := h.pairs.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pair not found")
			return
		}
		logError(h.logger, r, "handler: deactivate pair failed", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate pair")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
