package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// OpportunityReader is the read side of the opportunity service.
type OpportunityReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.OpportunityRecord, error)
	ListByPair(ctx context.Context, pairKey string, opts domain.ListOpts) ([]domain.OpportunityRecord, error)
}

// OpportunityHandler serves stored opportunities.
type OpportunityHandler struct {
	opps   OpportunityReader
	logger *slog.Logger
}

func NewOpportunityHandler(opps OpportunityReader, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, logger: logger}
}

type listOpportunitiesResponse struct {
	Opportunities []domain.OpportunityRecord `json:"opportunities"`
}

// ListRecent returns the newest opportunities.
// GET /api/opportunities/recent?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opps.ListRecent(r.Context(), intParam(r, "limit", 20, 200))
	if err != nil {
		logError(h.logger, r, "handler: list recent opportunities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if opps == nil {
		opps = []domain.OpportunityRecord{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}

// ListByPair returns the history of one market pair. The pair is named
// either by key or by its two exchange:id legs.
// GET /api/opportunities/pair?key=... or ?leg1=kalshi:KX&leg2=polymarket:slug
func (h *OpportunityHandler) ListByPair(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		ex1, id1, ok1 := parseLeg(q.Get("leg1"))
		ex2, id2, ok2 := parseLeg(q.Get("leg2"))
		if !ok1 || !ok2 {
			writeError(w, http.StatusBadRequest, "key or leg1 and leg2 required")
			return
		}
		key = domain.PairKey(ex1, id1, ex2, id2)
	}

	opps, err := h.opps.ListByPair(r.Context(), key, parseListOpts(r))
	if err != nil {
		logError(h.logger, r, "handler: list pair opportunities failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if opps == nil {
		opps = []domain.OpportunityRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pair_key": key, "opportunities": opps})
}

// parseLeg splits "exchange:market_id". Market IDs may contain colons.
func parseLeg(s string) (domain.Exchange, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			ex, ok := domain.ParseExchange(s[:i])
			if !ok || i == len(s)-1 {
				return "", "", false
			}
			return ex, s[i+1:], true
		}
	}
	return "", "", false
}
