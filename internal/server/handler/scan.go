package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	s3blob "github.com/alanyoungcy/arbscanner/internal/blob/s3"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
)

// ScanRunner exposes the most recent cycle and an on-demand trigger.
type ScanRunner interface {
	Latest() (scanner.ScanResult, bool)
	RunOnce(ctx context.Context) (scanner.ScanResult, error)
}

// ReportArchive reads archived cycle reports.
type ReportArchive interface {
	Reports(ctx context.Context, day time.Time) ([]domain.BlobInfo, error)
	Report(ctx context.Context, path string) (s3blob.Report, error)
}

// ScanHandler serves scan-cycle state. reports may be nil.
type ScanHandler struct {
	runner  ScanRunner
	reports ReportArchive
	logger  *slog.Logger
}

func NewScanHandler(runner ScanRunner, reports ReportArchive, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{runner: runner, reports: reports, logger: logger}
}

type scanResponse struct {
	Summary       domain.ScanSummary         `json:"summary"`
	Pairs         int                        `json:"pairs"`
	Opportunities []domain.OpportunityRecord `json:"opportunities"`
}

func newScanResponse(res scanner.ScanResult) scanResponse {
	out := scanResponse{
		Summary:       res.Summary(),
		Pairs:         res.Pairs,
		Opportunities: make([]domain.OpportunityRecord, 0, len(res.Opportunities)),
	}
	for _, o := range res.Opportunities {
		out.Opportunities = append(out.Opportunities, o.Record(res.CycleID))
	}
	return out
}

// Latest returns the most recent completed cycle.
// GET /api/scan/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runner.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, newScanResponse(res))
}

// Trigger runs a cycle now and returns its result.
// POST /api/scan/trigger
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.RunOnce(r.Context())
	switch {
	case errors.Is(err, scanner.ErrCycleRunning), errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "a scan is already running")
		return
	case err != nil:
		logError(h.logger, r, "handler: triggered scan failed", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, newScanResponse(res))
}

// ListReports lists archived reports for a day (default today, UTC).
// GET /api/scan/reports?date=2026-03-01
func (h *ScanHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusNotImplemented, "report archive not configured")
		return
	}
	day := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = t
	}
	infos, err := h.reports.Reports(r.Context(), day)
	if err != nil {
		logError(h.logger, r, "handler: list reports failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": day.Format("2006-01-02"), "reports": infos})
}

// GetReport returns one archived report.
// GET /api/scan/reports/{path...}
func (h *ScanHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusNotImplemented, "report archive not configured")
		return
	}
	rep, err := h.reports.Report(r.Context(), r.PathValue("path"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		logError(h.logger, r, "handler: get report failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
