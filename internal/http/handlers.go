package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gkiss/odp-extremes-service/internal/archive"
	"github.com/gkiss/odp-extremes-service/internal/clock"
	"github.com/gkiss/odp-extremes-service/internal/lifecycle"
	"github.com/gkiss/odp-extremes-service/internal/report"
	"github.com/gkiss/odp-extremes-service/internal/schema"
	"github.com/gkiss/odp-extremes-service/internal/validation"
)

// Pinger checks feed reachability for health reporting.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service  *report.Service
	feed     Pinger
	logger   *zap.Logger
	clk      clockwork.Clock
	zone     *time.Location
	earliest time.Time // oldest date the API accepts; zero disables the bound

	// CachePing, when set, is called by the health handler to check cache
	// reachability. Used when the backend is memcached.
	CachePing func() error

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(service *report.Service, feed Pinger, logger *zap.Logger, clk clockwork.Clock, zone *time.Location, earliest time.Time) *Handler {
	return &Handler{
		service:  service,
		feed:     feed,
		logger:   logger,
		clk:      clk,
		zone:     zone,
		earliest: earliest,
	}
}

// resolveDate validates the {date} path variable, or falls back to the
// default report date (yesterday in the feed zone) when absent.
func (h *Handler) resolveDate(r *http.Request) (time.Time, error) {
	raw, present := mux.Vars(r)["date"]
	latest := clock.DefaultReportDate(h.clk, h.zone).AddDate(0, 0, 1) // today; same-day requests 404 rather than 400
	if !present {
		return clock.DefaultReportDate(h.clk, h.zone), nil
	}
	return validation.ValidateDate(raw, h.earliest, latest, h.zone)
}

// GetExtremes handles GET /extremes and GET /extremes/{date}.
func (h *Handler) GetExtremes(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	result, err := h.service.GetExtremes(r.Context(), date)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DownloadArchive handles GET /archive/{date}: the raw feed zip, passed
// through untouched for the "download original file" affordance.
func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	raw, name, err := h.service.GetArchive(r.Context(), date)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.reason == "feed_unreachable" {
		checks["feed"] = "unhealthy"
	} else {
		checks["feed"] = "healthy"
	}
	if h.CachePing != nil {
		if h.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "odp-extremes-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": h.clk.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > feed unreachable > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.feed != nil {
		if err := h.feed.Ping(ctx); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "feed_unreachable"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with code, message, and
// requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writePipelineError maps pipeline failures onto HTTP statuses. Each error
// kind keeps its identity end to end so the caller can tell a missing date
// from a broken feed.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NO_DATA_FOR_DATE", "no data published for this date")
	case errors.Is(err, archive.ErrTransport):
		writeError(w, r, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "unable to reach the weather feed")
	case errors.Is(err, archive.ErrMalformedArchive):
		writeError(w, r, http.StatusBadGateway, "BAD_FEED_DATA", "feed archive contains no usable table")
	case errors.Is(err, schema.ErrSchema):
		writeError(w, r, http.StatusBadGateway, "BAD_FEED_DATA", "feed table structure is not recognized")
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "unexpected failure")
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("pipeline error", zap.Error(err))
	}
}
