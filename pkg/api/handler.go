// Package api serves performance runs over a REST/JSON interface.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
)

// RequestRecorder counts served requests. Implemented by the metrics package.
type RequestRecorder interface {
	RecordAPIRequest(route string, code int)
}

// Handler serves the perf-run API.
type Handler struct {
	db       store.DB
	logger   *slog.Logger
	recorder RequestRecorder
}

// NewHandler creates a new API handler. recorder may be nil.
func NewHandler(database store.DB, logger *slog.Logger, recorder RequestRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:       database,
		logger:   logger.With("component", "api"),
		recorder: recorder,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/perf-runs", h.instrument("list", h.handleList))
	mux.HandleFunc("GET /api/perf-runs/summary", h.instrument("summary", h.handleSummary))
	mux.HandleFunc("GET /api/perf-runs/trends", h.instrument("trends", h.handleTrends))
	mux.HandleFunc("GET /api/perf-runs/{row_no}", h.instrument("get", h.handleGet))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	criteria, err := perf.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.db.ListRuns(r.Context(), criteria)
	if err != nil {
		h.internalError(w, "failed to list runs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.PathValue("row_no"))
	rowNo, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid row_no: "+strconv.Quote(text))
		return
	}

	run, err := h.db.GetRun(r.Context(), rowNo)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	if err != nil {
		h.internalError(w, "failed to get run", err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	runs, err := h.db.ListRuns(r.Context(), perf.Criteria{})
	if err != nil {
		h.internalError(w, "failed to list runs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, perf.Summarize(runs))
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	runs, err := h.db.ListRuns(r.Context(), perf.Criteria{})
	if err != nil {
		h.internalError(w, "failed to list runs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, perf.Trend(runs))
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, message)
}

// instrument records the response status of each request under route.
func (h *Handler) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if h.recorder == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next(sw, r)
		h.recorder.RecordAPIRequest(route, sw.code)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// writeJSON encodes v before writing the status so an encoding failure can
// still be reported as a 500.
func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.internalError(w, "failed to encode response", err)
		return
	}
	writeBody(w, code, append(body, '\n'))
}

func writeError(w http.ResponseWriter, code int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	writeBody(w, code, append(body, '\n'))
}

func writeBody(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
