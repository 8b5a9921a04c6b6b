package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/dashboard"
	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/table"
)

//go:embed templates/*.html static/*.css static/*.js
var content embed.FS

// SessionCookie names the cookie that carries the dashboard session ID.
const SessionCookie = "perfdash_session"

var chartTitles = map[string]string{
	chart.TPS:      "Transactions per Second",
	chart.Latency:  "P95 Latency",
	chart.FailRate: "Failed Transaction Rate",
}

// Handler serves the web UI for browsing performance runs.
type Handler struct {
	sessions  *dashboard.Controller
	templates *template.Template
	logger    *slog.Logger
}

// NewHandler creates a new UI handler.
func NewHandler(sessions *dashboard.Controller, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	funcMap := template.FuncMap{
		"chartTitle": func(id string) string { return chartTitles[id] },
		"pageURL":    pageURL,
		"sortURL":    sortURL,
		"sortMark":   sortMark,
		"inc":        func(n int) int { return n + 1 },
		"dec":        func(n int) int { return n - 1 },
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Handler{
		sessions:  sessions,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// RegisterRoutes registers all UI routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui/", h.handleDashboard)
	mux.HandleFunc("POST /ui/select", h.handleSelect)
	mux.HandleFunc("GET /ui/search", h.handleSearch)
	mux.HandleFunc("GET /ui/table", h.handleTable)
	mux.HandleFunc("GET /ui/charts/{file}", h.handleChartPNG)

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /ui/static/", http.StripPrefix("/ui/static/", http.FileServer(http.FS(staticFS))))
}

// session returns the caller's dashboard session, creating and loading it on
// the first visit.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, error) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	s, created := h.sessions.Acquire(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/ui/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if err := s.EnsureLoaded(r.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

// Dashboard

type chartView struct {
	ID    string
	Empty bool
}

type dashboardData struct {
	Charts   []chartView
	Scenario dashboard.Scenario
	NoData   string
	// Configs maps the ID of every non-empty chart to its Chart.js config.
	Configs   template.JS
	Highlight template.JS
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ui/" && r.URL.Path != "/ui" {
		http.NotFound(w, r)
		return
	}

	s, err := h.session(w, r)
	if err != nil {
		h.renderError(w, "Failed to load performance runs", err)
		return
	}

	data := dashboardData{
		Scenario: s.Scenario(),
		NoData:   chart.NoData,
	}
	configs := make(map[string]json.RawMessage)
	for _, c := range s.Charts() {
		data.Charts = append(data.Charts, chartView{ID: c.ID, Empty: c.Empty})
		if c.Empty {
			continue
		}
		js, err := c.JS()
		if err != nil {
			h.renderError(w, "Failed to build charts", err)
			return
		}
		configs[c.ID] = json.RawMessage(js)
	}
	cfg, err := json.Marshal(configs)
	if err != nil {
		h.renderError(w, "Failed to build charts", err)
		return
	}
	highlight, err := json.Marshal(s.Highlight())
	if err != nil {
		h.renderError(w, "Failed to encode highlight", err)
		return
	}
	data.Configs = template.JS(cfg)
	data.Highlight = template.JS(highlight)

	h.render(w, "dashboard.html", data)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index %q", r.FormValue("index")))
		return
	}

	hl, err := s.Select(r.FormValue("chart"), index)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hl); err != nil {
		h.logger.Error("failed to encode highlight", slog.String("error", err.Error()))
	}
}

func (h *Handler) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s, err := h.session(w, r)
	if err != nil {
		h.renderError(w, "Failed to load performance runs", err)
		return
	}
	c, ok := s.Chart(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	width := intParam(r.URL.Query(), "width", chart.DefaultWidth)
	height := intParam(r.URL.Query(), "height", chart.DefaultHeight)

	var buf bytes.Buffer
	if err := c.RenderPNG(&buf, width, height); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			http.Error(w, chart.NoData, http.StatusNotFound)
			return
		}
		h.logger.Error("chart render failed", slog.String("chart", id), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// Search

type resultsData struct {
	Strategy dashboard.TableStrategy
	Widget   template.JS
	Table    table.View
	// Chart plots the throughput of the matching runs. Empty when none match.
	Chart   template.JS
	Message string
}

type searchData struct {
	Criteria    formValues
	ReleaseTags []string
	Results     resultsData
}

// formValues echoes the submitted search form.
type formValues struct {
	ReleaseTag      string
	AvgTPSMin       string
	AvgTPSMax       string
	P95LatencyMax   string
	FailedTxnPctMax string
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderError(w, "Failed to load performance runs", err)
		return
	}

	q := r.URL.Query()
	partial := r.Header.Get("HX-Request") == "true"

	status := http.StatusOK
	var message string
	c, err := perf.ParseForm(q)
	if err != nil {
		if !partial {
			status = http.StatusBadRequest
		}
		message = err.Error()
	} else if err := s.ApplyFilter(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, dashboard.ErrStale) && partial:
			// A newer search owns the table.
			w.WriteHeader(http.StatusNoContent)
			return
		case errors.Is(err, dashboard.ErrStale):
			// Full page loads show the table the newer search left behind.
		default:
			h.logger.Error("search failed", slog.String("error", err.Error()))
			message = "Search failed: " + err.Error()
		}
	}

	results, err := h.results(s, table.ParseOptions(q), message)
	if err != nil {
		h.renderError(w, "Failed to build table", err)
		return
	}

	// For HTMX requests, only render the results
	if partial {
		h.render(w, "results", results)
		return
	}

	h.renderStatus(w, status, "search.html", searchData{
		Criteria: formValues{
			ReleaseTag:      q.Get("release_tag"),
			AvgTPSMin:       q.Get("avg_tps_min"),
			AvgTPSMax:       q.Get("avg_tps_max"),
			P95LatencyMax:   q.Get("p95_latency_max"),
			FailedTxnPctMax: q.Get("failed_txn_pct_max"),
		},
		ReleaseTags: s.ReleaseTags(),
		Results:     results,
	})
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(w, r)
	if err != nil {
		h.renderError(w, "Failed to load performance runs", err)
		return
	}
	h.render(w, "table", s.Table(table.ParseOptions(r.URL.Query())))
}

func (h *Handler) results(s *dashboard.Session, opts table.Options, message string) (resultsData, error) {
	res := resultsData{
		Strategy: s.Config().Table,
		Message:  message,
	}
	if c, ok := s.Chart(chart.TPS); ok && !c.Empty {
		js, err := c.JS()
		if err != nil {
			return res, err
		}
		res.Chart = js
	}
	if res.Strategy == dashboard.TableManual {
		res.Table = s.Table(opts)
		return res, nil
	}
	cfg, err := s.Widget().JS()
	if err != nil {
		return res, err
	}
	res.Widget = cfg
	return res, nil
}

// Rendering helpers

func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	h.renderStatus(w, http.StatusOK, name, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template render failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handler) renderError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.String("error", err.Error()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if terr := h.templates.ExecuteTemplate(w, "error.html", map[string]string{
		"Message": message,
		"Error":   err.Error(),
	}); terr != nil {
		h.logger.Error("template render failed", slog.String("template", "error.html"), slog.String("error", terr.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("ui request failed", slog.String("error", err.Error()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Template functions

func tableQuery(v table.View, page int, sort string, desc bool) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(v.Size))
	if sort != "" {
		q.Set("sort", sort)
		q.Set("desc", strconv.FormatBool(desc))
	}
	return "/ui/table?" + q.Encode()
}

func pageURL(v table.View, page int) string {
	return tableQuery(v, page, v.Sort, v.Desc)
}

// sortURL returns the first page sorted by field, toggling the direction when
// the table is already sorted by it.
func sortURL(v table.View, field string) string {
	desc := false
	if v.Sort == field {
		desc = !v.Desc
	}
	return tableQuery(v, 1, field, desc)
}

func sortMark(v table.View, field string) string {
	switch {
	case v.Sort != field:
		return ""
	case v.Desc:
		return "▼"
	default:
		return "▲"
	}
}

func intParam(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
