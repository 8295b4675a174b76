package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"popdash/adapters/excel"
	"popdash/app"
	"popdash/domain/chart"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal/config"
	"popdash/internal/container"
	"popdash/internal/errors"
)

// CategoryParam is the repeatable query key carrying the category selection
const CategoryParam = "category"

// maxBodyBytes bounds POST /normalize bodies
const maxBodyBytes = 10 << 20

// Handler serves the JSON API over the configured profiles
type Handler struct {
	router    *chi.Mux
	container *container.Container
}

// NewHandler creates the API router
func NewHandler(c *container.Container) *Handler {
	h := &Handler{
		router:    chi.NewRouter(),
		container: c,
	}
	h.setupMiddleware()
	h.setupRoutes()
	return h
}

func (h *Handler) setupMiddleware() {
	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.Logger)
	h.router.Use(middleware.Recoverer)
}

func (h *Handler) setupRoutes() {
	h.router.Get("/healthz", h.handleHealth)
	h.router.Get("/profiles", h.handleListProfiles)
	h.router.Route("/profiles/{name}", func(r chi.Router) {
		r.Get("/categories", h.handleCategories)
		r.Get("/records", h.handleRecords)
		r.Get("/summary", h.handleSummary)
		r.Get("/chart", h.handleChart)
		r.Get("/export", h.handleExport)
	})
	h.router.Post("/normalize", h.handleNormalize)
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// profileInfo is the listing entry for one profile
type profileInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	Layout      string `json:"layout"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := make([]profileInfo, 0, len(h.container.Profiles.Profiles))
	for _, p := range h.container.Profiles.Profiles {
		layout := config.LayoutWide
		if p.IsLong() {
			layout = config.LayoutLong
		}
		profiles = append(profiles, profileInfo{
			Name:        p.Name,
			Title:       p.Title,
			Description: p.Description,
			Source:      p.Source.Kind,
			Layout:      layout,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	result, _, err := h.container.RunProfile(r.Context(), name, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":    name,
		"categories": result.Categories,
	})
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	result, ok := h.runWithSelection(w, r)
	if !ok {
		return
	}

	etag := `"` + result.Fingerprint.String() + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := h.runWithSelection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":  chi.URLParam(r, "name"),
		"selected": result.Selected,
		"summary":  result.Summary,
	})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.container.Profile(name)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := ChartConfigFromQuery(p.ChartConfig(), r.URL.Query())
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}

	result, ok := h.runWithSelection(w, r)
	if !ok {
		return
	}

	// Render into a buffer so a failure never leaves a partial image
	var buf bytes.Buffer
	if err := h.container.Pipeline.RenderChart(&buf, result, cfg); err != nil {
		h.container.Logger.Error("[handleChart] %s: rendering failed: %v", name, err)
		writeError(w, errors.InternalError("chart rendering failed"))
		return
	}
	w.Header().Set("Content-Type", cfg.Format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	format := strings.ToLower(r.URL.Query().Get("format"))
	ext := "xlsx"
	exp := h.container.Exporter
	switch format {
	case "", "xlsx":
	case "csv":
		exp = excel.NewCSVExporter()
		ext = "csv"
	default:
		writeError(w, errors.InvalidInput(fmt.Sprintf("unknown export format %q (want xlsx or csv)", format)))
		return
	}

	result, ok := h.runWithSelection(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := exp.Export(&buf, result.Filtered); err != nil {
		writeError(w, errors.Wrap(err, "export failed"))
		return
	}
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// runWithSelection runs the named profile with the query's category selection.
// It writes the error response itself and reports whether to continue.
func (h *Handler) runWithSelection(w http.ResponseWriter, r *http.Request) (*app.Result, bool) {
	sel := ParseSelection(r.URL.Query())
	result, _, err := h.container.RunProfile(r.Context(), chi.URLParam(r, "name"), func(req *app.Request) {
		req.Selection = sel
	})
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return result, true
}

// ParseSelection reads the repeated category key. An absent key selects every
// category; "category=" alone is an explicit empty selection.
func ParseSelection(q url.Values) *dataset.Selection {
	values, ok := q[CategoryParam]
	if !ok {
		return nil
	}
	labels := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			labels = append(labels, v)
		}
	}
	sel := dataset.NewSelection(labels...)
	return &sel
}

// ChartConfigFromQuery overrides base with mode, format, markers, width and
// height query parameters.
func ChartConfigFromQuery(base chart.Config, q url.Values) (chart.Config, error) {
	cfg := base
	if v := q.Get("mode"); v != "" {
		mode, err := chart.ParseMode(v)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if v := q.Get("format"); v != "" {
		format, err := chart.ParseFormat(v)
		if err != nil {
			return cfg, err
		}
		cfg.Format = format
	}
	if v := q.Get("markers"); v != "" {
		markers, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid markers value %q", v)
		}
		cfg.Markers = markers
	}
	for key, dst := range map[string]*float64{"width": &cfg.Width, "height": &cfg.Height} {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 || f > 40 {
				return cfg, fmt.Errorf("invalid %s %q (inches, 0-40)", key, v)
			}
			*dst = f
		}
	}
	return cfg.WithDefaults(), nil
}

// normalizeRequest is the body of POST /normalize
type normalizeRequest struct {
	Headers      []string             `json:"headers"`
	Rows         [][]interface{}      `json:"rows"`
	PeriodColumn string               `json:"period_column"`
	PeriodIndex  *int                 `json:"period_index"`
	RowFilter    *normalize.RowFilter `json:"row_filter"`
	Blocklist    []string             `json:"blocklist"`
	Missing      string               `json:"missing"`
	Separators   string               `json:"separators"`
	Long         *config.LongColumns  `json:"long"`
	Selection    *[]string            `json:"selection"`
}

func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var body normalizeRequest
	if err := dec.Decode(&body); err != nil {
		writeError(w, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	raw, err := body.table()
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	req, err := body.request()
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}

	result, err := h.container.Pipeline.RunTable(raw, "request body", req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// table builds a raw table from the body. JSON null leaves a cell absent.
func (b *normalizeRequest) table() (*dataset.RawTable, error) {
	if len(b.Headers) == 0 {
		return nil, fmt.Errorf("headers are required")
	}
	table := &dataset.RawTable{Headers: b.Headers, Rows: make([]dataset.Row, 0, len(b.Rows))}
	for i, cells := range b.Rows {
		if len(cells) > len(b.Headers) {
			return nil, fmt.Errorf("row %d has %d cells but there are %d headers", i, len(cells), len(b.Headers))
		}
		row := make(dataset.Row, len(cells))
		for j, cell := range cells {
			if cell != nil {
				row[b.Headers[j]] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func (b *normalizeRequest) request() (app.Request, error) {
	if b.PeriodColumn != "" && b.PeriodIndex != nil {
		return app.Request{}, config.ErrPeriodHintConflict
	}
	missing, err := normalize.ParseMissingPolicy(b.Missing)
	if err != nil {
		return app.Request{}, err
	}

	req := app.Request{Normalize: normalize.Options{
		RowFilter:  b.RowFilter,
		Blocklist:  b.Blocklist,
		Missing:    missing,
		Separators: b.Separators,
	}}
	switch {
	case b.PeriodColumn != "":
		req.Normalize.Period = normalize.ByName(b.PeriodColumn)
	case b.PeriodIndex != nil:
		req.Normalize.Period = normalize.ByIndex(*b.PeriodIndex)
	}
	if b.Long != nil {
		req.Long = &normalize.LongOptions{
			PeriodColumn:   b.Long.Period,
			CategoryColumn: b.Long.Category,
			ValueColumn:    b.Long.Value,
			RowFilter:      b.RowFilter,
			Missing:        missing,
			Separators:     b.Separators,
		}
	}
	if b.Selection != nil {
		sel := dataset.NewSelection(*b.Selection...)
		req.Selection = &sel
	}
	return req, nil
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	appErr := errors.FromDomain(err)
	writeJSON(w, errors.HTTPStatus(appErr), errorResponse{Error: appErr.Error(), Code: appErr.Code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
