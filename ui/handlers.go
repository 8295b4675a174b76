package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"popdash/adapters/excel"
	"popdash/app"
	"popdash/domain/chart"
	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal/api"
	"popdash/internal/errors"
	"popdash/ports"
)

// selectionMarker is a hidden form field; its presence with no category
// values means the user cleared every box rather than never choosing.
const selectionMarker = "select"

type profileLink struct {
	Name   string
	Title  string
	Active bool
}

type categoryOption struct {
	Label    string
	Selected bool
}

// pageData feeds templates/index.html
type pageData struct {
	Profiles    []profileLink
	Name        string
	Title       string
	Description template.HTML
	Categories  []categoryOption
	Mode        string
	Markers     bool
	ChartURL    string
	ChartData   template.URL
	Summary     []ports.CategorySummary
	Records     int
	Error       string
	ErrorCode   string
	UploadID    string
	MaxUploadMB int
}

func (s *Server) basePage(active string) pageData {
	page := pageData{
		Mode:        string(chart.ModeLine),
		MaxUploadMB: s.container.Config.Data.MaxUploadMB,
	}
	for _, p := range s.container.Profiles.Profiles {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		page.Profiles = append(page.Profiles, profileLink{Name: p.Name, Title: title, Active: p.Name == active})
	}
	return page
}

// handleIndex shows the default profile, or the upload form when none exist
func (s *Server) handleIndex(c *gin.Context) {
	name := s.container.Config.Data.DefaultProfile
	if name == "" && len(s.container.Profiles.Profiles) > 0 {
		name = s.container.Profiles.Profiles[0].Name
	}
	if name == "" {
		page := s.basePage("")
		page.Title = "Upload a table"
		s.renderTemplate(c, http.StatusOK, "index.html", page)
		return
	}
	s.renderProfile(c, name)
}

func (s *Server) handleProfile(c *gin.Context) {
	s.renderProfile(c, c.Param("name"))
}

func (s *Server) renderProfile(c *gin.Context, name string) {
	page := s.basePage(name)
	page.Name = name
	query := c.Request.URL.Query()
	sel := selectionFromValues(query)

	result, p, err := s.container.RunProfile(c.Request.Context(), name, func(req *app.Request) {
		req.Selection = sel
	})
	if p != nil {
		page.Title = p.Title
		page.Description = renderMarkdown(p.Description)
		page.Mode = string(p.ChartConfig().Mode)
		page.Markers = p.ChartConfig().Markers
	}
	if v := query.Get("mode"); v != "" {
		page.Mode = v
	}
	if err != nil {
		s.renderError(c, page, err)
		return
	}

	page.Categories = categoryOptions(result)
	page.Summary = result.Summary
	page.Records = len(result.Filtered)
	page.ChartURL = chartURL(name, query)
	s.renderTemplate(c, http.StatusOK, "index.html", page)
}

// handleChart serves the image referenced by the profile page
func (s *Server) handleChart(c *gin.Context) {
	name := c.Param("name")
	p, err := s.container.Profile(name)
	if err != nil {
		s.chartError(c, err)
		return
	}
	query := c.Request.URL.Query()
	cfg, err := api.ChartConfigFromQuery(p.ChartConfig(), query)
	if err != nil {
		s.chartError(c, errors.InvalidInput(err.Error()))
		return
	}

	sel := selectionFromValues(query)
	result, _, err := s.container.RunProfile(c.Request.Context(), name, func(req *app.Request) {
		req.Selection = sel
	})
	if err != nil {
		s.chartError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.container.Pipeline.RenderChart(&buf, result, cfg); err != nil {
		s.chartError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, cfg.Format.ContentType(), buf.Bytes())
}

// handleUpload normalizes an uploaded table and answers with the page, the
// chart embedded as a data URI. Nothing from the upload is kept.
func (s *Server) handleUpload(c *gin.Context) {
	uploadID := core.NewUploadID()
	page := s.basePage("")
	page.UploadID = uploadID.String()
	page.Title = "Uploaded table"

	file, header, err := c.Request.FormFile("dataset")
	if err != nil {
		s.container.Logger.Warn("[handleUpload] %s FAILED - No file uploaded: %v", uploadID, err)
		s.renderError(c, page, errors.InvalidInput("no file uploaded (field \"dataset\")"))
		return
	}
	defer file.Close()

	maxBytes := s.container.Config.MaxUploadBytes()
	if header.Size > maxBytes {
		s.container.Logger.Warn("[handleUpload] %s FAILED - File too large: %d bytes", uploadID, header.Size)
		s.renderError(c, page, errors.InvalidInput(fmt.Sprintf("file size (%.1f MB) exceeds the %d MB limit",
			float64(header.Size)/(1024*1024), s.container.Config.Data.MaxUploadMB)))
		return
	}
	if excel.DetectFileType(header.Filename) == "" {
		s.container.Logger.Warn("[handleUpload] %s FAILED - Invalid file extension: %s", uploadID, header.Filename)
		s.renderError(c, page, errors.InvalidInput("only Excel (.xlsx) and CSV (.csv) files are allowed"))
		return
	}
	page.Title = header.Filename

	raw, err := excel.ReadUpload(file, header.Filename, c.PostForm("sheet"))
	if err != nil {
		s.renderError(c, page, err)
		return
	}

	req, err := uploadRequest(c.Request.PostForm)
	if err != nil {
		s.renderError(c, page, errors.InvalidInput(err.Error()))
		return
	}
	result, err := s.container.Pipeline.RunTable(raw, header.Filename, req)
	if err != nil {
		s.renderError(c, page, err)
		return
	}

	cfg, err := api.ChartConfigFromQuery(chart.Config{Title: header.Filename}, c.Request.PostForm)
	if err != nil {
		s.renderError(c, page, errors.InvalidInput(err.Error()))
		return
	}
	page.Mode = string(cfg.Mode)
	page.Markers = cfg.Markers
	page.ChartData, err = s.charts.DataURI(result, cfg)
	if err != nil {
		s.renderError(c, page, err)
		return
	}

	page.Categories = categoryOptions(result)
	page.Summary = result.Summary
	page.Records = len(result.Filtered)
	s.container.Logger.Info("[handleUpload] %s normalized %s: %d records, %d categories", uploadID, header.Filename, len(result.Records), len(result.Categories))
	s.renderTemplate(c, http.StatusOK, "index.html", page)
}

// uploadRequest reads normalizer options from the upload form
func uploadRequest(form url.Values) (app.Request, error) {
	missing, err := normalize.ParseMissingPolicy(form.Get("missing"))
	if err != nil {
		return app.Request{}, err
	}
	req := app.Request{Normalize: normalize.Options{Missing: missing}}

	if col := strings.TrimSpace(form.Get("period_column")); col != "" {
		if idx, err := strconv.Atoi(col); err == nil {
			req.Normalize.Period = normalize.ByIndex(idx)
		} else {
			req.Normalize.Period = normalize.ByName(col)
		}
	}
	if col := strings.TrimSpace(form.Get("filter_column")); col != "" {
		req.Normalize.RowFilter = &normalize.RowFilter{Column: col, Value: form.Get("filter_value")}
	}
	for _, label := range strings.Split(form.Get("exclude"), ",") {
		if label = strings.TrimSpace(label); label != "" {
			req.Normalize.Blocklist = append(req.Normalize.Blocklist, label)
		}
	}
	req.Selection = selectionFromValues(form)
	return req, nil
}

// selectionFromValues extends api.ParseSelection with the form marker so an
// all-cleared multi-select yields an empty selection.
func selectionFromValues(values url.Values) *dataset.Selection {
	if sel := api.ParseSelection(values); sel != nil {
		return sel
	}
	if values.Get(selectionMarker) != "" {
		empty := dataset.NewSelection()
		return &empty
	}
	return nil
}

func categoryOptions(result *app.Result) []categoryOption {
	selected := dataset.NewSelection(result.Selected...)
	options := make([]categoryOption, 0, len(result.Categories))
	for _, label := range result.Categories {
		options = append(options, categoryOption{Label: label, Selected: selected.Contains(label)})
	}
	return options
}

// chartURL carries the page's selection and chart options to /chart/:name
func chartURL(name string, query url.Values) string {
	params := url.Values{}
	for _, key := range []string{api.CategoryParam, selectionMarker, "mode", "markers", "format"} {
		if values, ok := query[key]; ok {
			params[key] = values
		}
	}
	u := "/chart/" + url.PathEscape(name)
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (s *Server) renderError(c *gin.Context, page pageData, err error) {
	appErr := errors.FromDomain(err)
	s.container.Logger.Warn("[Dashboard] %s: %v", appErr.Code, err)
	page.Error = appErr.Error()
	page.ErrorCode = appErr.Code
	s.renderTemplate(c, errors.HTTPStatus(appErr), "index.html", page)
}

func (s *Server) chartError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	c.JSON(errors.HTTPStatus(appErr), gin.H{"error": appErr.Error(), "code": appErr.Code})
}
