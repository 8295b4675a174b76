package ui

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"popdash/internal"
	"popdash/internal/api"
	"popdash/internal/config"
	"popdash/internal/container"
	"popdash/internal/testkit"
)

func newTestServer(t *testing.T, withProfiles bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := &config.ProfileSet{}
	if withProfiles {
		csvPath := filepath.Join(t.TempDir(), "age.csv")
		require.NoError(t, os.WriteFile(csvPath, []byte(testkit.AgeGroupCSV()), 0o644))
		var err error
		profiles, err = config.ParseProfiles([]byte(`
profiles:
  - name: age
    title: Age groups
    description: "Residents by **age group**"
    source: {kind: file, path: ` + csvPath + `}
    row_filter: {column: region, value: X}
    blocklist: [total]
    chart: {markers: true}
`))
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Data:    config.DataConfig{FetchTimeout: time.Second, MaxUploadMB: 1},
		Logging: config.LoggingConfig{Level: "ERROR"},
	}
	c, err := container.New(cfg, profiles)
	require.NoError(t, err)

	// The module root holds ui/templates and ui/static
	s, err := NewServer(os.DirFS(".."), c, api.NewHandler(c))
	require.NoError(t, err)
	return s
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexShowsFirstProfile(t *testing.T) {
	rec := get(newTestServer(t, true), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Age groups")
	assert.Contains(t, body, "<strong>age group</strong>")
	assert.Contains(t, body, `value="0-14" checked`)
	assert.Contains(t, body, `src="/chart/age"`)
}

func TestIndexWithoutProfiles(t *testing.T) {
	rec := get(newTestServer(t, false), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="dataset"`)
}

func TestProfileSelection(t *testing.T) {
	s := newTestServer(t, true)

	rec := get(s, "/profiles/age?select=1&category=65%2B&mode=bar")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="65&#43;" checked`)
	assert.NotContains(t, body, `value="0-14" checked`)
	assert.Contains(t, body, "/chart/age?category=65%2B")

	cleared := get(s, "/profiles/age?select=1")
	require.Equal(t, http.StatusOK, cleared.Code)
	assert.Contains(t, cleared.Body.String(), "0 records shown")
}

func TestProfileErrors(t *testing.T) {
	s := newTestServer(t, true)

	rec := get(s, "/profiles/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = get(s, "/profiles/age?category=80%2B")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartImage(t *testing.T) {
	s := newTestServer(t, true)

	rec := get(s, "/chart/age?category=0-14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = get(s, "/chart/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIMounted(t *testing.T) {
	rec := get(newTestServer(t, true), "/api/profiles/age/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"15-64"`)
}

func newUploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("dataset", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, false)

	req := newUploadRequest(t, "age.csv", testkit.AgeGroupCSV(), map[string]string{
		"filter_column": "region",
		"filter_value":  "Y",
		"exclude":       "total",
		"mode":          "bar",
	})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "9 records shown")
	assert.Contains(t, body, "upload ")
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{"wrong extension", "age.pdf", "x", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad value", "bad.csv", "year,A\n2020,12a\n", nil, http.StatusUnprocessableEntity, "VALUE_PARSE_ERROR"},
		{"missing period column", "age.csv", testkit.AgeGroupCSV(), map[string]string{"period_column": "year"}, http.StatusUnprocessableEntity, "SCHEMA_ERROR"},
		{"unreadable", "empty.csv", "year,A\n", nil, http.StatusBadGateway, "DATA_SOURCE_ERROR"},
		{"bad missing policy", "age.csv", testkit.AgeGroupCSV(), map[string]string{"missing": "guess"}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, newUploadRequest(t, tt.filename, tt.content, tt.fields))
			assert.Equal(t, tt.status, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), tt.code), rec.Body.String())
		})
	}
}

func TestDashboardLogsThroughContainerLogger(t *testing.T) {
	s := newTestServer(t, true)
	obs, logs := observer.New(zapcore.DebugLevel)
	s.container.Logger = internal.NewLoggerFromZap(internal.LogLevelInfo, zap.New(obs))

	rec := get(s, "/profiles/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, newUploadRequest(t, "age.pdf", "x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, newUploadRequest(t, "age.csv", testkit.AgeGroupCSV(), map[string]string{
		"filter_column": "region", "filter_value": "X", "exclude": "total",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, 1, logs.FilterMessageSnippet("[Dashboard] NOT_FOUND").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("[handleUpload]").FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("[handleUpload]").FilterLevelExact(zapcore.InfoLevel).Len())
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", formatThousands(0))
	assert.Equal(t, "1,234", formatThousands(1234))
	assert.Equal(t, "-12,000,001", formatThousands(-12000001))
}
