package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"popdash/adapters/excel"
	"popdash/domain/core"
	"popdash/domain/dataset"
	"popdash/internal"
)

const (
	// DefaultTimeout bounds a single fetch when no client is supplied
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes caps the response body
	DefaultMaxBytes int64 = 50 << 20
)

// URLSource fetches a CSV or XLSX document over HTTP on every Load.
type URLSource struct {
	url        string
	sheet      string
	fileType   string
	maxBytes   int64
	httpClient *http.Client
}

// Option configures a URLSource
type Option func(*URLSource)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(s *URLSource) { s.httpClient = c }
}

// WithMaxBytes overrides the body size limit
func WithMaxBytes(n int64) Option {
	return func(s *URLSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithFileType forces the document format instead of sniffing it
func WithFileType(fileType string) Option {
	return func(s *URLSource) { s.fileType = fileType }
}

// NewURLSource creates a source for rawURL. A zero timeout uses DefaultTimeout.
func NewURLSource(rawURL, sheet string, timeout time.Duration, opts ...Option) *URLSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &URLSource{
		url:        rawURL,
		sheet:      sheet,
		maxBytes:   DefaultMaxBytes,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Describe returns the URL
func (s *URLSource) Describe() string {
	return s.url
}

// Load performs the GET and parses the body. Nothing is cached between calls.
func (s *URLSource) Load(ctx context.Context) (*dataset.RawTable, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "text/csv, "+excel.ContentTypeXLSX+", */*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("server returned status %d", resp.StatusCode))
	}

	// Read one byte past the limit so an oversized body is detected
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > s.maxBytes {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("response exceeds %d bytes", s.maxBytes))
	}

	fileType := s.resolveFileType(resp.Header.Get("Content-Type"))
	if fileType == "" {
		return nil, core.NewDataSourceError(s.url, fmt.Errorf("cannot determine format from content type %q", resp.Header.Get("Content-Type")))
	}

	table, err := excel.ParseBytes(body, fileType, s.sheet)
	if err != nil {
		return nil, core.NewDataSourceError(s.url, err)
	}

	internal.DefaultLogger.Info("[URLSource] Fetched %s (%d bytes, %d rows) in %v",
		s.url, len(body), table.Len(), time.Since(startTime))
	return table, nil
}

// resolveFileType prefers an explicit type, then the Content-Type header, then
// the extension of the URL path.
func (s *URLSource) resolveFileType(contentType string) string {
	if s.fileType != "" {
		return s.fileType
	}
	if ft := excel.DetectContentType(contentType); ft != "" {
		return ft
	}
	if u, err := url.Parse(s.url); err == nil {
		return excel.DetectFileType(u.Path)
	}
	return ""
}
