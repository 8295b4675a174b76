package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// templateFuncs are available to every dashboard template
var templateFuncs = template.FuncMap{
	"markdown": renderMarkdown,
	"thousands": func(n int64) string {
		return formatThousands(n)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%+.1f%%", v)
	},
	"fixed": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"upper": strings.ToUpper,
}

// parseTemplates loads ui/templates/*.html from files
func parseTemplates(files fs.FS) (*template.Template, error) {
	templatesFS, err := fs.Sub(files, "ui/templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create templates filesystem: %w", err)
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// renderTemplate executes a template into a buffer first so a template error
// never produces a half-written page.
func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.container.Logger.Error("[renderTemplate] Template error for %s: %v", templateName, err)
		c.AbortWithStatusJSON(500, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderMarkdown turns a profile description into HTML. Raw HTML in the
// source is dropped.
func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}

func formatThousands(n int64) string {
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatThousands(n/1000), n%1000)
}
