package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"popdash/internal/container"
	"popdash/ui/middleware"
	"popdash/ui/services"
)

// Server represents the dashboard web server
type Server struct {
	router    *gin.Engine
	container *container.Container
	templates *template.Template
	files     fs.FS
	charts    *services.ChartImageService
	api       http.Handler
}

// NewServer creates the dashboard. files must contain ui/templates and
// ui/static; api, when non-nil, is mounted under /api.
func NewServer(files fs.FS, c *container.Container, api http.Handler) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	templates, err := parseTemplates(files)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		container: c,
		templates: templates,
		files:     files,
		charts:    services.NewChartImageService(c.Pipeline),
		api:       api,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())

	staticFS, err := fs.Sub(s.files, "ui/static")
	if err != nil {
		s.container.Logger.Error("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/profiles/:name", s.handleProfile)
	s.router.GET("/chart/:name", s.handleChart)
	s.router.POST("/upload", middleware.LimitUploadSize(s.container.Config.MaxUploadBytes()+1<<20), s.handleUpload)

	if s.api != nil {
		s.router.Any("/api/*path", gin.WrapH(http.StripPrefix("/api", s.api)))
	}
}

// ServeHTTP lets tests drive the router directly
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.container.Logger.Info("[Server] Starting dashboard on http://%s", addr)
	return s.router.Run(addr)
}
