package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"popdash/adapters/excel"
	"popdash/adapters/postgres"
	"popdash/adapters/remote"
	"popdash/adapters/render"
	"popdash/adapters/stats"
	"popdash/app"
	"popdash/internal"
	"popdash/internal/config"
	"popdash/internal/errors"
	"popdash/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config   *config.Config
	Profiles *config.ProfileSet
	Logger   *internal.Logger

	// Infrastructure, only opened when a postgres profile exists
	DB *sqlx.DB

	// Adapters
	Renderer   ports.ChartRenderer
	Summarizer ports.Summarizer
	Exporter   ports.RecordExporter

	Pipeline *app.PipelineService
}

// New creates a new dependency injection container
func New(cfg *config.Config, profiles *config.ProfileSet) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if profiles == nil {
		profiles = &config.ProfileSet{}
	}

	logger := internal.DefaultLogger
	if level, ok := internal.ParseLogLevel(cfg.Logging.Level); ok {
		logger = internal.NewLogger(level)
	}

	c := &Container{
		Config:     cfg,
		Profiles:   profiles,
		Logger:     logger,
		Renderer:   render.NewChartRenderer(),
		Summarizer: stats.NewCategorySummarizer(),
		Exporter:   excel.NewWorkbookExporter(),
	}
	c.Pipeline = app.NewPipelineService(c.Renderer, c.Summarizer, logger)
	return c, nil
}

// NeedsDatabase reports whether any profile reads from postgres
func (c *Container) NeedsDatabase() bool {
	for _, p := range c.Profiles.Profiles {
		if p.Source.Kind == config.SourcePostgres {
			return true
		}
	}
	return false
}

// InitWithDatabase connects to DATABASE_URL when a postgres profile needs it
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if !c.NeedsDatabase() {
		return nil
	}
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required by postgres profiles")
	}

	db, err := postgres.Connect(ctx, c.Config.Database.URL)
	if err != nil {
		return errors.Wrap(err, "database initialization failed")
	}
	c.DB = db
	c.Logger.Info("[Container] Initialized with database connection")
	return nil
}

// Profile returns the named profile or a NOT_FOUND error
func (c *Container) Profile(name string) (*config.Profile, error) {
	p, ok := c.Profiles.Get(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("profile %q", name))
	}
	return p, nil
}

// SourceFor builds a fresh table source for a profile
func (c *Container) SourceFor(p *config.Profile) (ports.TableSource, error) {
	switch p.Source.Kind {
	case config.SourceFile:
		return excel.NewDataReader(p.Source.Path, p.Source.Sheet), nil
	case config.SourceURL:
		return remote.NewURLSource(p.Source.URL, p.Source.Sheet, c.Config.Data.FetchTimeout,
			remote.WithMaxBytes(c.Config.MaxUploadBytes())), nil
	case config.SourcePostgres:
		return postgres.NewQuerySource(c.DB, p.Name, p.Source.Query), nil
	}
	return nil, errors.ConfigInvalid(fmt.Sprintf("profile %s: unknown source kind %q", p.Name, p.Source.Kind))
}

// RequestFor builds the pipeline request for a profile with every category selected
func (c *Container) RequestFor(p *config.Profile) (app.Request, error) {
	opts, err := p.NormalizeOptions()
	if err != nil {
		return app.Request{}, errors.Wrapf(err, "profile %s: invalid normalizer options", p.Name)
	}
	long, err := p.LongOptions()
	if err != nil {
		return app.Request{}, errors.Wrapf(err, "profile %s: invalid long-layout options", p.Name)
	}
	return app.Request{Normalize: opts, Long: long}, nil
}

// RunProfile loads and normalizes a profile's table in one call
func (c *Container) RunProfile(ctx context.Context, name string, req func(*app.Request)) (*app.Result, *config.Profile, error) {
	p, err := c.Profile(name)
	if err != nil {
		return nil, nil, err
	}
	src, err := c.SourceFor(p)
	if err != nil {
		return nil, p, err
	}
	request, err := c.RequestFor(p)
	if err != nil {
		return nil, p, err
	}
	if req != nil {
		req(&request)
	}
	result, err := c.Pipeline.Run(ctx, src, request)
	return result, p, err
}

// Close releases the database connection, if any
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
