package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"popdash/domain/chart"
	"popdash/domain/normalize"
)

// DefaultProfileName names the profile built from DATA_FILE / DATA_URL.
const DefaultProfileName = "default"

// Source kinds.
const (
	SourceFile     = "file"
	SourceURL      = "url"
	SourcePostgres = "postgres"
)

// Table layouts.
const (
	LayoutWide = "wide"
	LayoutLong = "long"
)

// Profile validation errors.
var (
	ErrNoProfiles         = errors.New("at least one profile is required")
	ErrProfileMissingName = errors.New("profile name is required")
	ErrDuplicateProfile   = errors.New("profile names must be unique")
	ErrUnknownSourceKind  = errors.New("source.kind must be one of: file, url, postgres")
	ErrSourceMissingPath  = errors.New("source.path is required for file sources")
	ErrSourceMissingURL   = errors.New("source.url is required for url sources")
	ErrSourceMissingQuery = errors.New("source.query is required for postgres sources")
	ErrUnknownLayout      = errors.New("layout must be 'wide' or 'long'")
	ErrLongMissingColumns = errors.New("long.period, long.category and long.value are required for long layout")
	ErrPeriodHintConflict = errors.New("set only one of period_column and period_index")
	ErrRowFilterColumn    = errors.New("row_filter.column is required when row_filter is set")
)

// ProfileSet is the parsed profiles file.
type ProfileSet struct {
	Profiles []Profile `yaml:"profiles"`
}

// Profile describes one dashboard variant: where its table comes from, how
// to normalize it and how to chart it.
type Profile struct {
	Name         string               `yaml:"name"`
	Title        string               `yaml:"title"`
	Description  string               `yaml:"description"`
	Source       SourceConfig         `yaml:"source"`
	Layout       string               `yaml:"layout"`
	PeriodColumn string               `yaml:"period_column"`
	PeriodIndex  *int                 `yaml:"period_index"`
	RowFilter    *normalize.RowFilter `yaml:"row_filter"`
	Blocklist    []string             `yaml:"blocklist"`
	Missing      string               `yaml:"missing"`
	Separators   string               `yaml:"separators"`
	Long         *LongColumns         `yaml:"long"`
	Chart        chart.Config         `yaml:"chart"`
}

// SourceConfig locates the raw table.
type SourceConfig struct {
	Kind  string `yaml:"kind"`
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
	Sheet string `yaml:"sheet"`
	Query string `yaml:"query"`
}

// LongColumns names the columns of an already-long table.
type LongColumns struct {
	Period   string `yaml:"period"`
	Category string `yaml:"category"`
	Value    string `yaml:"value"`
}

// LoadProfiles reads and validates a YAML profiles file.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates profiles from YAML bytes.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate checks every profile and name uniqueness.
func (s *ProfileSet) Validate() error {
	if len(s.Profiles) == 0 {
		return ErrNoProfiles
	}
	seen := make(map[string]bool, len(s.Profiles))
	for i := range s.Profiles {
		p := &s.Profiles[i]
		if err := p.Validate(); err != nil {
			if p.Name == "" {
				return fmt.Errorf("profile #%d: %w", i, err)
			}
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Get returns the named profile.
func (s *ProfileSet) Get(name string) (*Profile, bool) {
	for i := range s.Profiles {
		if s.Profiles[i].Name == name {
			return &s.Profiles[i], true
		}
	}
	return nil, false
}

// Names lists profile names in file order.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for _, p := range s.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Validate checks a single profile.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProfileMissingName
	}

	switch p.Source.Kind {
	case SourceFile:
		if p.Source.Path == "" {
			return ErrSourceMissingPath
		}
	case SourceURL:
		if p.Source.URL == "" {
			return ErrSourceMissingURL
		}
	case SourcePostgres:
		if p.Source.Query == "" {
			return ErrSourceMissingQuery
		}
	default:
		return ErrUnknownSourceKind
	}

	switch p.layout() {
	case LayoutWide:
		if p.PeriodColumn != "" && p.PeriodIndex != nil {
			return ErrPeriodHintConflict
		}
	case LayoutLong:
		if p.Long == nil || p.Long.Period == "" || p.Long.Category == "" || p.Long.Value == "" {
			return ErrLongMissingColumns
		}
	default:
		return ErrUnknownLayout
	}

	if p.RowFilter != nil && p.RowFilter.Column == "" {
		return ErrRowFilterColumn
	}
	if _, err := normalize.ParseMissingPolicy(p.Missing); err != nil {
		return err
	}
	if _, err := chart.ParseMode(string(p.Chart.Mode)); err != nil {
		return err
	}
	if _, err := chart.ParseFormat(string(p.Chart.Format)); err != nil {
		return err
	}
	return nil
}

func (p *Profile) layout() string {
	if p.Layout == "" {
		return LayoutWide
	}
	return strings.ToLower(p.Layout)
}

// IsLong reports whether the profile's table is already in long form.
func (p *Profile) IsLong() bool {
	return p.layout() == LayoutLong
}

// NormalizeOptions builds wide-layout normalizer options.
func (p *Profile) NormalizeOptions() (normalize.Options, error) {
	missing, err := normalize.ParseMissingPolicy(p.Missing)
	if err != nil {
		return normalize.Options{}, err
	}
	opts := normalize.Options{
		RowFilter:  p.RowFilter,
		Blocklist:  p.Blocklist,
		Missing:    missing,
		Separators: p.Separators,
	}
	switch {
	case p.PeriodColumn != "":
		opts.Period = normalize.ByName(p.PeriodColumn)
	case p.PeriodIndex != nil:
		opts.Period = normalize.ByIndex(*p.PeriodIndex)
	}
	return opts, nil
}

// LongOptions builds long-layout options, or nil for wide profiles.
func (p *Profile) LongOptions() (*normalize.LongOptions, error) {
	if !p.IsLong() {
		return nil, nil
	}
	missing, err := normalize.ParseMissingPolicy(p.Missing)
	if err != nil {
		return nil, err
	}
	return &normalize.LongOptions{
		PeriodColumn:   p.Long.Period,
		CategoryColumn: p.Long.Category,
		ValueColumn:    p.Long.Value,
		RowFilter:      p.RowFilter,
		Missing:        missing,
		Separators:     p.Separators,
	}, nil
}

// ChartConfig returns the chart settings with defaults and the profile
// title filled in.
func (p *Profile) ChartConfig() chart.Config {
	cfg := p.Chart
	if cfg.Title == "" {
		cfg.Title = p.Title
	}
	if cfg.XLabel == "" && cfg.YLabel == "" {
		d := chart.DefaultConfig()
		cfg.XLabel, cfg.YLabel = d.XLabel, d.YLabel
	}
	return cfg.WithDefaults()
}
