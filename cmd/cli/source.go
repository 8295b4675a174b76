package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"popdash/app"
	"popdash/domain/dataset"
	"popdash/domain/normalize"
	"popdash/internal/config"
	"popdash/internal/container"
)

// sourceFlags select where the table comes from and how it is normalized.
// Either a profiles file (with --profile) or an ad-hoc --file / --url.
type sourceFlags struct {
	file         string
	url          string
	sheet        string
	profilesFile string
	profile      string

	periodColumn string
	periodIndex  int
	filter       string
	exclude      []string
	missing      string
	long         string
	categories   []string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.file, "file", "", "CSV or XLSX file to read")
	flags.StringVar(&f.url, "url", "", "URL of a CSV or XLSX document")
	flags.StringVar(&f.sheet, "sheet", "", "Workbook sheet (default: first sheet)")
	flags.StringVar(&f.profilesFile, "profiles", "", "YAML profiles file (default: $PROFILES_FILE)")
	flags.StringVar(&f.profile, "profile", "", "Profile name within the profiles file")
	flags.StringVar(&f.periodColumn, "period-column", "", "Column holding the period (default: first column)")
	flags.IntVar(&f.periodIndex, "period-index", -1, "Zero-based index of the period column")
	flags.StringVar(&f.filter, "filter", "", "Keep only rows where column=value, e.g. region=X")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "Columns that are not categories, e.g. total")
	flags.StringVar(&f.missing, "missing", "fail", "Missing cells: fail, zero or skip")
	flags.StringVar(&f.long, "long", "", "Table is already long: period,category,value column names")
	flags.StringArrayVar(&f.categories, "category", nil, "Category to keep (repeatable; default: all)")
}

// adHocProfile builds a single profile from --file or --url and the normalizer flags
func (f *sourceFlags) adHocProfile() (*config.Profile, error) {
	p := &config.Profile{
		Name:         "cli",
		PeriodColumn: f.periodColumn,
		Blocklist:    f.exclude,
		Missing:      f.missing,
		Source:       config.SourceConfig{Sheet: f.sheet},
	}
	switch {
	case f.file != "" && f.url != "":
		return nil, fmt.Errorf("set only one of --file and --url")
	case f.file != "":
		p.Source.Kind, p.Source.Path = config.SourceFile, f.file
		p.Title = f.file
	case f.url != "":
		p.Source.Kind, p.Source.URL = config.SourceURL, f.url
		p.Title = f.url
	default:
		return nil, fmt.Errorf("one of --file, --url or --profiles is required")
	}

	if f.periodIndex >= 0 {
		idx := f.periodIndex
		p.PeriodIndex = &idx
	}
	if f.filter != "" {
		filter, err := parseFilter(f.filter)
		if err != nil {
			return nil, err
		}
		p.RowFilter = filter
	}
	if f.long != "" {
		cols, err := parseLong(f.long)
		if err != nil {
			return nil, err
		}
		p.Layout, p.Long = config.LayoutLong, cols
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// build returns a container holding the selected profiles and the name to run
func (f *sourceFlags) build(cfg *config.Config) (*container.Container, string, error) {
	profilesFile := f.profilesFile
	if profilesFile == "" && f.file == "" && f.url == "" {
		profilesFile = cfg.Data.ProfilesFile
	}

	var set *config.ProfileSet
	name := f.profile
	if profilesFile != "" {
		loaded, err := config.LoadProfiles(profilesFile)
		if err != nil {
			return nil, "", err
		}
		set = loaded
		if name == "" {
			name = set.Profiles[0].Name
		}
	} else {
		p, err := f.adHocProfile()
		if err != nil {
			return nil, "", err
		}
		set = &config.ProfileSet{Profiles: []config.Profile{*p}}
		name = p.Name
	}

	c, err := container.New(cfg, set)
	if err != nil {
		return nil, "", err
	}
	return c, name, nil
}

// applySelection sets the request selection when --category was given.
// --category "" alone selects nothing.
func (f *sourceFlags) applySelection(cmd *cobra.Command) func(*app.Request) {
	if !cmd.Flags().Changed("category") {
		return nil
	}
	labels := make([]string, 0, len(f.categories))
	for _, c := range f.categories {
		if c = strings.TrimSpace(c); c != "" {
			labels = append(labels, c)
		}
	}
	sel := dataset.NewSelection(labels...)
	return func(req *app.Request) { req.Selection = &sel }
}

func parseFilter(s string) (*normalize.RowFilter, error) {
	col, val, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(col) == "" {
		return nil, fmt.Errorf("invalid --filter %q (want column=value)", s)
	}
	return &normalize.RowFilter{Column: strings.TrimSpace(col), Value: strings.TrimSpace(val)}, nil
}

func parseLong(s string) (*config.LongColumns, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid --long %q (want period,category,value)", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, fmt.Errorf("invalid --long %q: empty column name", s)
		}
	}
	return &config.LongColumns{Period: parts[0], Category: parts[1], Value: parts[2]}, nil
}
