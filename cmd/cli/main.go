package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"popdash/adapters/excel"
	"popdash/app"
	"popdash/domain/chart"
	"popdash/internal/config"
	"popdash/internal/container"
	"popdash/internal/errors"
	"popdash/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "popdash",
		Short: "Normalize wide population tables and chart them by category",
		Long: `popdash reads a wide table (one row per period, one column per category)
from a CSV/XLSX file, a URL or a postgres profile, reshapes it into
(period, category, value) records and prints, charts or exports them.

Sources are either ad-hoc (--file / --url) or named profiles from a YAML
file (--profiles / --profile, default $PROFILES_FILE).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newNormalizeCmd(),
		newCategoriesCmd(),
		newSummaryCmd(),
		newChartCmd(),
		newExportCmd(),
		newBatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sourceRun is one normalized table and the profile it came from
type sourceRun struct {
	Pipeline *app.PipelineService
	Result   *app.Result
	Profile  *config.Profile
}

// runSource loads config, builds the container and runs the selected profile
func runSource(cmd *cobra.Command, src *sourceFlags) (*sourceRun, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c, name, err := src.build(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	ctx := cmd.Context()
	if err := c.InitWithDatabase(ctx); err != nil {
		return nil, err
	}
	result, profile, err := c.RunProfile(ctx, name, src.applySelection(cmd))
	if err != nil {
		return nil, err
	}
	return &sourceRun{Pipeline: c.Pipeline, Result: result, Profile: profile}, nil
}

func newNormalizeCmd() *cobra.Command {
	var src sourceFlags
	var output string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print long-form (period, category, value) records",
		Long: `Reshape a wide table into long-form records.

Example: popdash normalize --file population.csv --exclude total --filter region=X --output csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := runSource(cmd, &src)
			if err != nil {
				return err
			}
			result := run.Result
			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), result)
			case "csv":
				return excel.NewCSVExporter().Export(cmd.OutOrStdout(), result.Filtered)
			}
			return fmt.Errorf("unknown --output %q (want json or csv)", output)
		},
	}

	src.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json|csv")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List category labels in sorted order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := runSource(cmd, &src)
			if err != nil {
				return err
			}
			result := run.Result
			out := cmd.OutOrStdout()
			for _, category := range result.Categories {
				fmt.Fprintln(out, category)
			}
			return nil
		},
	}

	src.register(cmd)
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print per-category statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := runSource(cmd, &src)
			if err != nil {
				return err
			}
			result := run.Result
			return writeSummary(cmd.OutOrStdout(), result.Summary)
		},
	}

	src.register(cmd)
	return cmd
}

// chartFlags override the profile's chart settings
type chartFlags struct {
	mode    string
	format  string
	markers bool
	width   float64
	height  float64
	title   string
}

func (f *chartFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "Chart mode: line|bar (default: profile or line)")
	cmd.Flags().StringVar(&f.format, "format", "", "Image format: png|svg (default: profile or png)")
	cmd.Flags().BoolVar(&f.markers, "markers", false, "Draw point markers on lines")
	cmd.Flags().Float64Var(&f.width, "width", 0, "Width in inches")
	cmd.Flags().Float64Var(&f.height, "height", 0, "Height in inches")
	cmd.Flags().StringVar(&f.title, "title", "", "Chart title")
}

func (f *chartFlags) apply(cmd *cobra.Command, base chart.Config) (chart.Config, error) {
	cfg := base
	if f.mode != "" {
		mode, err := chart.ParseMode(f.mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if f.format != "" {
		format, err := chart.ParseFormat(f.format)
		if err != nil {
			return cfg, err
		}
		cfg.Format = format
	}
	if cmd.Flags().Changed("markers") {
		cfg.Markers = f.markers
	}
	if f.width > 0 {
		cfg.Width = f.width
	}
	if f.height > 0 {
		cfg.Height = f.height
	}
	if f.title != "" {
		cfg.Title = f.title
	}
	return cfg.WithDefaults(), nil
}

func newChartCmd() *cobra.Command {
	var src sourceFlags
	var chartOpts chartFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a line or bar chart of the selected categories",
		Long: `Render the selected categories as a chart image.

Example: popdash chart --file population.xlsx --category 0-14 --category 65+ --mode bar --out chart.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := runSource(cmd, &src)
			if err != nil {
				return err
			}
			result := run.Result
			cfg, err := chartOpts.apply(cmd, run.Profile.ChartConfig())
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = "chart." + string(cfg.Format)
			}
			if err := writeFile(outPath, func(w io.Writer) error {
				return run.Pipeline.RenderChart(w, result, cfg)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d records)\n", outPath, len(result.Filtered))
			return nil
		},
	}

	src.register(cmd)
	chartOpts.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "Output path (default: chart.<format>)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var src sourceFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected records to an XLSX or CSV file",
		Long: `Write the selected long-form records to a file. The format follows
the extension of --out: .xlsx or .csv.

Example: popdash export --profiles profiles.yaml --profile regions --out regions.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := exporterFor(outPath)
			if err != nil {
				return err
			}
			run, err := runSource(cmd, &src)
			if err != nil {
				return err
			}
			result := run.Result
			if err := writeFile(outPath, func(w io.Writer) error {
				return exporter.Export(w, result.Filtered)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d records)\n", outPath, len(result.Filtered))
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "records.xlsx", "Output path (.xlsx or .csv)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var profilesFile string
	var outDir string
	var parallel int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "batch [profile...]",
		Short: "Render a chart for every profile in a profiles file",
		Long: `Render one chart per profile into --out-dir, several at a time.
With no arguments every profile in the file is rendered. The first
failure cancels the remaining profiles.

Example: popdash batch --profiles profiles.yaml --out-dir charts --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if profilesFile == "" {
				profilesFile = cfg.Data.ProfilesFile
			}
			if profilesFile == "" {
				return fmt.Errorf("--profiles or PROFILES_FILE is required")
			}
			set, err := config.LoadProfiles(profilesFile)
			if err != nil {
				return err
			}
			c, err := container.New(cfg, set)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := c.InitWithDatabase(ctx); err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = set.Names()
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			return runBatch(ctx, c, names, outDir, parallel, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&profilesFile, "profiles", "", "YAML profiles file (default: $PROFILES_FILE)")
	cmd.Flags().StringVar(&outDir, "out-dir", "charts", "Directory for rendered charts")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Profiles rendered at the same time")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall deadline, e.g. 2m (default: none)")
	return cmd
}

// runBatch renders each named profile's chart. Output lines are written
// in completion order.
func runBatch(ctx context.Context, c *container.Container, names []string, outDir string, parallel int, out io.Writer) error {
	if parallel < 1 {
		parallel = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	lines := make(chan string, len(names))
	for _, name := range names {
		g.Go(func() error {
			result, profile, err := c.RunProfile(ctx, name, nil)
			if err != nil {
				return errors.Wrapf(err, "profile %s", name)
			}
			cfg := profile.ChartConfig()
			path := filepath.Join(outDir, name+"."+string(cfg.Format))
			if err := writeFile(path, func(w io.Writer) error {
				return c.Pipeline.RenderChart(w, result, cfg)
			}); err != nil {
				return errors.Wrapf(err, "profile %s", name)
			}
			lines <- fmt.Sprintf("%s\t%d categories\t%d records\t%s", name, len(result.Categories), len(result.Records), path)
			return nil
		})
	}

	err := g.Wait()
	close(lines)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for line := range lines {
		fmt.Fprintln(tw, line)
	}
	if flushErr := tw.Flush(); err == nil {
		err = flushErr
	}
	return err
}

func exporterFor(path string) (ports.RecordExporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return excel.NewWorkbookExporter(), nil
	case ".csv":
		return excel.NewCSVExporter(), nil
	}
	return nil, fmt.Errorf("unsupported export extension %q (want .xlsx or .csv)", filepath.Ext(path))
}

// writeFile writes through fn and removes the file again if fn fails
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSummary(w io.Writer, summary []ports.CategorySummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "category\tperiods\tfirst\tlast\tchange %\tmean\tmedian\tmin\tmax\tslope\t")
	for _, s := range summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%d\t%d\t%s\t\n",
			s.Category, s.Periods, s.First, s.Last,
			strconv.FormatFloat(s.ChangePct, 'f', 1, 64),
			strconv.FormatFloat(s.Mean, 'f', 1, 64),
			strconv.FormatFloat(s.Median, 'f', 1, 64),
			s.Min, s.Max,
			strconv.FormatFloat(s.TrendSlope, 'f', 2, 64))
	}
	return tw.Flush()
}
