package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/newhook/harvest/internal/cache"
	"github.com/newhook/harvest/internal/config"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/format"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/parser"
	"github.com/newhook/harvest/internal/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// scanFlags are the flags shared by every command that parses input.
type scanFlags struct {
	tools       []string
	minSeverity string
	clean       bool
	noCache     bool
	concurrency int
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.tools, "tool", "t", nil, "tool ids to run (default: detect from input)")
	cmd.Flags().StringVar(&f.minSeverity, "min-severity", "", "drop issues below this severity (low, normal, high, error)")
	cmd.Flags().BoolVar(&f.clean, "clean", false, "strip CI job prefixes, timestamps and ANSI codes before parsing")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "do not read or write the report cache")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", 0, "number of parses to run at once (default: number of CPUs)")
}

// apply overrides the [scan] section of cfg with the flags the user set.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("tool") {
		cfg.Scan.Tools = f.tools
	}
	if flags.Changed("min-severity") {
		if _, err := parseSeverityFlag("min-severity", f.minSeverity); err != nil {
			return err
		}
		cfg.Scan.MinSeverity = f.minSeverity
	}
	if flags.Changed("clean") {
		cfg.Scan.Clean = &f.clean
	}
	if flags.Changed("concurrency") {
		cfg.Scan.Concurrency = &f.concurrency
	}
	if f.noCache {
		disabled := false
		cfg.Cache.Enabled = &disabled
	}
	return nil
}

var (
	flagScan        scanFlags
	flagScanFormat  string
	flagScanFailOn  string
	flagScanColor   string
	flagScanNoHist  bool
	flagScanOutFile string
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Parse tool output and report the issues found",
	Long: `Parse the output of build and analysis tools and report every issue found.

Files are read in full; with no files, standard input is read. The tool that
produced each input is detected from its content unless --tool is given.

The command exits with status 1 when an issue at or above --fail-on is found.

Example:
  make 2>&1 | harvest scan
  harvest scan --tool gcc,msbuild build.log
  harvest scan --format sarif --fail-on high lint.log > results.sarif`,
	RunE: runScan,
}

func init() {
	flagScan.register(scanCmd)
	scanCmd.Flags().StringVarP(&flagScanFormat, "format", "f", "", "output format: "+strings.Join(format.Names(), ", "))
	scanCmd.Flags().StringVar(&flagScanFailOn, "fail-on", "", "exit non-zero at or above this severity, or \"none\"")
	scanCmd.Flags().StringVar(&flagScanColor, "color", "", "color output: auto, always, never")
	scanCmd.Flags().BoolVar(&flagScanNoHist, "no-history", false, "do not record this scan in the history database")
	scanCmd.Flags().StringVarP(&flagScanOutFile, "output", "o", "", "write the report to a file instead of stdout")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	proj, err := config.FindOrDefault(flagProject)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	cfg := proj.Config
	if err := flagScan.apply(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = flagScanFormat
	}
	if cmd.Flags().Changed("fail-on") {
		if v := strings.ToLower(flagScanFailOn); v != "none" && v != "never" {
			if _, err := parseSeverityFlag("fail-on", flagScanFailOn); err != nil {
				return err
			}
		}
		cfg.Scan.FailOn = flagScanFailOn
	}
	if cmd.Flags().Changed("color") {
		cfg.Output.Color = flagScanColor
	}

	sources, err := openSources(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	results, runErr := scan(ctx, proj, sources)
	if results == nil && runErr != nil {
		return runErr
	}

	if cfg.History.IsEnabled() && !flagScanNoHist && proj.HasRoot() {
		if err := recordResults(ctx, proj, results); err != nil {
			logging.Warn("failed to record scan history", "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	out := cmd.OutOrStdout()
	if flagScanOutFile != "" {
		f, err := os.Create(flagScanOutFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", flagScanOutFile, err)
		}
		defer f.Close()
		out = f
	}

	opts := outputOptions(cfg, out)
	if err := format.Write(out, cfg.Output.GetFormat(), results, opts); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if failOn, enabled := cfg.Scan.GetFailOn(); enabled && runner.Exceeds(results, failOn) {
		return fmt.Errorf("%w (%s)", ErrThresholdExceeded, strings.ToLower(failOn.String()))
	}
	return nil
}

// openSources turns file arguments into sources, reading stdin when there
// are none. Stdin is buffered so it can be parsed by several tools.
func openSources(paths []string, stdin io.Reader) ([]parser.Source, error) {
	if len(paths) == 0 {
		src, err := runner.BufferSource(runner.StdinName, stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return []parser.Source{src}, nil
	}

	sources := make([]parser.Source, 0, len(paths))
	for _, p := range paths {
		if p == "-" {
			src, err := runner.BufferSource(runner.StdinName, stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read standard input: %w", err)
			}
			sources = append(sources, src)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		sources = append(sources, parser.FileSource(p))
	}
	return sources, nil
}

// newRunner builds a runner from the configuration of proj.
func newRunner(proj *config.Project) (*runner.Runner, error) {
	cfg := proj.Config
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return runner.New(reg, runner.Options{
		Tools:       cfg.Scan.Tools,
		MinSeverity: cfg.Scan.GetMinSeverity(),
		Concurrency: cfg.Scan.GetConcurrency(),
		Clean:       cfg.Scan.ShouldClean(),
		Cache:       reportCache(proj),
	}), nil
}

// scan runs the configured tools of proj over sources.
func scan(ctx context.Context, proj *config.Project, sources []parser.Source) ([]runner.Result, error) {
	r, err := newRunner(proj)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, sources)
}

// reportCache builds the cache configured for proj, or nil when caching is
// disabled. Projects without a root only cache in memory.
func reportCache(proj *config.Project) *cache.ReportCache {
	cfg := proj.Config.Cache
	if !cfg.IsEnabled() {
		return nil
	}
	var disk *cache.DiskCache
	if proj.HasRoot() {
		d, err := cache.OpenDiskCache(proj.CachePath())
		if err != nil {
			logging.Warn("disk cache unavailable", "dir", proj.CachePath(), "error", err)
		} else {
			disk = d
		}
	}
	return cache.NewReportCache(cfg.GetTTL(), disk)
}

// openHistory opens the history database of proj.
func openHistory(ctx context.Context, proj *config.Project) (*db.DB, error) {
	if !proj.HasRoot() {
		return nil, fmt.Errorf("%w: run `harvest init` to record history", config.ErrNoProject)
	}
	h, err := db.OpenPath(ctx, proj.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return h, nil
}

// recordResults stores every successful result as a run.
func recordResults(ctx context.Context, proj *config.Project, results []runner.Result) error {
	h, err := openHistory(ctx, proj)
	if err != nil {
		return err
	}
	defer h.Close()

	for _, res := range results {
		if res.Report == nil || res.Tool == "" {
			continue
		}
		if _, err := h.RecordRun(ctx, res.Source, res.Tool, res.Report); err != nil {
			return err
		}
	}
	return nil
}

// outputOptions resolves rendering options for w from cfg.
func outputOptions(cfg *config.Config, w io.Writer) format.Options {
	opts := format.Options{
		Color:   colorEnabled(cfg.Output.GetColor(), w),
		Wrap:    cfg.Output.GetWrap(),
		Version: Version,
	}
	if width, ok := terminalWidth(w); ok && opts.Wrap > 0 {
		opts.Wrap = min(opts.Wrap, width)
	}
	return opts
}

func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}

// parseSeverityFlag parses a severity given on the command line.
func parseSeverityFlag(name, value string) (issue.Severity, error) {
	sev, err := issue.ParseSeverity(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return sev, nil
}
