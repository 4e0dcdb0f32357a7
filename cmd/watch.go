package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/newhook/harvest/internal/config"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/format"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/runner"
	"github.com/newhook/harvest/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	flagWatch         scanFlags
	flagWatchDebounce time.Duration
	flagWatchColor    string
)

var watchCmd = &cobra.Command{
	Use:   "watch <files...>",
	Short: "Re-scan log files as they change",
	Long: `Watch log files and re-scan each one whenever it changes, printing the
issues that appeared and disappeared since its previous scan.

Inside a project every scan is recorded in the history database and the
first scan of a file is compared with its last recorded scan.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	flagWatch.register(watchCmd)
	watchCmd.Flags().DurationVar(&flagWatchDebounce, "debounce", 300*time.Millisecond, "quiet period before a changed file is re-scanned")
	watchCmd.Flags().StringVar(&flagWatchColor, "color", "", "color output: auto, always, never")
}

// watchSession re-scans files and reports the change against the previous
// scan of each (source, tool) pair.
type watchSession struct {
	runner *runner.Runner
	hist   *db.DB // nil outside a project
	out    io.Writer
	opts   format.Options
	last   map[string][]issue.Issue
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	proj, err := config.FindOrDefault(flagProject)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if err := flagWatch.apply(cmd, proj.Config); err != nil {
		return err
	}
	if cmd.Flags().Changed("color") {
		proj.Config.Output.Color = flagWatchColor
	}

	r, err := newRunner(proj)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := &watchSession{
		runner: r,
		out:    out,
		opts:   outputOptions(proj.Config, out),
		last:   make(map[string][]issue.Issue),
	}
	if proj.HasRoot() && proj.Config.History.IsEnabled() {
		h, err := openHistory(ctx, proj)
		if err != nil {
			return err
		}
		defer h.Close()
		s.hist = h
	}

	w, err := watcher.New(watcher.Config{Paths: args, Debounce: flagWatchDebounce})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	var existing []string
	for _, p := range args {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "%s does not exist yet, waiting\n", p)
		}
	}
	if len(existing) > 0 {
		if err := s.rescan(ctx, existing...); err != nil {
			return err
		}
	}

	if err := w.Start(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %d file(s), press Ctrl+C to stop\n", len(args))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := s.rescan(ctx, ev.Path); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// rescan parses paths and prints one delta per result.
func (s *watchSession) rescan(ctx context.Context, paths ...string) error {
	sources, err := openSources(paths, nil)
	if err != nil {
		fmt.Fprintf(s.out, "%v\n", err)
		return nil
	}
	results, err := s.runner.Run(ctx, sources)
	if err != nil {
		return err
	}

	stamp := time.Now().Format(time.TimeOnly)
	for _, res := range results {
		if res.Report == nil {
			fmt.Fprintf(s.out, "[%s] %s: failed: %v\n", stamp, res.Source, res.Err)
			continue
		}
		title := fmt.Sprintf("[%s] %s (%s)", stamp, res.Source, res.Tool)
		current := res.Report.Issues()

		prev, hasPrev := s.previous(ctx, res.Source, res.Tool)
		s.record(ctx, res)

		if !hasPrev {
			fmt.Fprintf(s.out, "%s: %d issues\n", title, len(current))
			continue
		}
		if err := format.Delta(s.out, title, db.Diff(prev, current), s.opts); err != nil {
			return err
		}
	}
	return nil
}

func watchKey(source, tool string) string {
	return source + "\x00" + tool
}

// previous returns the issues of the last scan of source by tool, from this
// session or else from history.
func (s *watchSession) previous(ctx context.Context, source, tool string) ([]issue.Issue, bool) {
	if issues, ok := s.last[watchKey(source, tool)]; ok {
		return issues, true
	}
	if s.hist == nil {
		return nil, false
	}
	runs, err := s.hist.LatestRuns(ctx, source, tool, 1)
	if err != nil || len(runs) == 0 {
		return nil, false
	}
	issues, err := s.hist.RunIssues(ctx, runs[0].ID)
	if err != nil {
		logging.Warn("failed to load previous run", "run", runs[0].ID, "error", err)
		return nil, false
	}
	return issues, true
}

func (s *watchSession) record(ctx context.Context, res runner.Result) {
	s.last[watchKey(res.Source, res.Tool)] = res.Report.Issues()
	if s.hist == nil || res.Report.Cancelled() {
		return
	}
	if _, err := s.hist.RecordRun(ctx, res.Source, res.Tool, res.Report); err != nil {
		logging.Warn("failed to record run", "source", res.Source, "tool", res.Tool, "error", err)
	}
}
