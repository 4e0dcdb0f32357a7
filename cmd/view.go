package cmd

import (
	"errors"
	"fmt"

	"github.com/newhook/harvest/internal/config"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/runner"
	"github.com/newhook/harvest/internal/tui"
	"github.com/spf13/cobra"
)

var (
	flagView    scanFlags
	flagViewRun string
)

var viewCmd = &cobra.Command{
	Use:   "view [files...]",
	Short: "Browse issues in an interactive viewer",
	Long: `Scan files (or standard input) and browse the issues in a full-screen viewer.
With --run, a recorded scan is shown instead.

Keys: j/k move, g/G jump, J/K scroll the detail pane, 1-4 set the minimum
severity, q quits.`,
	RunE: runView,
}

func init() {
	flagView.register(viewCmd)
	viewCmd.Flags().StringVar(&flagViewRun, "run", "", "show a recorded scan instead of scanning")
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	if flagViewRun != "" {
		if len(args) > 0 {
			return errors.New("--run cannot be combined with files")
		}
		var results []runner.Result
		err := withHistory(func(proj *config.Project, h *db.DB) error {
			run, err := h.GetRun(ctx, flagViewRun)
			if err != nil {
				return err
			}
			rep, err := h.LoadReport(ctx, run)
			if err != nil {
				return err
			}
			results = []runner.Result{{Source: run.Source, Tool: run.Tool, Report: rep}}
			return nil
		})
		if err != nil {
			return err
		}
		return tui.Run(ctx, results)
	}

	proj, err := config.FindOrDefault(flagProject)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if err := flagView.apply(cmd, proj.Config); err != nil {
		return err
	}

	sources, err := openSources(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	results, err := scan(ctx, proj, sources)
	if err != nil {
		return err
	}
	return tui.Run(ctx, results)
}
