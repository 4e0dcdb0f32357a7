package cmd

import (
	"fmt"

	"github.com/newhook/harvest/internal/config"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/format"
	"github.com/spf13/cobra"
)

var flagDiffExitCode bool

var diffCmd = &cobra.Command{
	Use:   "diff <old-run> <new-run>",
	Short: "Compare the issues of two recorded scans",
	Long: `Compare two recorded scans by issue fingerprint and list the issues that
are new in <new-run> and the ones it fixed. Run ids may be abbreviated.

With a single argument, the scan is compared with the previous scan of the
same source by the same tool.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&flagDiffExitCode, "exit-code", false, "exit with status 1 when new issues were found")
}

func runDiff(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		ctx := GetContext()

		oldID, newID, err := diffRunIDs(h, args)
		if err != nil {
			return err
		}
		delta, err := h.Compare(ctx, oldID, newID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		title := fmt.Sprintf("%s (%s) %s..%s", delta.To.Source, delta.To.Tool, shortID(delta.From.ID), shortID(delta.To.ID))
		if err := format.Delta(out, title, delta, outputOptions(proj.Config, out)); err != nil {
			return err
		}
		if flagDiffExitCode && len(delta.New) > 0 {
			return fmt.Errorf("%w (%d new)", ErrThresholdExceeded, len(delta.New))
		}
		return nil
	})
}

func diffRunIDs(h *db.DB, args []string) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}

	ctx := GetContext()
	run, err := h.GetRun(ctx, args[0])
	if err != nil {
		return "", "", err
	}
	runs, err := h.LatestRuns(ctx, run.Source, run.Tool, 0)
	if err != nil {
		return "", "", err
	}
	for i, r := range runs {
		if r.ID == run.ID && i+1 < len(runs) {
			return runs[i+1].ID, run.ID, nil
		}
	}
	return "", "", fmt.Errorf("run %s has no earlier scan of %s (%s)", shortID(run.ID), run.Source, run.Tool)
}
