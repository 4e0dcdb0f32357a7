package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/newhook/harvest/internal/config"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/format"
	"github.com/newhook/harvest/internal/runner"
	"github.com/spf13/cobra"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scans",
	Long:  `List the scans recorded in the project history database, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the issues of a recorded scan",
	Long:  `Show the issues of a recorded scan. Any unique prefix of the run id is accepted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Delete recorded scans",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryRm,
}

var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage history database migrations",
}

var historyMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

var historyMigrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last migration",
	Long:  `Rollback the most recently applied migration. It is applied again the next time the database is opened.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrateRollback,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "number of runs to list (0 for all)")

	historyMigrateCmd.AddCommand(historyMigrateStatusCmd)
	historyMigrateCmd.AddCommand(historyMigrateRollbackCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRmCmd)
	historyCmd.AddCommand(historyMigrateCmd)
}

// withHistory opens the project history database for the duration of fn.
func withHistory(fn func(proj *config.Project, h *db.DB) error) error {
	ctx := GetContext()
	proj, err := config.Find(flagProject)
	if err != nil {
		return fmt.Errorf("not in a project directory: %w", err)
	}
	h, err := openHistory(ctx, proj)
	if err != nil {
		return err
	}
	defer h.Close()
	return fn(proj, h)
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		runs, err := h.ListRuns(GetContext(), flagHistoryLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No scans recorded")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tSOURCE\tTOOL\tISSUES\tERRORS\tSTATUS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				shortID(run.ID), run.CreatedAt.Local().Format(time.DateTime),
				run.Source, run.Tool, run.IssueCount, run.ErrorCount, run.Status)
		}
		return w.Flush()
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		ctx := GetContext()
		run, err := h.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		rep, err := h.LoadReport(ctx, run)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s recorded %s\n\n", run.ID, run.CreatedAt.Local().Format(time.DateTime))
		results := []runner.Result{{Source: run.Source, Tool: run.Tool, Report: rep}}
		return format.Text(out, results, outputOptions(proj.Config, out))
	})
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		ctx := GetContext()
		for _, id := range args {
			run, err := h.GetRun(ctx, id)
			if err != nil {
				return err
			}
			if err := h.DeleteRun(ctx, run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", shortID(run.ID))
		}
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		versions, err := db.MigrationStatus(GetContext(), h.DB)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(versions) == 0 {
			fmt.Fprintln(out, "No migrations applied.")
			return nil
		}
		fmt.Fprintf(out, "Applied migrations (%d):\n", len(versions))
		for _, version := range versions {
			fmt.Fprintf(out, "  %s\n", version)
		}
		return nil
	})
}

func runMigrateRollback(cmd *cobra.Command, args []string) error {
	return withHistory(func(proj *config.Project, h *db.DB) error {
		if err := db.RollbackMigration(GetContext(), h.DB); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migration rolled back successfully.")
		return nil
	})
}

// shortID abbreviates a run id for display. Any unique prefix is accepted
// back by GetRun.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
