package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/newhook/harvest/internal/logging"
	hsignal "github.com/newhook/harvest/internal/signal"
	"github.com/spf13/cobra"
)

// Version is reported by --version and in SARIF output.
var Version = "dev"

// ErrThresholdExceeded is returned by scan when an issue at or above the
// fail-on severity was found.
var ErrThresholdExceeded = errors.New("issues at or above the fail-on severity were found")

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	flagProject string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Extract structured issues from build and analysis tool output",
	Long: `harvest reads the console output of compilers, linters and test runners,
turns every warning and error into a structured issue, and reports, records
and compares them.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = hsignal.WithSignalCancel(context.Background())
		if flagDebug {
			logging.InitWriter(os.Stderr, slog.LevelDebug)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
		_ = logging.Close()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project directory (default: auto-detect from cwd)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "write debug logs to stderr")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(viewCmd)
}
