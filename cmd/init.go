package cmd

import (
	"fmt"

	"github.com/newhook/harvest/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a harvest project",
	Long: `Create a .harvest directory with a documented config.toml in dir
(default: the current directory). Projects record scan history and keep
an on-disk report cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	proj, err := config.Create(dir)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project '%s' created\n", proj.Config.Project.Name)
	fmt.Fprintf(out, "  Config: %s\n", proj.ConfigPath())
	return nil
}
