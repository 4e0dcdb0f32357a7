package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/newhook/harvest/internal/config"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools harvest can parse",
	Long:  `List the built-in tools and the custom [[parser]] tools of the current project.`,
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	proj, err := config.FindOrDefault(flagProject)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	reg, err := proj.Config.Registry()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTRATEGY")
	for _, id := range reg.SortedIDs() {
		e, _ := reg.Lookup(id)
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID(), e.Name(), e.Strategy())
	}
	return w.Flush()
}
