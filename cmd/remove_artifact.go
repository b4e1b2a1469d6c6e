package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/ui"
)

var removeArtifactCmd = &cobra.Command{
	Use:     "remove-artifact",
	Aliases: []string{"rm-artifact"},
	Short:   "Unregister a context artifact",
	Long: `Remove an entry from the artifact registry. The file itself is kept.

Examples:
  ctxkit remove-artifact --id petstore`,
	Args: cobra.NoArgs,
	RunE: runRemoveArtifact,
}

var removeID string

func init() {
	removeArtifactCmd.Flags().StringVar(&removeID, "id", "", "Artifact id")
	_ = removeArtifactCmd.MarkFlagRequired("id")
}

func runRemoveArtifact(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := reg.Remove(removeID); err != nil {
		return err
	}
	if err := saveRegistry(cmd, reg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("removed "+ui.RenderHighlight(removeID)))
	return nil
}
