package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/ui"
)

var touchCmd = &cobra.Command{
	Use:   "touch",
	Short: "Record current checksums in the registry",
	Long: `Recompute the SHA-256 checksum of every registered artifact.

Entries whose file changed get the new checksum and a fresh updatedAt.
Missing files are reported and their entries left alone. The registry is
only rewritten when its content actually changes.`,
	Args: cobra.NoArgs,
	RunE: runTouch,
}

func runTouch(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	checks, err := reg.Touch()
	if err != nil {
		return err
	}
	if err := saveRegistry(cmd, reg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	updated := 0
	for _, c := range checks {
		switch c.Status {
		case registry.StatusUpdated:
			updated++
			fmt.Fprintln(out, ui.SuccessLine(fmt.Sprintf("%s %s", c.ID, ui.RenderMuted(c.Path))))
		case registry.StatusMissing:
			fmt.Fprintln(out, ui.WarningLine(fmt.Sprintf("%s: %s is missing", c.ID, c.Path)))
		}
	}
	fmt.Fprintln(out, ui.InfoLine(fmt.Sprintf("%d of %d artifacts updated", updated, len(checks))))
	return nil
}
