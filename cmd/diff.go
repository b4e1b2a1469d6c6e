package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/apiindex"
	"github.com/kennyg/ctxkit/internal/ui"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show how the API index would change",
	Long: `Regenerate the API index in memory and print a unified diff against
the file on disk. Exits 1 when the index is out of date.

Examples:
  ctxkit diff --source api/openapi.yaml`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	addAPIIndexFlags(diffCmd, false)
}

func runDiff(cmd *cobra.Command, args []string) error {
	c, err := apiIndexConfig()
	if err != nil {
		return err
	}
	d, err := apiindex.Diff(c)
	if err != nil {
		return err
	}
	if d == "" {
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine(cfg.Rel(c.Out)+" is up to date"))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), d)
	return &ExitError{Code: 1, Msg: cfg.Rel(c.Out) + " is out of date; run generate"}
}
