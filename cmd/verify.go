package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check registered artifacts against their checksums",
	Long: `Compare every registered artifact with its recorded checksum.

Findings are missing files, checksum drift, and entries with no checksum
recorded yet. Without --strict they are warnings; with --strict any
finding fails the command.

Examples:
  ctxkit verify
  ctxkit verify --strict`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var verifyStrict bool

func init() {
	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "Exit non-zero on any finding")
}

func runVerify(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	checks, err := reg.Verify()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	findings := registry.Findings(checks)
	for _, c := range findings {
		fmt.Fprintln(out, ui.WarningLine(fmt.Sprintf("%s %s %s", ui.StatusBadge(string(c.Status)), c.ID, ui.RenderMuted(c.Path))))
	}

	if len(findings) == 0 {
		fmt.Fprintln(out, ui.SuccessLine(fmt.Sprintf("%d artifacts match the registry", len(checks))))
		return nil
	}
	msg := fmt.Sprintf("%d of %d artifacts need attention (run touch after reviewing)", len(findings), len(checks))
	if verifyStrict {
		return &ExitError{Code: 1, Msg: msg}
	}
	fmt.Fprintln(out, ui.WarningLine(msg))
	return nil
}
