package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/packs"
	"github.com/kennyg/ctxkit/internal/ui"
)

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "Choose which skill packs are synced",
	Long: `Skill packs are named sets of skill globs defined in the packs
directory. The base pack is always on; other packs are enabled on top of
it. Every change rewrites the sync manifest that skills sync reads.`,
}

var packsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List available packs",
	Args:    cobra.NoArgs,
	RunE:    runPacksList,
}

var packsEnableCmd = &cobra.Command{
	Use:   "enable <pack>...",
	Short: "Enable packs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changePacks(cmd, args, true)
	},
}

var packsDisableCmd = &cobra.Command{
	Use:   "disable <pack>...",
	Short: "Disable packs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changePacks(cmd, args, false)
	},
}

var packsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rewrite the sync manifest from the current selection",
	Args:  cobra.NoArgs,
	RunE:  runPacksSync,
}

func init() {
	packsCmd.AddCommand(packsListCmd)
	packsCmd.AddCommand(packsEnableCmd)
	packsCmd.AddCommand(packsDisableCmd)
	packsCmd.AddCommand(packsSyncCmd)
}

func openPacks() (*packs.Controller, error) {
	return packs.Open(packs.Config{
		Dir:          cfg.Skills.PacksDir,
		StateFile:    cfg.Skills.StateFile,
		ManifestFile: cfg.Skills.Manifest,
		Base:         cfg.Skills.BasePack,
	})
}

func runPacksList(cmd *cobra.Command, args []string) error {
	ctrl, err := openPacks()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	list := ctrl.Packs()
	if len(list) == 0 {
		fmt.Fprintln(out, ui.RenderMuted("  No packs defined in "+cfg.Rel(cfg.Skills.PacksDir)))
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, p := range list {
		status := "disabled"
		if ctrl.Enabled(p.ID) {
			status = "enabled"
		}
		id := ui.RenderHighlight(p.ID)
		if ctrl.IsBase(p.ID) {
			id += ui.RenderMuted(" (base)")
		}
		rows = append(rows, []string{id, ui.StatusBadge(status), ui.Truncate(p.Description, 60)})
	}
	fmt.Fprint(out, ui.Table([]string{"PACK", "STATUS", "DESCRIPTION"}, rows))
	return nil
}

func changePacks(cmd *cobra.Command, ids []string, enable bool) error {
	ctrl, err := openPacks()
	if err != nil {
		return err
	}

	verb := "enabled"
	var changed []string
	if enable {
		changed, err = ctrl.Enable(ids...)
	} else {
		verb = "disabled"
		changed, err = ctrl.Disable(ids...)
	}
	if err != nil {
		return err
	}
	if _, _, err := ctrl.Save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(changed) == 0 {
		fmt.Fprintln(out, ui.InfoLine("nothing to change"))
		return nil
	}
	fmt.Fprintln(out, ui.SuccessLine(verb+" "+strings.Join(changed, ", ")))
	fmt.Fprintln(out, ui.RenderMuted("  Run `ctxkit skills sync` to update agent wrappers."))
	return nil
}

func runPacksSync(cmd *cobra.Command, args []string) error {
	ctrl, err := openPacks()
	if err != nil {
		return err
	}
	written, err := ctrl.Sync()
	if err != nil {
		return err
	}
	rel := cfg.Rel(cfg.Skills.Manifest)
	if written {
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("wrote "+rel))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), ui.InfoLine(rel+" unchanged"))
	}
	return nil
}
