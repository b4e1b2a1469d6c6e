package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/apropos"
	"github.com/kennyg/ctxkit/internal/config"
	"github.com/kennyg/ctxkit/internal/packs"
	"github.com/kennyg/ctxkit/internal/skills"
	"github.com/kennyg/ctxkit/internal/ui"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Sync SSOT skills into agent directories",
	Long: `Skills are authored once under the SSOT directory (.ai/skills by
default) and exposed to each configured agent through small generated
wrappers, filtered by the packs sync manifest.`,
}

var skillsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Write agent wrappers for the selected skills",
	Long: `Write a SKILL.md wrapper per selected skill into every agent's skills
directory and remove generated wrappers that are no longer selected.
Hand-written wrappers are never touched.

Examples:
  ctxkit skills sync
  ctxkit skills sync --dry-run
  ctxkit skills sync --check --agents claude`,
	Args: cobra.NoArgs,
	RunE: runSkillsSync,
}

var skillsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List SSOT skills and whether they are selected",
	Args:    cobra.NoArgs,
	RunE:    runSkillsList,
}

var skillsSearchCmd = &cobra.Command{
	Use:     "search <query>",
	Aliases: []string{"apropos"},
	Short:   "Search SSOT skills by keyword",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSkillsSearch,
}

var (
	skillsDryRun bool
	skillsCheck  bool
	skillsAgents []string
)

func init() {
	skillsSyncCmd.Flags().BoolVarP(&skillsDryRun, "dry-run", "n", false, "Show what would change without writing")
	skillsSyncCmd.Flags().BoolVar(&skillsCheck, "check", false, "Exit non-zero when wrappers are out of date (implies --dry-run)")
	skillsSyncCmd.Flags().StringSliceVarP(&skillsAgents, "agents", "a", nil, "Agents to sync (default: skills.agents)")

	skillsCmd.AddCommand(skillsSyncCmd)
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsSearchCmd)
}

func runSkillsSync(cmd *cobra.Command, args []string) error {
	agents := cfg.Skills.Agents
	if len(skillsAgents) > 0 {
		var err error
		if agents, err = config.ParseAgents(skillsAgents); err != nil {
			return err
		}
	}
	targets := make([]skills.Target, 0, len(agents))
	for _, a := range agents {
		targets = append(targets, skills.Target{Agent: string(a.Name), Dir: a.SkillsPath(cfg.Root)})
	}

	manifest, err := packs.LoadManifest(cfg.Skills.Manifest)
	if err != nil {
		return err
	}

	plan, err := skills.Sync(cmd.Context(), skills.Options{
		Root:     cfg.Root,
		SSOT:     cfg.Skills.SSOT,
		Targets:  targets,
		Manifest: manifest,
		DryRun:   skillsDryRun || skillsCheck,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	changes := plan.Changes()
	for _, a := range changes {
		fmt.Fprintf(out, "  %s %s %s\n", ui.StatusBadge(string(a.Kind)), a.Skill, ui.RenderMuted(cfg.Rel(a.Path)))
	}
	for _, a := range plan.Conflicts() {
		fmt.Fprintln(out, ui.WarningLine(fmt.Sprintf("%s: %s is hand-written; left as is", a.Skill, cfg.Rel(a.Path))))
	}

	switch {
	case len(changes) == 0:
		fmt.Fprintln(out, ui.SuccessLine("wrappers are up to date"))
	case skillsCheck:
		return &ExitError{Code: 1, Msg: fmt.Sprintf("%d wrappers are out of date; run skills sync", len(changes))}
	case skillsDryRun:
		fmt.Fprintln(out, ui.InfoLine(fmt.Sprintf("%d changes (dry run)", len(changes))))
	default:
		fmt.Fprintln(out, ui.SuccessLine(fmt.Sprintf("%d changes", len(changes))))
	}
	return nil
}

func runSkillsList(cmd *cobra.Command, args []string) error {
	all, err := skills.Discover(cfg.Skills.SSOT)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(all) == 0 {
		fmt.Fprintln(out, ui.RenderMuted("  No skills found in "+cfg.Rel(cfg.Skills.SSOT)))
		return nil
	}

	manifest, err := packs.LoadManifest(cfg.Skills.Manifest)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(all))
	for _, s := range all {
		status := "disabled"
		if manifest.Selects(s.Dir) {
			status = "enabled"
		}
		rows = append(rows, []string{ui.RenderHighlight(s.Name), ui.StatusBadge(status), s.Dir, ui.Truncate(s.Description, 50)})
	}
	fmt.Fprint(out, ui.Table([]string{"SKILL", "STATUS", "DIR", "DESCRIPTION"}, rows))
	return nil
}

func runSkillsSearch(cmd *cobra.Command, args []string) error {
	all, err := skills.Discover(cfg.Skills.SSOT)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	results := apropos.Build(all).Search(query)

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, ui.RenderMuted(fmt.Sprintf("  No skills match %q", query)))
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{ui.RenderHighlight(r.Skill.Name), r.Skill.Dir, ui.Truncate(r.Skill.Description, 60)})
	}
	fmt.Fprint(out, ui.Table([]string{"SKILL", "DIR", "DESCRIPTION"}, rows))
	return nil
}
