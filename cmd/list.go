package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/stablejson"
	"github.com/kennyg/ctxkit/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered artifacts",
	Long:    `Display every registered artifact with its status on disk.`,
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var (
	listJSON bool
	listType string
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print entries as JSON")
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "Show only one artifact type")
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	entries := reg.Artifacts
	if listType != "" {
		typ, ok := artifact.ParseType(listType)
		if !ok {
			return errors.Errorf("unknown artifact type %q", listType)
		}
		entries = nil
		for _, e := range reg.Artifacts {
			if e.Type == typ {
				entries = append(entries, e)
			}
		}
	}

	out := cmd.OutOrStdout()
	if listJSON {
		if entries == nil {
			entries = []registry.Entry{}
		}
		data, err := stablejson.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if len(entries) == 0 {
		fmt.Fprint(out, ui.EmptyRegistry())
		return nil
	}

	checks, err := reg.Verify()
	if err != nil {
		return err
	}
	status := make(map[string]registry.Status, len(checks))
	for _, c := range checks {
		status[c.ID] = c.Status
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			ui.RenderHighlight(e.ID),
			ui.TypeBadge(e.Type.String()),
			string(e.Mode),
			ui.StatusBadge(string(status[e.ID])),
			e.Path,
		})
	}
	fmt.Fprint(out, ui.Table([]string{"ID", "TYPE", "MODE", "STATUS", "PATH"}, rows))
	return nil
}
