package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/detect"
	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/ui"
)

var addArtifactCmd = &cobra.Command{
	Use:   "add-artifact",
	Short: "Register a context artifact",
	Long: `Register a file in the artifact registry.

Contract artifacts are hand-authored and must exist. Without --type the
type is detected from the file name and content. Generated artifacts
may be registered before they are first produced.

Examples:
  ctxkit add-artifact --id petstore --type openapi --path api/openapi.yaml
  ctxkit add-artifact --id architecture --path docs/ARCHITECTURE.md
  ctxkit add-artifact --id petstore-index --type api-index \
      --path docs/context/api/api-index.json --mode generated --source api/openapi.yaml`,
	Args: cobra.NoArgs,
	RunE: runAddArtifact,
}

var (
	addID     string
	addType   string
	addPath   string
	addMode   string
	addSource string
)

func init() {
	addArtifactCmd.Flags().StringVar(&addID, "id", "", "Unique artifact id")
	addArtifactCmd.Flags().StringVar(&addType, "type", "", fmt.Sprintf("Artifact type %v (default: detected from the file)", artifact.AllTypes()))
	addArtifactCmd.Flags().StringVar(&addPath, "path", "", "Path relative to the project root")
	addArtifactCmd.Flags().StringVar(&addMode, "mode", string(artifact.ModeContract), "contract or generated")
	addArtifactCmd.Flags().StringVar(&addSource, "source", "", "Path the artifact is generated from")
	_ = addArtifactCmd.MarkFlagRequired("id")
	_ = addArtifactCmd.MarkFlagRequired("path")
}

func runAddArtifact(cmd *cobra.Command, args []string) error {
	typ, detected, err := artifactType()
	if err != nil {
		return err
	}
	mode, ok := artifact.ParseMode(addMode)
	if !ok {
		return errors.Errorf("unknown mode %q (contract or generated)", addMode)
	}
	if addSource != "" && mode != artifact.ModeGenerated {
		return errors.New("--source only applies to --mode generated")
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	entry, err := reg.Add(registry.Entry{
		ID:     addID,
		Type:   typ,
		Path:   addPath,
		Mode:   mode,
		Source: addSource,
	})
	if err != nil {
		return err
	}
	if err := saveRegistry(cmd, reg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if detected != nil {
		fmt.Fprintln(out, ui.InfoLine(fmt.Sprintf("detected type %s (%s)", detected.Type, detected.Reason)))
	}
	fmt.Fprintln(out, ui.SuccessLine(fmt.Sprintf("registered %s %s", ui.RenderHighlight(entry.ID), ui.TypeBadge(entry.Type.String()))))
	if entry.ChecksumSHA256 == "" {
		fmt.Fprintln(out, ui.WarningLine(entry.Path+" does not exist yet; run touch once it is generated"))
	}
	return nil
}

// artifactType returns the --type value, or detects it from the file
func artifactType() (artifact.Type, *detect.Detection, error) {
	if addType != "" {
		typ, ok := artifact.ParseType(addType)
		if !ok {
			return "", nil, errors.Errorf("unknown artifact type %q (known: %v)", addType, artifact.AllTypes())
		}
		return typ, nil, nil
	}

	content, err := os.ReadFile(cfg.Abs(addPath))
	if err != nil {
		return "", nil, errors.Wrapf(err, "--type is required when %s cannot be read", addPath)
	}
	d := detect.Type(addPath, content)
	return d.Type, &d, nil
}
