package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/apiindex"
	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/ui"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the API index from an OpenAPI document",
	Long: `Generate api-index.json (and optionally a Markdown table) from an
OpenAPI document. Outputs are only rewritten when their content changes,
so re-running on an unchanged source leaves them byte-identical.

Without --source the registry's single openapi artifact is used.

Examples:
  ctxkit generate --source api/openapi.yaml
  ctxkit generate --source api/openapi.yaml --out-md - --touch`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	apiSource  string
	apiOut     string
	apiOutMD   string
	apiBaseURL string

	generateTouch bool
)

// addAPIIndexFlags registers the flags shared by generate, diff and watch
func addAPIIndexFlags(cmd *cobra.Command, markdown bool) {
	cmd.Flags().StringVarP(&apiSource, "source", "s", "", "OpenAPI document (default: the registered openapi artifact)")
	cmd.Flags().StringVarP(&apiOut, "out", "o", "", "api-index.json path (default: api_index.out)")
	cmd.Flags().StringVar(&apiBaseURL, "base-url", "", "Base URL for curl examples (default: first server)")
	if markdown {
		cmd.Flags().StringVar(&apiOutMD, "out-md", "", `Markdown path, "-" to skip (default: api_index.out_md)`)
	}
}

func init() {
	addAPIIndexFlags(generateCmd, true)
	generateCmd.Flags().BoolVar(&generateTouch, "touch", false, "Update registry checksums afterwards")
}

// apiIndexConfig merges the command flags over the configured defaults
func apiIndexConfig() (apiindex.Config, error) {
	source := apiSource
	if source == "" {
		var err error
		if source, err = registeredOpenAPI(); err != nil {
			return apiindex.Config{}, err
		}
	}
	source = cfg.Abs(source)

	c := apiindex.Config{
		Source:      source,
		SourceLabel: cfg.Rel(source),
		Out:         cfg.APIIndex.Out,
		OutMD:       cfg.APIIndex.OutMD,
		BaseURL:     cfg.APIIndex.BaseURL,
	}
	if apiOut != "" {
		c.Out = cfg.Abs(apiOut)
	}
	if apiOutMD != "" {
		c.OutMD = cfg.OptionalAbs(apiOutMD)
	}
	if apiBaseURL != "" {
		c.BaseURL = apiBaseURL
	}
	return c, nil
}

func registeredOpenAPI() (string, error) {
	reg, err := loadRegistry()
	if err != nil {
		return "", err
	}
	var found []registry.Entry
	for _, e := range reg.Artifacts {
		if e.Type == artifact.TypeOpenAPI {
			found = append(found, e)
		}
	}
	if len(found) != 1 {
		return "", errors.Errorf("--source is required (the registry has %d openapi artifacts)", len(found))
	}
	return found[0].Path, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c, err := apiIndexConfig()
	if err != nil {
		return err
	}
	res, err := apiindex.Generate(cmd.Context(), c)
	if err != nil {
		return err
	}
	reportGenerate(cmd, c, res)

	if !generateTouch {
		return nil
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	if _, err := reg.Touch(); err != nil {
		return err
	}
	return saveRegistry(cmd, reg)
}

func reportGenerate(cmd *cobra.Command, c apiindex.Config, res *apiindex.Result) {
	out := cmd.OutOrStdout()
	report := func(path string, written bool) {
		if path == "" {
			return
		}
		if written {
			fmt.Fprintln(out, ui.SuccessLine("wrote "+cfg.Rel(path)))
		} else {
			fmt.Fprintln(out, ui.InfoLine(cfg.Rel(path)+" unchanged"))
		}
	}
	report(c.Out, res.JSONWritten)
	report(c.OutMD, res.MarkdownWritten)
	fmt.Fprintln(out, ui.RenderMuted(fmt.Sprintf("  %d endpoints from %s", len(res.Index.Endpoints), c.SourceLabel)))
}
