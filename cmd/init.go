package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/config"
	"github.com/kennyg/ctxkit/internal/registry"
	"github.com/kennyg/ctxkit/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .ctxkit.yaml and an empty registry",
	Long: `Initialize ctxkit in the project root.

Writes .ctxkit.yaml with the default settings and an empty registry when
they do not exist yet. Re-running is a no-op unless --force is given.

Examples:
  ctxkit init
  ctxkit init --root ./service --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.SectionHeader("Initializing ctxkit"))

	configPath := filepath.Join(cfg.Root, artifact.ConfigFilename)
	wroteConfig, err := writeInitFile(configPath, func() ([]byte, error) {
		return config.MarshalDefaults()
	})
	if err != nil {
		return err
	}
	reportInit(cmd, configPath, wroteConfig)

	// A fresh config means the defaults apply, whatever was loaded before
	registryPath := cfg.Registry
	if wroteConfig && flagRegistry == "" {
		registryPath = cfg.Abs(config.Defaults().Registry)
	}
	wroteRegistry := false
	if _, err := os.Stat(registryPath); os.IsNotExist(err) || initForce {
		if _, err := registry.New(registryPath, cfg.Root).Save(); err != nil {
			return err
		}
		wroteRegistry = true
	}
	reportInit(cmd, registryPath, wroteRegistry)

	if !wroteConfig && !wroteRegistry {
		fmt.Fprintln(out, ui.RenderMuted("  Already initialized. Use --force to overwrite."))
	}
	return nil
}

func writeInitFile(path string, content func() ([]byte, error)) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	} else if err != nil && !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}
	data, err := content()
	if err != nil {
		return false, err
	}
	if err := artifact.WriteFile(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func reportInit(cmd *cobra.Command, path string, written bool) {
	rel := cfg.Rel(path)
	if written {
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("wrote "+rel))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.InfoLine(rel+" exists"))
}
