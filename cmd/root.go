package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kennyg/ctxkit/internal/config"
	"github.com/kennyg/ctxkit/internal/logger"
	"github.com/kennyg/ctxkit/internal/registry"
)

var (
	// Version is set at build time
	Version = "dev"
)

var (
	flagRoot      string
	flagConfig    string
	flagRegistry  string
	flagLogLevel  string
	flagLogFormat string

	// cfg is loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ctxkit",
	Short: "Keep a repository's agent context consistent",
	Long: `ctxkit keeps the machine-readable context of a repository (OpenAPI
contracts, generated API indexes, agent skills) consistent and cheap for
coding agents to consume.

  Track artifacts and their checksums in a registry, generate a compact
  API index from OpenAPI, and sync skill wrappers into agent directories.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// ExitError fails a command without printing usage. An empty Msg means the
// command already reported the problem.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		return exitErr.Code
	}
	return 1
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRoot, "root", "", "Project root (default: nearest directory with .ctxkit.yaml or .git)")
	flags.StringVar(&flagConfig, "config", "", "Config file (default: <root>/.ctxkit.yaml)")
	flags.StringVar(&flagRegistry, "registry", "", "Registry file (overrides the registry config key)")
	flags.StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&flagLogFormat, "log-format", "text", "Log format (text or json)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addArtifactCmd)
	rootCmd.AddCommand(removeArtifactCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(packsCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ctxkit %s\n", Version)
	},
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := logger.Configure(flagLogLevel, flagLogFormat); err != nil {
		return err
	}

	v := viper.New()
	config.SetDefaults(v)
	if err := v.BindPFlag(config.KeyRegistry, cmd.Root().PersistentFlags().Lookup("registry")); err != nil {
		return errors.Wrap(err, "failed to bind --registry")
	}

	loaded, err := config.Load(v, flagRoot, flagConfig)
	if err != nil {
		return err
	}
	cfg = loaded

	ctx := logger.WithLogger(cmd.Context(), logger.L.WithField("cmd", cmd.CommandPath()))
	cmd.SetContext(ctx)
	logger.G(ctx).WithField("root", cfg.Root).WithField("config", cfg.File).Debug("configuration loaded")
	return nil
}

// loadRegistry reads the configured registry file
func loadRegistry() (*registry.Registry, error) {
	return registry.Load(cfg.Registry, cfg.Root)
}

// saveRegistry writes reg and reports the outcome
func saveRegistry(cmd *cobra.Command, reg *registry.Registry) error {
	written, err := reg.Save()
	if err != nil {
		return err
	}
	logger.G(cmd.Context()).WithField("file", reg.File()).WithField("written", written).Debug("saved registry")
	return nil
}
