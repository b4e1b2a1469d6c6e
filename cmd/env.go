package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/envctl"
	"github.com/kennyg/ctxkit/internal/ui"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Check and compile the environment contract",
	Long: `The environment contract (env/contract.yaml) declares every variable
the project reads: its type, whether it is required or secret, the
environments it applies to, and its lifecycle. Non-secret values live in
env/values/<env>.yaml and env/values/<env>.local.yaml; secrets are
referenced from env/secrets/<env>.ref.yaml and resolved from the mock,
env or file backends.

Reports never contain secret values.`,
}

var envDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose whether an environment can be compiled",
	Long: `Validate the contract, the values files and the secret references of
one environment and print a redacted Markdown report. Exits 1 when
anything is missing or invalid.

Examples:
  ctxkit env doctor
  ctxkit env doctor --env staging --report docs/context/env/doctor.md`,
	Args: cobra.NoArgs,
	RunE: runEnvDoctor,
}

var envCompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Write the local env file and the redacted effective context",
	Long: `Resolve defaults, values and secrets for one environment. On success
the local env file (.env.local for dev, .env.<env>.local otherwise) is
written with mode 0600 and a redacted snapshot is written to
docs/context/env/effective-<env>.json. Nothing is written on failure.

Examples:
  ctxkit env compile
  ctxkit env compile --env staging --no-write`,
	Args: cobra.NoArgs,
	RunE: runEnvCompile,
}

var envListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List environments found under the env directory",
	Args:    cobra.NoArgs,
	RunE:    runEnvList,
}

var (
	envName    string
	envReport  string
	envNoWrite bool
)

func init() {
	for _, c := range []*cobra.Command{envDoctorCmd, envCompileCmd} {
		c.Flags().StringVar(&envName, "env", "", "Environment name (default from config, dev)")
		c.Flags().StringVar(&envReport, "report", "", "Write the Markdown report to this file instead of stdout")
	}
	envCompileCmd.Flags().BoolVar(&envNoWrite, "no-write", false, "Do not write the local env file (the redacted context is still written)")

	envCmd.AddCommand(envDoctorCmd)
	envCmd.AddCommand(envCompileCmd)
	envCmd.AddCommand(envListCmd)
}

func envOptions() envctl.Options {
	name := envName
	if name == "" {
		name = cfg.Env.Default
	}
	return envctl.Options{
		Root:       cfg.Root,
		Dir:        cfg.Env.Dir,
		Gate:       cfg.Env.Gate,
		ContextDir: cfg.Env.ContextDir,
		Env:        name,
	}
}

func runEnvDoctor(cmd *cobra.Command, args []string) error {
	report, err := envctl.Doctor(cmd.Context(), envOptions())
	if err != nil {
		return err
	}
	return finishEnvReport(cmd, report, envctl.DoctorMarkdown(report))
}

func runEnvCompile(cmd *cobra.Command, args []string) error {
	report, err := envctl.Compile(cmd.Context(), envOptions(), envNoWrite)
	if err != nil {
		return err
	}
	return finishEnvReport(cmd, report, envctl.CompileMarkdown(report))
}

// finishEnvReport prints or writes the Markdown report and turns a failing
// status into exit code 1
func finishEnvReport(cmd *cobra.Command, report *envctl.Report, md string) error {
	out := cmd.OutOrStdout()
	if envReport == "" {
		fmt.Fprint(out, md)
	} else {
		path := cfg.Abs(envReport)
		if err := artifact.WriteFile(path, []byte(md)); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.InfoLine("Report written to "+cfg.Rel(path)))
		for _, w := range report.Warnings {
			fmt.Fprintln(out, ui.WarningLine(w))
		}
	}

	if !report.OK() {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("environment %s is not ready (%d problems)", report.Env, len(report.Errors))}
	}
	if report.EnvFileWritten {
		fmt.Fprintln(out, ui.SuccessLine("Wrote "+report.EnvFile))
	}
	return nil
}

func runEnvList(cmd *cobra.Command, args []string) error {
	envs, err := envctl.Environments(cfg.Env.Dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(envs) == 0 {
		fmt.Fprintln(out, ui.RenderMuted("  No environments under "+cfg.Rel(cfg.Env.Dir)))
		return nil
	}
	for _, e := range envs {
		line := "  " + e
		if e == cfg.Env.Default {
			line += " " + ui.RenderMuted("(default)")
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}
