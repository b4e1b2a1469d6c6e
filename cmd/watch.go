package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kennyg/ctxkit/internal/apiindex"
	"github.com/kennyg/ctxkit/internal/logger"
	"github.com/kennyg/ctxkit/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the API index whenever the source changes",
	Long: `Generate the API index, then keep regenerating it whenever the OpenAPI
document changes. Stops on Ctrl-C.

Examples:
  ctxkit watch --source api/openapi.yaml`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchDebounce = apiindex.DefaultDebounce

func init() {
	addAPIIndexFlags(watchCmd, true)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", apiindex.DefaultDebounce, "Wait this long after a change before regenerating")
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := apiIndexConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), ui.InfoLine("watching "+c.SourceLabel+" (Ctrl-C to stop)"))
	return apiindex.Watch(ctx, c, watchDebounce, func(res *apiindex.Result, err error) {
		if err != nil {
			// A broken document mid-edit is expected; keep watching
			logger.G(ctx).WithError(err).Warn("regeneration failed")
			fmt.Fprintln(cmd.ErrOrStderr(), ui.ErrorLine(err.Error()))
			return
		}
		reportGenerate(cmd, c, res)
	})
}
