package main

import (
	"fmt"
	"os"

	"github.com/kennyg/ctxkit/cmd"
	"github.com/kennyg/ctxkit/internal/ui"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, ui.RenderError("Error: "+msg))
		}
		os.Exit(cmd.ExitCode(err))
	}
}
