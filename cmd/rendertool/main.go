// Command rendertool renders scene files with the gogpu renderers.
//
// Usage:
//
//	rendertool render scene.yaml -o out.png
//	rendertool render scene.hcl -o out.png --renderer safe --watch
//	rendertool renderers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gogpu/rendering"
)

var (
	flagThreads int
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rendertool",
		Short:         "Render scene files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			rendering.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().IntVarP(&flagThreads, "threads", "j", 0, "worker count including the GPU worker (0 = number of CPUs)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log optimizer and scheduler details")

	root.AddCommand(newRenderCmd(), newRenderersCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rendertool: %v\n", err)
		os.Exit(1)
	}
}
