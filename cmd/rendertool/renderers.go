package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/rendering"
	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/surface"
)

func newRenderersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renderers",
		Short: "List backends and whether their renderer is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sys := rendering.NewSystem(rendering.Options{Threads: flagThreads})
			defer sys.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATUS\tOPTIMIZERS")
			for _, name := range backend.Available() {
				r, ok := sys.Renderer(name)
				if !ok {
					fmt.Fprintf(tw, "%s\tunavailable\t-\n", name)
					continue
				}
				fmt.Fprintf(tw, "%s\tready\t%d\n", name, len(r.Backend().Optimizers()))
			}
			fmt.Fprintf(tw, "\nthreads: %d\n", sys.Threads())
			fmt.Fprintf(tw, "surface kinds: %s\n", strings.Join(surface.Available(), ", "))
			return tw.Flush()
		},
	}
}
