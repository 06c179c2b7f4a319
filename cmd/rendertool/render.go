package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/rendering"
	"github.com/gogpu/rendering/metrics"
	"github.com/gogpu/rendering/scene"
	"github.com/gogpu/rendering/surface"
)

var errTasksFailed = errors.New("some tasks failed")

type renderFlags struct {
	output      string
	renderer    string
	watch       bool
	metricsAddr string
}

func newRenderCmd() *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render SCENE",
		Short: "Render a YAML or HCL scene to an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "out.png", "output image (png, bmp, tiff)")
	cmd.Flags().StringVarP(&f.renderer, "renderer", "r", "software", "renderer name")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "render again when the scene file changes")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runRender(ctx context.Context, path string, f renderFlags) error {
	opts := rendering.Options{Threads: flagThreads}

	if f.metricsAddr != "" {
		c := metrics.NewCollector("rendertool")
		reg := prometheus.NewRegistry()
		reg.MustRegister(c)
		opts.Observer = c

		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rendering.Logger().Error("rendertool: metrics server", "error", err)
			}
		}()
		defer srv.Close()
	}

	sys := rendering.NewSystem(opts)
	defer sys.Close()

	if err := renderScene(sys, path, f.renderer, f.output); err != nil {
		if !f.watch {
			return err
		}
		rendering.Logger().Error("rendertool: render", "scene", path, "error", err)
	}
	if !f.watch {
		return nil
	}

	return watchFile(ctx, path, func() {
		if err := renderScene(sys, path, f.renderer, f.output); err != nil {
			rendering.Logger().Error("rendertool: render", "scene", path, "error", err)
		}
	})
}

// renderScene renders the scene at path with the named renderer and saves
// its output surface.
func renderScene(sys *rendering.System, path, renderer, output string) error {
	r, ok := sys.Renderer(renderer)
	if !ok {
		return fmt.Errorf("renderer %q not available (have %v)", renderer, sys.Renderers())
	}

	sc, err := scene.Load(path)
	if err != nil {
		return err
	}
	frame, err := sc.Build()
	if err != nil {
		return err
	}
	defer frame.Release()

	start := time.Now()
	ok = r.Run(frame.Tasks)
	rendering.Logger().Info("rendertool: rendered",
		"scene", path,
		"renderer", renderer,
		"tasks", len(frame.Tasks),
		"elapsed", time.Since(start))

	if frame.Output == nil {
		return fmt.Errorf("scene %s has no output surface", path)
	}
	if err := surface.Save(frame.Output, output); err != nil {
		return err
	}
	if !ok {
		return errTasksFailed
	}
	return nil
}
