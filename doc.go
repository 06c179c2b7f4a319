// Package rendering turns lists of rendering tasks into pixels.
//
// # Overview
//
// A caller builds a list of tasks (package task) that write into surfaces
// (package surface) and hands it to a Renderer. The renderer
//
//  1. rewrites the list with its optimizer passes until nothing changes
//     (package optimizer),
//  2. orders the resulting root tasks by the surface regions they write:
//     a task depends on every earlier task whose target rectangle on the
//     same surface intersects its own, or that of one of its sub-tasks,
//  3. runs the tasks on the shared worker pool of the System and blocks
//     until all of them have finished.
//
// Run reports false if any task failed. A failed task does not stop the
// others; tasks depending on it still run.
//
// # Quick Start
//
//	sys, err := rendering.Initialize(rendering.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rendering.Deinitialize()
//
//	r, _ := sys.Renderer("software")
//	out := surface.NewImage(256, 256)
//	ok := r.Run(task.List{
//		&task.Fill{
//			Base:  task.Base{Target: out, TargetRect: out.Bounds()},
//			Color: color.RGBA{255, 0, 0, 255},
//		},
//	})
//
// # Renderers
//
// Initialize creates one renderer per registered backend whose Init
// succeeds: "gpu" (when a device is configured), "software" and "safe".
// Additional renderers with custom optimizer sets can be registered with
// System.RegisterRenderer.
//
// # Workers
//
// The System owns a fixed pool of workers. Worker 0 only runs GPU tasks,
// so GPU work is serialized while CPU work runs in parallel. The pool size
// defaults to the number of CPUs and can be overridden with Options.Threads
// or the GOGPU_RENDERING_THREADS environment variable (number of CPU
// workers; one GPU worker is added).
//
// # Diagnostics
//
// Debug options, also settable through the environment, dump the input
// and optimized task lists to files and save the final target surface as
// an image. See DebugOptions.
package rendering
