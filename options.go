// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/rendering/internal/parallel"
)

// Environment variables read by NewSystem. They override Options.
const (
	// EnvThreads is the number of CPU workers. One GPU worker is added.
	EnvThreads = "GOGPU_RENDERING_THREADS"

	EnvDebugTaskListLog          = "GOGPU_RENDERING_DEBUG_TASK_LIST_LOG"
	EnvDebugTaskListOptimizedLog = "GOGPU_RENDERING_DEBUG_TASK_LIST_OPTIMIZED_LOG"
	EnvDebugResultImage          = "GOGPU_RENDERING_DEBUG_RESULT_IMAGE"
)

// Worker pool bounds.
const (
	MinThreads = parallel.MinThreads
	MaxThreads = parallel.MaxThreads
)

// Observer receives scheduling events from the workers. Methods must be
// safe for concurrent use.
type Observer interface {
	TaskStarted(gpu bool)
	TaskFinished(gpu, ok bool, d time.Duration)
}

// DebugOptions enable diagnostics. Empty strings disable them.
type DebugOptions struct {
	// TaskListLog is a file the input task list of every run is appended to.
	TaskListLog string

	// TaskListOptimizedLog is a file the optimized task list, with
	// dependencies, of every run is appended to.
	TaskListOptimizedLog string

	// ResultImage is a file the target surface of the last task of every
	// run is saved to. The extension selects the format (png, bmp, tiff).
	ResultImage string
}

// Options configures a System.
type Options struct {
	// Threads is the total number of workers including the GPU worker.
	// Zero selects the number of CPUs. The value is clamped to
	// [MinThreads, MaxThreads].
	Threads int

	// Debug enables diagnostics.
	Debug DebugOptions

	// Observer, if set, receives scheduling events.
	Observer Observer
}

// withEnv returns o with the environment overrides applied.
func (o Options) withEnv(lookup func(string) (string, bool)) Options {
	if s, ok := lookup(EnvThreads); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			Logger().Warn("rendering: ignoring invalid thread count",
				"env", EnvThreads,
				"value", s)
		} else {
			// Zero would select NumCPU; an explicit value never does.
			o.Threads = max(n+1, MinThreads)
		}
	}
	if s, ok := lookup(EnvDebugTaskListLog); ok {
		o.Debug.TaskListLog = s
	}
	if s, ok := lookup(EnvDebugTaskListOptimizedLog); ok {
		o.Debug.TaskListOptimizedLog = s
	}
	if s, ok := lookup(EnvDebugResultImage); ok {
		o.Debug.ResultImage = s
	}
	return o
}

// threads returns the clamped worker count.
func (o Options) threads() int {
	n := o.Threads
	if n == 0 {
		n = runtime.NumCPU()
	}
	return max(MinThreads, min(n, MaxThreads))
}

// resolveOptions applies the process environment to o.
func resolveOptions(o Options) Options {
	return o.withEnv(os.LookupEnv)
}
