// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports scheduler activity as Prometheus metrics.
//
// A Collector is passed to the rendering system as its observer and
// registered with a Prometheus registry:
//
//	c := metrics.NewCollector("gogpu")
//	prometheus.MustRegister(c)
//	sys := rendering.NewSystem(rendering.Options{Observer: c})
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Worker label values.
const (
	WorkerCPU = "cpu"
	WorkerGPU = "gpu"
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// DefaultBuckets are the task duration buckets in seconds.
var DefaultBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
}

// Collector counts executed tasks. It implements prometheus.Collector and
// the observer interface of the rendering system.
//
// Thread safety: Collector is safe for concurrent use.
type Collector struct {
	tasks    *prometheus.CounterVec
	running  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewCollector returns a collector whose metric names start with
// namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_total",
			Help:      "Tasks executed by the scheduler.",
		}, []string{"worker", "result"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_running",
			Help:      "Tasks currently running.",
		}, []string{"worker"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Task run time.",
			Buckets:   DefaultBuckets,
		}, []string{"worker"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.tasks.Describe(ch)
	c.running.Describe(ch)
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.tasks.Collect(ch)
	c.running.Collect(ch)
	c.duration.Collect(ch)
}

// TaskStarted records the start of a task.
func (c *Collector) TaskStarted(gpu bool) {
	c.running.WithLabelValues(worker(gpu)).Inc()
}

// TaskFinished records the end of a task.
func (c *Collector) TaskFinished(gpu, ok bool, d time.Duration) {
	w := worker(gpu)
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	c.running.WithLabelValues(w).Dec()
	c.tasks.WithLabelValues(w, result).Inc()
	c.duration.WithLabelValues(w).Observe(d.Seconds())
}

func worker(gpu bool) string {
	if gpu {
		return WorkerGPU
	}
	return WorkerCPU
}
