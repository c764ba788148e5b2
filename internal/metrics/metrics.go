// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package metrics exposes Prometheus metrics for the subprocess pipe sink.
// Label cardinality is bounded: no pid, run_id or command in labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SpawnTotal counts subprocess spawn attempts, by result (ok/error).
	SpawnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipesink_spawn_total",
		Help: "Total number of subprocess spawn attempts, by result.",
	}, []string{"result"})

	// ExitTotal counts subprocess exits, by reason
	// (clean/error/signal/timeout).
	ExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipesink_exit_total",
		Help: "Total number of subprocess exits observed, by reason.",
	}, []string{"reason"})

	// FaultTotal counts run faults, by cause
	// (spawn/pipe_broken/unexpected_exit/write_timeout).
	FaultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipesink_fault_total",
		Help: "Total number of run faults, by cause.",
	}, []string{"cause"})

	// FramesTotal counts frames fully written to the subprocess.
	FramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipesink_frames_total",
		Help: "Total number of frames delivered to the subprocess stdin.",
	})

	// FrameBytesTotal counts payload bytes written to the subprocess.
	FrameBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipesink_frame_bytes_total",
		Help: "Total number of frame payload bytes delivered to the subprocess stdin.",
	})

	// ActiveProcesses tracks currently live subprocesses.
	ActiveProcesses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videopipesink_active_processes",
		Help: "Current number of live sink subprocesses.",
	})

	// PaceWaitSeconds observes how long frame delivery slept to honor
	// presentation timestamps.
	PaceWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "videopipesink_pace_wait_seconds",
		Help:    "Time spent waiting for a frame to become due.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)
