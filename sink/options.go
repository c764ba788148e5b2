// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"time"

	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/config"
)

const (
	defaultWaitForExit     = 100 * time.Millisecond
	defaultTeardownTimeout = 5 * time.Second
	defaultStderrLines     = 256
)

// Options configure one sink instance. The zero value is usable once a
// command is set; zero fields fall back to defaults.
type Options struct {
	// Command is the shell command frames are piped into. Required
	// before Start, not at construction.
	Command string

	// Shell is the interpreter used to run Command. Defaults to "sh".
	Shell string

	// WaitForExit is the pause between closing stdin (EOF) and sending
	// the hang-up signal during teardown.
	WaitForExit time.Duration

	// TeardownTimeout bounds the wait for the subprocess to exit after
	// the hang-up signal. On timeout the sink logs an anomaly and
	// proceeds; the process is never force-killed.
	TeardownTimeout time.Duration

	// WriteTimeout bounds a single frame write. Zero blocks
	// indefinitely on pipe backpressure.
	WriteTimeout time.Duration

	// StderrLines is the capacity of the captured stderr ring.
	StderrLines int
}

// DefaultOptions resolves option defaults from the environment.
func DefaultOptions() Options {
	return Options{
		Shell:           config.ParseString("VIDEOPIPE_SHELL", "sh"),
		WaitForExit:     config.ParseDuration("VIDEOPIPE_WAIT_FOR_EXIT", defaultWaitForExit),
		TeardownTimeout: config.ParseDuration("VIDEOPIPE_TEARDOWN_TIMEOUT", defaultTeardownTimeout),
		WriteTimeout:    config.ParseDuration("VIDEOPIPE_WRITE_TIMEOUT", 0),
		StderrLines:     config.ParseInt("VIDEOPIPE_STDERR_LINES", defaultStderrLines),
	}
}

func (o *Options) applyDefaults() {
	if o.Shell == "" {
		o.Shell = "sh"
	}
	if o.WaitForExit < 0 {
		o.WaitForExit = 0
	}
	if o.TeardownTimeout <= 0 {
		o.TeardownTimeout = defaultTeardownTimeout
	}
	if o.StderrLines <= 0 {
		o.StderrLines = defaultStderrLines
	}
}
