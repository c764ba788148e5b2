// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCommand reports a Start without a configured command line.
	ErrNoCommand = errors.New("command line not set")

	// ErrNotRunning reports frame delivery outside the running state.
	ErrNotRunning = errors.New("sink is not running")

	// ErrStopping reports a frame delivery interrupted by a concurrent
	// Stop. It is not a fault; the host should treat it as flushing.
	ErrStopping = errors.New("sink is stopping")
)

// FaultCause classifies why a run failed.
type FaultCause string

const (
	FaultSpawn          FaultCause = "spawn"
	FaultPipeBroken     FaultCause = "pipe_broken"
	FaultUnexpectedExit FaultCause = "unexpected_exit"
	FaultWriteTimeout   FaultCause = "write_timeout"
)

// Fault is the single error surface the host observes for a failed run.
// It carries the triggering cause, the subprocess exit code when known,
// and the tail of the captured stderr.
type Fault struct {
	Cause    FaultCause
	Err      error
	ExitCode int    // -1 when unknown or signal-terminated
	Signal   string // signal name when the subprocess was signalled
	Stderr   []string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sink fault (%s)", f.Cause)
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	if f.Cause == FaultUnexpectedExit && f.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit code %d)", f.ExitCode)
	}
	return b.String()
}

// Unwrap exposes the underlying error for errors.Is/As.
func (f *Fault) Unwrap() error { return f.Err }
