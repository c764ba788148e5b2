// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package proc owns the sink's child process: spawning, feeding stdin,
// draining stderr and reaping. One Handle exists per live subprocess and
// is never shared between sink instances.
package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/log"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/procgroup"
)

var (
	// ErrEmptyCommand is returned by Spawn for a blank command spec.
	ErrEmptyCommand = errors.New("command not set")

	// ErrWaitTimeout is returned by AwaitExit when the subprocess is
	// still running after the bound elapses.
	ErrWaitTimeout = errors.New("timed out waiting for subprocess exit")
)

// Spec describes one subprocess invocation. The command string runs under
// the shell so redirections like "cat > out.raw" keep working.
type Spec struct {
	Shell   string // interpreter binary, defaults to "sh"
	Command string // required, passed to the shell via -c
}

// ExitStatus is the final result of a reaped subprocess.
type ExitStatus struct {
	Code     int    // exit code, -1 when terminated by a signal
	Signaled bool   // true when terminated by a signal
	Signal   string // signal name when Signaled
	Desc     string // human readable summary from the OS
}

// Handle represents one spawned subprocess and its pipes.
// All methods are safe for concurrent use.
type Handle struct {
	cmd    *exec.Cmd
	pid    int
	runID  string
	stdin  *os.File
	stderr *os.File

	done chan struct{} // closed by the reaper once the process is waited on

	mu     sync.Mutex
	status *ExitStatus

	stdinOnce  sync.Once
	stderrOnce sync.Once
}

// Spawn launches the command with stdin and stderr connected as pipes.
// Stdout is discarded: consuming subprocess output is out of scope for a
// sink. The returned handle owns the process; Spawn also starts the
// reaper goroutine so the child can never become a zombie.
func Spawn(spec Spec) (*Handle, error) {
	if spec.Command == "" {
		return nil, ErrEmptyCommand
	}
	shell := spec.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.Command(shell, "-c", spec.Command) // #nosec G204 -- command is operator configuration
	procgroup.Set(cmd)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd.Stdin = stdinR
	cmd.Stderr = stderrW
	// cmd.Stdout stays nil: the child writes stdout to the null device.

	if err := cmd.Start(); err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		_ = stderrR.Close()
		_ = stderrW.Close()
		return nil, fmt.Errorf("spawn %q: %w", spec.Command, err)
	}

	// The child holds its own copies of the pipe ends now.
	_ = stdinR.Close()
	_ = stderrW.Close()

	h := &Handle{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		runID:  uuid.NewString(),
		stdin:  stdinW,
		stderr: stderrR,
		done:   make(chan struct{}),
	}
	go h.reap()
	return h, nil
}

// reap waits for the process and records its final status.
func (h *Handle) reap() {
	_ = h.cmd.Wait()

	st := statusFrom(h.cmd.ProcessState)
	h.mu.Lock()
	h.status = &st
	h.mu.Unlock()
	close(h.done)

	lg := log.WithComponent("supervisor")
	lg.Debug().
		Str(log.FieldRunID, h.runID).
		Int(log.FieldPID, h.pid).
		Int(log.FieldExitCode, st.Code).
		Str(log.FieldSignal, st.Signal).
		Msg("subprocess reaped")
}

// PID returns the OS process identifier.
func (h *Handle) PID() int { return h.pid }

// RunID returns the log-correlation identifier assigned at spawn.
func (h *Handle) RunID() string { return h.runID }

// Stdin returns the write end of the subprocess input pipe.
func (h *Handle) Stdin() *os.File { return h.stdin }

// Stderr returns the read end of the subprocess error pipe.
func (h *Handle) Stderr() *os.File { return h.stderr }

// Alive is a non-blocking liveness probe.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Status returns the exit status once the process has been reaped.
func (h *Handle) Status() (ExitStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == nil {
		return ExitStatus{Code: -1}, false
	}
	return *h.status, true
}

// CloseStdin delivers EOF to the subprocess. Idempotent.
func (h *Handle) CloseStdin() error {
	var err error
	h.stdinOnce.Do(func() { err = h.stdin.Close() })
	return err
}

// CloseStderr releases the stderr read end, unblocking a pending drain
// read. Only used when teardown gives up waiting for the process.
// Idempotent.
func (h *Handle) CloseStderr() error {
	var err error
	h.stderrOnce.Do(func() { err = h.stderr.Close() })
	return err
}

// SignalHangup asks the process group to shut down via SIGHUP. Calling it
// on an already exited process is a no-op.
func (h *Handle) SignalHangup() error {
	return procgroup.Signal(h.cmd, syscall.SIGHUP)
}

// AwaitExit blocks until the process has been reaped or the timeout
// elapses. A zero or negative timeout waits indefinitely.
func (h *Handle) AwaitExit(timeout time.Duration) (ExitStatus, error) {
	if timeout <= 0 {
		<-h.done
		st, _ := h.Status()
		return st, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		st, _ := h.Status()
		return st, nil
	case <-timer.C:
		return ExitStatus{Code: -1}, ErrWaitTimeout
	}
}

func statusFrom(ps *os.ProcessState) ExitStatus {
	st := ExitStatus{Code: -1}
	if ps == nil {
		return st
	}
	st.Code = ps.ExitCode()
	st.Desc = ps.String()
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		st.Signaled = true
		st.Signal = ws.Signal().String()
	}
	return st
}
