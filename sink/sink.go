// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package sink implements a media sink that pipes raw video frames into
// the stdin of a spawned subprocess, pacing delivery to the stream's
// timestamps and managing the full subprocess lifecycle.
//
// The host pipeline drives a Sink through Start, Render (one call per
// frame), Stop and Reset. Subprocess faults (spawn failure, broken pipe,
// unexpected exit) surface as a *Fault returned from the failing
// operation; teardown runs on every path that spawned a process, so no
// zombie is ever left behind.
package sink

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/fsm"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/log"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/metrics"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/proc"
)

// Sink pipes frames into a subprocess. One Sink owns at most one live
// subprocess; instances are independent and never share process state.
type Sink struct {
	mu      sync.Mutex
	opts    Options
	machine *fsm.Machine[State, event]

	handle   *proc.Handle
	writer   *proc.Writer
	ring     *proc.LineRing
	drain    *errgroup.Group
	pace     *pacer
	fault    *Fault
	lastExit *proc.ExitStatus

	logger zerolog.Logger // per-run logger, carries run_id and pid
}

// New creates a Sink. The command may be set later via SetCommand; its
// absence is a start-time error, not a construction error.
func New(opts Options) *Sink {
	opts.applyDefaults()
	return &Sink{
		opts:    opts,
		machine: newMachine(),
		pace:    newPacer(),
		logger:  log.WithComponent("sink"),
	}
}

// SetCommand replaces the command line. Only allowed while no subprocess
// exists (idle or faulted).
func (s *Sink) SetCommand(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Is(StateIdle, StateFaulted) {
		return ErrNotRunning
	}
	s.opts.Command = cmd
	return nil
}

// Command returns the configured command line.
func (s *Sink) Command() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Command
}

// SetWaitForExit adjusts the EOF-to-SIGHUP pause. Allowed at any time.
func (s *Sink) SetWaitForExit(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.opts.WaitForExit = d
}

// State returns the current lifecycle state.
func (s *Sink) State() State {
	return s.machine.State()
}

// LastFault returns the fault that ended the last run, if any.
func (s *Sink) LastFault() *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// StderrLines returns up to n of the most recent captured stderr lines.
func (s *Sink) StderrLines(n int) []string {
	s.mu.Lock()
	ring := s.ring
	s.mu.Unlock()
	if ring == nil {
		return nil
	}
	return ring.LastN(n)
}

// Start parses the configured command and spawns the subprocess. A
// missing command is a configuration error and leaves the sink idle; a
// spawn failure faults the sink.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Command == "" {
		return ErrNoCommand
	}
	if err := s.fire(evStart); err != nil {
		return err
	}

	h, err := proc.Spawn(proc.Spec{Shell: s.opts.Shell, Command: s.opts.Command})
	if err != nil {
		metrics.SpawnTotal.WithLabelValues("error").Inc()
		_ = s.fire(evFault)
		s.fault = &Fault{Cause: FaultSpawn, Err: err, ExitCode: -1}
		s.logger.Error().
			Str(log.FieldCommand, s.opts.Command).
			Err(err).
			Msg("failed to spawn subprocess")
		return s.fault
	}
	metrics.SpawnTotal.WithLabelValues("ok").Inc()
	metrics.ActiveProcesses.Inc()

	s.handle = h
	s.writer = &proc.Writer{Timeout: s.opts.WriteTimeout}
	s.ring = proc.NewLineRing(s.opts.StderrLines)
	s.pace.reset()
	s.fault = nil
	s.lastExit = nil
	s.logger = log.Derive(func(c *zerolog.Context) {
		*c = c.Str(log.FieldComponent, "sink").
			Str(log.FieldRunID, h.RunID()).
			Int(log.FieldPID, h.PID())
	})

	drain := &proc.Drain{Ring: s.ring, Logger: s.logger}
	s.drain = &errgroup.Group{}
	s.drain.Go(func() error { return drain.Run(h) })

	_ = s.fire(evSpawned)
	s.logger.Info().
		Str(log.FieldCommand, s.opts.Command).
		Msg("subprocess started")
	return nil
}

// Render delivers one frame. It blocks on the pacer until the frame is
// due, then writes the payload synchronously; the only other suspension
// point is OS pipe backpressure. Frames are written in arrival order.
func (s *Sink) Render(f Frame) error {
	s.mu.Lock()
	if !s.machine.Is(StateRunning) {
		st := s.machine.State()
		fault := s.fault
		s.mu.Unlock()
		switch st {
		case StateFaulted:
			if fault != nil {
				return fault
			}
			return ErrNotRunning
		case StateStopping:
			return ErrStopping
		default:
			return ErrNotRunning
		}
	}
	h := s.handle
	w := s.writer
	s.mu.Unlock()

	// Probe liveness before pacing so an exited process fails fast
	// instead of waiting out the frame interval.
	if !h.Alive() {
		return s.failRun(FaultUnexpectedExit, proc.ErrProcessExited)
	}

	if err := s.pace.wait(f.PTS); err != nil {
		return ErrStopping
	}
	// A stop may have begun while waiting; do not touch the pipe then.
	if !s.machine.Is(StateRunning) {
		return ErrStopping
	}

	if err := w.WriteFrame(h, f.Data); err != nil {
		if s.machine.Is(StateStopping, StateIdle) {
			// Teardown closed the pipe under us; not a fault.
			return ErrStopping
		}
		return s.failRun(causeOf(err), err)
	}

	metrics.FramesTotal.Inc()
	metrics.FrameBytesTotal.Add(float64(len(f.Data)))
	s.logger.Trace().
		Int(log.FieldBytes, len(f.Data)).
		Dur(log.FieldPTS, f.PTS).
		Msg("frame written")
	return nil
}

// Stop requests a clean shutdown: stop accepting frames, cancel any
// pending pacer wait, close stdin, signal the subprocess and reap it.
// Stop without a running subprocess is a no-op.
func (s *Sink) Stop() error {
	s.pace.stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Is(StateIdle, StateFaulted) {
		return nil
	}
	if err := s.fire(evStop); err != nil {
		return err
	}
	s.teardownLocked()
	_ = s.fire(evStopped)
	return nil
}

// Reset returns a faulted sink to idle so it can be started again.
// Reset on an idle sink is a no-op.
func (s *Sink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Is(StateIdle) {
		return nil
	}
	if err := s.fire(evReset); err != nil {
		return err
	}
	s.fault = nil
	return nil
}

// failRun moves the sink to faulted, tears the subprocess down and
// builds the Fault the host observes. All faults funnel through here.
func (s *Sink) failRun(cause FaultCause, trigger error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.machine.Is(StateStarting, StateRunning) {
		// Lost the race with Stop or another fault.
		if s.fault != nil {
			return s.fault
		}
		return ErrStopping
	}
	_ = s.fire(evFault)
	s.pace.stop()
	s.teardownLocked()

	f := &Fault{Cause: cause, Err: trigger, ExitCode: -1}
	if s.lastExit != nil {
		f.ExitCode = s.lastExit.Code
		f.Signal = s.lastExit.Signal
	}
	if s.ring != nil {
		f.Stderr = s.ring.LastN(20)
	}
	s.fault = f

	metrics.FaultTotal.WithLabelValues(string(cause)).Inc()
	s.logger.Error().
		Str(log.FieldCause, string(cause)).
		Int(log.FieldExitCode, f.ExitCode).
		Strs("stderr", f.Stderr).
		Err(trigger).
		Msg("run faulted")
	return f
}

// teardownLocked runs the one and only teardown path: EOF, wait-for-exit
// pause, SIGHUP, bounded wait, drain join. Requires s.mu held and is
// called exactly once per spawned process.
func (s *Sink) teardownLocked() {
	h := s.handle
	if h == nil {
		return
	}

	_ = h.CloseStdin()
	if s.opts.WaitForExit > 0 && h.Alive() {
		time.Sleep(s.opts.WaitForExit)
	}
	_ = h.SignalHangup()

	st, err := h.AwaitExit(s.opts.TeardownTimeout)
	if errors.Is(err, proc.ErrWaitTimeout) {
		metrics.ExitTotal.WithLabelValues("timeout").Inc()
		s.logger.Warn().
			Dur("timeout", s.opts.TeardownTimeout).
			Msg("subprocess did not exit after SIGHUP, abandoning wait")
		// Unblock the drain; the reaper goroutine keeps waiting and
		// logs the eventual exit so the OS can release the process.
		_ = h.CloseStderr()
		go logLateExit(h, s.logger)
		s.lastExit = nil
	} else {
		metrics.ExitTotal.WithLabelValues(exitReason(st)).Inc()
		s.lastExit = &st
		if st.Signaled {
			s.logger.Info().
				Str(log.FieldSignal, st.Signal).
				Msg("subprocess terminated by signal")
		} else {
			s.logger.Info().
				Int(log.FieldExitCode, st.Code).
				Msg("subprocess exited")
		}
	}

	// Await the drain so the final stderr lines are captured.
	_ = s.drain.Wait()
	if s.ring != nil && s.ring.Len() > 0 {
		s.logger.Debug().
			Strs("stderr", s.ring.LastN(20)).
			Msg("captured subprocess stderr tail")
	}

	metrics.ActiveProcesses.Dec()
	s.handle = nil
	s.writer = nil
}

// fire advances the state machine and logs the transition.
func (s *Sink) fire(ev event) error {
	old := s.machine.State()
	next, err := s.machine.Fire(ev)
	if err != nil {
		return err
	}
	s.logger.Debug().
		Str(log.FieldOldState, string(old)).
		Str(log.FieldNewState, string(next)).
		Msg("state transition")
	return nil
}

func logLateExit(h *proc.Handle, logger zerolog.Logger) {
	st, _ := h.AwaitExit(0)
	logger.Info().
		Int(log.FieldExitCode, st.Code).
		Str(log.FieldSignal, st.Signal).
		Msg("subprocess exited after teardown timeout")
}

func causeOf(err error) FaultCause {
	switch {
	case errors.Is(err, proc.ErrProcessExited):
		return FaultUnexpectedExit
	case errors.Is(err, proc.ErrWriteTimeout):
		return FaultWriteTimeout
	default:
		return FaultPipeBroken
	}
}

func exitReason(st proc.ExitStatus) string {
	switch {
	case st.Signaled:
		return "signal"
	case st.Code == 0:
		return "clean"
	default:
		return "error"
	}
}
