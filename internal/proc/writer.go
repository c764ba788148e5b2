// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrPipeBroken reports a write failure on the subprocess stdin.
	ErrPipeBroken = errors.New("subprocess stdin pipe broken")

	// ErrProcessExited reports a delivery attempt after the subprocess
	// was observed dead.
	ErrProcessExited = errors.New("subprocess exited")

	// ErrWriteTimeout reports a frame write exceeding the configured
	// deadline while the subprocess neither consumed nor exited.
	ErrWriteTimeout = errors.New("frame write timed out")
)

// Writer streams frame payloads to the subprocess stdin. Writes are
// serialized; at most one frame is in flight, so delivery rate is capped
// by the subprocess's consumption rate.
type Writer struct {
	// Timeout bounds a single frame write. Zero blocks indefinitely,
	// matching the pipe's natural backpressure.
	Timeout time.Duration
}

// WriteFrame writes the full payload or fails. Partial writes are
// retried; a frame is never reported delivered unless every byte was
// accepted.
func (w *Writer) WriteFrame(h *Handle, data []byte) error {
	if !h.Alive() {
		return ErrProcessExited
	}
	stdin := h.Stdin()

	if w.Timeout > 0 {
		if err := stdin.SetWriteDeadline(time.Now().Add(w.Timeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		defer func() { _ = stdin.SetWriteDeadline(time.Time{}) }()
	}

	for len(data) > 0 {
		n, err := stdin.Write(data)
		data = data[n:]
		if err != nil {
			return classifyWriteError(err)
		}
	}
	return nil
}

// classifyWriteError maps an OS-level write failure onto the writer's
// error taxonomy. EPIPE, a closed descriptor and everything else short of
// a deadline are all terminal pipe faults for the current run.
func classifyWriteError(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrWriteTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrPipeBroken, err)
}
