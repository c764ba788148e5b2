// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"bufio"
	"errors"
	"os"

	"github.com/rs/zerolog"
)

// Drain consumes the subprocess stderr line by line, appending to a
// LineRing and logging each line. It runs on its own goroutine and never
// applies backpressure to the data path.
type Drain struct {
	Ring   *LineRing
	Logger zerolog.Logger
}

// Run reads until end-of-stream (subprocess exited and the pipe drained)
// or until the stderr read end is closed during teardown. It is the only
// reader of the stderr pipe.
func (d *Drain) Run(h *Handle) error {
	sc := bufio.NewScanner(h.Stderr())
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		d.Ring.Append(line)
		d.Logger.Warn().Str("line", line).Msg("subprocess stderr")
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
