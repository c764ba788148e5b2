// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package procgroup configures child processes to run in their own process
// group and delivers signals to the whole group. Signalling an already
// exited process is a no-op, which makes teardown idempotent.
package procgroup

import (
	"os/exec"
	"syscall"
)

// Set configures the command to start in a new process group.
// Must be called before the command is started for Signal to reach
// anything the child forks.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Signal sends sig to the process group of the command. A nil command, a
// command that never started, or a process that already exited all return
// nil.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return signal(cmd, sig)
}
