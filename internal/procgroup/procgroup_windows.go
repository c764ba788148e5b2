// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

func set(cmd *exec.Cmd) {
	// Process groups are a POSIX concept; no-op on Windows.
}

func signal(cmd *exec.Cmd, sig syscall.Signal) error {
	// Best effort: signal only the root process. SIGHUP has no Windows
	// equivalent, so this degrades to an interrupt request.
	err := cmd.Process.Signal(sig)
	if err != nil && err.Error() == "os: process already finished" {
		return nil
	}
	return err
}
