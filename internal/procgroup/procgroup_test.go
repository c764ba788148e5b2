// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package procgroup

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalNilAndUnstarted(t *testing.T) {
	assert.NoError(t, Signal(nil, syscall.SIGHUP))
	assert.NoError(t, Signal(exec.Command("sleep", "10"), syscall.SIGHUP))
}

func TestSignalTerminatesGroup(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30")
	Set(cmd)
	require.NoError(t, cmd.Start())

	require.NoError(t, Signal(cmd, syscall.SIGHUP))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		// sh dies from the hang-up signal
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("process did not exit after SIGHUP")
	}
}

func TestSignalAfterExitIsNoop(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	assert.NoError(t, Signal(cmd, syscall.SIGHUP))
}
