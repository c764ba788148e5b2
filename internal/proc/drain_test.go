// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package proc

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainCapturesLinesInOrder(t *testing.T) {
	h, err := Spawn(Spec{Command: "echo one >&2; echo two >&2; echo three >&2"})
	require.NoError(t, err)

	ring := NewLineRing(16)
	d := &Drain{Ring: ring, Logger: zerolog.Nop()}

	done := make(chan error, 1)
	go func() { done <- d.Run(h) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("drain did not terminate after subprocess exit")
	}

	assert.Equal(t, []string{"one", "two", "three"}, ring.LastN(10))
}

func TestDrainStopsOnClosedPipe(t *testing.T) {
	// The subprocess stays silent and alive; closing the read end during
	// teardown must unblock the drain.
	h, err := Spawn(Spec{Command: "sleep 30"})
	require.NoError(t, err)
	defer func() {
		_ = h.SignalHangup()
		_, _ = h.AwaitExit(5 * time.Second)
	}()

	d := &Drain{Ring: NewLineRing(4), Logger: zerolog.Nop()}
	done := make(chan error, 1)
	go func() { done <- d.Run(h) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, h.CloseStderr())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not stop after stderr close")
	}
}
