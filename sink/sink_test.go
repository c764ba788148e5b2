// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestSink(cmd string) *Sink {
	return New(Options{
		Command:         cmd,
		TeardownTimeout: 5 * time.Second,
	})
}

func TestStartWithoutCommand(t *testing.T) {
	s := New(Options{})
	err := s.Start()
	assert.ErrorIs(t, err, ErrNoCommand)
	assert.Equal(t, StateIdle, s.State())
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
	assert.Equal(t, StateIdle, s.State())
}

func TestRenderBeforeStart(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	err := s.Render(Frame{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestDoubleStartRejected(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.Start())
	assert.Equal(t, StateRunning, s.State())
}

func TestLifecycleFrameCounts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for _, n := range []int{0, 1, 1000} {
		t.Run(fmt.Sprintf("frames_%d", n), func(t *testing.T) {
			s := newTestSink("cat > /dev/null")
			require.NoError(t, s.Start())
			assert.Equal(t, StateRunning, s.State())

			frame := bytes.Repeat([]byte{0x42}, 512)
			for i := 0; i < n; i++ {
				err := s.Render(Frame{
					Data:     frame,
					PTS:      time.Duration(i) * time.Microsecond,
					Duration: time.Microsecond,
				})
				require.NoError(t, err)
			}

			require.NoError(t, s.Stop())
			assert.Equal(t, StateIdle, s.State())
		})
	}
}

func TestRoundTripFidelity(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames.raw")
	s := newTestSink("cat > " + out)
	require.NoError(t, s.Start())

	var want bytes.Buffer
	for i := 0; i < 32; i++ {
		payload := bytes.Repeat([]byte{byte(i)}, 100+i)
		want.Write(payload)
		require.NoError(t, s.Render(Frame{
			Data: payload,
			PTS:  time.Duration(i) * time.Millisecond,
		}))
	}
	require.NoError(t, s.Stop())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), got, "stdin bytes must equal frame payload concatenation")
}

func TestSubprocessExitsEarly(t *testing.T) {
	s := newTestSink("true")
	require.NoError(t, s.Start())

	frame := Frame{Data: bytes.Repeat([]byte{0x01}, 64*1024)}
	var err error
	require.Eventually(t, func() bool {
		err = s.Render(frame)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond, "render must fail once the subprocess is gone")

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Contains(t,
		[]FaultCause{FaultUnexpectedExit, FaultPipeBroken}, fault.Cause)
	assert.Equal(t, StateFaulted, s.State())
	assert.Same(t, fault, s.LastFault())

	// The fault is terminal for the run; delivery keeps failing.
	assert.Error(t, s.Render(frame))

	// Reset returns the sink to idle for a fresh start.
	require.NoError(t, s.Reset())
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.LastFault())
}

func TestFaultCarriesExitCode(t *testing.T) {
	s := newTestSink("exit 3")
	require.NoError(t, s.Start())

	frame := Frame{Data: bytes.Repeat([]byte{0x02}, 64*1024)}
	var err error
	require.Eventually(t, func() bool {
		err = s.Render(frame)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 3, fault.ExitCode)
}

func TestStderrCapture(t *testing.T) {
	s := newTestSink("echo alpha >&2; echo beta >&2; cat > /dev/null")
	require.NoError(t, s.Start())
	require.NoError(t, s.Render(Frame{Data: []byte("frame")}))
	require.NoError(t, s.Stop())

	assert.Equal(t, []string{"alpha", "beta"}, s.StderrLines(10))
}

func TestStopCancelsPendingPace(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	require.NoError(t, s.Start())
	require.NoError(t, s.Render(Frame{Data: []byte("anchor")}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Render(Frame{Data: []byte("late"), PTS: 10 * time.Second})
	}()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	require.NoError(t, s.Stop())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStopping)
	case <-time.After(time.Second):
		t.Fatal("render was not unblocked by stop")
	}
	assert.Less(t, time.Since(start), time.Second, "stop latency must be bounded")
}

func TestRestartWithNewCommand(t *testing.T) {
	first := filepath.Join(t.TempDir(), "first.raw")
	second := filepath.Join(t.TempDir(), "second.raw")

	s := newTestSink("cat > " + first)
	require.NoError(t, s.Start())
	require.NoError(t, s.Render(Frame{Data: []byte("one")}))
	require.NoError(t, s.Stop())

	require.NoError(t, s.SetCommand("cat > "+second))
	require.NoError(t, s.Start())
	require.NoError(t, s.Render(Frame{Data: []byte("two")}))
	require.NoError(t, s.Stop())

	got1, err := os.ReadFile(first)
	require.NoError(t, err)
	got2, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got1))
	assert.Equal(t, "two", string(got2))
}

func TestSetCommandWhileRunningRejected(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.SetCommand("true"))
	assert.Equal(t, "cat > /dev/null", s.Command())
}

func TestResetWhileRunningRejected(t *testing.T) {
	s := newTestSink("cat > /dev/null")
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.Reset())
	assert.Equal(t, StateRunning, s.State())
}

func TestTeardownTimeoutDoesNotHang(t *testing.T) {
	// The subprocess ignores SIGHUP and keeps running for about two
	// seconds; Stop must give up after the bound instead of hanging.
	s := New(Options{
		Command:         "trap '' HUP; n=0; while [ $n -lt 20 ]; do sleep 0.1; n=$((n+1)); done",
		TeardownTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
	assert.Equal(t, StateIdle, s.State())
}
