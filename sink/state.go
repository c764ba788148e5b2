// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package sink

import "github.com/rafaelcaricio/gst-subprocess-pipe/internal/fsm"

// State is the sink lifecycle state. A subprocess handle exists iff the
// state is starting, running or stopping.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFaulted  State = "faulted"
)

type event string

const (
	evStart   event = "start"
	evSpawned event = "spawned"
	evStop    event = "stop"
	evStopped event = "stopped"
	evFault   event = "fault"
	evReset   event = "reset"
)

func newMachine() *fsm.Machine[State, event] {
	m, err := fsm.New(StateIdle, []fsm.Transition[State, event]{
		{From: StateIdle, Event: evStart, To: StateStarting},
		{From: StateStarting, Event: evSpawned, To: StateRunning},
		{From: StateStarting, Event: evFault, To: StateFaulted},
		{From: StateRunning, Event: evFault, To: StateFaulted},
		{From: StateRunning, Event: evStop, To: StateStopping},
		{From: StateStopping, Event: evStopped, To: StateIdle},
		{From: StateFaulted, Event: evReset, To: StateIdle},
	})
	if err != nil {
		// The table above is static; a duplicate is a programming error.
		panic(err)
	}
	return m
}
