// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package fsm implements a small, strict state machine used to drive the
// sink lifecycle. Unknown transitions are errors, never silent no-ops.
package fsm

import (
	"fmt"
	"sync"
)

// Transition describes a single edge in the machine.
// Action, when set, runs before the state is committed; an Action error
// aborts the transition and leaves the state untouched.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Action func(from, to S, event E) error
}

// Machine validates and applies transitions atomically.
type Machine[S ~string, E ~string] struct {
	mu    sync.Mutex
	state S
	index map[string]Transition[S, E]
}

// New builds a machine from the given transition table.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s on %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the current state is one of the given states.
func (m *Machine[S, E]) Is(states ...S) bool {
	cur := m.State()
	for _, s := range states {
		if cur == s {
			return true
		}
	}
	return false
}

// Fire applies an event. It returns the resulting state, or the unchanged
// state and an error when no transition is defined for the current state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	t, ok := m.index[key(from, event)]
	if !ok {
		return from, fmt.Errorf("invalid transition: state=%s event=%s", from, event)
	}
	if t.Action != nil {
		if err := t.Action(from, t.To, event); err != nil {
			return from, err
		}
	}
	m.state = t.To
	return t.To, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
