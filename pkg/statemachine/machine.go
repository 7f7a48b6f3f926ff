package statemachine

import (
	"fmt"
	"sync"
)

// Definition is a transition table. Build it with Permit before calling Start;
// it must not be modified once machines are running.
type Definition[S comparable, E comparable] struct {
	transitions map[S]map[E]S
}

// NewDefinition creates an empty transition table.
func NewDefinition[S comparable, E comparable]() *Definition[S, E] {
	return &Definition[S, E]{transitions: make(map[S]map[E]S)}
}

// Permit allows event to move a machine from one state to another.
// A later Permit for the same from/event pair replaces the earlier one.
func (d *Definition[S, E]) Permit(from S, event E, to S) *Definition[S, E] {
	if _, ok := d.transitions[from]; !ok {
		d.transitions[from] = make(map[E]S)
	}
	d.transitions[from][event] = to
	return d
}

// Terminal reports whether s has no outgoing transitions.
func (d *Definition[S, E]) Terminal(s S) bool {
	return len(d.transitions[s]) == 0
}

// Start returns a new machine in the initial state.
func (d *Definition[S, E]) Start(initial S) *Machine[S, E] {
	return &Machine[S, E]{def: d, current: initial}
}

// Machine is a running instance of a Definition. Safe for concurrent use.
type Machine[S comparable, E comparable] struct {
	def     *Definition[S, E]
	mu      sync.RWMutex
	current S
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Terminal reports whether the machine reached a state it can not leave.
func (m *Machine[S, E]) Terminal() bool {
	return m.def.Terminal(m.Current())
}

// CanFire reports whether event is allowed in the current state.
func (m *Machine[S, E]) CanFire(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.def.transitions[m.current][event]
	return ok
}

// Fire applies event and returns the new state.
// It returns *ErrNoTransition when the event is not allowed from the current state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	to, ok := m.def.transitions[m.current][event]
	if !ok {
		return m.current, &ErrNoTransition{
			State: fmt.Sprint(m.current),
			Event: fmt.Sprint(event),
		}
	}
	m.current = to
	return to, nil
}
