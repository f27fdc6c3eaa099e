// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import "fmt"

// State is a phase of a benchmark run.
type State int

// Run phases. The publisher handshake happens while Subscribed.
const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingConnAck
	StateConnected
	StateAwaitingSubAck
	StateSubscribed
	StateBenchmarking
	StateClosed
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateConnecting:      "connecting",
	StateAwaitingConnAck: "awaiting_connack",
	StateConnected:       "connected",
	StateAwaitingSubAck:  "awaiting_suback",
	StateSubscribed:      "subscribed",
	StateBenchmarking:    "benchmarking",
	StateClosed:          "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Trigger names a transition.
type Trigger string

// Triggers.
const (
	TriggerDial      Trigger = "dial"
	TriggerDialed    Trigger = "dialed"
	TriggerConnAck   Trigger = "connack"
	TriggerSubscribe Trigger = "subscribe"
	TriggerSubAck    Trigger = "suback"
	TriggerStart     Trigger = "start"
	TriggerClose     Trigger = "close"
)

type edge struct {
	from    State
	trigger Trigger
}

// transitions lists every legal move. TriggerClose is legal from any state
// but Closed and is handled separately.
var transitions = map[edge]State{
	{StateIdle, TriggerDial}:               StateConnecting,
	{StateConnecting, TriggerDialed}:       StateAwaitingConnAck,
	{StateAwaitingConnAck, TriggerConnAck}: StateConnected,
	{StateConnected, TriggerSubscribe}:     StateAwaitingSubAck,
	{StateAwaitingSubAck, TriggerSubAck}:   StateSubscribed,
	{StateSubscribed, TriggerStart}:        StateBenchmarking,
}

// Machine is the run state machine. Fire rejects anything not in the
// transition table, so every path to Closed is explicit.
type Machine struct {
	state   State
	onEnter func(from, to State, t Trigger)
}

// NewMachine returns a machine in StateIdle. onEnter, if not nil, is called
// after every transition.
func NewMachine(onEnter func(from, to State, t Trigger)) *Machine {
	return &Machine{state: StateIdle, onEnter: onEnter}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Can reports whether t is legal in the current state.
func (m *Machine) Can(t Trigger) bool {
	_, ok := m.next(t)
	return ok
}

// Fire applies t.
func (m *Machine) Fire(t Trigger) error {
	to, ok := m.next(t)
	if !ok {
		return fmt.Errorf("%w: %s in state %s", ErrIllegalTransition, t, m.state)
	}
	from := m.state
	m.state = to
	if m.onEnter != nil {
		m.onEnter(from, to, t)
	}
	return nil
}

func (m *Machine) next(t Trigger) (State, bool) {
	if t == TriggerClose {
		return StateClosed, m.state != StateClosed
	}
	to, ok := transitions[edge{m.state, t}]
	return to, ok
}
