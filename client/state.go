// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "sync/atomic"

// State is the position of a Conn in its lifecycle. A Conn only moves
// forward: Idle, Connecting, AwaitingAck, Ready, then Closed. Closed is
// reachable from every state.
type State uint32

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingAck
	StateReady
	StateClosed
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateConnecting:  "connecting",
	StateAwaitingAck: "awaiting_ack",
	StateReady:       "ready",
	StateClosed:      "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type lifecycle struct {
	v atomic.Uint32
}

func (l *lifecycle) load() State {
	return State(l.v.Load())
}

// advance moves from one state to the next and reports whether this
// caller made the move.
func (l *lifecycle) advance(from, to State) bool {
	return from < to && l.v.CompareAndSwap(uint32(from), uint32(to))
}

// close enters StateClosed and returns the state it left.
func (l *lifecycle) close() State {
	return State(l.v.Swap(uint32(StateClosed)))
}

func (l *lifecycle) ready() bool {
	return l.load() == StateReady
}
