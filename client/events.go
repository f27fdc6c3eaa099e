// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

// EventKind identifies a connection lifecycle or data event.
type EventKind int

// Event kinds, in the order a healthy connection emits them.
const (
	// EventDialed: the stream is open and CONNECT has been queued.
	EventDialed EventKind = iota
	// EventConnect: CONNACK matched and the connection is ready.
	EventConnect
	// EventData: a raw chunk arrived after the handshake.
	EventData
	// EventError: a transport failure or protocol violation.
	EventError
	// EventClose: the connection is gone. Always the last event.
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventDialed:
		return "dialed"
	case EventConnect:
		return "connect"
	case EventData:
		return "data"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is delivered on the channel passed to New. Events of one Conn
// arrive in the order they happened; Data is owned by the receiver.
type Event struct {
	Conn *Conn
	Kind EventKind
	Data []byte
	Err  error
}
