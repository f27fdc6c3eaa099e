// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// Expect collects the bytes of a fixed-size acknowledgment from a stream
// of arbitrarily sized chunks and validates it once complete.
type Expect struct {
	packet   string
	size     int
	validate func([]byte) error
	buf      []byte
}

// ExpectConnAck waits for ConnAckAccepted.
func ExpectConnAck() *Expect {
	return &Expect{
		packet:   PacketNames[ConnAckType],
		size:     len(ConnAckAccepted),
		validate: ValidateConnAck,
	}
}

// ExpectSubAck waits for the SUBACK of id granting qos.
func ExpectSubAck(id uint16, qos byte) *Expect {
	return &Expect{
		packet: PacketNames[SubAckType],
		size:   len((&SubAck{}).Encode()),
		validate: func(b []byte) error {
			return ValidateSubAck(b, id, qos)
		},
	}
}

// Feed appends chunk and reports whether the acknowledgment is complete.
// Bytes beyond the expected size are a length violation: nothing else may
// arrive before the acknowledgment has been consumed.
func (e *Expect) Feed(chunk []byte) (bool, error) {
	e.buf = append(e.buf, chunk...)
	if len(e.buf) < e.size {
		return false, nil
	}
	if len(e.buf) > e.size {
		return true, &ProtocolError{
			Packet: e.packet,
			Reason: ReasonLength,
			Detail: fmt.Sprintf("%d bytes", len(e.buf)),
			Got:    e.buf,
		}
	}
	return true, e.validate(e.buf)
}

// Buffered returns the number of bytes collected so far.
func (e *Expect) Buffered() int {
	return len(e.buf)
}

// Truncated is returned when the stream ends before the acknowledgment does.
func (e *Expect) Truncated() error {
	return &ProtocolError{
		Packet: e.packet,
		Reason: ReasonLength,
		Detail: fmt.Sprintf("stream ended after %d of %d bytes", len(e.buf), e.size),
		Got:    e.buf,
	}
}
