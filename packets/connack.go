// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// ConnackReturnCodes is a map of the error codes constants for Connect()
// to a string representation of the error
var ConnackReturnCodes = map[uint8]string{
	0: "Connection Accepted",
	1: "Connection Refused: Bad Protocol Version",
	2: "Connection Refused: Client Identifier Rejected",
	3: "Connection Refused: Server Unavailable",
	4: "Connection Refused: Username or Password in unknown format",
	5: "Connection Refused: Not Authorised",
}

// ConnAck is the MQTT V3.1 CONNACK packet.
type ConnAck struct {
	SessionPresent bool
	ReturnCode     byte
}

// ConnAckAccepted is the only CONNACK the harness accepts.
var ConnAckAccepted = (&ConnAck{}).Encode()

func (c *ConnAck) Type() byte {
	return ConnAckType
}

func (c *ConnAck) Encode() []byte {
	var flags byte
	if c.SessionPresent {
		flags = 1
	}
	fh := FixedHeader{PacketType: ConnAckType, RemainingLength: 2}
	return append(fh.Encode(), flags, c.ReturnCode)
}

// ValidateConnAck checks b against ConnAckAccepted byte for byte.
func ValidateConnAck(b []byte) error {
	want := ConnAckAccepted
	perr := &ProtocolError{Packet: PacketNames[ConnAckType], Expected: want, Got: b}
	switch {
	case len(b) != len(want):
		perr.Reason = ReasonLength
		perr.Detail = fmt.Sprintf("%d bytes", len(b))
	case b[0] != want[0]:
		perr.Reason = ReasonHeader
	case b[1] != want[1]:
		perr.Reason = ReasonRemainingLength
	case b[2] != want[2] || b[3] != want[3]:
		perr.Reason = ReasonReturnCode
		if name, ok := ConnackReturnCodes[b[3]]; ok {
			perr.Detail = name
		}
	default:
		return nil
	}
	return perr
}
