// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttbench/packets/codec"
)

// SubAck represents a single-topic MQTT SUBACK packet.
type SubAck struct {
	ID  uint16
	QoS byte
}

func (s *SubAck) String() string {
	return fmt.Sprintf("PacketID: %d\nGrantedQoS: %d\n", s.ID, s.QoS)
}

func (s *SubAck) Type() byte {
	return SubAckType
}

func (s *SubAck) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeUint16(s.ID)...)
	body = append(body, s.QoS)
	fh := FixedHeader{PacketType: SubAckType, RemainingLength: len(body)}
	return append(fh.Encode(), body...)
}

// ValidateSubAck checks b byte for byte against the SUBACK for id granting qos.
func ValidateSubAck(b []byte, id uint16, qos byte) error {
	want := (&SubAck{ID: id, QoS: qos}).Encode()
	perr := &ProtocolError{Packet: PacketNames[SubAckType], Expected: want, Got: b}
	switch {
	case len(b) != len(want):
		perr.Reason = ReasonLength
		perr.Detail = fmt.Sprintf("%d bytes", len(b))
	case b[0] != want[0]:
		perr.Reason = ReasonHeader
	case b[1] != want[1]:
		perr.Reason = ReasonRemainingLength
	case b[2] != want[2] || b[3] != want[3]:
		perr.Reason = ReasonMessageID
	case b[4] != want[4]:
		perr.Reason = ReasonGrantedQoS
	default:
		return nil
	}
	return perr
}
