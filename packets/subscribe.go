// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttbench/packets/codec"
)

// Subscribe is a single-topic MQTT SUBSCRIBE packet.
type Subscribe struct {
	ID    uint16
	Topic string
	QoS   byte
}

func (s *Subscribe) String() string {
	return fmt.Sprintf("PacketID: %d\nTopic: %s\nQoS: %d\n", s.ID, s.Topic, s.QoS)
}

func (s *Subscribe) Type() byte {
	return SubscribeType
}

func (s *Subscribe) Encode() []byte {
	var body []byte
	body = append(body, codec.EncodeUint16(s.ID)...)
	body = append(body, codec.EncodeString(s.Topic)...)
	body = append(body, s.QoS)

	// SUBSCRIBE carries the reserved QoS 1 flag bits.
	fh := FixedHeader{PacketType: SubscribeType, QoS: 1, RemainingLength: len(body)}
	return append(fh.Encode(), body...)
}

// ParseSubscribe decodes a single-topic SUBSCRIBE frame.
func ParseSubscribe(frame []byte) (*Subscribe, error) {
	var fh FixedHeader
	n, err := fh.DecodeFromBytes(frame)
	if err != nil {
		return nil, err
	}
	body := frame[n:]
	if fh.PacketType != SubscribeType || len(body) != fh.RemainingLength || len(body) < 5 {
		return nil, &ProtocolError{Packet: PacketNames[SubscribeType], Reason: ReasonHeader, Got: frame}
	}
	s := &Subscribe{ID: uint16(body[0])<<8 | uint16(body[1])}
	tl := int(body[2])<<8 | int(body[3])
	if len(body) < 4+tl+1 {
		return nil, &ProtocolError{Packet: PacketNames[SubscribeType], Reason: ReasonLength, Got: frame}
	}
	s.Topic = string(body[4 : 4+tl])
	s.QoS = body[4+tl]
	return s, nil
}
