// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttbench/packets/codec"
)

// Publish is a QoS 0 MQTT PUBLISH packet. QoS 0 carries no packet id.
type Publish struct {
	Topic   string
	Payload []byte
}

func (p *Publish) String() string {
	return fmt.Sprintf("Topic: %s\nPayload: %d bytes\n", p.Topic, len(p.Payload))
}

func (p *Publish) Type() byte {
	return PublishType
}

func (p *Publish) Encode() []byte {
	rl := 2 + len(p.Topic) + len(p.Payload)
	fh := FixedHeader{PacketType: PublishType, RemainingLength: rl}
	buf := make([]byte, 0, fh.Size()+rl)
	buf = append(buf, fh.Encode()...)
	buf = append(buf, codec.EncodeString(p.Topic)...)
	return append(buf, p.Payload...)
}

// PublishSize returns the encoded length of a QoS 0 PUBLISH carrying a
// topic of topicLen bytes and a payload of payloadLen bytes.
func PublishSize(topicLen, payloadLen int) int {
	rl := 2 + topicLen + payloadLen
	return 1 + codec.SizeVBI(rl) + rl
}

// ParsePublish decodes a single QoS 0 PUBLISH frame.
func ParsePublish(frame []byte) (*Publish, error) {
	var fh FixedHeader
	n, err := fh.DecodeFromBytes(frame)
	if err != nil {
		return nil, err
	}
	name := PacketNames[PublishType]
	if fh.PacketType != PublishType || fh.QoS != 0 {
		return nil, &ProtocolError{Packet: name, Reason: ReasonHeader, Detail: fh.String()}
	}
	body := frame[n:]
	if len(body) != fh.RemainingLength || len(body) < 2 {
		return nil, &ProtocolError{Packet: name, Reason: ReasonLength, Detail: fmt.Sprintf("%d bytes", len(frame))}
	}
	tl := int(body[0])<<8 | int(body[1])
	if 2+tl > len(body) {
		return nil, &ProtocolError{Packet: name, Reason: ReasonLength, Detail: "topic exceeds frame"}
	}
	return &Publish{
		Topic:   string(body[2 : 2+tl]),
		Payload: body[2+tl:],
	}, nil
}
