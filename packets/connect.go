// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"time"

	"github.com/absmach/mqttbench/packets/codec"
)

// Handshake defaults used by the harness.
const (
	ProtocolNameV31  = "MQIsdp"
	DefaultKeepAlive = 60 * time.Second
)

// Connect represents the MQTT V3.1 CONNECT packet. Will, username and
// password are never sent by the harness.
type Connect struct {
	ProtocolName    string
	ProtocolVersion byte
	CleanSession    bool
	KeepAlive       uint16
	ClientID        string
}

// NewConnect returns the CONNECT the harness sends for clientID.
func NewConnect(clientID string, keepAlive time.Duration) *Connect {
	return &Connect{
		ProtocolName:    ProtocolNameV31,
		ProtocolVersion: V31,
		CleanSession:    true,
		KeepAlive:       uint16(keepAlive / time.Second),
		ClientID:        clientID,
	}
}

func (c *Connect) String() string {
	return fmt.Sprintf("Protocol: %s %d\nClientID: %s\nCleanSession: %t\nKeepAlive: %d\n",
		c.ProtocolName, c.ProtocolVersion, c.ClientID, c.CleanSession, c.KeepAlive)
}

func (c *Connect) Type() byte {
	return ConnectType
}

func (c *Connect) Encode() []byte {
	var body []byte
	// Variable Header
	body = append(body, codec.EncodeString(c.ProtocolName)...)
	body = append(body, c.ProtocolVersion)

	var flags byte
	if c.CleanSession {
		flags |= 1 << 1
	}
	body = append(body, flags)
	body = append(body, codec.EncodeUint16(c.KeepAlive)...)

	// Payload
	body = append(body, codec.EncodeString(c.ClientID)...)

	fh := FixedHeader{PacketType: ConnectType, RemainingLength: len(body)}
	return append(fh.Encode(), body...)
}
