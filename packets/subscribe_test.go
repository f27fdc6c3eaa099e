// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeEncode(t *testing.T) {
	pkt := &Subscribe{ID: 0x1234, Topic: "a/b", QoS: 0}

	want := []byte{
		0x82, 0x08,
		0x12, 0x34,
		0x00, 0x03, 'a', '/', 'b',
		0x00,
	}
	assert.Equal(t, want, pkt.Encode())

	parsed, err := ParseSubscribe(want)
	require.NoError(t, err)
	assert.Equal(t, pkt, parsed)
}

func TestParseSubscribeInvalid(t *testing.T) {
	_, err := ParseSubscribe([]byte{0x30, 0x00})
	assert.ErrorIs(t, err, ErrProtocolViolation)

	_, err = ParseSubscribe([]byte{0x82, 0x05, 0x00, 0x01, 0x00, 0x09, 0x00})
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestSubAckEncode(t *testing.T) {
	pkt := &SubAck{ID: 0x1234, QoS: 0}
	assert.Equal(t, []byte{0x90, 0x03, 0x12, 0x34, 0x00}, pkt.Encode())
}

func TestValidateSubAck(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"valid", []byte{0x90, 0x03, 0x12, 0x34, 0x00}, ""},
		{"short", []byte{0x90, 0x03, 0x12, 0x34}, ReasonLength},
		{"long", []byte{0x90, 0x03, 0x12, 0x34, 0x00, 0x00}, ReasonLength},
		{"wrong header", []byte{0xA0, 0x03, 0x12, 0x34, 0x00}, ReasonHeader},
		{"wrong remaining length", []byte{0x90, 0x04, 0x12, 0x34, 0x00}, ReasonRemainingLength},
		{"wrong message id", []byte{0x90, 0x03, 0x12, 0x35, 0x00}, ReasonMessageID},
		{"failure return code", []byte{0x90, 0x03, 0x12, 0x34, 0x80}, ReasonGrantedQoS},
		{"higher qos granted", []byte{0x90, 0x03, 0x12, 0x34, 0x01}, ReasonGrantedQoS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubAck(tt.data, 0x1234, 0)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.reason, perr.Reason)
			assert.Equal(t, "SUBACK", perr.Packet)
		})
	}
}

func TestExpectSubAckFragmented(t *testing.T) {
	e := ExpectSubAck(0x1234, 0)
	ack := []byte{0x90, 0x03, 0x12, 0x34, 0x00}

	for i, b := range ack {
		done, err := e.Feed([]byte{b})
		require.NoError(t, err)
		assert.Equal(t, i == len(ack)-1, done)
	}
}
