// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishEncode(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1024)
	pkt := &Publish{Topic: "a/b", Payload: payload}

	enc := pkt.Encode()
	require.Len(t, enc, 1032)
	assert.Equal(t, []byte{0x30, 0x85, 0x08, 0x00, 0x03, 'a', '/', 'b'}, enc[:8])
	assert.Equal(t, payload, enc[8:])
	assert.Equal(t, 1032, PublishSize(3, 1024))
}

func TestPublishSize(t *testing.T) {
	for _, tt := range []struct{ topic, payload int }{
		{3, 0}, {3, 122}, {3, 123}, {10, 16380}, {1, 1 << 20},
	} {
		pkt := &Publish{Topic: string(make([]byte, tt.topic)), Payload: make([]byte, tt.payload)}
		assert.Equal(t, len(pkt.Encode()), PublishSize(tt.topic, tt.payload), "topic %d payload %d", tt.topic, tt.payload)
	}
}

func TestParsePublish(t *testing.T) {
	pkt := &Publish{Topic: "a/b", Payload: []byte("hello")}

	parsed, err := ParsePublish(pkt.Encode())
	require.NoError(t, err)
	assert.Equal(t, "a/b", parsed.Topic)
	assert.Equal(t, []byte("hello"), parsed.Payload)

	_, err = ParsePublish((&SubAck{ID: 1}).Encode())
	assert.ErrorIs(t, err, ErrProtocolViolation)

	enc := pkt.Encode()
	_, err = ParsePublish(enc[:len(enc)-1])
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestFixedHeaderDecode(t *testing.T) {
	var fh FixedHeader
	n, err := fh.DecodeFromBytes([]byte{0x82, 0x08})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, byte(SubscribeType), fh.PacketType)
	assert.Equal(t, byte(1), fh.QoS)
	assert.Equal(t, 8, fh.RemainingLength)
	assert.Contains(t, fh.String(), "SUBSCRIBE")

	n, err = fh.DecodeFromBytes([]byte{0x30, 0x85, 0x08})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1029, fh.RemainingLength)
	assert.Equal(t, 3, fh.Size())
}

func TestFixedOnlyPackets(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x00}, (&PingReq{}).Encode())
	assert.Equal(t, []byte{0xD0, 0x00}, (&PingResp{}).Encode())
	assert.Equal(t, []byte{0xE0, 0x00}, (&Disconnect{}).Encode())
}
