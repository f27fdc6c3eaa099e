// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"bytes"
	"testing"

	"github.com/absmach/mqttbench/packets/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrames(t *testing.T) {
	pub := (&Publish{Topic: "a/b", Payload: make([]byte, 1024)}).Encode()
	ack := (&SubAck{ID: 7}).Encode()
	stream := bytes.Join([][]byte{ack, pub, pub, pub[:10]}, nil)

	frames, rest, err := SplitFrames(stream)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, ack, frames[0])
	assert.Equal(t, pub, frames[1])
	assert.Equal(t, pub, frames[2])
	assert.Equal(t, pub[:10], rest)
}

func TestSplitFramesPartialHeader(t *testing.T) {
	frames, rest, err := SplitFrames([]byte{0x30, 0x85})
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Len(t, rest, 2)

	_, _, err = SplitFrames([]byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	assert.ErrorIs(t, err, codec.ErrMalformedVBI)
}

func TestFrameBufferByteAtATime(t *testing.T) {
	pub := (&Publish{Topic: "a/b", Payload: []byte("payload")}).Encode()
	stream := append(append([]byte{}, pub...), pub...)

	var fb FrameBuffer
	var got [][]byte
	for _, b := range stream {
		frames, err := fb.Write([]byte{b})
		require.NoError(t, err)
		got = append(got, frames...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, pub, got[0])
	assert.Equal(t, pub, got[1])
	assert.Zero(t, fb.Buffered())
}
