// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectEncode(t *testing.T) {
	pkt := NewConnect("HIMQTT-Test0001", DefaultKeepAlive)

	want := []byte{
		0x10, 0x1d,
		0x00, 0x06, 'M', 'Q', 'I', 's', 'd', 'p',
		0x03,
		0x02,
		0x00, 0x3c,
		0x00, 0x0f,
		'H', 'I', 'M', 'Q', 'T', 'T', '-', 'T', 'e', 's', 't',
		'0', '0', '0', '1',
	}
	assert.Equal(t, want, pkt.Encode())
	assert.Equal(t, byte(ConnectType), pkt.Type())
}

func TestConnAckAccepted(t *testing.T) {
	assert.Equal(t, []byte{0x20, 0x02, 0x00, 0x00}, ConnAckAccepted)
	assert.NoError(t, ValidateConnAck([]byte{0x20, 0x02, 0x00, 0x00}))
}

func TestValidateConnAck(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"empty", nil, ReasonLength},
		{"short", []byte{0x20, 0x02, 0x00}, ReasonLength},
		{"long", []byte{0x20, 0x02, 0x00, 0x00, 0x00}, ReasonLength},
		{"wrong header", []byte{0x30, 0x02, 0x00, 0x00}, ReasonHeader},
		{"wrong remaining length", []byte{0x20, 0x03, 0x00, 0x00}, ReasonRemainingLength},
		{"refused", []byte{0x20, 0x02, 0x00, 0x05}, ReasonReturnCode},
		{"session present", []byte{0x20, 0x02, 0x01, 0x00}, ReasonReturnCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConnAck(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocolViolation))

			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.reason, perr.Reason)
			assert.Equal(t, "CONNACK", perr.Packet)
		})
	}
}

func TestValidateConnAckReturnCodeName(t *testing.T) {
	err := ValidateConnAck((&ConnAck{ReturnCode: 5}).Encode())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Authorised")
}

func TestExpectConnAck(t *testing.T) {
	e := ExpectConnAck()

	done, err := e.Feed([]byte{0x20})
	require.NoError(t, err)
	assert.False(t, done)

	done, err = e.Feed(nil)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, e.Buffered())

	done, err = e.Feed([]byte{0x02, 0x00, 0x00})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestExpectSurplus(t *testing.T) {
	e := ExpectConnAck()

	done, err := e.Feed([]byte{0x20, 0x02, 0x00, 0x00, 0x30})
	assert.True(t, done)
	assert.ErrorIs(t, err, ErrProtocolViolation)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonLength, perr.Reason)
}

func TestExpectTruncated(t *testing.T) {
	e := ExpectConnAck()
	_, err := e.Feed([]byte{0x20, 0x02})
	require.NoError(t, err)

	err = e.Truncated()
	assert.ErrorIs(t, err, ErrProtocolViolation)
	assert.Contains(t, err.Error(), "2 of 4 bytes")
}
