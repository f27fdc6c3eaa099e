// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	// ErrMaxLengthExceeded represents an error for invalid length int size.
	// Length is positive integer of variable bytes integer.
	ErrMaxLengthExceeded = errors.New("max length value exceeded")

	// ErrBufferTooShort is returned when a slice ends in the middle of a field.
	ErrBufferTooShort = errors.New("buffer too short")

	// ErrMalformedVBI is returned when a Variable Byte Integer spans more than 4 bytes.
	ErrMalformedVBI = errors.New("malformed variable byte integer")
)

const maxVBIBytes = 4

func DecodeByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func DecodeUint16(r io.Reader) (uint16, error) {
	var num [2]byte
	if _, err := io.ReadFull(r, num[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(num[:]), nil
}

func DecodeBytes(r io.Reader) ([]byte, error) {
	fieldLength, err := DecodeUint16(r)
	if err != nil {
		return nil, err
	}

	field := make([]byte, fieldLength)
	if _, err = io.ReadFull(r, field); err != nil {
		return nil, err
	}

	return field, nil
}

func DecodeString(r io.Reader) (string, error) {
	buf, err := DecodeBytes(r)
	return string(buf), err
}

// DecodeVBI is used for Variable Byte Integers used to
// encode length in a minimal way.
func DecodeVBI(r io.Reader) (int, error) {
	var vbi uint32
	var multiplier uint32
	var b [1]byte

	for i := 0; ; i++ {
		if i == maxVBIBytes {
			return 0, ErrMaxLengthExceeded
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		vbi |= uint32(b[0]&0x7F) << multiplier
		if b[0]&0x80 == 0 {
			return int(vbi), nil
		}
		multiplier += 7
	}
}

// DecodeVBIBytes decodes a Variable Byte Integer from the start of buf.
// It returns the value and the number of bytes consumed.
func DecodeVBIBytes(buf []byte) (int, int, error) {
	var vbi uint32
	var multiplier uint32
	for i := 0; i < maxVBIBytes; i++ {
		if i >= len(buf) {
			return 0, 0, ErrBufferTooShort
		}
		b := buf[i]
		vbi |= uint32(b&0x7F) << multiplier
		if b&0x80 == 0 {
			return int(vbi), i + 1, nil
		}
		multiplier += 7
	}
	return 0, 0, ErrMalformedVBI
}
