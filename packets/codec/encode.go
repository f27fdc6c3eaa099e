// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

// Encode methods rewrite some of bigEndian methods
// to avoid unnecessary function calls and checks.

// MaxVBI is the largest value a four byte Variable Byte Integer can carry.
const MaxVBI = 268435455

func EncodeBytes(field []byte) []byte {
	v := len(field)
	b := make([]byte, 0, 2+v)
	b = append(b, byte(v>>8), byte(v))
	return append(b, field...)
}

func EncodeString(field string) []byte {
	return EncodeBytes([]byte(field))
}

func EncodeUint16(num uint16) []byte {
	return []byte{byte(num >> 8), byte(num)}
}

// EncodeVBI is used for Variable Byte Integers used to
// encode length in a minimal way.
func EncodeVBI(num int) []byte {
	var x int
	ret := [4]byte{}
	v := uint32(num)
	for {
		b := byte(v & 0x7F) // take 7 least significant bits
		v >>= 7
		if v > 0 {
			b |= 0x80 // set continuation bit
		}
		ret[x] = b
		x++
		if v == 0 || x == len(ret) {
			return ret[:x]
		}
	}
}

// SizeVBI returns the number of bytes EncodeVBI produces for num.
func SizeVBI(num int) int {
	switch {
	case num < 128:
		return 1
	case num < 16384:
		return 2
	case num < 2097152:
		return 3
	default:
		return 4
	}
}
