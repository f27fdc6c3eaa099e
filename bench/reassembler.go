// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

// Reassembler counts fixed-size units in an arbitrarily segmented byte
// stream. It only tracks how many bytes have arrived, so it is valid as
// long as every unit on the stream has the same encoded length. Streams
// with mixed unit sizes need packets.SplitFrames instead.
type Reassembler struct {
	unit int
	acc  int
}

// NewReassembler returns a Reassembler for units of unitSize bytes.
func NewReassembler(unitSize int) (*Reassembler, error) {
	if unitSize < 1 {
		return nil, ErrInvalidUnitSize
	}
	return &Reassembler{unit: unitSize}, nil
}

// Consume accounts for chunk and returns the number of units it completed.
func (r *Reassembler) Consume(chunk []byte) int {
	r.acc += len(chunk)
	n := 0
	for r.acc >= r.unit {
		r.acc -= r.unit
		n++
	}
	return n
}

// Buffered returns the bytes of the incomplete unit, always below the unit size.
func (r *Reassembler) Buffered() int {
	return r.acc
}

// UnitSize returns the unit length.
func (r *Reassembler) UnitSize() int {
	return r.unit
}
