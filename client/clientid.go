// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"sync/atomic"
)

// DefaultClientIDPrefix is prepended to every generated client identifier.
const DefaultClientIDPrefix = "HIMQTT-Test"

// IDCounter issues client identifier numbers in [1, 0xFFFFFFFF].
// Connections sharing a counter never reuse a number until it wraps.
type IDCounter struct {
	v atomic.Uint32
}

// NewIDCounter returns a counter whose first issued number is 2,
// i.e. the counter starts at 1 and is incremented before each use.
func NewIDCounter() *IDCounter {
	return NewIDCounterAt(1)
}

// NewIDCounterAt returns a counter positioned at start. Zero is never a
// valid value and is replaced by 1.
func NewIDCounterAt(start uint32) *IDCounter {
	if start == 0 {
		start = 1
	}
	c := &IDCounter{}
	c.v.Store(start)
	return c
}

// Next increments the counter and returns the new value, wrapping to 1
// after 0xFFFFFFFF.
func (c *IDCounter) Next() uint32 {
	for {
		cur := c.v.Load()
		next := cur + 1
		if next == 0 {
			next = 1
		}
		if c.v.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Current returns the last issued value.
func (c *IDCounter) Current() uint32 {
	return c.v.Load()
}

// Suffix renders v as four lowercase hex digits. Only the low 16 bits fit.
func Suffix(v uint32) string {
	return fmt.Sprintf("%04x", v&0xFFFF)
}

// ClientID joins prefix and the rendered suffix of v.
func ClientID(prefix string, v uint32) string {
	return prefix + Suffix(v)
}
