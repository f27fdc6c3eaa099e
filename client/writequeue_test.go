// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteQueueOrder(t *testing.T) {
	q := newWriteQueue()
	for _, b := range []string{"a", "b", "c"} {
		assert.True(t, q.push([]byte(b)))
	}
	assert.Equal(t, 3, q.len())

	bufs, ending, closed := q.take()
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, bufs)
	assert.False(t, ending)
	assert.False(t, closed)
	assert.Zero(t, q.len())

	select {
	case <-q.signal:
	default:
		t.Fatal("push should signal the writer")
	}
}

func TestWriteQueueEnd(t *testing.T) {
	q := newWriteQueue()
	q.push([]byte("last"))
	q.end()

	assert.False(t, q.push([]byte("late")), "no writes after end")

	bufs, ending, _ := q.take()
	assert.Len(t, bufs, 1)
	assert.True(t, ending)
}

func TestWriteQueueClose(t *testing.T) {
	q := newWriteQueue()
	q.push([]byte("dropped"))
	q.close()

	assert.False(t, q.push([]byte("late")))
	bufs, _, closed := q.take()
	assert.Empty(t, bufs)
	assert.True(t, closed)
}
