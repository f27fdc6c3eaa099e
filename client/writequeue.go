// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "sync"

// writeQueue is an unbounded FIFO of pending writes. Producers never block.
type writeQueue struct {
	mu     sync.Mutex
	bufs   [][]byte
	ending bool
	closed bool
	signal chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{signal: make(chan struct{}, 1)}
}

func (q *writeQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// push queues b. It reports false once the queue is ending or closed.
func (q *writeQueue) push(b []byte) bool {
	q.mu.Lock()
	if q.ending || q.closed {
		q.mu.Unlock()
		return false
	}
	q.bufs = append(q.bufs, b)
	q.mu.Unlock()
	q.notify()
	return true
}

// end asks the writer to half-close once everything queued is written.
func (q *writeQueue) end() {
	q.mu.Lock()
	q.ending = true
	q.mu.Unlock()
	q.notify()
}

// close drops pending writes and stops the writer.
func (q *writeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.bufs = nil
	q.mu.Unlock()
	q.notify()
}

// take removes all queued writes.
func (q *writeQueue) take() (bufs [][]byte, ending, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	bufs, q.bufs = q.bufs, nil
	return bufs, q.ending, q.closed
}

// len returns the number of writes waiting.
func (q *writeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bufs)
}
