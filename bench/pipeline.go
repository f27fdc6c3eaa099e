// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import "time"

// Pipeline keeps up to credit units in flight until target units have
// completed the round trip. It is not safe for concurrent use; all calls
// come from the orchestrator's event loop.
type Pipeline struct {
	target int
	credit int
	send   func() error
	now    func() time.Time

	pending   int
	sent      int
	completed int
	started   time.Time
	finished  time.Time
	running   bool
	done      bool
}

// Throughput summarizes a finished (or interrupted) pipeline.
type Throughput struct {
	Units      int
	Elapsed    time.Duration
	MsgsPerSec float64
}

// NewPipeline returns a pipeline that calls send once per unit.
func NewPipeline(target, credit int, send func() error) (*Pipeline, error) {
	if target < 1 {
		return nil, ErrInvalidTarget
	}
	if credit < 1 {
		return nil, ErrInvalidCredit
	}
	return &Pipeline{
		target: target,
		credit: credit,
		send:   send,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Start records the start time and fills the window.
func (p *Pipeline) Start() error {
	if p.running || p.done {
		return ErrAlreadyStarted
	}
	p.running = true
	p.started = p.now()
	for p.pending < p.credit && p.sent < p.target {
		if err := p.sendOne(); err != nil {
			return err
		}
	}
	return nil
}

// Ack records one completed unit and refills the window. It reports true
// exactly once, on the call that completes the target. Later calls are
// ignored.
func (p *Pipeline) Ack() (bool, error) {
	if p.done {
		return false, nil
	}
	if !p.running {
		return false, ErrNotStarted
	}
	if p.pending == 0 {
		return false, ErrUnexpectedUnit
	}

	p.pending--
	p.completed++
	if p.completed == p.target {
		p.finished = p.now()
		p.running = false
		p.done = true
		return true, nil
	}

	if p.pending < p.credit && p.sent < p.target {
		if err := p.sendOne(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (p *Pipeline) sendOne() error {
	if err := p.send(); err != nil {
		return err
	}
	p.pending++
	p.sent++
	return nil
}

// Pending returns the number of units in flight.
func (p *Pipeline) Pending() int {
	return p.pending
}

// Sent returns the number of units handed to send.
func (p *Pipeline) Sent() int {
	return p.sent
}

// Completed returns the number of acknowledged units.
func (p *Pipeline) Completed() int {
	return p.completed
}

// Done reports whether the target has been reached.
func (p *Pipeline) Done() bool {
	return p.done
}

// Throughput returns the units completed and the rate so far. Before
// completion the elapsed time runs up to now.
func (p *Pipeline) Throughput() Throughput {
	if p.started.IsZero() {
		return Throughput{}
	}
	end := p.finished
	if !p.done {
		end = p.now()
	}
	t := Throughput{
		Units:   p.completed,
		Elapsed: end.Sub(p.started),
	}
	if t.Elapsed > 0 {
		t.MsgsPerSec = float64(t.Units) / t.Elapsed.Seconds()
	}
	return t
}
