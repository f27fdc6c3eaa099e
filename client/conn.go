// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/absmach/mqttbench/packets"
	"golang.org/x/time/rate"
)

// Conn is one MQTT session over a stream transport. It dials, performs the
// CONNECT/CONNACK handshake and then surfaces every received chunk as an
// EventData, untouched, in receipt order.
//
// All events go to a single channel supplied by the owner, who must keep
// receiving until EventClose for every Conn it started.
type Conn struct {
	name   string
	opts   *Options
	events chan<- Event
	logger *slog.Logger

	state lifecycle
	wq    *writeQueue

	mu       sync.Mutex
	nc       net.Conn
	cancel   context.CancelFunc
	clientID string
	closing  bool
	writeErr error
}

// New creates an idle connection named name. Events are sent to events.
func New(name string, opts *Options, events chan<- Event) (*Conn, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Conn{
		name:   name,
		opts:   opts,
		events: events,
		logger: logger.With(slog.String("conn", name)),
		wq:     newWriteQueue(),
	}, nil
}

// Name returns the name given to New.
func (c *Conn) Name() string {
	return c.name
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return c.state.load()
}

// ClientID returns the identifier sent in CONNECT, empty before dialing.
func (c *Conn) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Queued returns the number of writes not yet handed to the transport.
func (c *Conn) Queued() int {
	return c.wq.len()
}

// Connect starts dialing in the background and returns immediately.
// Progress is reported through events.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return ErrClientClosed
	}
	if !c.state.advance(StateIdle, StateConnecting) {
		return ErrAlreadyConnected
	}

	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
	return nil
}

// Write queues b for transmission. It never blocks and exposes no
// backpressure; callers bound their own in-flight data.
func (c *Conn) Write(b []byte) error {
	if !c.state.ready() {
		return ErrNotConnected
	}
	if !c.wq.push(b) {
		return ErrClientClosed
	}
	return nil
}

// End half-closes the connection once all queued writes are flushed.
func (c *Conn) End() error {
	if !c.state.ready() {
		return ErrNotConnected
	}
	c.wq.end()
	return nil
}

// Close tears the connection down. A started connection still delivers
// its EventClose, without an error.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	nc, cancel := c.nc, c.cancel
	c.mu.Unlock()

	if c.state.advance(StateIdle, StateClosed) {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if nc != nil {
		nc.Close()
	}
	return nil
}

func (c *Conn) run(ctx context.Context) {
	c.logger.Debug("conn_dialing", slog.String("addr", c.opts.Addr), slog.String("transport", c.opts.Transport))

	nc, err := dial(ctx, c.opts)
	if err != nil {
		c.finish(nil, fmt.Errorf("%w: %v", ErrConnectFailed, err))
		return
	}
	if !c.attach(nc) {
		c.finish(nc, nil)
		return
	}
	c.logger.Debug("conn_dialed", slog.String("local_addr", nc.LocalAddr().String()))
	c.emit(Event{Kind: EventDialed})

	id := ClientID(c.opts.ClientIDPrefix, c.opts.IDs.Next())
	c.mu.Lock()
	c.clientID = id
	c.mu.Unlock()

	if _, err := nc.Write(packets.NewConnect(id, c.opts.KeepAlive).Encode()); err != nil {
		c.finish(nc, fmt.Errorf("%w: %v", ErrConnectFailed, err))
		return
	}

	buf := make([]byte, c.opts.ReadBufferSize)
	if err := c.awaitConnAck(nc, buf); err != nil {
		c.finish(nc, err)
		return
	}
	if !c.state.advance(StateAwaitingAck, StateReady) {
		c.finish(nc, nil)
		return
	}
	c.logger.Debug("conn_handshake_accepted", slog.String("client_id", id))

	go c.writeLoop(ctx, nc)
	c.emit(Event{Kind: EventConnect})

	c.finish(nc, c.readLoop(nc, buf))
}

// attach publishes nc unless Close won the race.
func (c *Conn) attach(nc net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	c.nc = nc
	return c.state.advance(StateConnecting, StateAwaitingAck)
}

func (c *Conn) awaitConnAck(nc net.Conn, buf []byte) error {
	exp := packets.ExpectConnAck()
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			done, verr := exp.Feed(buf[:n])
			if verr != nil {
				return verr
			}
			if done {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if exp.Buffered() > 0 {
					return exp.Truncated()
				}
				return fmt.Errorf("%w: closed before CONNACK", ErrConnectionLost)
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
}

func (c *Conn) readLoop(nc net.Conn, buf []byte) error {
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			c.emit(Event{Kind: EventData, Data: data})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context, nc net.Conn) {
	var limiter *rate.Limiter
	if c.opts.WriteRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.opts.WriteRate), c.opts.WriteBurst)
	}

	for {
		bufs, ending, closed := c.wq.take()
		if closed {
			return
		}
		if len(bufs) > 0 {
			if err := writeAll(ctx, nc, limiter, bufs); err != nil {
				c.mu.Lock()
				c.writeErr = fmt.Errorf("%w: %v", ErrWriteFailed, err)
				c.mu.Unlock()
				nc.Close()
				return
			}
			continue
		}
		if ending {
			if cw, ok := nc.(interface{ CloseWrite() error }); ok {
				cw.CloseWrite()
			} else {
				nc.Close()
			}
			return
		}
		select {
		case <-c.wq.signal:
		case <-ctx.Done():
			return
		}
	}
}

func writeAll(ctx context.Context, w io.Writer, limiter *rate.Limiter, bufs [][]byte) error {
	if limiter == nil {
		nb := net.Buffers(bufs)
		_, err := nb.WriteTo(w)
		return err
	}
	for _, b := range bufs {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// finish closes nc and emits the terminal events. Errors seen after a
// local Close are part of the teardown and not reported.
func (c *Conn) finish(nc net.Conn, err error) {
	c.state.close()
	c.wq.close()
	if nc != nil {
		nc.Close()
	}

	c.mu.Lock()
	if c.writeErr != nil {
		err = c.writeErr
	}
	if c.closing {
		err = nil
	}
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if err != nil {
		c.logger.Error("conn_error", slog.String("error", err.Error()))
		c.emit(Event{Kind: EventError, Err: err})
	}
	c.logger.Debug("conn_closed", slog.Bool("with_error", err != nil))
	c.emit(Event{Kind: EventClose, Err: err})
}

func (c *Conn) emit(ev Event) {
	ev.Conn = c
	c.events <- ev
}
