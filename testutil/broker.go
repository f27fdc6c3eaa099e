// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides an in-process MQTT 3.1 broker for exercising
// the benchmark against real sockets, with hooks for injecting faults.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/absmach/mqttbench/client"
	"github.com/absmach/mqttbench/packets"
	"github.com/absmach/mqttbench/packets/codec"
	"github.com/absmach/mqttbench/topics"
	"github.com/gorilla/websocket"
)

var errDisconnect = errors.New("client sent DISCONNECT")

type config struct {
	connAck   []byte
	subAck    func(id uint16, qos byte) []byte
	chunkSize int
	dropAfter int
	silent    bool
	wsPath    string
	store     MessageStore
}

// Option configures a Broker.
type Option func(*config)

// WithConnAck replies to every CONNECT with b instead of an accepted CONNACK.
func WithConnAck(b []byte) Option {
	return func(c *config) {
		c.connAck = b
	}
}

// WithSubAck builds the reply to every SUBSCRIBE from its id and requested QoS.
func WithSubAck(fn func(id uint16, qos byte) []byte) Option {
	return func(c *config) {
		c.subAck = fn
	}
}

// WithChunkSize splits every outgoing write into chunks of at most n bytes.
func WithChunkSize(n int) Option {
	return func(c *config) {
		c.chunkSize = n
	}
}

// WithDropAfter closes a subscriber's connection once n publishes have
// been forwarded to it.
func WithDropAfter(n int) Option {
	return func(c *config) {
		c.dropAfter = n
	}
}

// WithSilentConnect never answers CONNECT.
func WithSilentConnect() Option {
	return func(c *config) {
		c.silent = true
	}
}

// WithWebSocket also serves MQTT over WebSocket at path.
func WithWebSocket(path string) Option {
	return func(c *config) {
		c.wsPath = path
	}
}

// WithStore records every PUBLISH in store.
func WithStore(store MessageStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// Broker routes QoS 0 publishes to every session whose filter matches.
type Broker struct {
	cfg config
	ln  net.Listener
	ws  *httptest.Server

	mu        sync.Mutex
	sessions  map[*session]struct{}
	subs      map[string][]*session
	clientIDs []string
	published int
	closed    bool
	wg        sync.WaitGroup
}

type session struct {
	nc        net.Conn
	clientID  string
	wmu       sync.Mutex
	forwarded int
}

// NewBroker starts a broker on a random loopback port. It is stopped
// when the test ends.
func NewBroker(t testing.TB, opts ...Option) *Broker {
	t.Helper()

	cfg := config{
		connAck: packets.ConnAckAccepted,
		subAck: func(id uint16, qos byte) []byte {
			return (&packets.SubAck{ID: id, QoS: qos}).Encode()
		},
		store: NewInMemoryStore(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	b := &Broker{
		cfg:      cfg,
		ln:       ln,
		sessions: make(map[*session]struct{}),
		subs:     make(map[string][]*session),
	}

	if cfg.wsPath != "" {
		upgrader := websocket.Upgrader{
			Subprotocols: client.Subprotocols,
			CheckOrigin:  func(r *http.Request) bool { return true },
		}
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.wsPath, func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			b.wg.Add(1)
			go b.serve(client.NewWSConn(ws))
		})
		b.ws = httptest.NewServer(mux)
	}

	b.wg.Add(1)
	go b.accept()

	t.Cleanup(b.Close)
	return b
}

// Addr returns the TCP listener address.
func (b *Broker) Addr() string {
	return b.ln.Addr().String()
}

// WSAddr returns the host:port of the WebSocket listener, empty if disabled.
func (b *Broker) WSAddr() string {
	if b.ws == nil {
		return ""
	}
	return strings.TrimPrefix(b.ws.URL, "http://")
}

// Store returns the store publishes are recorded in.
func (b *Broker) Store() MessageStore {
	return b.cfg.store
}

// ClientIDs returns the client identifiers seen in CONNECT, in order.
func (b *Broker) ClientIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.clientIDs...)
}

// Published returns the number of PUBLISH packets received.
func (b *Broker) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

// Subscribers returns the number of sessions subscribed with filter.
func (b *Broker) Subscribers(filter string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[filter])
}

// Sessions returns the number of open connections.
func (b *Broker) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close stops the listeners and drops every session.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for s := range b.sessions {
		s.nc.Close()
	}
	b.mu.Unlock()

	b.ln.Close()
	if b.ws != nil {
		b.ws.CloseClientConnections()
		b.ws.Close()
	}
	b.wg.Wait()
}

func (b *Broker) accept() {
	defer b.wg.Done()
	for {
		nc, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go b.serve(nc)
	}
}

func (b *Broker) serve(nc net.Conn) {
	defer b.wg.Done()

	s := &session{nc: nc}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		nc.Close()
		return
	}
	b.sessions[s] = struct{}{}
	b.mu.Unlock()

	defer b.drop(s)

	var fb packets.FrameBuffer
	buf := make([]byte, 64*1024)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			frames, ferr := fb.Write(buf[:n])
			if ferr != nil {
				return
			}
			for _, frame := range frames {
				if err := b.handle(s, frame); err != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (b *Broker) drop(s *session) {
	s.nc.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, s)
	for topic, subs := range b.subs {
		for i, sub := range subs {
			if sub == s {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

func (b *Broker) handle(s *session, frame []byte) error {
	switch frame[0] >> 4 {
	case packets.ConnectType:
		id, err := connectClientID(frame)
		if err != nil {
			return err
		}
		s.clientID = id
		b.mu.Lock()
		b.clientIDs = append(b.clientIDs, id)
		b.mu.Unlock()
		if b.cfg.silent {
			return nil
		}
		return b.write(s, b.cfg.connAck)

	case packets.SubscribeType:
		sub, err := packets.ParseSubscribe(frame)
		if err != nil {
			return err
		}
		if err := topics.ValidateFilter(sub.Topic); err != nil {
			return err
		}
		b.mu.Lock()
		b.subs[sub.Topic] = append(b.subs[sub.Topic], s)
		b.mu.Unlock()
		return b.write(s, b.cfg.subAck(sub.ID, sub.QoS))

	case packets.PublishType:
		pub, err := packets.ParsePublish(frame)
		if err != nil {
			return err
		}
		b.cfg.store.Store(&Message{
			ClientID: s.clientID,
			Topic:    pub.Topic,
			Payload:  bytes.Clone(pub.Payload),
		})

		b.mu.Lock()
		b.published++
		var subs []*session
		for filter, ss := range b.subs {
			if topics.Match(filter, pub.Topic) {
				subs = append(subs, ss...)
			}
		}
		b.mu.Unlock()

		for _, sub := range subs {
			b.forward(sub, frame)
		}
		return nil

	case packets.PingReqType:
		return b.write(s, (&packets.PingResp{}).Encode())

	case packets.DisconnectType:
		return errDisconnect
	}
	return nil
}

func (b *Broker) forward(s *session, frame []byte) {
	if err := b.write(s, frame); err != nil {
		s.nc.Close()
		return
	}
	s.wmu.Lock()
	s.forwarded++
	drop := b.cfg.dropAfter > 0 && s.forwarded >= b.cfg.dropAfter
	s.wmu.Unlock()
	if drop {
		s.nc.Close()
	}
}

func (b *Broker) write(s *session, p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	size := b.cfg.chunkSize
	if size <= 0 {
		size = len(p)
	}
	for len(p) > 0 {
		n := min(size, len(p))
		if _, err := s.nc.Write(p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// connectClientID extracts the client identifier from a CONNECT frame of
// protocol level 3 or 4.
func connectClientID(frame []byte) (string, error) {
	var fh packets.FixedHeader
	n, err := fh.DecodeFromBytes(frame)
	if err != nil {
		return "", err
	}
	r := bytes.NewReader(frame[n:])
	if _, err := codec.DecodeString(r); err != nil {
		return "", err
	}
	// Protocol level, connect flags and keep alive.
	if _, err := r.Seek(4, io.SeekCurrent); err != nil {
		return "", err
	}
	return codec.DecodeString(r)
}
