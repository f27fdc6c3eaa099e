// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/absmach/mqttbench/packets"
)

// Transports.
const (
	TransportTCP = "tcp"
	TransportTLS = "tls"
	TransportWS  = "ws"
)

// Default values.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadBufferSize = 32 * 1024
	DefaultWSPath         = "/mqtt"
)

// Options configures a Conn.
type Options struct {
	// Connection
	Addr           string        // Broker address (host:port)
	Transport      string        // tcp, tls or ws
	WSPath         string        // Request path for the ws transport
	TLSConfig      *tls.Config   // TLS configuration for tls and wss
	ConnectTimeout time.Duration // Timeout for dialing

	// Handshake
	ClientIDPrefix string        // Prefix of the generated client identifier
	IDs            *IDCounter    // Source of client identifier numbers
	KeepAlive      time.Duration // Keep-alive interval announced in CONNECT

	// Writes
	WriteRate  float64 // Maximum writes per second (0 = unlimited)
	WriteBurst int     // Burst allowance for WriteRate

	// Advanced
	ReadBufferSize int
	Logger         *slog.Logger
}

// NewOptions creates Options with sensible defaults.
func NewOptions() *Options {
	return &Options{
		Addr:           "127.0.0.1:1883",
		Transport:      TransportTCP,
		WSPath:         DefaultWSPath,
		ConnectTimeout: DefaultConnectTimeout,
		ClientIDPrefix: DefaultClientIDPrefix,
		IDs:            NewIDCounter(),
		KeepAlive:      packets.DefaultKeepAlive,
		WriteBurst:     1,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// SetAddr sets the broker address.
func (o *Options) SetAddr(addr string) *Options {
	o.Addr = addr
	return o
}

// SetTransport sets the transport.
func (o *Options) SetTransport(transport string) *Options {
	o.Transport = transport
	return o
}

// SetTLSConfig sets TLS configuration.
func (o *Options) SetTLSConfig(cfg *tls.Config) *Options {
	o.TLSConfig = cfg
	return o
}

// SetIDCounter sets the counter client identifiers are drawn from.
func (o *Options) SetIDCounter(ids *IDCounter) *Options {
	o.IDs = ids
	return o
}

// SetWriteRate limits writes to rate per second with the given burst.
func (o *Options) SetWriteRate(rate float64, burst int) *Options {
	o.WriteRate = rate
	o.WriteBurst = burst
	return o
}

// SetLogger sets the logger.
func (o *Options) SetLogger(l *slog.Logger) *Options {
	o.Logger = l
	return o
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Addr == "" {
		return ErrNoAddress
	}
	switch o.Transport {
	case TransportTCP, TransportTLS, TransportWS:
	default:
		return ErrInvalidTransport
	}
	if o.IDs == nil {
		return ErrNoIDCounter
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	if o.WriteBurst < 1 {
		o.WriteBurst = 1
	}
	return nil
}
