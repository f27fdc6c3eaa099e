// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import "errors"

// Client errors.
var (
	// Configuration errors.
	ErrNoAddress        = errors.New("no broker address configured")
	ErrInvalidTransport = errors.New("invalid transport (must be tcp, tls or ws)")
	ErrNoIDCounter      = errors.New("client identifier counter is required")

	// Connection errors.
	ErrNotConnected     = errors.New("client not connected")
	ErrAlreadyConnected = errors.New("client already connected")
	ErrConnectFailed    = errors.New("connection failed")
	ErrConnectionLost   = errors.New("connection lost")
	ErrClientClosed     = errors.New("client has been closed")
	ErrWriteFailed      = errors.New("write failed")
)
