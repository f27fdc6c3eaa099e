// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"

	"github.com/gorilla/websocket"
)

// dial opens the stream the MQTT session runs over.
func dial(ctx context.Context, o *Options) (net.Conn, error) {
	nd := &net.Dialer{Timeout: o.ConnectTimeout}

	switch o.Transport {
	case TransportTLS:
		cfg := o.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		td := &tls.Dialer{NetDialer: nd, Config: cfg}
		return td.DialContext(ctx, "tcp", o.Addr)
	case TransportWS:
		scheme := "ws"
		if o.TLSConfig != nil {
			scheme = "wss"
		}
		u := url.URL{Scheme: scheme, Host: o.Addr, Path: o.WSPath}
		wd := &websocket.Dialer{
			NetDialContext:   nd.DialContext,
			HandshakeTimeout: o.ConnectTimeout,
			Subprotocols:     Subprotocols,
			TLSClientConfig:  o.TLSConfig,
		}
		ws, resp, err := wd.DialContext(ctx, u.String(), nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return NewWSConn(ws), nil
	default:
		return nd.DialContext(ctx, "tcp", o.Addr)
	}
}
