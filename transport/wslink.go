// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ErrLinkClosed is returned from Read once the underlying WebSocket has
// failed or been closed.
var ErrLinkClosed = fmt.Errorf("websocket link closed")

// WSLink tunnels an XpressNET byte stream over a WebSocket, for
// LI-USB-Ethernet-style bridges that expose the LI protocol behind a
// network service instead of a local serial port.
type WSLink struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
	addr      string
}

func (w *WSLink) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrLinkClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WSLink) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WSLink) Close() error { return w.conn.Close() }

// String reports the dial address, for logging and status reporting.
func (w *WSLink) String() string { return w.addr }

// OpenWebSocket dials a WebSocket XpressNET bridge, optionally over TLS
// and with HTTP Basic auth.
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WSLink, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connect failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect failed: %w", err)
	}

	return &WSLink{conn: conn, addr: wsURL}, nil
}
