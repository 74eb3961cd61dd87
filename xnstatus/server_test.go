// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xnstatus

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

type pipeLink struct{ net.Conn }

func TestServer_StatusAndQueue(t *testing.T) {
	client, station := net.Pipe()
	defer client.Close()
	defer station.Close()
	go drainConn(station)

	d := xpressnet.NewDriver(xpressnet.DefaultConfig(), &xpressnet.Events{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Connect(ctx, pipeLink{client}, xpressnet.LI100))

	router := NewRouter(d)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/queue")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

// drainConn discards whatever the engine writes so its handshake sends
// never block on a full pipe.
func drainConn(conn net.Conn) {
	buf := make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
