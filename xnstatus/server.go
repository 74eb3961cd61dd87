// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xnstatus exposes a small read-only HTTP status endpoint over
// an xpressnet.Driver, for operational dashboards. It is never required
// by the engine or the CLI; `xncli serve` is the only thing that wires
// it in.
package xnstatus

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/kazwalker/xpressnet/pkg/xpressnet"
)

// statusPayload is the GET /status response body.
type statusPayload struct {
	Track string `json:"track"`
}

// queuePayload is the GET /queue response body.
type queuePayload struct {
	Pending  int `json:"pending"`
	Outgoing int `json:"outgoing"`
}

// NewRouter builds a chi router exposing track status and queue depth
// for d. Mount it under whatever prefix the caller prefers.
func NewRouter(d *xpressnet.Driver) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, &statusPayload{Track: d.TrkStatus().String()})
	})

	r.Get("/queue", func(w http.ResponseWriter, req *http.Request) {
		stats := d.Stats()
		render.JSON(w, req, &queuePayload{Pending: stats.Pending, Outgoing: stats.Outgoing})
	})

	return r
}

// Serve blocks, serving NewRouter's router on addr.
func Serve(addr string, d *xpressnet.Driver) error {
	return http.ListenAndServe(addr, NewRouter(d))
}
