// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package main

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/engine"
)

// outcomeHistorySize bounds how many past validation outcomes the
// diagnostics server keeps in memory: a local debug page only ever needs
// the most recent handful, not a full audit log.
const outcomeHistorySize = 20

// outcome is one past validation's result, as reported on /status.
type outcome struct {
	Path      string    `json:"path"`
	At        time.Time `json:"at"`
	Valid     bool      `json:"valid"`
	LicenseID string    `json:"license_id,omitempty"`
	Usable    bool      `json:"usable,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// outcomeHistory is a small fixed-capacity ring buffer of past outcomes,
// appended to by the directory watcher and read by the /status handler.
type outcomeHistory struct {
	mu    sync.Mutex
	items []outcome
}

func (h *outcomeHistory) record(o outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, o)
	if len(h.items) > outcomeHistorySize {
		h.items = h.items[len(h.items)-outcomeHistorySize:]
	}
}

func (h *outcomeHistory) snapshot() []outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]outcome, len(h.items))
	copy(out, h.items)
	return out
}

// serve watches dir for dropped license/status files exactly like
// watchAndValidate, and exposes the last outcomeHistorySize outcomes
// read-only over HTTP at /status — a local debug page for a desktop app
// embedding the engine, trimmed from the reference server's router.go
// (chi + cors + render wiring) down to the one endpoint such a tool needs.
func serve(ctx context.Context, addr, dir string, cfgs *engineConfigHolder) error {
	history := &outcomeHistory{}

	go func() {
		if err := watchAndRecord(ctx, dir, cfgs, history); err != nil {
			log.WithError(err).Error("directory watcher stopped")
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("The LCP validation diagnostics server is running!"))
	})

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/status", statusHandler(history))
	})

	log.WithField("addr", addr).WithField("dir", dir).Info("starting diagnostics server")
	return http.ListenAndServe(addr, r)
}

func statusHandler(history *outcomeHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, history.snapshot())
	}
}

// recordValidation validates path against cfg and appends the outcome to
// history, the -serve counterpart of validateFileLogged.
func recordValidation(ctx context.Context, path string, cfg engine.Config, history *outcomeHistory) {
	o := outcome{Path: path, At: time.Now()}

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("file", path).Error("failed to read file")
		o.Error = err.Error()
		history.record(o)
		return
	}

	documents, err := runValidation(ctx, data, cfg)
	if err != nil {
		log.WithError(err).WithField("file", path).Error("validation failed")
		o.Error = err.Error()
		history.record(o)
		return
	}

	o.Valid = true
	o.LicenseID = documents.License.ID()
	o.Usable = documents.IsUsable()
	history.record(o)
}
