// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"context"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// Engine drives one validation run at a time over the transition table and
// side-effect handler. One Engine is created per publication unlock
// attempt (spec.md §3 Lifecycle) and discarded once it reaches a terminal
// state; it must not be reused for a second Validate call.
type Engine struct {
	cfg   Config
	state State
	obs   registry

	// license is the license this engine already holds, if any, at the
	// moment Validate is first called with a bare status document (the
	// Start -> ValidateStatus direct entry in the transition table). A
	// caller reconciling a cached license's status without re-parsing it
	// supplies this via NewEngine.
	license contract.LicenseView
}

// NewEngine builds an engine ready to validate one document. license may be
// nil; it is only consulted if the first Validate call supplies a status
// document rather than a license.
func NewEngine(cfg Config, license contract.LicenseView) *Engine {
	return &Engine{cfg: cfg, state: Start{}, license: license}
}

// State returns the engine's current state, mainly useful for diagnostics
// and tests.
func (e *Engine) State() State { return e.state }

// Validate raises the initial event for document and attaches observer with
// Once policy, then drives the transition table and side-effect handler to
// completion (spec.md §4.5). It must only be called once per engine.
func (e *Engine) Validate(ctx context.Context, document contract.Input, observer Observer) {
	e.Observe(Once, observer)
	e.run(ctx, e.initialEvent(document))
}

// Observe registers observer with the given policy (spec.md §4.5,
// §8 property 5): if the engine is already terminal, the observer is
// notified synchronously and, for Once, not retained.
func (e *Engine) Observe(policy Policy, observer Observer) {
	docs, err, terminal := e.terminalOutcome()
	e.obs.attach(policy, observer, docs, err, terminal)
}

func (e *Engine) initialEvent(document contract.Input) Event {
	if document.IsLicense() {
		return RetrievedLicenseData{Data: document.Bytes()}
	}
	return RetrievedStatusData{Data: document.Bytes(), License: e.license}
}

// run drives the transition table and effect handler until a terminal
// state is reached, spec.md §5: single-threaded, one event processed at a
// time, FIFO within the run.
func (e *Engine) run(ctx context.Context, initial Event) {
	r := &run{}
	event := initial
	for {
		e.state = Transition(e.state, event)

		if license, ok := currentLicense(e.state); ok {
			e.license = license
		}

		if isTerminal(e.state) {
			docs, err, _ := e.terminalOutcome()
			e.obs.notify(docs, err)
			return
		}

		event = RunEffect(ctx, &e.cfg, r, e.state)
	}
}

// currentLicense extracts the license a state carries, if any, so e.license
// tracks the license the run currently holds even though Go interfaces
// can't express the tagged "every state has one" invariant directly.
func currentLicense(s State) (contract.LicenseView, bool) {
	switch st := s.(type) {
	case ValidateLicense:
		return nil, false
	case FetchStatus:
		return st.License, true
	case ValidateStatus:
		return st.License, true
	case FetchLicense:
		return st.License, true
	case CheckLicenseStatus:
		return st.License, true
	case RetrievePassphrase:
		return st.License, true
	case ValidateIntegrity:
		return st.License, true
	case RegisterDevice:
		return st.Documents.License, true
	case Valid:
		return st.Documents.License, true
	}
	return nil, false
}

// terminalOutcome reports the engine's outcome if it is currently in a
// terminal state.
func (e *Engine) terminalOutcome() (docs *ValidatedDocuments, err error, terminal bool) {
	switch st := e.state.(type) {
	case Valid:
		d := st.Documents
		return &d, nil, true
	case Failure:
		return nil, st.Err, true
	case Cancelled:
		return nil, nil, true
	default:
		return nil, nil, false
	}
}
