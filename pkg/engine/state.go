// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package engine implements the license validation state machine: a pure
// transition table over a small set of states and events (state.go,
// event.go, transition.go), a side-effect handler that performs the work
// each new state implies (effects.go), and the observer/façade surface
// callers drive it through (facade.go, engine.go).
package engine

import (
	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/errs"
)

// State is the finite set of states the engine can occupy. It is a closed
// sum type: every implementation lives in this file, and transition.go's
// switch over (State, Event) is expected to be exhaustive.
type State interface {
	state()
}

// Start is the initial state: no work done yet.
type Start struct{}

func (Start) state() {}

// ValidateLicense holds raw license bytes awaiting parse. RefreshDone
// records whether this pass was reached via a status-driven refresh
// (FetchLicense's transition sets it on the resulting ValidateLicense), so
// ValidateStatus never attempts a second refresh within the same run.
type ValidateLicense struct {
	Data        []byte
	RefreshDone bool
}

func (ValidateLicense) state() {}

// FetchStatus has a parsed license and a status fetch in flight.
type FetchStatus struct {
	License     contract.LicenseView
	RefreshDone bool
}

func (FetchStatus) state() {}

// ValidateStatus holds raw status bytes awaiting parse.
type ValidateStatus struct {
	Data        []byte
	License     contract.LicenseView
	RefreshDone bool
}

func (ValidateStatus) state() {}

// FetchLicense has a status document pointing at a fresher license; the
// refresh fetch is in flight.
type FetchLicense struct {
	License contract.LicenseView
	Status  contract.StatusView
}

func (FetchLicense) state() {}

// CheckLicenseStatus reconciles the license's time window against its own
// rights and, when present, the status document's lifecycle value.
type CheckLicenseStatus struct {
	License contract.LicenseView
	Status  contract.StatusView // nil when no status document was ever fetched
}

func (CheckLicenseStatus) state() {}

// RetrievePassphrase prompts the user, or queries a passphrase store.
type RetrievePassphrase struct {
	License contract.LicenseView
	Status  contract.StatusView
}

func (RetrievePassphrase) state() {}

// ValidateIntegrity invokes the native crypto layer to build a DRM context.
type ValidateIntegrity struct {
	License    contract.LicenseView
	Status     contract.StatusView
	Passphrase string
}

func (ValidateIntegrity) state() {}

// RegisterDevice optionally POSTs device usage to the status server.
type RegisterDevice struct {
	Documents ValidatedDocuments
	Link      contract.LinkView
}

func (RegisterDevice) state() {}

// Valid is the terminal success state.
type Valid struct {
	Documents ValidatedDocuments
}

func (Valid) state() {}

// Failure is the terminal failure state.
type Failure struct {
	Err error
}

func (Failure) state() {}

// Cancelled is the terminal cancellation state: the user declined the
// passphrase prompt. Distinct from Failure — not an error.
type Cancelled struct{}

func (Cancelled) state() {}

// ValidatedDocuments is the terminal success payload: the license, always;
// the status document, when one was fetched; and exactly one of a DRM
// context (integrity succeeded) or a LicenseStatus error (the license
// parsed and was reconciled against its status but is not currently usable).
type ValidatedDocuments struct {
	License contract.LicenseView
	Status  contract.StatusView // nil when no status document was ever fetched

	Context     contract.DrmContext // set when StatusError is nil
	StatusError *errs.LocalizedError // set when Context is nil
}

// IsUsable reports whether the license may be used to decrypt content.
func (d ValidatedDocuments) IsUsable() bool { return d.StatusError == nil }

func isTerminal(s State) bool {
	switch s.(type) {
	case Valid, Failure, Cancelled:
		return true
	default:
		return false
	}
}
