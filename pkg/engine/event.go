// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import "github.com/edrlab/lcp-client/pkg/contract"

// Event is the finite set of events the transition table dispatches on. Like
// State, it is a closed sum type matched exhaustively in transition.go.
type Event interface {
	event()
}

// RetrievedLicenseData carries raw license bytes, either from the initial
// Validate call or from a status-driven refresh fetch.
type RetrievedLicenseData struct {
	Data []byte
}

func (RetrievedLicenseData) event() {}

// RetrievedStatusData carries raw status bytes. License carries the
// currently-held license along for the ride: it is nil when Start receives
// status bytes without ever having parsed a license in this run (the
// caller is expected to have a license cached from a prior session in that
// case, supplied as NewEngine's license argument), and otherwise mirrors
// the license the engine already validated earlier in the same run.
type RetrievedStatusData struct {
	Data    []byte
	License contract.LicenseView
}

func (RetrievedStatusData) event() {}

// ValidatedLicense carries a successfully parsed license.
type ValidatedLicense struct {
	License contract.LicenseView
}

func (ValidatedLicense) event() {}

// ValidatedStatus carries a successfully parsed status document.
type ValidatedStatus struct {
	Status contract.StatusView
}

func (ValidatedStatus) event() {}

// CheckedLicenseStatus carries the outcome of reconciling the license's time
// window with its status; Err is nil when the license is currently usable.
type CheckedLicenseStatus struct {
	Err error
}

func (CheckedLicenseStatus) event() {}

// RetrievedPassphrase carries the passphrase the user supplied (or a store
// returned).
type RetrievedPassphrase struct {
	Passphrase string
}

func (RetrievedPassphrase) event() {}

// ValidatedIntegrity carries the DRM context the crypto layer built.
type ValidatedIntegrity struct {
	Context contract.DrmContext
}

func (ValidatedIntegrity) event() {}

// RegisteredDevice carries the (possibly empty) response body from the
// device-registration endpoint.
type RegisteredDevice struct {
	Data []byte
}

func (RegisteredDevice) event() {}

// Failed carries a fatal error; the transition table routes it to Failure
// except from FetchStatus, where it is tolerated (status is optional), and
// from FetchLicense, where it is tolerated whenever a license is already
// held.
type Failed struct {
	Err error
}

func (Failed) event() {}

// CancelledEvent marks the user's decision to decline the passphrase
// prompt. Named with the Event suffix to avoid colliding with the
// Cancelled terminal state.
type CancelledEvent struct{}

func (CancelledEvent) event() {}
