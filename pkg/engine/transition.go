// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/errs"
)

// Transition is the pure (State, Event) -> State mapping, spec.md §4.3. It
// never performs I/O and never raises further events itself; effects.go
// does that once the new state is known. An illegal pair is a programmer
// error and lands on Failure, never a panic.
func Transition(s State, e Event) State {
	switch from := s.(type) {

	case Start:
		switch ev := e.(type) {
		case RetrievedLicenseData:
			return ValidateLicense{Data: ev.Data}
		case RetrievedStatusData:
			return ValidateStatus{Data: ev.Data, License: ev.License}
		}

	case ValidateLicense:
		switch ev := e.(type) {
		case ValidatedLicense:
			return FetchStatus{License: ev.License, RefreshDone: from.RefreshDone}
		case Failed:
			return Failure{Err: ev.Err}
		}

	case FetchStatus:
		switch ev := e.(type) {
		case RetrievedStatusData:
			return ValidateStatus{Data: ev.Data, License: from.License, RefreshDone: from.RefreshDone}
		case Failed:
			// Status is optional: a fetch failure here is tolerated, not fatal.
			return CheckLicenseStatus{License: from.License, Status: nil}
		}

	case ValidateStatus:
		switch ev := e.(type) {
		case ValidatedStatus:
			if !from.RefreshDone && statusHasFresherLicense(from.License, ev.Status) {
				return FetchLicense{License: from.License, Status: ev.Status}
			}
			return CheckLicenseStatus{License: from.License, Status: ev.Status}
		case Failed:
			return Failure{Err: ev.Err}
		}

	case FetchLicense:
		switch ev := e.(type) {
		case RetrievedLicenseData:
			return ValidateLicense{Data: ev.Data, RefreshDone: true}
		case Failed:
			// A refresh fetch failure is only fatal if no prior license was
			// ever successfully parsed (a bare status document validated
			// without a held license); otherwise the existing license
			// carries the run through.
			if from.License == nil {
				return Failure{Err: ev.Err}
			}
			return CheckLicenseStatus{License: from.License, Status: from.Status}
		}

	case CheckLicenseStatus:
		switch ev := e.(type) {
		case CheckedLicenseStatus:
			if ev.Err == nil {
				return RetrievePassphrase{License: from.License, Status: from.Status}
			}
			return Valid{Documents: ValidatedDocuments{
				License:     from.License,
				Status:      from.Status,
				StatusError: asLocalized(ev.Err),
			}}
		case Failed:
			return Failure{Err: ev.Err}
		}

	case RetrievePassphrase:
		switch ev := e.(type) {
		case RetrievedPassphrase:
			return ValidateIntegrity{License: from.License, Status: from.Status, Passphrase: ev.Passphrase}
		case CancelledEvent:
			return Cancelled{}
		case Failed:
			return Failure{Err: ev.Err}
		}

	case ValidateIntegrity:
		switch ev := e.(type) {
		case ValidatedIntegrity:
			documents := ValidatedDocuments{License: from.License, Status: from.Status, Context: ev.Context}
			if from.Status != nil {
				if href, hasRegister := from.Status.Url("register", ""); hasRegister {
					return RegisterDevice{
						Documents: documents,
						Link:      contract.LinkView{Rel: "register", Href: href},
					}
				}
			}
			return Valid{Documents: documents}
		case Failed:
			return Failure{Err: ev.Err}
		}

	case RegisterDevice:
		switch e.(type) {
		case RegisteredDevice:
			return Valid{Documents: from.Documents}
		}

	case Valid, Failure, Cancelled:
		// Terminal: no incoming event causes a further transition.
		return from
	}

	return Failure{Err: errs.Programmer(stateName(s), eventName(e))}
}

// statusHasFresherLicense reports whether the status document's license
// link points at a license newer than the one currently held, per the
// "updated.license" timestamp both documents expose.
func statusHasFresherLicense(current contract.LicenseView, status contract.StatusView) bool {
	if !status.HasLicenseLink() {
		return false
	}
	if current == nil {
		return true
	}
	currentUpdated := current.Updated()
	if currentUpdated == nil {
		return true
	}
	return status.LicenseUpdated().After(*currentUpdated)
}
