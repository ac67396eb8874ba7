// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"fmt"

	"github.com/edrlab/lcp-client/pkg/errs"
)

// stateName and eventName give Transition's programmer-error path a
// readable label instead of a raw %T type name leaking across packages.
func stateName(s State) string {
	switch s.(type) {
	case Start:
		return "Start"
	case ValidateLicense:
		return "ValidateLicense"
	case FetchStatus:
		return "FetchStatus"
	case ValidateStatus:
		return "ValidateStatus"
	case FetchLicense:
		return "FetchLicense"
	case CheckLicenseStatus:
		return "CheckLicenseStatus"
	case RetrievePassphrase:
		return "RetrievePassphrase"
	case ValidateIntegrity:
		return "ValidateIntegrity"
	case RegisterDevice:
		return "RegisterDevice"
	case Valid:
		return "Valid"
	case Failure:
		return "Failure"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("%T", s)
	}
}

func eventName(e Event) string {
	switch e.(type) {
	case RetrievedLicenseData:
		return "RetrievedLicenseData"
	case RetrievedStatusData:
		return "RetrievedStatusData"
	case ValidatedLicense:
		return "ValidatedLicense"
	case ValidatedStatus:
		return "ValidatedStatus"
	case CheckedLicenseStatus:
		return "CheckedLicenseStatus"
	case RetrievedPassphrase:
		return "RetrievedPassphrase"
	case ValidatedIntegrity:
		return "ValidatedIntegrity"
	case RegisteredDevice:
		return "RegisteredDevice"
	case Failed:
		return "Failed"
	case CancelledEvent:
		return "CancelledEvent"
	default:
		return fmt.Sprintf("%T", e)
	}
}

// asLocalized adapts a plain error into the engine's structured error
// payload when it isn't already one, so ValidatedDocuments.StatusError
// always carries a usable message id.
func asLocalized(err error) *errs.LocalizedError {
	if err == nil {
		return nil
	}
	if le, ok := err.(*errs.LocalizedError); ok {
		return le
	}
	return errs.New(errs.KindLicenseStatus, "license.status_check_failed", map[string]any{"cause": err.Error()})
}
