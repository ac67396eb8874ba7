// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package errs defines the error taxonomy raised by the validation engine.
// Every variant is a structured value carrying a localizable message id and
// args, following the reference server's problem-details convention
// (pkg/api.ErrResponse) but as a plain Go error instead of an HTTP renderer.
package errs

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Kind enumerates the taxonomy of failures the engine can raise.
type Kind string

const (
	KindLicenseProfileNotSupported Kind = "license_profile_not_supported"
	KindNetwork                    Kind = "network"
	KindLicenseStatus              Kind = "license_status"
	KindLicenseIntegrityFailed     Kind = "license_integrity_failed"
	KindContainerOpenFailed        Kind = "container_open_failed"
	KindCancelledByUser            Kind = "cancelled_by_user"
	KindProgrammerError            Kind = "programmer_error"
	KindMalformedDocument           Kind = "malformed_document"
)

// StatusReason is the sub-taxonomy for KindLicenseStatus, mirroring the
// license lifecycle states the reference server's status document exposes.
type StatusReason string

const (
	ReasonNotStarted StatusReason = "not_started"
	ReasonExpired    StatusReason = "expired"
	ReasonReturned   StatusReason = "returned"
	ReasonRevoked    StatusReason = "revoked"
	ReasonCancelled  StatusReason = "cancelled"
)

// LocalizedError is a structured, localization-ready error. MessageID
// identifies the copy to show (translation is a caller collaborator, out of
// scope here); Args carries values to interpolate; Quantity, when non-nil,
// selects a plural form; Cause wraps the underlying error, if any.
type LocalizedError struct {
	Kind      Kind
	Reason    StatusReason // only set when Kind == KindLicenseStatus
	MessageID string
	Args      map[string]any
	Quantity  *int
	Locale    language.Tag
	Cause     error
}

func (e *LocalizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.MessageID, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.MessageID)
}

func (e *LocalizedError) Unwrap() error { return e.Cause }

// New builds a bare LocalizedError with no cause.
func New(kind Kind, messageID string, args map[string]any) *LocalizedError {
	return &LocalizedError{Kind: kind, MessageID: messageID, Args: args, Locale: language.Und}
}

// Wrap builds a LocalizedError around an underlying cause.
func Wrap(kind Kind, messageID string, cause error) *LocalizedError {
	return &LocalizedError{Kind: kind, MessageID: messageID, Cause: cause, Locale: language.Und}
}

// ProfileNotSupported reports an LCP profile the engine does not support.
func ProfileNotSupported(profile string) *LocalizedError {
	return New(KindLicenseProfileNotSupported, "license.profile_not_supported", map[string]any{"profile": profile})
}

// Network reports a transport or timeout failure.
func Network(cause error) *LocalizedError {
	return Wrap(KindNetwork, "license.network_failure", cause)
}

// NotStarted reports a license whose rights window has not begun.
func NotStarted(start time.Time) *LocalizedError {
	return &LocalizedError{
		Kind: KindLicenseStatus, Reason: ReasonNotStarted,
		MessageID: "license.not_started",
		Args:      map[string]any{"start": start},
		Locale:    language.Und,
	}
}

// Expired reports a license whose rights window has ended.
func Expired(end time.Time) *LocalizedError {
	return &LocalizedError{
		Kind: KindLicenseStatus, Reason: ReasonExpired,
		MessageID: "license.expired",
		Args:      map[string]any{"end": end},
		Locale:    language.Und,
	}
}

// Returned reports a license the user returned.
func Returned(at time.Time) *LocalizedError {
	return &LocalizedError{
		Kind: KindLicenseStatus, Reason: ReasonReturned,
		MessageID: "license.returned",
		Args:      map[string]any{"at": at},
		Locale:    language.Und,
	}
}

// Revoked reports a license the provider revoked; count is the number of
// register events recorded against it, used to pick a plural form
// ("on your N devices").
func Revoked(at time.Time, count int) *LocalizedError {
	return &LocalizedError{
		Kind: KindLicenseStatus, Reason: ReasonRevoked,
		MessageID: "license.revoked",
		Args:      map[string]any{"at": at, "count": count},
		Quantity:  &count,
		Locale:    language.Und,
	}
}

// Cancelled reports a license the provider cancelled before first use.
func Cancelled(at time.Time) *LocalizedError {
	return &LocalizedError{
		Kind: KindLicenseStatus, Reason: ReasonCancelled,
		MessageID: "license.cancelled",
		Args:      map[string]any{"at": at},
		Locale:    language.Und,
	}
}

// IntegrityFailed reports a crypto-layer rejection of the
// license/passphrase/CRL combination.
func IntegrityFailed(cause error) *LocalizedError {
	return Wrap(KindLicenseIntegrityFailed, "license.integrity_failed", cause)
}

// Malformed reports a license or status document that failed schema
// validation or JSON parsing.
func Malformed(cause error) *LocalizedError {
	return Wrap(KindMalformedDocument, "license.malformed_document", cause)
}

// Programmer reports an illegal (state, event) pair — a bug in the caller or
// in the engine itself, never a user-facing condition.
func Programmer(state, event string) *LocalizedError {
	return New(KindProgrammerError, "engine.illegal_transition", map[string]any{"state": state, "event": event})
}
