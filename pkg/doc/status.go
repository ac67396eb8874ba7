// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package doc

import (
	"time"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// StatusDoc is the parsed form of an LCP License Status Document. Field
// shapes mirror the reference server's pkg/lic/status_doc.go StatusDoc,
// trimmed of the server-side Register/Renew/Return/Revoke mutators.
type StatusDoc struct {
	raw []byte

	ID              string           `json:"id"`
	StatusValue     string           `json:"status"`
	Message         string           `json:"message"`
	Updated         Updated          `json:"updated"`
	Links           []Link           `json:"links"`
	PotentialRights *PotentialRights `json:"potential_rights,omitempty"`
	EventList       []Event          `json:"events,omitempty"`
}

type Updated struct {
	License time.Time `json:"license"`
	Status  time.Time `json:"status"`
}

type PotentialRights struct {
	End *time.Time `json:"end,omitempty"`
}

// Event is one status-document event entry (register/renew/return/revoke).
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	DeviceName string    `json:"name"`
	DeviceID   string    `json:"id"`
}

// Status value constants, matching the reference server's stor package.
const (
	StatusReady     = "ready"
	StatusActive    = "active"
	StatusRevoked   = "revoked"
	StatusReturned  = "returned"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// ParseStatusDoc validates raw bytes against the embedded status schema and
// unmarshals them into a StatusDoc.
func ParseStatusDoc(raw []byte) (*StatusDoc, error) {
	if err := validateStatusSchema(raw); err != nil {
		return nil, err
	}
	s := new(StatusDoc)
	if err := unmarshalStrict(raw, s); err != nil {
		return nil, err
	}
	s.raw = raw
	return s, nil
}

// RawJSON returns the exact bytes the status document was parsed from.
func (s *StatusDoc) RawJSON() []byte { return s.raw }

// Status returns the lifecycle status value.
func (s *StatusDoc) Status() string { return s.StatusValue }

// StatusUpdated returns the timestamp the status was last changed.
func (s *StatusDoc) StatusUpdated() time.Time { return s.Updated.Status }

// LicenseUpdated returns the timestamp the server last modified the license,
// which the engine's refresh decision, taken on leaving ValidateStatus,
// compares against the current license's own Updated timestamp.
func (s *StatusDoc) LicenseUpdated() time.Time { return s.Updated.License }

// Events returns every event of the given type, in document order.
func (s *StatusDoc) Events(eventType string) []contract.EventView {
	var out []contract.EventView
	for _, e := range s.EventList {
		if e.Type == eventType {
			out = append(out, contract.EventView{Type: e.Type, DeviceID: e.DeviceID, Timestamp: e.Timestamp})
		}
	}
	return out
}

// Url resolves the href of the first link matching rel, unexpanded. The
// engine reads the "license" link (to fetch a fresher license) and the
// "register" link (handed to the DeviceService) this way; see the Url doc
// comment on License.
func (s *StatusDoc) Url(rel, preferredType string) (string, bool) {
	link, ok := findLink(s.Links, rel, preferredType)
	if !ok {
		return "", false
	}
	return link.Href, true
}

// Link returns the raw link matching rel, unexpanded.
func (s *StatusDoc) Link(rel string) (Link, bool) {
	return findLink(s.Links, rel, "")
}

// HasLicenseLink reports whether this status document links to a fresher
// license.
func (s *StatusDoc) HasLicenseLink() bool {
	_, ok := s.Link("license")
	return ok
}
