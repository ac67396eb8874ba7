// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package doc holds the client-side, read-only License and Status Document
// models the validation engine treats as opaque documents (spec.md §3). The
// struct shapes are adapted from the reference LCP server's own
// generation-side models (pkg/lic), trimmed to the fields a client ever
// reads; nothing here issues or signs a license.
package doc

import (
	"time"

	"github.com/edrlab/lcp-client/pkg/sign"
)

const (
	ContentTypeLicense = "application/vnd.readium.lcp.license.v1.0+json"
	ContentTypeStatus  = "application/vnd.readium.license.status.v1.0+json"

	ProfileBasic   = "http://readium.org/lcp/basic-profile"
	Profile10      = "http://readium.org/lcp/profile-1.0"
)

// SupportedProfiles lists the profiles ValidateIntegrity accepts (spec.md §4.4).
var SupportedProfiles = map[string]bool{
	ProfileBasic: true,
	Profile10:    true,
}

// License is the parsed form of an LCP License Document.
type License struct {
	raw []byte

	Provider   string          `json:"provider"`
	UUID       string          `json:"id"`
	Issued     time.Time       `json:"issued"`
	UpdatedAt  *time.Time      `json:"updated,omitempty"`
	Encryption Encryption      `json:"encryption"`
	Links      []Link          `json:"links,omitempty"`
	User       UserInfo        `json:"user"`
	Rights     UserRights      `json:"rights"`
	Signature  *sign.Signature `json:"signature,omitempty"`
}

type Encryption struct {
	Profile    string     `json:"profile,omitempty"`
	ContentKey ContentKey `json:"content_key,omitempty"`
	UserKey    UserKey    `json:"user_key"`
}

type Link struct {
	Rel       string `json:"rel"`
	Href      string `json:"href"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Templated bool   `json:"templated,omitempty"`
	Size      int64  `json:"length,omitempty"`
	Checksum  string `json:"hash,omitempty"`
}

type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
	Encrypted []string `json:"encrypted,omitempty"`
}

type UserRights struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Print *int32     `json:"print,omitempty"`
	Copy  *int32     `json:"copy,omitempty"`
}

type ContentKey struct {
	Algorithm string `json:"algorithm,omitempty"`
	Value     []byte `json:"encrypted_value,omitempty"`
}

type UserKey struct {
	Algorithm string `json:"algorithm,omitempty"`
	TextHint  string `json:"text_hint,omitempty"`
	Keycheck  []byte `json:"key_check,omitempty"`
}

// ParseLicense validates raw bytes against the embedded license schema and
// unmarshals them into a License. The original bytes are retained verbatim
// (RawJSON) since the crypto layer signs/verifies over the exact wire form,
// not a re-marshalled copy.
func ParseLicense(raw []byte) (*License, error) {
	if err := validateLicenseSchema(raw); err != nil {
		return nil, err
	}
	l := new(License)
	if err := unmarshalStrict(raw, l); err != nil {
		return nil, err
	}
	l.raw = raw
	return l, nil
}

// RawJSON returns the exact bytes the license was parsed from.
func (l *License) RawJSON() []byte { return l.raw }

// ID returns the license identifier.
func (l *License) ID() string { return l.UUID }

// Profile returns the encryption profile URI.
func (l *License) Profile() string { return l.Encryption.Profile }

// RightsStart returns the rights window's start, if any.
func (l *License) RightsStart() *time.Time { return l.Rights.Start }

// RightsEnd returns the rights window's end, if any.
func (l *License) RightsEnd() *time.Time { return l.Rights.End }

// Updated returns the license's own last-modified timestamp, falling back to
// its issue date when it was never updated. The engine's refresh decision,
// taken on leaving ValidateStatus, compares this against a status
// document's LicenseUpdated.
func (l *License) Updated() *time.Time {
	if l.UpdatedAt != nil {
		return l.UpdatedAt
	}
	issued := l.Issued
	return &issued
}

// Url resolves the href of the first link whose rel matches, preferring one
// whose type equals preferredType when more than one candidate exists. The
// links the engine resolves this way ("status", "hint", a status document's
// "license" link) carry no unresolved URI-template variables by the time the
// client sees them. The href is returned as written, never expanded: a
// templated register link the engine reads from a status document this way
// is handed on unexpanded, and the DeviceService fills in its device values.
func (l *License) Url(rel, preferredType string) (string, bool) {
	link, ok := findLink(l.Links, rel, preferredType)
	if !ok {
		return "", false
	}
	return link.Href, true
}

// Link returns the raw link matching rel, unexpanded.
func (l *License) Link(rel string) (Link, bool) {
	return findLink(l.Links, rel, "")
}

// findLink returns the first link matching rel, preferring a type match.
func findLink(links []Link, rel, preferredType string) (Link, bool) {
	var candidate *Link
	for i := range links {
		if links[i].Rel != rel {
			continue
		}
		if candidate == nil {
			candidate = &links[i]
		}
		if preferredType != "" && links[i].Type == preferredType {
			candidate = &links[i]
			break
		}
	}
	if candidate == nil {
		return Link{}, false
	}
	return *candidate, true
}
