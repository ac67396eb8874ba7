// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/edrlab/lcp-client/pkg/contract"
)

var errIncorrectPassphrase = errors.New("incorrect passphrase")

// fakeLicense and fakeStatus are minimal, hand-built contract.LicenseView/
// StatusView implementations so the engine's tests drive the transition
// table and effect handler without a real document parser or crypto layer.

type fakeLicense struct {
	id      string
	profile string
	start   *time.Time
	end     *time.Time
	updated *time.Time
	links   map[string]string
}

func (l fakeLicense) RawJSON() []byte        { return []byte(l.id) }
func (l fakeLicense) ID() string             { return l.id }
func (l fakeLicense) Profile() string        { return l.profile }
func (l fakeLicense) RightsStart() *time.Time { return l.start }
func (l fakeLicense) RightsEnd() *time.Time   { return l.end }
func (l fakeLicense) Updated() *time.Time     { return l.updated }
func (l fakeLicense) Url(rel, preferredType string) (string, bool) {
	href, ok := l.links[rel]
	return href, ok
}

type fakeStatus struct {
	status         string
	statusUpdated  time.Time
	licenseUpdated time.Time
	events         map[string][]contract.EventView
	links          map[string]string
}

func (s fakeStatus) Status() string            { return s.status }
func (s fakeStatus) StatusUpdated() time.Time  { return s.statusUpdated }
func (s fakeStatus) LicenseUpdated() time.Time { return s.licenseUpdated }
func (s fakeStatus) Events(eventType string) []contract.EventView {
	return s.events[eventType]
}
func (s fakeStatus) Url(rel, preferredType string) (string, bool) {
	href, ok := s.links[rel]
	return href, ok
}
func (s fakeStatus) HasLicenseLink() bool {
	_, ok := s.links["license"]
	return ok
}

// funcNetwork adapts a function to contract.Network.
type funcNetwork func(ctx context.Context, url string, timeout time.Duration) ([]byte, error)

func (f funcNetwork) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return f(ctx, url, timeout)
}

// funcCrl adapts a function to contract.CrlService.
type funcCrl func(ctx context.Context) ([]byte, error)

func (f funcCrl) Retrieve(ctx context.Context) ([]byte, error) { return f(ctx) }

// funcDevice adapts a function to contract.DeviceService.
type funcDevice func(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error)

func (f funcDevice) RegisterLicense(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error) {
	return f(ctx, licenseID, link)
}

// funcPassphrases adapts a function to contract.PassphrasesService.
type funcPassphrases func(ctx context.Context, license contract.LicenseView, auth contract.Authentication, allowUserInteraction bool, sender any) (string, error)

func (f funcPassphrases) Request(ctx context.Context, license contract.LicenseView, auth contract.Authentication, allowUserInteraction bool, sender any) (string, error) {
	return f(ctx, license, auth, allowUserInteraction, sender)
}

// fakeLcp is a contract.LcpClient that accepts only wantPassphrase and
// fails with errIncorrectPassphrase for any other, so ValidateIntegrity
// needs no real cryptography to exercise in these tests.
type fakeLcp struct {
	wantPassphrase string
}

func (l fakeLcp) CreateContext(rawJSON []byte, passphrase string, crl []byte) (contract.DrmContext, error) {
	if passphrase != l.wantPassphrase {
		return nil, errIncorrectPassphrase
	}
	return "drm-context", nil
}

func (l fakeLcp) FindOneValidPassphrase(rawJSON []byte, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == l.wantPassphrase {
			return c, true
		}
	}
	return "", false
}
