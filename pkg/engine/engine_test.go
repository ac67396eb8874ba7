// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/errs"
)

const basicProfile = "http://readium.org/lcp/basic-profile"

func parseLicenseReturning(l contract.LicenseView) contract.LicenseParser {
	return func(raw []byte) (contract.LicenseView, error) { return l, nil }
}

func parseStatusReturning(s contract.StatusView) contract.StatusParser {
	return func(raw []byte) (contract.StatusView, error) { return s, nil }
}

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(t time.Time) *time.Time { return &t }

// runOnce drives e to completion and returns its single terminal
// notification, failing the test if it is notified more or less than once.
func runOnce(t *testing.T, e *Engine, ctx context.Context, input contract.Input) (docs *ValidatedDocuments, err error) {
	t.Helper()
	calls := 0
	e.Validate(ctx, input, func(d *ValidatedDocuments, e error) {
		calls++
		docs, err = d, e
	})
	if calls != 1 {
		t.Fatalf("observer invoked %d times, want exactly 1", calls)
	}
	return docs, err
}

// --- Scenario 1: happy path, basic profile. ---

func TestScenarioHappyPathBasicProfile(t *testing.T) {
	license := fakeLicense{
		id:      "lic-1",
		profile: basicProfile,
		start:   timePtr(mustTime("2024-01-01")),
		end:     timePtr(mustTime("2030-01-01")),
		updated: timePtr(mustTime("2024-01-01")),
		links:   map[string]string{"status": "https://status.example/lic-1"},
	}
	status := fakeStatus{status: "active", statusUpdated: time.Now()}

	onValidatedCalls := 0
	cfg := Config{
		Network:        funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) { return []byte("status-doc"), nil }),
		Crl:            funcCrl(func(ctx context.Context) ([]byte, error) { return []byte("crl"), nil }),
		Device:         funcDevice(func(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error) { return nil, nil }),
		Passphrases:    funcPassphrases(func(ctx context.Context, l contract.LicenseView, a contract.Authentication, allow bool, sender any) (string, error) { return "hunter2", nil }),
		Lcp:            fakeLcp{wantPassphrase: "hunter2"},
		ParseLicense:   parseLicenseReturning(license),
		ParseStatus:    parseStatusReturning(status),
		OnLicenseValidated: func(contract.LicenseView) { onValidatedCalls++ },
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || !docs.IsUsable() {
		t.Fatalf("expected a usable outcome, got %+v", docs)
	}
	if docs.Context != "drm-context" {
		t.Errorf("Context = %v, want drm-context", docs.Context)
	}
	if docs.Status == nil {
		t.Error("expected the status document to be attached")
	}
	if onValidatedCalls != 1 {
		t.Errorf("onLicenseValidated called %d times, want 1", onValidatedCalls)
	}
}

// --- Scenario 2: expired license, no status. ---

func TestScenarioExpiredLicenseNoStatus(t *testing.T) {
	license := fakeLicense{
		id:      "lic-2",
		profile: basicProfile,
		end:     timePtr(mustTime("2020-01-01")),
		updated: timePtr(mustTime("2019-01-01")),
		links:   map[string]string{"status": "https://status.example/lic-2"},
	}

	passphraseCalled := false
	cfg := Config{
		Network:      funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) { return nil, errors.New("i/o timeout") }),
		Crl:          funcCrl(func(ctx context.Context) ([]byte, error) { return nil, nil }),
		Passphrases:  funcPassphrases(func(ctx context.Context, l contract.LicenseView, a contract.Authentication, allow bool, sender any) (string, error) { passphraseCalled = true; return "x", nil }),
		Lcp:          fakeLcp{},
		ParseLicense: parseLicenseReturning(license),
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || docs.IsUsable() {
		t.Fatalf("expected an unusable outcome, got %+v", docs)
	}
	if docs.StatusError.Reason != errs.ReasonExpired {
		t.Errorf("Reason = %v, want %v", docs.StatusError.Reason, errs.ReasonExpired)
	}
	if passphraseCalled {
		t.Error("passphrase collaborator must not be consulted for an unusable license")
	}
}

// --- Scenario 3: revoked license, within its time window. ---

func TestScenarioRevokedLicenseWithinWindow(t *testing.T) {
	license := fakeLicense{
		id:      "lic-3",
		profile: basicProfile,
		start:   timePtr(time.Now().Add(-24 * time.Hour)),
		end:     timePtr(time.Now().Add(24 * time.Hour)),
		updated: timePtr(time.Now().Add(-24 * time.Hour)),
		links:   map[string]string{"status": "https://status.example/lic-3"},
	}
	statusUpdated := mustTime("2024-06-01")
	status := fakeStatus{
		status:        "revoked",
		statusUpdated: statusUpdated,
		events: map[string][]contract.EventView{
			"register": {{Type: "register"}, {Type: "register"}, {Type: "register"}},
		},
	}

	cfg := Config{
		Network:      funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) { return []byte("status-doc"), nil }),
		ParseLicense: parseLicenseReturning(license),
		ParseStatus:  parseStatusReturning(status),
		Lcp:          fakeLcp{},
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || docs.IsUsable() {
		t.Fatalf("expected an unusable outcome, got %+v", docs)
	}
	if docs.StatusError.Reason != errs.ReasonRevoked {
		t.Fatalf("Reason = %v, want %v", docs.StatusError.Reason, errs.ReasonRevoked)
	}
	if !docs.StatusError.Args["at"].(time.Time).Equal(statusUpdated) {
		t.Errorf("at arg = %v, want %v", docs.StatusError.Args["at"], statusUpdated)
	}
	if docs.StatusError.Args["count"] != 3 {
		t.Errorf("count arg = %v, want 3", docs.StatusError.Args["count"])
	}
}

// --- Scenario 4: user cancels the passphrase prompt. ---

func TestScenarioUserCancelsPassphrase(t *testing.T) {
	license := fakeLicense{
		id:      "lic-4",
		profile: basicProfile,
		end:     timePtr(time.Now().Add(time.Hour)),
		links:   map[string]string{"status": "https://status.example/lic-4"},
	}
	status := fakeStatus{status: "active", statusUpdated: time.Now()}

	onValidatedCalls := 0
	cfg := Config{
		Network:            funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) { return []byte("status-doc"), nil }),
		Passphrases:        funcPassphrases(func(ctx context.Context, l contract.LicenseView, a contract.Authentication, allow bool, sender any) (string, error) { return "", nil }),
		Lcp:                fakeLcp{},
		ParseLicense:       parseLicenseReturning(license),
		ParseStatus:        parseStatusReturning(status),
		OnLicenseValidated: func(contract.LicenseView) { onValidatedCalls++ },
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if docs != nil || err != nil {
		t.Fatalf("cancellation should notify (nil, nil), got (%+v, %v)", docs, err)
	}
	if onValidatedCalls != 1 {
		t.Errorf("onLicenseValidated called %d times, want 1 (it fires before the prompt)", onValidatedCalls)
	}
}

// --- Scenario 5: unsupported profile, development (non-production) build. ---

func TestScenarioUnsupportedProfileDevelopmentBuild(t *testing.T) {
	license := fakeLicense{id: "lic-5", profile: "http://readium.org/lcp/profile-2.0"}

	onValidatedCalls := 0
	cfg := Config{
		Production:         false,
		ParseLicense:       parseLicenseReturning(license),
		OnLicenseValidated: func(contract.LicenseView) { onValidatedCalls++ },
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if docs != nil {
		t.Fatalf("expected no documents on failure, got %+v", docs)
	}
	var localized *errs.LocalizedError
	if !errors.As(err, &localized) || localized.Kind != errs.KindLicenseProfileNotSupported {
		t.Fatalf("err = %v, want KindLicenseProfileNotSupported", err)
	}
	if onValidatedCalls != 0 {
		t.Error("onLicenseValidated must not fire when the profile is rejected")
	}
}

// --- Scenario 6: fresher license via status, exactly one refresh. ---

func TestScenarioFresherLicenseViaStatus(t *testing.T) {
	initial := fakeLicense{
		id:      "lic-6",
		profile: basicProfile,
		end:     timePtr(mustTime("2023-01-01")),
		updated: timePtr(mustTime("2022-01-01")),
		links:   map[string]string{"status": "https://status.example/lic-6"},
	}
	refreshed := fakeLicense{
		id:      "lic-6",
		profile: basicProfile,
		end:     timePtr(mustTime("2030-01-01")),
		updated: timePtr(mustTime("2025-01-01")),
	}
	status := fakeStatus{
		status:         "active",
		statusUpdated:  time.Now(),
		licenseUpdated: mustTime("2025-01-01"),
		links:          map[string]string{"license": "https://status.example/lic-6/license"},
	}

	licenseParseCount := 0
	var validatedLicenseIDs []string
	cfg := Config{
		Network: funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
			if url == "https://status.example/lic-6/license" {
				return []byte("refreshed-license-bytes"), nil
			}
			return []byte("status-doc"), nil
		}),
		Crl:         funcCrl(func(ctx context.Context) ([]byte, error) { return nil, nil }),
		Passphrases: funcPassphrases(func(ctx context.Context, l contract.LicenseView, a contract.Authentication, allow bool, sender any) (string, error) { return "hunter2", nil }),
		Lcp:         fakeLcp{wantPassphrase: "hunter2"},
		ParseLicense: func(raw []byte) (contract.LicenseView, error) {
			licenseParseCount++
			if string(raw) == "refreshed-license-bytes" {
				return refreshed, nil
			}
			return initial, nil
		},
		ParseStatus: parseStatusReturning(status),
		OnLicenseValidated: func(l contract.LicenseView) {
			validatedLicenseIDs = append(validatedLicenseIDs, l.(fakeLicense).end.String())
		},
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || !docs.IsUsable() {
		t.Fatalf("expected a usable outcome after the refresh, got %+v", docs)
	}
	if licenseParseCount != 2 {
		t.Errorf("license parsed %d times, want 2 (initial + refreshed)", licenseParseCount)
	}
	if len(validatedLicenseIDs) != 1 || validatedLicenseIDs[0] != refreshed.end.String() {
		t.Errorf("onLicenseValidated calls = %v, want exactly one call reporting the refreshed license", validatedLicenseIDs)
	}
}

// --- Scenario 7: status document offers a register link. ---

func TestScenarioRegisterDeviceOnStatusRegisterLink(t *testing.T) {
	license := fakeLicense{
		id:      "lic-7",
		profile: basicProfile,
		start:   timePtr(mustTime("2024-01-01")),
		end:     timePtr(mustTime("2030-01-01")),
		updated: timePtr(mustTime("2024-01-01")),
		links:   map[string]string{"status": "https://status.example/lic-7"},
	}
	status := fakeStatus{
		status:        "active",
		statusUpdated: time.Now(),
		links:         map[string]string{"register": "https://status.example/lic-7/register"},
	}

	registerCalls := 0
	var registeredLicenseID string
	var registeredLink contract.LinkView
	cfg := Config{
		Network: funcNetwork(func(ctx context.Context, url string, timeout time.Duration) ([]byte, error) { return []byte("status-doc"), nil }),
		Crl:     funcCrl(func(ctx context.Context) ([]byte, error) { return []byte("crl"), nil }),
		Device: funcDevice(func(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error) {
			registerCalls++
			registeredLicenseID = licenseID
			registeredLink = link
			return []byte(`{"status":"ok"}`), nil
		}),
		Passphrases:  funcPassphrases(func(ctx context.Context, l contract.LicenseView, a contract.Authentication, allow bool, sender any) (string, error) { return "hunter2", nil }),
		Lcp:          fakeLcp{wantPassphrase: "hunter2"},
		ParseLicense: parseLicenseReturning(license),
		ParseStatus:  parseStatusReturning(status),
	}

	e := NewEngine(cfg, nil)
	docs, err := runOnce(t, e, context.Background(), contract.LicenseInput([]byte("license-bytes")))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs == nil || !docs.IsUsable() {
		t.Fatalf("expected a usable outcome, got %+v", docs)
	}
	if registerCalls != 1 {
		t.Fatalf("device registration called %d times, want 1", registerCalls)
	}
	if registeredLicenseID != "lic-7" {
		t.Errorf("registered license id = %q, want lic-7", registeredLicenseID)
	}
	if registeredLink.Rel != "register" || registeredLink.Href != "https://status.example/lic-7/register" {
		t.Errorf("registered link = %+v, want the status document's register link", registeredLink)
	}
}

// --- Invariant 4: no transitions occur after a terminal state. ---

func TestNoTransitionsAfterTerminal(t *testing.T) {
	s := Transition(Valid{}, RetrievedLicenseData{Data: []byte("ignored")})
	if _, ok := s.(Valid); !ok {
		t.Errorf("Transition from a terminal state changed state to %T, want it unchanged", s)
	}
}

// --- Invariant 5: Once observers attached post-terminal fire synchronously and are not retained. ---

func TestOnceObserverAttachedAfterTerminalFiresSynchronouslyAndIsNotRetained(t *testing.T) {
	e := &Engine{state: Valid{Documents: ValidatedDocuments{License: fakeLicense{id: "x"}}}}

	calls := 0
	e.Observe(Once, func(d *ValidatedDocuments, err error) { calls++ })
	if calls != 1 {
		t.Fatalf("Once observer attached post-terminal fired %d times, want 1", calls)
	}

	// A second terminal notification (simulated) must not reach the first,
	// already-fired Once observer again.
	e.obs.notify(nil, nil)
	if calls != 1 {
		t.Errorf("Once observer retained after firing: now called %d times", calls)
	}
}

// --- Round-trip: Always observers fire on every terminal re-entry. ---

func TestAlwaysObserverFiresOnEveryNotify(t *testing.T) {
	e := &Engine{state: Valid{}}
	calls := 0
	e.Observe(Always, func(d *ValidatedDocuments, err error) { calls++ })
	e.obs.notify(nil, nil)
	e.obs.notify(nil, nil)
	if calls != 3 { // one synchronous attach + two notify calls
		t.Errorf("Always observer called %d times, want 3", calls)
	}
}

func TestIllegalEventOnNonTerminalStateFailsCleanly(t *testing.T) {
	s := Transition(Start{}, CheckedLicenseStatus{})
	f, ok := s.(Failure)
	if !ok {
		t.Fatalf("Transition with an illegal event = %T, want Failure", s)
	}
	var localized *errs.LocalizedError
	if !errors.As(f.Err, &localized) || localized.Kind != errs.KindProgrammerError {
		t.Errorf("Err = %v, want KindProgrammerError", f.Err)
	}
}
