// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/errs"
)

// The LCP profile URIs and status values the engine reasons about are
// protocol literals (spec.md §4.4/§3), not parser output; the engine
// depends only on pkg/contract, never on a concrete document package, so
// they are declared locally rather than imported from pkg/doc.
const (
	profileBasic = "http://readium.org/lcp/basic-profile"
	profile10    = "http://readium.org/lcp/profile-1.0"

	statusTypeLicense = "application/vnd.readium.lcp.license.v1.0+json"
	statusTypeStatus  = "application/vnd.readium.license.status.v1.0+json"
)

var supportedProfiles = map[string]bool{
	profileBasic: true,
	profile10:    true,
}

// Config supplies the collaborators and parameters the side-effect handler
// needs. It is passed explicitly to RunEffect on every call rather than
// embedded as a back-pointer on the engine (design note, spec.md §9).
type Config struct {
	Network        contract.Network
	Crl            contract.CrlService
	Device         contract.DeviceService
	Passphrases    contract.PassphrasesService
	Lcp            contract.LcpClient
	Authentication contract.Authentication

	AllowUserInteraction bool
	Sender               any

	ParseLicense contract.LicenseParser
	ParseStatus  contract.StatusParser

	OnLicenseValidated func(contract.LicenseView)

	// Production is the build-time flag described in spec.md §9 as a
	// replacement for the bundled-test-license probe: true defers the
	// profile check from license parse time to integrity validation,
	// false enforces the basic profile immediately.
	Production bool

	// NetworkTimeout overrides contract.FetchTimeout's default 5s budget
	// for every status/license fetch this engine triggers; zero keeps the
	// default.
	NetworkTimeout time.Duration
}

// run carries per-validation-run state the effect handler must not leak
// across separate Validate calls on the same engine: only whether
// onLicenseValidated has already fired this run.
type run struct {
	validatedOnce bool
}

// RunEffect performs the side effect associated with entering state s and
// returns the event it raises, spec.md §4.4. Terminal states return nil:
// the driving loop (engine.go) notifies observers instead of dispatching
// further.
func RunEffect(ctx context.Context, cfg *Config, r *run, s State) Event {
	switch st := s.(type) {

	case ValidateLicense:
		return effectValidateLicense(cfg, r, st)

	case FetchStatus:
		return effectFetch(ctx, cfg, st.License, "status", statusTypeStatus, func(data []byte) Event {
			return RetrievedStatusData{Data: data, License: st.License}
		})

	case ValidateStatus:
		status, err := cfg.ParseStatus(st.Data)
		if err != nil {
			return Failed{Err: errs.Malformed(err)}
		}
		return ValidatedStatus{Status: status}

	case FetchLicense:
		return effectFetch(ctx, cfg, st.Status, "license", statusTypeLicense, func(data []byte) Event {
			return RetrievedLicenseData{Data: data}
		})

	case CheckLicenseStatus:
		// A status-driven refresh (FetchLicense -> ValidateLicense) can
		// re-enter ValidateLicense once per run; CheckLicenseStatus is the
		// first state every such path funnels back through before
		// RetrievePassphrase, so firing the callback here — rather than in
		// ValidateLicense itself — guarantees it reports the final,
		// possibly-refreshed license exactly once (spec.md §9).
		if !r.validatedOnce {
			r.validatedOnce = true
			if cfg.OnLicenseValidated != nil {
				cfg.OnLicenseValidated(st.License)
			}
		}
		return CheckedLicenseStatus{Err: checkLicenseStatus(st)}

	case RetrievePassphrase:
		return effectRetrievePassphrase(ctx, cfg, st)

	case ValidateIntegrity:
		return effectValidateIntegrity(ctx, cfg, st)

	case RegisterDevice:
		return effectRegisterDevice(ctx, cfg, st)

	case Valid, Failure, Cancelled:
		return nil
	}
	return Failed{Err: errs.Programmer(stateName(s), "effect")}
}

func effectValidateLicense(cfg *Config, r *run, st ValidateLicense) Event {
	license, err := cfg.ParseLicense(st.Data)
	if err != nil {
		return Failed{Err: errs.Malformed(err)}
	}

	if !cfg.Production && license.Profile() != profileBasic {
		return Failed{Err: errs.ProfileNotSupported(license.Profile())}
	}

	return ValidatedLicense{License: license}
}

// linkResolver is the minimal surface FetchStatus and FetchLicense both
// need to resolve an outgoing link; contract.LicenseView and
// contract.StatusView both satisfy it.
type linkResolver interface {
	Url(rel, preferredType string) (string, bool)
}

func effectFetch(ctx context.Context, cfg *Config, src linkResolver, rel, preferredType string, onSuccess func([]byte) Event) Event {
	url, ok := src.Url(rel, preferredType)
	if !ok {
		return Failed{Err: errs.Network(errors.New("no " + rel + " link in document"))}
	}

	timeout := cfg.NetworkTimeout
	if timeout <= 0 {
		timeout = contract.FetchTimeout
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := fetchWithAuth(fctx, cfg.Network, cfg.Authentication, url, timeout)
	if err != nil {
		return Failed{Err: errs.Network(err)}
	}
	return onSuccess(data)
}

// fetchWithAuth attaches cfg.Authentication to the fetch when the
// configured Network supports it (spec.md §6's narrow optional
// interface), falling back to a plain Fetch for collaborators that don't
// (including every Network fake in this package's own tests).
func fetchWithAuth(ctx context.Context, network contract.Network, auth contract.Authentication, url string, timeout time.Duration) ([]byte, error) {
	if auth != nil {
		if an, ok := network.(contract.AuthenticatedNetwork); ok {
			return an.FetchAuthenticated(ctx, url, timeout, auth)
		}
	}
	return network.Fetch(ctx, url, timeout)
}

// checkLicenseStatus reconciles the license's own time window against its
// status document, spec.md §4.4. A status of returned/revoked/cancelled is
// terminal regardless of the time window (a revoked license is not usable
// just because its rights window hasn't lapsed yet); otherwise usability
// follows the window, with ready/active/expired confirming rather than
// overriding that outcome.
func checkLicenseStatus(st CheckLicenseStatus) error {
	if st.Status != nil {
		switch st.Status.Status() {
		case "returned":
			return errs.Returned(st.Status.StatusUpdated())
		case "revoked":
			return errs.Revoked(st.Status.StatusUpdated(), len(st.Status.Events("register")))
		case "cancelled":
			return errs.Cancelled(st.Status.StatusUpdated())
		}
	}

	now := time.Now()
	start := now
	if s := st.License.RightsStart(); s != nil {
		start = *s
	}
	end := now
	if e := st.License.RightsEnd(); e != nil {
		end = *e
	}

	if !now.Before(start) && !now.After(end) {
		return nil
	}

	if start.After(now) {
		return errs.NotStarted(start)
	}
	return errs.Expired(end)
}

func effectRetrievePassphrase(ctx context.Context, cfg *Config, st RetrievePassphrase) Event {
	passphrase, err := cfg.Passphrases.Request(ctx, st.License, cfg.Authentication, cfg.AllowUserInteraction, cfg.Sender)
	if err != nil {
		return Failed{Err: errs.Wrap(errs.KindNetwork, "license.passphrase_request_failed", err)}
	}
	if passphrase == "" {
		return CancelledEvent{}
	}
	return RetrievedPassphrase{Passphrase: passphrase}
}

func effectValidateIntegrity(ctx context.Context, cfg *Config, st ValidateIntegrity) Event {
	if !supportedProfiles[st.License.Profile()] {
		return Failed{Err: errs.ProfileNotSupported(st.License.Profile())}
	}

	crl, err := cfg.Crl.Retrieve(ctx)
	if err != nil {
		return Failed{Err: errs.Network(err)}
	}

	drmCtx, err := cfg.Lcp.CreateContext(st.License.RawJSON(), st.Passphrase, crl)
	if err != nil {
		return Failed{Err: errs.IntegrityFailed(err)}
	}
	return ValidatedIntegrity{Context: drmCtx}
}

func effectRegisterDevice(ctx context.Context, cfg *Config, st RegisterDevice) Event {
	data, err := registerDeviceWithAuth(ctx, cfg.Device, cfg.Authentication, st.Documents.License.ID(), st.Link)
	if err != nil {
		log.WithError(err).WithField("license_id", st.Documents.License.ID()).
			Warn("device registration failed, continuing without it")
		return RegisteredDevice{Data: nil}
	}
	return RegisteredDevice{Data: data}
}

// registerDeviceWithAuth is effectRegisterDevice's counterpart to
// fetchWithAuth: it attaches cfg.Authentication to the registration
// request when the configured DeviceService supports it.
func registerDeviceWithAuth(ctx context.Context, device contract.DeviceService, auth contract.Authentication, licenseID string, link contract.LinkView) ([]byte, error) {
	if auth != nil {
		if ad, ok := device.(contract.AuthenticatedDeviceService); ok {
			return ad.RegisterLicenseAuthenticated(ctx, licenseID, link, auth)
		}
	}
	return device.RegisterLicense(ctx, licenseID, link)
}
