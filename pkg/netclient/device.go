// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package netclient

import (
	"context"
	"net/http"

	"github.com/jtacoma/uritemplates"
	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// HTTPDevice is the default contract.DeviceService. Register/renew/return
// links in a license or status document carry unresolved URI-template
// variables ({?id,name}, RFC 6570) that only make sense once a concrete
// device id and name are known; this is the one place in the module that
// actually expands them, using the same id and name on every call so the
// status server can recognize repeat registrations as the same device.
type HTTPDevice struct {
	Client   *http.Client
	DeviceID string
	Name     string
}

// NewHTTPDevice returns an HTTPDevice identifying itself with deviceID and
// name on every registration call.
func NewHTTPDevice(deviceID, name string) *HTTPDevice {
	return &HTTPDevice{Client: &http.Client{}, DeviceID: deviceID, Name: name}
}

// RegisterLicense implements contract.DeviceService.
func (d *HTTPDevice) RegisterLicense(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error) {
	return d.registerLicense(ctx, link, "")
}

// RegisterLicenseAuthenticated implements contract.AuthenticatedDeviceService,
// attaching auth's header to the registration request on the same
// best-effort basis as HTTPNetwork.FetchAuthenticated.
func (d *HTTPDevice) RegisterLicenseAuthenticated(ctx context.Context, licenseID string, link contract.LinkView, auth contract.Authentication) ([]byte, error) {
	header, err := auth.Header()
	if err != nil {
		log.WithError(err).Debug("no authentication header available, registering without one")
		header = ""
	}
	return d.registerLicense(ctx, link, header)
}

func (d *HTTPDevice) registerLicense(ctx context.Context, link contract.LinkView, authHeader string) ([]byte, error) {
	tmpl, err := uritemplates.Parse(link.Href)
	if err != nil {
		return nil, err
	}

	url, err := tmpl.Expand(map[string]interface{}{
		"id":   d.DeviceID,
		"name": d.Name,
	})
	if err != nil {
		return nil, err
	}

	return postJSON(ctx, d.Client, url, nil, authHeader)
}
