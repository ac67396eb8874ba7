// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package main

import (
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/edrlab/lcp-client/pkg/conf"
	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/netclient"
)

// loadCARoots reads a PEM bundle from path and returns the pool it forms,
// or nil if path is empty: crypto.DefaultLcpClient treats a nil pool as
// "skip certificate chain verification" (see pkg/crypto/context.go on why
// this module carries no embedded bundle of its own).
func loadCARoots(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA bundle %q", path)
	}
	return pool, nil
}

func netHTTPNetwork() *netclient.HTTPNetwork {
	return netclient.NewHTTPNetwork()
}

func netHTTPCrl(network contract.Network, url string, timeout time.Duration) *netclient.HTTPCrl {
	return &netclient.HTTPCrl{Network: network, URL: url, Timeout: timeout}
}

func netHTTPDevice(cfg *conf.Config) *netclient.HTTPDevice {
	d := netclient.NewHTTPDevice(cfg.Device.ID, cfg.Device.Name)
	d.Client = &http.Client{}
	return d
}
