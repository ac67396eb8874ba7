// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package netclient implements the default, HTTP-based
// contract.Network/CrlService/DeviceService collaborators, grounded on the
// reference server's pkg/check/checker.go getJson/CheckResource (a timed
// http.Client, problem-details decoding on non-200 responses).
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// ErrResponse is the problem-details shape an LCP status server returns on
// error, matching the reference server's pkg/check.ErrResponse.
type ErrResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
}

// HTTPNetwork is the default contract.Network: one http.Client shared
// across fetches, a fresh context deadline per call.
type HTTPNetwork struct {
	Client *http.Client
}

// NewHTTPNetwork returns an HTTPNetwork with a plain client that sets no
// Timeout of its own; each Fetch is bounded only by the context deadline
// built from the timeout passed to it.
func NewHTTPNetwork() *HTTPNetwork {
	return &HTTPNetwork{Client: &http.Client{}}
}

// Fetch implements contract.Network.
func (n *HTTPNetwork) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return n.fetch(ctx, url, timeout, "")
}

// FetchAuthenticated implements contract.AuthenticatedNetwork: it asks auth
// for a header and attaches it before issuing the request. A header that
// can't be produced (no token configured, or an expired one) is logged and
// the fetch proceeds unauthenticated rather than failing outright, since
// not every status/device endpoint requires a session.
func (n *HTTPNetwork) FetchAuthenticated(ctx context.Context, url string, timeout time.Duration, auth contract.Authentication) ([]byte, error) {
	header, err := auth.Header()
	if err != nil {
		log.WithError(err).Debug("no authentication header available, fetching without one")
		header = ""
	}
	return n.fetch(ctx, url, timeout, header)
}

func (n *HTTPNetwork) fetch(ctx context.Context, url string, timeout time.Duration, authHeader string) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, problemError(resp.StatusCode, body, url)
	}
	return body, nil
}

// problemError decodes the server's problem-details body, if any, and logs
// it, mirroring getJson's non-200 handling in the reference server.
func problemError(status int, body []byte, url string) error {
	var errResp ErrResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		log.WithField("url", url).WithField("status", status).
			Warn("non-200 response without a decodable problem-details body")
		return fmt.Errorf("fetch %s: unexpected status %d", url, status)
	}
	log.WithField("url", url).WithField("status", status).WithField("title", errResp.Title).
		Warn("server returned a problem-details response")
	return fmt.Errorf("fetch %s: %s (status %d)", url, errResp.Title, status)
}

// HTTPCrl retrieves the certificate revocation list blob from a fixed URL
// through a Network collaborator, rather than opening its own transport,
// so CRL retrieval honors the same timeout and problem-details handling as
// every other fetch. A CRL is large and slow-changing relative to a single
// process lifetime, so the first successful fetch is cached in memory and
// reused by every later ValidateIntegrity, rather than re-fetched per call.
type HTTPCrl struct {
	Network contract.Network
	URL     string

	// Timeout overrides contract.FetchTimeout for this fetch; zero keeps
	// the default.
	Timeout time.Duration

	mu     sync.Mutex
	cached []byte
}

// Retrieve implements contract.CrlService.
func (c *HTTPCrl) Retrieve(ctx context.Context) ([]byte, error) {
	if c.URL == "" {
		return nil, errors.New("no CRL url configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil {
		return c.cached, nil
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = contract.FetchTimeout
	}
	data, err := c.Network.Fetch(ctx, c.URL, timeout)
	if err != nil {
		return nil, err
	}
	c.cached = data
	return data, nil
}

// postJSON POSTs body and decodes a JSON or raw-bytes response, shared by
// the default DeviceService implementation. authHeader is attached as-is
// when non-empty.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, authHeader string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, problemError(resp.StatusCode, respBody, url)
	}
	return respBody, nil
}
