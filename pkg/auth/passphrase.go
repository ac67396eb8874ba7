// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package auth

import (
	"context"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// StaticPassphraseService implements contract.PassphrasesService from a
// fixed set of candidate passphrases supplied up front, the client-side
// counterpart of the reference checker's "-passphrase" flag
// (cmd/lcpchecker). It never prompts, so AllowUserInteraction is ignored.
type StaticPassphraseService struct {
	Lcp        contract.LcpClient
	Candidates []string
}

// NewStaticPassphraseService builds a StaticPassphraseService that verifies
// each candidate against the license's key_check through lcp before
// returning it, so the engine never proceeds past RetrievePassphrase with a
// passphrase that FindOneValidPassphrase would have rejected anyway.
func NewStaticPassphraseService(lcp contract.LcpClient, candidates ...string) *StaticPassphraseService {
	return &StaticPassphraseService{Lcp: lcp, Candidates: candidates}
}

// Request implements contract.PassphrasesService.
func (s *StaticPassphraseService) Request(ctx context.Context, license contract.LicenseView, authn contract.Authentication, allowUserInteraction bool, sender any) (string, error) {
	passphrase, found := s.Lcp.FindOneValidPassphrase(license.RawJSON(), s.Candidates)
	if !found {
		return "", nil
	}
	return passphrase, nil
}
