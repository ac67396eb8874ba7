// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package crypto

import (
	"encoding/hex"
	"errors"

	"github.com/edrlab/lcp-client/pkg/doc"
)

// GenerateUserKey turns the hex-encoded SHA-256 of a candidate passphrase
// into the raw key bytes used to open a license's key_check and content
// key, adapted from the reference server's lic.GenerateUserKey. The server
// only ever issues basic-profile licenses and rejects anything else; a
// client has to open both profiles this engine recognizes (doc.ProfileBasic
// and doc.Profile10 derive the user key identically; beyond this check the
// profile is not consulted by this package).
func GenerateUserKey(profile, passhash string) ([]byte, error) {
	if !doc.SupportedProfiles[profile] {
		return nil, errors.New("incorrect license profile, failed to decode the user passphrase")
	}
	value, err := hex.DecodeString(passhash)
	if err != nil {
		return nil, errors.New("failed to decode the user passphrase")
	}
	return value, nil
}
