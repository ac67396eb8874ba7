// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package doc

import "encoding/json"

// LooksLikeStatusDocument sniffs raw bytes to decide which of
// contract.LicenseInput/StatusInput a caller should wrap them in, without
// fully parsing or validating either shape. A License Document always
// carries a top-level "encryption" object (spec.md §3); a Status Document
// never does.
func LooksLikeStatusDocument(raw []byte) bool {
	var probe struct {
		Encryption json.RawMessage `json:"encryption"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Encryption == nil
}
