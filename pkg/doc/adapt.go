// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package doc

import "github.com/edrlab/lcp-client/pkg/contract"

// ParseLicenseView adapts ParseLicense to contract.LicenseParser, the shape
// the engine is wired against.
func ParseLicenseView(raw []byte) (contract.LicenseView, error) {
	return ParseLicense(raw)
}

// ParseStatusView adapts ParseStatusDoc to contract.StatusParser.
func ParseStatusView(raw []byte) (contract.StatusView, error) {
	return ParseStatusDoc(raw)
}
