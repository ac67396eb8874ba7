// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package doc

import (
	"errors"

	"github.com/edrlab/lcp-client/pkg/sign"
)

// CheckSignature verifies the license's own detached signature, adapted from
// the reference server's License.CheckSignature (pkg/lic/license.go): the
// embedded signature is temporarily nulled out, since it was absent from the
// structure at signing time, then restored after the check.
func (l *License) CheckSignature() error {
	if l.Signature == nil {
		return errors.New("missing signature")
	}

	signature := l.Signature
	l.Signature = nil
	defer func() { l.Signature = signature }()

	checker, err := sign.NewSignChecker(signature.Certificate, signature.Algorithm)
	if err != nil {
		return err
	}
	return checker.Check(l, signature.Value)
}
