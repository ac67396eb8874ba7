// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package crypto implements the client-side half of the reference server's
// AES content-key scheme (pkg/crypto/aes_cbc.go in the teacher), plus the
// default contract.LcpClient built on top of it. The teacher's file only
// contained the CBC cipher itself (Encrypter/Decrypter, ContentKey and the
// generator helpers it calls were declared in a sibling file the retrieval
// pack did not keep); this package reconstructs that missing surface from
// its call sites in pkg/lic/license.go and pkg/check/checklicense.go.
package crypto

import "io"

// ContentKey is a raw symmetric key, encrypted or not depending on context.
type ContentKey []byte

// Encrypter is a named, reversible cipher over a ContentKey.
type Encrypter interface {
	Signature() string
	GenerateKey() (ContentKey, error)
	Encrypt(key ContentKey, r io.Reader, w io.Writer) error
}

// Decrypter is the inverse of Encrypter. cbcEncrypter implements both.
type Decrypter interface {
	Decrypt(key ContentKey, r io.Reader, w io.Writer) error
}

// NewAESEncrypter_CONTENT_KEY returns the cipher used to wrap a publication's
// content key under the user key.
func NewAESEncrypter_CONTENT_KEY() Encrypter { return NewAESCBCEncrypter() }

// NewAESEncrypter_USER_KEY_CHECK returns the cipher used to build and verify
// the license's key_check value.
func NewAESEncrypter_USER_KEY_CHECK() Encrypter { return NewAESCBCEncrypter() }

// NewAESEncrypter_FIELDS returns the cipher used for encrypted user-info
// fields (email, name), mirroring the reference server's own three-way
// naming split. Nothing on the read-only client path decrypts a user-info
// field today, so this constructor has no caller outside crypto_test.go.
func NewAESEncrypter_FIELDS() Encrypter { return NewAESCBCEncrypter() }
