// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package crypto

import (
	"bytes"
	"crypto/rand"
	"io"
)

// GenerateKey returns n cryptographically random bytes, the missing helper
// cbcEncrypter.GenerateKey relies on.
func GenerateKey(n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// PaddedReader wraps r so the stream it yields is always a multiple of
// blockSize, the missing helper cbcEncrypter.Encrypt relies on. When
// insertPadLengthAll is true every padding byte carries the pad count
// (PKCS#7); when false, only the final byte does and the rest are zero (the
// W3C scheme the reference encryption engine actually signs for, see
// cbcEncrypter.Signature). A full final padding block is appended even when
// the input already lands on a block boundary, so the pad count is always
// recoverable on decrypt.
func PaddedReader(r io.Reader, blockSize int, insertPadLengthAll bool) io.Reader {
	data, err := io.ReadAll(r)
	if err != nil {
		return bytes.NewReader(nil)
	}

	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)

	if insertPadLengthAll {
		for i := len(data); i < len(padded); i++ {
			padded[i] = byte(padLen)
		}
	} else {
		padded[len(padded)-1] = byte(padLen)
	}

	return bytes.NewReader(padded)
}
