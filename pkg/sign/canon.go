// Copyright 2023 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package sign

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Canon produces a canonical JSON encoding of in: marshal, reify through an
// untyped map (which sorts keys), then re-encode without HTML escaping. Both
// Signer.Sign and SignChecker.Check run the bytes they hash through this, so
// a license survives re-marshalling with a stable signature.
func Canon(in interface{}) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return b, err
	}

	var jsonObj interface{}

	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	for {
		if err := dec.Decode(&jsonObj); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonObj); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
