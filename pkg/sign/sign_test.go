// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package sign

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

type payload struct {
	B int    `json:"b"`
	A string `json:"a"`
}

func TestCanonSortsKeysRegardlessOfFieldOrder(t *testing.T) {
	out, err := Canon(payload{B: 2, A: "x"})
	if err != nil {
		t.Fatalf("Canon: %v", err)
	}
	if string(out) != `{"a":"x","b":2}` {
		t.Errorf("Canon = %s, want keys sorted alphabetically", out)
	}
}

func TestCanonDoesNotEscapeHTML(t *testing.T) {
	out, err := Canon(map[string]string{"url": "https://a.example/x?y=1&z=2"})
	if err != nil {
		t.Fatalf("Canon: %v", err)
	}
	if string(out) != `{"url":"https://a.example/x?y=1&z=2"}` {
		t.Errorf("Canon = %s, want the ampersand left unescaped", out)
	}
}

func ecdsaCert(t *testing.T) *tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"Test Provider"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func rsaCert(t *testing.T) *tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"Test Provider"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return &tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestECDSASignAndCheckRoundTrip(t *testing.T) {
	cert := ecdsaCert(t)
	signer, err := NewSigner(cert)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := signer.Sign(payload{A: "x", B: 1})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	checker, err := NewSignChecker(sig.Certificate, sig.Algorithm)
	if err != nil {
		t.Fatalf("NewSignChecker: %v", err)
	}
	if err := checker.Check(payload{A: "x", B: 1}, sig.Value); err != nil {
		t.Errorf("Check rejected a genuine signature: %v", err)
	}
}

func TestECDSACheckRejectsATamperedPayload(t *testing.T) {
	cert := ecdsaCert(t)
	signer, err := NewSigner(cert)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	sig, err := signer.Sign(payload{A: "x", B: 1})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	checker, err := NewSignChecker(sig.Certificate, sig.Algorithm)
	if err != nil {
		t.Fatalf("NewSignChecker: %v", err)
	}
	if err := checker.Check(payload{A: "x", B: 2}, sig.Value); err == nil {
		t.Error("Check accepted a signature over different content")
	}
}

func TestRSASignAndCheckRoundTrip(t *testing.T) {
	cert := rsaCert(t)
	signer, err := NewSigner(cert)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := signer.Sign(payload{A: "x", B: 1})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig.Algorithm != SignatureAlgorithmRSA {
		t.Errorf("Algorithm = %q, want RSA", sig.Algorithm)
	}

	checker, err := NewSignChecker(sig.Certificate, sig.Algorithm)
	if err != nil {
		t.Fatalf("NewSignChecker: %v", err)
	}
	if err := checker.Check(payload{A: "x", B: 1}, sig.Value); err != nil {
		t.Errorf("Check rejected a genuine signature: %v", err)
	}
}

func TestNewSignCheckerRejectsAMismatchedAlgorithmLabel(t *testing.T) {
	cert := ecdsaCert(t)
	signer, err := NewSigner(cert)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	sig, err := signer.Sign(payload{A: "x", B: 1})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := NewSignChecker(sig.Certificate, SignatureAlgorithmRSA); err == nil {
		t.Error("NewSignChecker accepted an ECDSA certificate labeled RSA")
	}
}
