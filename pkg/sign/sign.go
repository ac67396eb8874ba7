// Copyright 2023 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package sign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"math"
	"math/big"
)

// Signature is the detached signature an LCP license carries.
type Signature struct {
	Certificate []byte `json:"certificate"`
	Value       []byte `json:"value"`
	Algorithm   string `json:"algorithm"`
}

var SignatureAlgorithmRSA = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
var SignatureAlgorithmECDSA = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"

// Signer signs any JSON-marshalable structure. The client never ships this
// to a server; it exists so tests can produce a validly signed fixture
// license without an external signing tool.
type Signer interface {
	Sign(interface{}) (Signature, error)
}

// NewSigner returns a signer for the certificate's key type (RSA or ECDSA,
// both hashed with SHA-256).
func NewSigner(cert *tls.Certificate) (Signer, error) {
	switch privKey := cert.PrivateKey.(type) {
	case *ecdsa.PrivateKey:
		return &ecdsaSigner{privKey, cert}, nil
	case *rsa.PrivateKey:
		return &rsaSigner{privKey, cert}, nil
	}
	return nil, errors.New("unsupported certificate type")
}

type ecdsaSigner struct {
	key  *ecdsa.PrivateKey
	cert *tls.Certificate
}

// copyWithLeftPad fills the resulting output according to the XMLDSIG spec.
func copyWithLeftPad(dest, src []byte) {
	numPaddingBytes := len(dest) - len(src)
	for i := 0; i < numPaddingBytes; i++ {
		dest[i] = 0
	}
	copy(dest[numPaddingBytes:], src)
}

func (signer *ecdsaSigner) Sign(in interface{}) (sig Signature, err error) {
	canon, err := Canon(in)
	if err != nil {
		return
	}

	hash := sha256.Sum256(canon)
	r, s, err := ecdsa.Sign(rand.Reader, signer.key, hash[:])
	if err != nil {
		return
	}

	curveSizeInBytes := int(math.Ceil(float64(signer.key.Curve.Params().BitSize) / 8))

	sig.Value = make([]byte, 2*curveSizeInBytes)
	copyWithLeftPad(sig.Value[0:curveSizeInBytes], r.Bytes())
	copyWithLeftPad(sig.Value[curveSizeInBytes:], s.Bytes())

	sig.Algorithm = SignatureAlgorithmECDSA
	sig.Certificate = signer.cert.Certificate[0]
	return
}

type rsaSigner struct {
	key  *rsa.PrivateKey
	cert *tls.Certificate
}

func (signer *rsaSigner) Sign(in interface{}) (sig Signature, err error) {
	canon, err := Canon(in)
	if err != nil {
		return
	}

	hash := sha256.Sum256(canon)
	sig.Value, err = rsa.SignPKCS1v15(rand.Reader, signer.key, crypto.SHA256, hash[:])
	if err != nil {
		return
	}

	sig.Algorithm = SignatureAlgorithmRSA
	sig.Certificate = signer.cert.Certificate[0]
	return
}

// SignChecker verifies a signature produced by Signer. The license's embedded
// signature must be nulled out by the caller before Check is invoked —
// Check re-canonicalizes the structure exactly as Sign did.
type SignChecker interface {
	Check(interface{}, []byte) error
}

// NewSignChecker builds a checker from the provider certificate embedded in
// the license signature.
func NewSignChecker(certData []byte, certType string) (SignChecker, error) {
	cert, err := x509.ParseCertificate(certData)
	if err != nil {
		return nil, errors.New("failed to parse the certificate")
	}

	switch pubKey := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		if certType != SignatureAlgorithmECDSA {
			return nil, errors.New("invalid signature algorithm; ECDSA was expected")
		}
		return &ecdsaSignChecker{pubKey}, nil
	case *rsa.PublicKey:
		if certType != SignatureAlgorithmRSA {
			return nil, errors.New("invalid signature algorithm; RSA was expected")
		}
		return &rsaSignChecker{pubKey}, nil
	}

	return nil, errors.New("unsupported certificate type")
}

type ecdsaSignChecker struct {
	key *ecdsa.PublicKey
}

func (checker *ecdsaSignChecker) Check(in interface{}, signature []byte) (err error) {
	plain, err := Canon(in)
	if err != nil {
		return
	}

	hash := sha256.Sum256(plain)

	r := new(big.Int).SetBytes(signature[:len(signature)/2])
	s := new(big.Int).SetBytes(signature[len(signature)/2:])

	if !ecdsa.Verify(checker.key, hash[:], r, s) {
		return errors.New("failed to verify the signature")
	}
	return nil
}

type rsaSignChecker struct {
	key *rsa.PublicKey
}

func (checker *rsaSignChecker) Check(in interface{}, signature []byte) (err error) {
	canon, err := Canon(in)
	if err != nil {
		return
	}

	hash := sha256.Sum256(canon)

	return rsa.VerifyPKCS1v15(checker.key, crypto.SHA256, hash[:], signature)
}
