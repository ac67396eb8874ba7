// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package crypto

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/doc"
	log "github.com/sirupsen/logrus"
)

// Context is the concrete contract.DrmContext a successful ValidateIntegrity
// hands back to the caller: the unwrapped publication content key, and the
// CRL blob it was created with. CreateContext stores the CRL as given; it
// does not check the provider certificate against it.
type Context struct {
	ContentKey []byte
	CRL        []byte
}

// DefaultLcpClient is the in-process contract.LcpClient implementation, the
// client-side mirror of the reference server's pkg/check.LicenseChecker
// passphrase and signature checks (checklicense.go), adapted to return the
// content key instead of only logging pass/fail. A production client
// normally delegates to a native LCP library instead; this implementation
// exists so the engine is runnable and testable without one.
type DefaultLcpClient struct {
	// Roots holds the certificate authorities a provider certificate must
	// chain to. When nil, certificate-chain verification is skipped and
	// only the license's own detached signature is checked. The reference
	// server embeds a fixed EDRLab CA bundle (pkg/check/data/cacert-*.pem);
	// those files are operational secrets absent from this module's
	// retrieval pack, so the roots are supplied by deployment configuration
	// instead (see pkg/conf).
	Roots *x509.CertPool
}

// NewDefaultLcpClient builds a DefaultLcpClient trusting roots, or no roots
// at all when roots is nil.
func NewDefaultLcpClient(roots *x509.CertPool) *DefaultLcpClient {
	return &DefaultLcpClient{Roots: roots}
}

// CreateContext implements contract.LcpClient.
func (c *DefaultLcpClient) CreateContext(rawJSON []byte, passphrase string, crl []byte) (contract.DrmContext, error) {
	license, err := doc.ParseLicense(rawJSON)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	userKey, err := c.verifyPassphrase(license, passphrase)
	if err != nil {
		return nil, err
	}

	if err := license.CheckSignature(); err != nil {
		return nil, fmt.Errorf("signature check failed: %w", err)
	}

	if c.Roots != nil {
		if err := verifyCertificateChain(license.Signature.Certificate, c.Roots); err != nil {
			return nil, fmt.Errorf("certificate chain check failed: %w", err)
		}
	} else {
		log.Warn("no trusted roots configured, skipping certificate chain verification")
	}

	contentKey, err := decryptContentKey(license, userKey)
	if err != nil {
		return nil, fmt.Errorf("content key decryption failed: %w", err)
	}

	return &Context{ContentKey: contentKey, CRL: crl}, nil
}

// FindOneValidPassphrase implements contract.LcpClient, trying each
// candidate's key_check in turn and returning the first that opens the
// license.
func (c *DefaultLcpClient) FindOneValidPassphrase(rawJSON []byte, candidates []string) (string, bool) {
	license, err := doc.ParseLicense(rawJSON)
	if err != nil {
		return "", false
	}
	for _, candidate := range candidates {
		if _, err := c.verifyPassphrase(license, candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// verifyPassphrase regenerates the user key from passphrase and checks it
// against the license's key_check, returning the user key on success.
func (c *DefaultLcpClient) verifyPassphrase(license *doc.License, passphrase string) ([]byte, error) {
	keycheck := license.Encryption.UserKey.Keycheck
	if len(keycheck) != 64 {
		return nil, fmt.Errorf("key_check is %d bytes long, should be 64", len(keycheck))
	}

	hash := sha256.Sum256([]byte(passphrase))
	passhash := hex.EncodeToString(hash[:])

	userKey, err := GenerateUserKey(license.Profile(), passhash)
	if err != nil {
		return nil, err
	}

	decrypter, ok := NewAESEncrypter_USER_KEY_CHECK().(Decrypter)
	if !ok {
		return nil, errors.New("failed to create a decrypter")
	}
	var result bytes.Buffer
	if err := decrypter.Decrypt(ContentKey(userKey), bytes.NewReader(keycheck), &result); err != nil {
		return nil, err
	}

	if result.String() != license.ID() {
		return nil, errors.New("incorrect passphrase")
	}
	return userKey, nil
}

// decryptContentKey unwraps the publication content key under the user key.
func decryptContentKey(license *doc.License, userKey []byte) ([]byte, error) {
	encrypted := license.Encryption.ContentKey.Value
	if len(encrypted) == 0 {
		return nil, errors.New("license carries no content key")
	}

	decrypter, ok := NewAESEncrypter_CONTENT_KEY().(Decrypter)
	if !ok {
		return nil, errors.New("failed to create a decrypter")
	}
	var result bytes.Buffer
	if err := decrypter.Decrypt(ContentKey(userKey), bytes.NewReader(encrypted), &result); err != nil {
		return nil, err
	}
	return result.Bytes(), nil
}

// verifyCertificateChain checks that the provider certificate embedded in
// the license signature chains to one of roots.
func verifyCertificateChain(certData []byte, roots *x509.CertPool) error {
	cert, err := x509.ParseCertificate(certData)
	if err != nil {
		return fmt.Errorf("failed to parse the certificate: %w", err)
	}
	_, err = cert.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}})
	return err
}
