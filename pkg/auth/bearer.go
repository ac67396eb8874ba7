// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package auth implements the default contract.Authentication, a bearer
// token the client already holds from a prior login against the status
// server's session endpoint (cmd/lcpserver/authenticator.go in the
// reference server). A client never signs tokens, only carries and checks
// one, so this is the inverse half of that file: parsing and local expiry
// checking, never issuance.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the reference server's login Claims shape closely enough
// to read the fields a client cares about.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// BearerAuthentication implements contract.Authentication by formatting a
// previously issued JWT as an Authorization header, refusing to do so once
// the token has locally expired.
type BearerAuthentication struct {
	Token string
}

// Header implements contract.Authentication.
func (b BearerAuthentication) Header() (string, error) {
	if b.Token == "" {
		return "", errors.New("no session token available")
	}

	claims := &Claims{}
	// The client holds no verification key for a token it didn't sign; it
	// only needs to read the expiry, so parsing is intentionally
	// unverified rather than a ParseWithClaims call against a secret.
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(b.Token, claims); err != nil {
		return "", fmt.Errorf("malformed session token: %w", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", errors.New("session token has expired")
	}

	return "Bearer " + b.Token, nil
}
