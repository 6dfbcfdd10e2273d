package main

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// signerClaims is the manifest-submission convenience format: a
// signed claim set naming which resource addresses the transaction's
// signers hold virtual proof of, so the simulator CLI does not need
// its own signature-verification stack (out of scope per spec §1).
// This never touches consensus-critical authorization; it only seeds
// Kernel.New's initialProofResources.
type signerClaims struct {
	jwt.RegisteredClaims
	SignerResources []string `json:"signer_resources"`
}

// signerResourcesFromJWT verifies token with secret and returns the
// resource addresses it claims, or nil if token is empty.
func signerResourcesFromJWT(token, secret string) ([]string, error) {
	if token == "" {
		return nil, nil
	}
	if secret == "" {
		return nil, fmt.Errorf("signer: --jwt-secret is required when --signer-jwt is set")
	}

	claims := &signerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("signer: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("signer: parse JWT: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("signer: JWT failed validation")
	}
	return claims.SignerResources, nil
}
