// Package pkce produces the RFC 7636 verifier/challenge pair and the
// anti-CSRF state token used by one authorization attempt.
package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/maheshrc27/crosspost/pkg/utils"
)

const (
	MethodS256 = "S256"

	verifierBytes = 32
	stateBytes    = 16
)

func GenerateCodeVerifier() (string, error) {
	v, err := utils.GenerateRandomKey(verifierBytes)
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return v, nil
}

func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func GenerateState() (string, error) {
	s, err := utils.GenerateRandomKey(stateBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return s, nil
}
