package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// codeVerifierBytes is the number of random bytes behind a code verifier.
// 64 bytes (512 bits) encodes to an 86 character string, comfortably above
// the RFC 7636 minimum of 43 characters.
const codeVerifierBytes = 64

// GenerateCodeVerifier returns a fresh cryptographically random PKCE code
// verifier, URL-safe base64 without padding.
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, codeVerifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateCodeChallenge derives the S256 challenge for a verifier:
// base64url-without-padding of SHA-256 over the verifier's ASCII bytes.
// Deterministic for a given verifier.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GeneratePKCE mints a (verifier, challenge) pair for one login attempt.
func GeneratePKCE() (verifier, challenge string, err error) {
	verifier, err = GenerateCodeVerifier()
	if err != nil {
		return "", "", err
	}
	return verifier, GenerateCodeChallenge(verifier), nil
}
