package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lumera/academy/pkg/iam"
)

// VerifierConfig configures bearer token verification against the IdP
type VerifierConfig struct {
	// Issuer is the expected iss claim (the realm URL)
	Issuer string

	// JWKSURL is the realm's certs endpoint
	JWKSURL string

	// CacheTTL bounds how long a fetched key set is reused (default 5m)
	CacheTTL time.Duration

	HTTPClient *http.Client
}

// Verifier validates RS256 access tokens against the IdP's published JWKS.
// The key set is cached; an unknown kid forces one refresh, which covers
// IdP-side key rotation.
type Verifier struct {
	cfg    VerifierConfig
	client *http.Client
	parser *jwt.Parser

	mu      sync.RWMutex
	keys    jose.JSONWebKeySet
	fetched time.Time
}

// NewVerifier creates a verifier with sane defaults
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		cfg:    cfg,
		client: client,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithLeeway(30*time.Second),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks signature, issuer and lifetime, returning the raw claims for
// the mapper. Any failure is reported as an invalid-token error.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (jwt.MapClaims, error) {
	if rawToken == "" {
		return nil, iam.ErrInvalidToken()
	}

	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)

		key := v.lookupKey(kid)
		if key == nil {
			if err := v.refreshKeys(ctx); err != nil {
				return nil, err
			}
			key = v.lookupKey(kid)
		}
		if key == nil {
			return nil, fmt.Errorf("signing key %q not found", kid)
		}
		return key.Key, nil
	})
	if err != nil {
		return nil, iam.ErrInvalidToken().WithCause(err)
	}
	if !token.Valid {
		return nil, iam.ErrInvalidToken()
	}
	return claims, nil
}

func (v *Verifier) lookupKey(kid string) *jose.JSONWebKey {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if time.Since(v.fetched) > v.cfg.CacheTTL {
		return nil
	}
	for i := range v.keys.Keys {
		k := v.keys.Keys[i]
		if kid == "" || k.KeyID == kid {
			return &k
		}
	}
	return nil
}

func (v *Verifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}

	v.mu.Lock()
	v.keys = set
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}
