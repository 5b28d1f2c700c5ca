// Package keycloak is the outbound client for the external identity
// provider: token endpoint grants, userinfo, session revocation and the
// admin API used for registration and TOTP credential management.
package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumera/academy/pkg/config"
	"github.com/lumera/academy/pkg/logx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to one Keycloak realm. Safe for concurrent use.
type Client struct {
	cfg  config.KeycloakConfig
	http *http.Client

	// admin mints client-credentials tokens for the confidential client;
	// the token source caches and refreshes them internally
	admin oauth2.TokenSource
}

// NewClient creates a realm client. All outbound calls share one bounded
// timeout so a slow IdP cannot pin request handlers indefinitely.
func NewClient(cfg config.KeycloakConfig) *Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	adminCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL(),
	}
	adminCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		cfg:   cfg,
		http:  httpClient,
		admin: adminCfg.TokenSource(adminCtx),
	}
}

// oauthConfig builds the oauth2 configuration for one of the realm clients
func (c *Client) oauthConfig(clientID, clientSecret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthorizeURL(),
			TokenURL:  c.cfg.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// withHTTPClient binds outbound oauth2 calls to the client's bounded transport
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// AuthorizationURL composes the browser redirect for the code flow: public
// client, scope openid, S256 challenge. Pure URL construction.
func (c *Client) AuthorizationURL(state, codeChallenge string) string {
	cfg := c.oauthConfig(c.cfg.PublicClientID(), "", []string{"openid"})
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeAuthorizationCode redeems a single-use authorization code with the
// recovered PKCE verifier. Public client: no secret goes over the wire. Never
// retried; a failed code is burned and the caller must restart the flow.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (TokenSet, error) {
	cfg := c.oauthConfig(c.cfg.PublicClientID(), "", []string{"openid"})

	tok, err := cfg.Exchange(c.withHTTPClient(ctx), code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		logx.WithError(err).Error("authorization code exchange failed")
		return TokenSet{}, ErrRegistry.NewWithCause(CodeTokenRequestFailed, err)
	}
	return tokenSetFrom(tok), nil
}

// PasswordLogin performs the resource-owner-password grant with the
// confidential client. Credential verification happens entirely at the IdP.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (TokenSet, error) {
	cfg := c.oauthConfig(c.cfg.ClientID, c.cfg.ClientSecret,
		[]string{"openid", "profile", "email", "roles"})

	tok, err := cfg.PasswordCredentialsToken(c.withHTTPClient(ctx), email, password)
	if err != nil {
		return TokenSet{}, ErrRegistry.NewWithCause(CodeTokenRequestFailed, err)
	}
	return tokenSetFrom(tok), nil
}

// Refresh rotates a session via the refresh_token grant
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	cfg := c.oauthConfig(c.cfg.ClientID, c.cfg.ClientSecret, nil)

	tok, err := cfg.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return TokenSet{}, ErrRegistry.NewWithCause(CodeTokenRequestFailed, err)
	}

	// The source may hand back a token without the rotated refresh token;
	// keep the old one so the session stays renewable.
	set := tokenSetFrom(tok)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

// Logout revokes the refresh token at the IdP. Sessions minted by the code
// flow belong to the public client and ones from the password grant to the
// confidential client, so both are tried. Reports whether any revocation
// succeeded; callers treat this as best-effort.
func (c *Client) Logout(ctx context.Context, refreshToken string) bool {
	if c.revoke(ctx, refreshToken, c.cfg.ClientID, c.cfg.ClientSecret) {
		return true
	}
	if public := c.cfg.PublicClientID(); public != c.cfg.ClientID {
		return c.revoke(ctx, refreshToken, public, "")
	}
	return false
}

func (c *Client) revoke(ctx context.Context, refreshToken, clientID, clientSecret string) bool {
	form := url.Values{}
	form.Set("client_id", clientID)
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LogoutURL(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		logx.WithError(err).WithField("client_id", clientID).Debug("logout attempt failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		logx.WithField("client_id", clientID).
			Debugf("logout attempt rejected with status %d", resp.StatusCode)
		return false
	}
	return true
}

// UserInfo fetches identity claims for an access token
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL(), nil)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeUserInfoFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logx.WithFields(logx.Fields{"status": resp.StatusCode, "body": string(body)}).
			Error("userinfo request rejected")
		return nil, ErrRegistry.New(CodeUserInfoFailed).WithDetail("status", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeUserInfoFailed, fmt.Errorf("decode userinfo: %w", err))
	}
	return &info, nil
}
