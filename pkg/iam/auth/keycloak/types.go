package keycloak

import (
	"net/http"
	"time"

	"github.com/lumera/academy/pkg/errx"
	"golang.org/x/oauth2"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("KEYCLOAK")

var (
	CodeTokenRequestFailed = ErrRegistry.Register("TOKEN_REQUEST_FAILED", errx.TypeExternal, http.StatusBadGateway, "Identity provider rejected the token request")
	CodeUserInfoFailed     = ErrRegistry.Register("USERINFO_FAILED", errx.TypeExternal, http.StatusBadGateway, "Identity provider rejected the userinfo request")
	CodeAdminFailed        = ErrRegistry.Register("ADMIN_REQUEST_FAILED", errx.TypeExternal, http.StatusBadGateway, "Identity provider admin request failed")
	CodeUserNotFound       = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found in identity provider")
	CodeUserExists         = ErrRegistry.Register("USER_EXISTS", errx.TypeConflict, http.StatusConflict, "User already exists in identity provider")
)

// ============================================================================
// Wire types
// ============================================================================

// TokenSet is one token-endpoint response: the session material carried to
// the browser as cookies. Never persisted server-side.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func tokenSetFrom(tok *oauth2.Token) TokenSet {
	expiresIn := int64(0)
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresIn:    expiresIn,
	}
}

// UserInfo is the identity claims document from the userinfo endpoint
type UserInfo struct {
	Subject           string   `json:"sub"`
	Email             string   `json:"email"`
	EmailVerified     bool     `json:"email_verified"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Roles             []string `json:"roles"`
}

// Credential is one credential entry from the admin API
type Credential struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	UserLabel string `json:"userLabel,omitempty"`
}

// CredentialTypeOTP is the admin-API type of TOTP credentials
const CredentialTypeOTP = "otp"

// NewUser describes a user to create via the admin API
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RealmRole string

	// Attributes are free-form profile attributes (e.g. educator bio)
	Attributes map[string][]string
}
