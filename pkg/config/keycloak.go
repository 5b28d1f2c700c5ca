package config

// KeycloakConfig locates the external identity provider and its clients.
//
// Two clients exist on purpose: the confidential backend client (id+secret,
// used for the password grant, refresh and admin operations) and the public
// frontend client (no secret, used for the browser authorization-code flow
// where PKCE substitutes for the secret).
type KeycloakConfig struct {
	// URL is the base URL reachable from this service
	URL string

	// ExternalURL is the base URL reachable from browsers; falls back to URL
	ExternalURL string

	Realm        string
	ClientID     string
	ClientSecret string

	// FrontendClientID is the public client; falls back to ClientID
	FrontendClientID string

	// RedirectURI is the fixed, pre-registered callback of this service
	RedirectURI string
}

func loadKeycloakConfig() KeycloakConfig {
	return KeycloakConfig{
		URL:              getEnv("KEYCLOAK_URL", "http://localhost:8180"),
		ExternalURL:      getEnv("KEYCLOAK_EXTERNAL_URL", ""),
		Realm:            getEnv("KEYCLOAK_REALM", "lumera"),
		ClientID:         getEnv("KEYCLOAK_CLIENT_ID", "academy-backend"),
		ClientSecret:     getEnv("KEYCLOAK_CLIENT_SECRET", ""),
		FrontendClientID: getEnv("KEYCLOAK_FRONTEND_CLIENT_ID", ""),
		RedirectURI:      getEnv("KEYCLOAK_REDIRECT_URI", "http://localhost:8080/v1/auth/callback"),
	}
}

// BrowserURL returns the base URL for browser redirects
func (k KeycloakConfig) BrowserURL() string {
	if k.ExternalURL != "" {
		return k.ExternalURL
	}
	return k.URL
}

// PublicClientID returns the client id used for the browser code flow
func (k KeycloakConfig) PublicClientID() string {
	if k.FrontendClientID != "" {
		return k.FrontendClientID
	}
	return k.ClientID
}

func (k KeycloakConfig) Issuer() string {
	return k.URL + "/realms/" + k.Realm
}

func (k KeycloakConfig) AuthorizeURL() string {
	return k.BrowserURL() + "/realms/" + k.Realm + "/protocol/openid-connect/auth"
}

func (k KeycloakConfig) TokenURL() string {
	return k.URL + "/realms/" + k.Realm + "/protocol/openid-connect/token"
}

func (k KeycloakConfig) UserInfoURL() string {
	return k.URL + "/realms/" + k.Realm + "/protocol/openid-connect/userinfo"
}

func (k KeycloakConfig) LogoutURL() string {
	return k.URL + "/realms/" + k.Realm + "/protocol/openid-connect/logout"
}

func (k KeycloakConfig) JWKSURL() string {
	return k.URL + "/realms/" + k.Realm + "/protocol/openid-connect/certs"
}

func (k KeycloakConfig) AdminURL() string {
	return k.URL + "/admin/realms/" + k.Realm
}
