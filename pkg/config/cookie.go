package config

// AuthCookieConfig describes the two HttpOnly session cookies
type AuthCookieConfig struct {
	AccessName  string
	RefreshName string

	// Domain left empty defaults to the current host
	Domain   string
	Path     string
	Secure   bool
	SameSite string

	// AccessMaxAgeSeconds is the fallback when the upstream token TTL is
	// non-positive
	AccessMaxAgeSeconds  int64
	RefreshMaxAgeSeconds int64
}

func loadAuthCookieConfig() AuthCookieConfig {
	return AuthCookieConfig{
		AccessName:           getEnv("AUTH_COOKIE_ACCESS_NAME", "lumera_at"),
		RefreshName:          getEnv("AUTH_COOKIE_REFRESH_NAME", "lumera_rt"),
		Domain:               getEnv("AUTH_COOKIE_DOMAIN", ""),
		Path:                 getEnv("AUTH_COOKIE_PATH", "/"),
		Secure:               getEnvBool("AUTH_COOKIE_SECURE", true),
		SameSite:             getEnv("AUTH_COOKIE_SAMESITE", "Lax"),
		AccessMaxAgeSeconds:  getEnvInt64("AUTH_COOKIE_ACCESS_MAX_AGE", 600),
		RefreshMaxAgeSeconds: getEnvInt64("AUTH_COOKIE_REFRESH_MAX_AGE", 3600),
	}
}
