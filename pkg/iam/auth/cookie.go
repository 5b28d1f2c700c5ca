package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lumera/academy/pkg/config"
)

// CookieService builds the two HttpOnly session cookies. Pure value
// construction - nothing here touches the response or any shared state.
type CookieService struct {
	cfg config.AuthCookieConfig
}

// NewCookieService creates a cookie service from configuration
func NewCookieService(cfg config.AuthCookieConfig) *CookieService {
	return &CookieService{cfg: cfg}
}

// BuildAccessCookie carries the access token for tokenTTLSeconds. A
// non-positive upstream TTL falls back to the configured default.
func (s *CookieService) BuildAccessCookie(token string, tokenTTLSeconds int64) *fiber.Cookie {
	maxAge := tokenTTLSeconds
	if maxAge <= 0 {
		maxAge = s.cfg.AccessMaxAgeSeconds
	}
	return s.baseCookie(s.cfg.AccessName, token, maxAge)
}

// BuildRefreshCookie carries the refresh token for the configured lifetime
func (s *CookieService) BuildRefreshCookie(token string) *fiber.Cookie {
	return s.baseCookie(s.cfg.RefreshName, token, s.cfg.RefreshMaxAgeSeconds)
}

// ClearAccessCookie produces a deletion cookie for the access token
func (s *CookieService) ClearAccessCookie() *fiber.Cookie {
	return s.clearCookie(s.cfg.AccessName)
}

// ClearRefreshCookie produces a deletion cookie for the refresh token
func (s *CookieService) ClearRefreshCookie() *fiber.Cookie {
	return s.clearCookie(s.cfg.RefreshName)
}

// AccessCookieName exposes the configured access cookie name for resolvers
func (s *CookieService) AccessCookieName() string {
	return s.cfg.AccessName
}

// RefreshCookieName exposes the configured refresh cookie name
func (s *CookieService) RefreshCookieName() string {
	return s.cfg.RefreshName
}

func (s *CookieService) baseCookie(name, value string, maxAgeSeconds int64) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cfg.Path,
		Domain:   s.cfg.Domain,
		MaxAge:   int(maxAgeSeconds),
		Expires:  time.Now().Add(time.Duration(maxAgeSeconds) * time.Second),
		Secure:   s.cfg.Secure,
		HTTPOnly: true,
		SameSite: s.cfg.SameSite,
	}
}

// clearCookie keeps the same name/path/domain so the browser matches and
// deletes the stored cookie. MaxAge 0 plus an epoch Expires serializes as an
// immediately-expired cookie under fasthttp.
func (s *CookieService) clearCookie(name string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     s.cfg.Path,
		Domain:   s.cfg.Domain,
		MaxAge:   0,
		Expires:  time.Unix(0, 0),
		Secure:   s.cfg.Secure,
		HTTPOnly: true,
		SameSite: s.cfg.SameSite,
	}
}
