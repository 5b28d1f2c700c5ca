package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lumera/academy/pkg/iam"
	"github.com/lumera/academy/pkg/kernel"
)

// TokenVerifier validates a raw bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (jwt.MapClaims, error)
}

// TokenMiddleware authenticates requests: bearer resolution, verification,
// claims mapping, principal injection.
type TokenMiddleware struct {
	verifier   TokenVerifier
	cookieName string
}

// NewTokenMiddleware creates the authentication middleware
func NewTokenMiddleware(verifier TokenVerifier, accessCookieName string) *TokenMiddleware {
	return &TokenMiddleware{
		verifier:   verifier,
		cookieName: accessCookieName,
	}
}

// Authenticate rejects requests without a valid bearer token and attaches the
// mapped Principal for downstream handlers.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := ResolveBearerToken(c, m.cookieName)
		if !ok {
			return iam.ErrUnauthorized()
		}

		claims, err := m.verifier.Verify(c.Context(), token)
		if err != nil {
			return err
		}

		c.Locals(string(kernel.PrincipalKey), MapClaims(claims))
		return c.Next()
	}
}

// RequireRole restricts a route group to principals holding the role
func (m *TokenMiddleware) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFromCtx(c)
		if !principal.IsValid() {
			return iam.ErrUnauthorized()
		}
		if !principal.HasRole(role) {
			return iam.ErrAccessDenied()
		}
		return c.Next()
	}
}

// RequireAdmin restricts a route group to administrators
func (m *TokenMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole("ADMIN")
}

// PrincipalFromCtx returns the authenticated Principal, or nil when the
// request never passed Authenticate.
func PrincipalFromCtx(c *fiber.Ctx) *kernel.Principal {
	principal, _ := c.Locals(string(kernel.PrincipalKey)).(*kernel.Principal)
	return principal
}
