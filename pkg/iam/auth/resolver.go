package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ResolveBearerToken extracts the inbound bearer token. A well-formed
// Authorization header always wins, so API clients can bypass the cookie
// mechanism entirely; browser requests fall back to the access-token cookie.
// Returns ("", false) when the request carries neither.
func ResolveBearerToken(c *fiber.Ctx, accessCookieName string) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], true
		}
	}

	if token := c.Cookies(accessCookieName); token != "" {
		return token, true
	}
	return "", false
}
