package auth_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/lumera/academy/pkg/iam/auth"
)

const testAccessCookie = "lumera_at"

// resolveVia runs ResolveBearerToken inside a live fiber handler
func resolveVia(t *testing.T, authHeader, cookieValue string) (string, bool) {
	t.Helper()

	app := fiber.New()
	var token string
	var ok bool
	app.Get("/", func(c *fiber.Ctx) error {
		token, ok = auth.ResolveBearerToken(c, testAccessCookie)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if cookieValue != "" {
		req.Header.Set("Cookie", testAccessCookie+"="+cookieValue)
	}

	if _, err := app.Test(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return token, ok
}

func TestResolveBearerToken_Header(t *testing.T) {
	token, ok := resolveVia(t, "Bearer header-token", "")
	if !ok || token != "header-token" {
		t.Fatalf("expected header token, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_HeaderWinsOverCookie(t *testing.T) {
	token, ok := resolveVia(t, "Bearer header-token", "cookie-token")
	if !ok || token != "header-token" {
		t.Fatalf("header must take precedence, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_CookieFallback(t *testing.T) {
	token, ok := resolveVia(t, "", "cookie-token")
	if !ok || token != "cookie-token" {
		t.Fatalf("expected cookie token, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_MalformedHeaderFallsThrough(t *testing.T) {
	token, ok := resolveVia(t, "Basic dXNlcg==", "cookie-token")
	if !ok || token != "cookie-token" {
		t.Fatalf("non-bearer header must fall through to cookie, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_CaseInsensitiveScheme(t *testing.T) {
	token, ok := resolveVia(t, "bearer lower-token", "")
	if !ok || token != "lower-token" {
		t.Fatalf("scheme match must be case-insensitive, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_Absent(t *testing.T) {
	token, ok := resolveVia(t, "", "")
	if ok || token != "" {
		t.Fatalf("expected no token, got %q ok=%v", token, ok)
	}
}

func TestResolveBearerToken_EmptyBearerValue(t *testing.T) {
	token, ok := resolveVia(t, "Bearer ", "cookie-token")
	if !ok || token != "cookie-token" {
		t.Fatalf("empty bearer value must fall through, got %q ok=%v", token, ok)
	}
}
