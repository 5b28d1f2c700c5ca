package auth_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/auth"
)

type stubVerifier struct {
	claims jwt.MapClaims
	err    error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (jwt.MapClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func testErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*errx.Error); ok {
		return c.Status(e.HTTPStatus).JSON(fiber.Map{"code": e.Code})
	}
	return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
}

func newTestApp(idp *stubIdP, verifier *stubVerifier) (*fiber.App, auth.StateManager) {
	flow, states := newFlow(idp, &stubRegistrar{}, &stubSyncer{})
	cookies := auth.NewCookieService(cookieConfig())
	mw := auth.NewTokenMiddleware(verifier, cookies.AccessCookieName())

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	auth.NewAuthHandlers(flow, cookies, mw).RegisterRoutes(app)
	return app, states
}

func setCookies(resp *http.Response) map[string]string {
	out := make(map[string]string)
	for _, raw := range resp.Header.Values("Set-Cookie") {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func TestStartLogin_RedirectsToIdP(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/login?redirect=/courses", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://idp.example.com/authorize") {
		t.Fatalf("expected IdP redirect, got %s", loc)
	}
	if !strings.Contains(loc, "code_challenge=") {
		t.Fatalf("redirect missing PKCE challenge: %s", loc)
	}
}

func TestCallback_IdPErrorShortCircuits(t *testing.T) {
	app, states := newTestApp(&stubIdP{}, &stubVerifier{})

	mem := states.(*auth.InMemoryStateManager)
	before := mem.Len()

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/callback?error=access_denied&state=whatever", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "https://app.example.com/login?error=access_denied" {
		t.Fatalf("unexpected redirect: %s", got)
	}
	if mem.Len() != before {
		t.Fatal("idp error must not touch the state store")
	}
}

func TestCallback_HappyPath(t *testing.T) {
	app, states := newTestApp(&stubIdP{}, &stubVerifier{})

	saved, _ := states.Save(context.Background(), "https://app.example.com/dashboard", "verifier")

	resp, err := app.Test(httptest.NewRequest("GET",
		"/v1/auth/callback?state="+saved.State+"&code=the-code", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "https://app.example.com/dashboard" {
		t.Fatalf("expected stored redirect, got %s", got)
	}

	cookies := setCookies(resp)
	if _, ok := cookies["lumera_at"]; !ok {
		t.Fatalf("access cookie not set: %v", cookies)
	}
	if _, ok := cookies["lumera_rt"]; !ok {
		t.Fatalf("refresh cookie not set: %v", cookies)
	}
}

func TestCallback_RelativeRedirectLandsOnFrontend(t *testing.T) {
	app, states := newTestApp(&stubIdP{}, &stubVerifier{})

	saved, _ := states.Save(context.Background(), "/dashboard", "verifier")

	resp, err := app.Test(httptest.NewRequest("GET",
		"/v1/auth/callback?state="+saved.State+"&code=the-code", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := resp.Header.Get("Location"); got != "https://app.example.com/dashboard" {
		t.Fatalf("relative target must resolve on the frontend host, got %s", got)
	}
}

func TestCallback_ForeignRedirectFallsBackToFrontend(t *testing.T) {
	app, states := newTestApp(&stubIdP{}, &stubVerifier{})

	saved, _ := states.Save(context.Background(), "https://evil.example/phish", "verifier")

	resp, err := app.Test(httptest.NewRequest("GET",
		"/v1/auth/callback?state="+saved.State+"&code=the-code", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := resp.Header.Get("Location"); got != "https://app.example.com" {
		t.Fatalf("foreign redirect target must not be followed, got %s", got)
	}
}

func TestCallback_InvalidStateRedirectsToLoginError(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/callback?state=forged&code=c", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://app.example.com/login?error=") {
		t.Fatalf("expected frontend error redirect, got %s", loc)
	}
}

func TestCallback_MissingParams(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/auth/callback", nil))
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); !strings.Contains(got, "error=invalid_callback") {
		t.Fatalf("expected invalid_callback error, got %s", got)
	}
}

func TestPasswordLoginEndpoint(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	req := httptest.NewRequest("POST", "/v1/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := setCookies(resp)["lumera_at"]; !ok {
		t.Fatal("login must set the access cookie")
	}
}

func TestRefresh_NoTokenAnywhere(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/auth/refresh", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRefresh_CookieFallback(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	req := httptest.NewRequest("POST", "/v1/auth/refresh", nil)
	req.Header.Set("Cookie", "lumera_rt=stored-refresh")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cookies := setCookies(resp)
	if !strings.HasPrefix(cookies["lumera_at"], "at2") {
		t.Fatalf("expected rotated access cookie, got %q", cookies["lumera_at"])
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"user"`) {
		t.Fatalf("refresh response must carry the re-synced user, got %s", body)
	}
}

func TestLogout_AlwaysClearsCookies(t *testing.T) {
	idp := &stubIdP{logoutOK: false}
	app, _ := newTestApp(idp, &stubVerifier{})

	req := httptest.NewRequest("POST", "/v1/auth/logout", nil)
	req.Header.Set("Cookie", "lumera_rt=dead-token")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 even when revocation fails, got %d", resp.StatusCode)
	}

	cleared := 0
	for _, raw := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(raw, "lumera_at=") || strings.HasPrefix(raw, "lumera_rt=") {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both cookies cleared, got %d Set-Cookie entries", cleared)
	}
}

func TestMe_RequiresAuthentication(t *testing.T) {
	app, _ := newTestApp(&stubIdP{}, &stubVerifier{})

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/auth/me", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMe_WithBearerToken(t *testing.T) {
	verifier := &stubVerifier{claims: jwt.MapClaims{
		"sub":   "subject-1",
		"email": "ana@example.com",
		"scope": "openid",
	}}
	app, _ := newTestApp(&stubIdP{}, verifier)

	req := httptest.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer any-token")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
