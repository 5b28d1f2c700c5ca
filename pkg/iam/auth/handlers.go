package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam"
	"github.com/lumera/academy/pkg/iam/user"
	"github.com/lumera/academy/pkg/logx"
)

// AuthHandlers is the HTTP surface of the login flows
type AuthHandlers struct {
	flow    *AuthFlowService
	cookies *CookieService
	auth    *TokenMiddleware
}

func NewAuthHandlers(flow *AuthFlowService, cookies *CookieService, auth *TokenMiddleware) *AuthHandlers {
	return &AuthHandlers{flow: flow, cookies: cookies, auth: auth}
}

// RegisterRoutes mounts the auth endpoints on the app
func (h *AuthHandlers) RegisterRoutes(app *fiber.App) {
	grp := app.Group("/v1/auth")

	grp.Get("/login", h.startLogin)
	grp.Get("/callback", h.callback)
	grp.Post("/login", h.passwordLogin)
	grp.Post("/register", h.register)
	grp.Post("/refresh", h.refresh)
	grp.Post("/logout", h.logout)
	grp.Get("/me", h.auth.Authenticate(), h.me)
}

// startLogin bounces the browser to the identity provider
func (h *AuthHandlers) startLogin(c *fiber.Ctx) error {
	redirect := c.Query("redirect")

	authURL, err := h.flow.BuildAuthorizationRedirect(c.Context(), redirect)
	if err != nil {
		return err
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

// callback completes the code flow. Every failure path ends in a redirect to
// the frontend login page rather than a JSON error, because the caller here
// is a browser mid-navigation, not an API client.
func (h *AuthHandlers) callback(c *fiber.Ctx) error {
	// The IdP reports user-side aborts via the error parameter. Nothing was
	// consumed yet, so short-circuit before touching the state store.
	if idpErr := c.Query("error"); idpErr != "" {
		logx.WithField("error", idpErr).Info("authorization denied at identity provider")
		return c.Redirect(h.flow.LoginErrorRedirect(idpErr), fiber.StatusFound)
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		return c.Redirect(h.flow.LoginErrorRedirect("invalid_callback"), fiber.StatusFound)
	}

	result, err := h.flow.HandleCallback(c.Context(), state, code)
	if err != nil {
		logx.WithError(err).Warn("oauth callback failed")
		return c.Redirect(h.flow.LoginErrorRedirect(errorCode(err)), fiber.StatusFound)
	}

	h.setSessionCookies(c, result.Session)
	return c.Redirect(result.RedirectURI, fiber.StatusFound)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// passwordLogin authenticates with email and password
func (h *AuthHandlers) passwordLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrInvalidCredentials()
	}

	session, err := h.flow.PasswordLogin(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, *session)
	return c.JSON(sessionResponse(session))
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// register creates an account and starts a session in one round trip
func (h *AuthHandlers) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}
	if req.Email == "" || req.Password == "" {
		return errx.New("email and password are required", errx.TypeValidation)
	}

	session, err := h.flow.Register(c.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      user.ParseRole(req.Role),
	})
	if err != nil {
		return err
	}

	h.setSessionCookies(c, *session)
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh rotates session tokens. The token comes from the request body for
// API clients, falling back to the refresh cookie for browser sessions.
func (h *AuthHandlers) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	_ = c.BodyParser(&req)

	token := req.RefreshToken
	if token == "" {
		token = c.Cookies(h.cookies.RefreshCookieName())
	}
	if token == "" {
		return ErrMissingRefreshToken()
	}

	session, err := h.flow.Refresh(c.Context(), token)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, *session)
	return c.JSON(sessionResponse(session))
}

// logout revokes the IdP session and clears cookies unconditionally
func (h *AuthHandlers) logout(c *fiber.Ctx) error {
	var req refreshRequest
	_ = c.BodyParser(&req)

	token := req.RefreshToken
	if token == "" {
		token = c.Cookies(h.cookies.RefreshCookieName())
	}
	h.flow.Logout(c.Context(), token)

	c.Cookie(h.cookies.ClearAccessCookie())
	c.Cookie(h.cookies.ClearRefreshCookie())
	return c.JSON(fiber.Map{"message": "logged out"})
}

// me returns the authenticated principal
func (h *AuthHandlers) me(c *fiber.Ctx) error {
	principal := PrincipalFromCtx(c)
	if !principal.IsValid() {
		return iam.ErrUnauthorized()
	}
	return c.JSON(fiber.Map{
		"subject":     principal.Subject,
		"name":        principal.Name,
		"email":       principal.Email,
		"authorities": principal.Authorities,
	})
}

func (h *AuthHandlers) setSessionCookies(c *fiber.Ctx, session SessionResult) {
	c.Cookie(h.cookies.BuildAccessCookie(session.Tokens.AccessToken, session.Tokens.ExpiresIn))
	c.Cookie(h.cookies.BuildRefreshCookie(session.Tokens.RefreshToken))
}

func sessionResponse(session *SessionResult) fiber.Map {
	return fiber.Map{
		"user":      session.User,
		"tokenType": session.Tokens.TokenType,
		"expiresIn": session.Tokens.ExpiresIn,
	}
}

// errorCode extracts the registry code for the frontend error parameter
func errorCode(err error) string {
	if e, ok := err.(*errx.Error); ok {
		return e.Code
	}
	return "login_failed"
}
