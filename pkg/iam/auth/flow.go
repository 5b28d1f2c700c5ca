package auth

import (
	"context"
	"strings"

	"github.com/lumera/academy/pkg/config"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/auth/keycloak"
	"github.com/lumera/academy/pkg/iam/user"
	"github.com/lumera/academy/pkg/logx"
)

// ============================================================================
// Ports
// ============================================================================

// IdentityProvider is the slice of the realm client the login flows need
type IdentityProvider interface {
	AuthorizationURL(state, codeChallenge string) string
	ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier string) (keycloak.TokenSet, error)
	PasswordLogin(ctx context.Context, email, password string) (keycloak.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (keycloak.TokenSet, error)
	Logout(ctx context.Context, refreshToken string) bool
	UserInfo(ctx context.Context, accessToken string) (*keycloak.UserInfo, error)
}

// Registrar creates accounts on the identity-provider side
type Registrar interface {
	CreateUser(ctx context.Context, input keycloak.NewUser) (string, error)
}

// UserSyncer mirrors an authenticated identity into the local user store
type UserSyncer interface {
	Sync(ctx context.Context, info keycloak.UserInfo) (*user.User, error)
}

// ============================================================================
// Service
// ============================================================================

// SessionResult is what every successful login path produces: the token set
// for the cookies and the synced local user for the response body.
type SessionResult struct {
	Tokens keycloak.TokenSet
	User   *user.User
}

// CallbackResult carries the session plus the frontend URI captured when the
// flow started, so the handler knows where to send the browser.
type CallbackResult struct {
	Session     SessionResult
	RedirectURI string
}

// RegisterInput is the self-service signup request
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      user.Role
}

// AuthFlowService orchestrates the browser code flow and the direct grants.
// Stateless apart from the pending-login state store; safe for concurrent use.
type AuthFlowService struct {
	idp      IdentityProvider
	registry Registrar
	states   StateManager
	syncer   UserSyncer
	frontend config.FrontendConfig
}

func NewAuthFlowService(
	idp IdentityProvider,
	registry Registrar,
	states StateManager,
	syncer UserSyncer,
	frontend config.FrontendConfig,
) *AuthFlowService {
	return &AuthFlowService{
		idp:      idp,
		registry: registry,
		states:   states,
		syncer:   syncer,
		frontend: frontend,
	}
}

// BuildAuthorizationRedirect starts a code-flow login: mint a PKCE pair,
// persist the pending attempt keyed by a fresh state token, and compose the
// authorization URL the browser gets bounced to.
func (s *AuthFlowService) BuildAuthorizationRedirect(ctx context.Context, redirectURI string) (string, error) {
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		return "", errx.Wrap(err, "failed to generate PKCE pair", errx.TypeInternal)
	}

	state, err := s.states.Save(ctx, redirectURI, verifier)
	if err != nil {
		return "", err
	}

	return s.idp.AuthorizationURL(state.State, challenge), nil
}

// HandleCallback completes a code-flow login. The state is consumed before
// anything else so a replayed callback dies at the first step; the recovered
// verifier accompanies the code exchange, and the resulting identity is
// synced into the local user store.
func (s *AuthFlowService) HandleCallback(ctx context.Context, state, code string) (*CallbackResult, error) {
	pending, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	tokens, err := s.idp.ExchangeAuthorizationCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeExchangeFailed, err)
	}

	session, err := s.establishSession(ctx, tokens)
	if err != nil {
		return nil, err
	}

	return &CallbackResult{
		Session:     *session,
		RedirectURI: s.resolveRedirectTarget(pending.RedirectURI),
	}, nil
}

// resolveRedirectTarget maps the redirect captured at login start onto the
// frontend. Local paths are resolved against the frontend base URL and
// absolute targets are only honored on the frontend's own origin; anything
// else collapses to the frontend root so a crafted login link cannot bounce
// the browser off-site with fresh session cookies.
func (s *AuthFlowService) resolveRedirectTarget(raw string) string {
	base := strings.TrimRight(s.frontend.BaseURL, "/")
	switch {
	case raw == "":
		return s.frontend.BaseURL
	case strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.Contains(raw, "\\"):
		return base + raw
	case raw == base || strings.HasPrefix(raw, base+"/") || strings.HasPrefix(raw, base+"?"):
		return raw
	default:
		return s.frontend.BaseURL
	}
}

// PasswordLogin authenticates email and password directly against the IdP
func (s *AuthFlowService) PasswordLogin(ctx context.Context, email, password string) (*SessionResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials()
	}

	tokens, err := s.idp.PasswordLogin(ctx, email, password)
	if err != nil {
		// The IdP does not distinguish bad passwords from unknown users
		// and neither do we.
		return nil, ErrRegistry.NewWithCause(CodeInvalidCredentials, err)
	}

	return s.establishSession(ctx, tokens)
}

// Register creates the account at the IdP, then logs the new user straight
// in with the supplied credentials so signup ends with a live session.
func (s *AuthFlowService) Register(ctx context.Context, input RegisterInput) (*SessionResult, error) {
	role := user.ParseRole(string(input.Role))

	_, err := s.registry.CreateUser(ctx, keycloak.NewUser{
		Email:     strings.TrimSpace(input.Email),
		Password:  input.Password,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		RealmRole: strings.ToLower(string(role)),
	})
	if err != nil {
		if errx.IsCode(err, keycloak.CodeUserExists) {
			return nil, ErrEmailInUse()
		}
		return nil, ErrRegistry.NewWithCause(CodeRegistrationFailed, err)
	}

	return s.PasswordLogin(ctx, input.Email, input.Password)
}

// Refresh rotates the session tokens and re-syncs the local user, so role
// or profile changes made at the IdP land without forcing a re-login.
func (s *AuthFlowService) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken()
	}

	tokens, err := s.idp.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeRefreshFailed, err)
	}
	return s.establishSession(ctx, tokens)
}

// Logout revokes the IdP session. Best-effort: a dead or already-revoked
// refresh token is not an error, the caller clears cookies either way.
func (s *AuthFlowService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if !s.idp.Logout(ctx, refreshToken) {
		logx.Debug("identity provider session revocation failed, clearing cookies anyway")
	}
}

// LoginErrorRedirect maps a failed callback to the frontend error page
func (s *AuthFlowService) LoginErrorRedirect(code string) string {
	return s.frontend.LoginErrorURL(code)
}

func (s *AuthFlowService) establishSession(ctx context.Context, tokens keycloak.TokenSet) (*SessionResult, error) {
	info, err := s.idp.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeUserInfoFailed, err)
	}

	u, err := s.syncer.Sync(ctx, *info)
	if err != nil {
		return nil, err
	}

	return &SessionResult{Tokens: tokens, User: u}, nil
}
