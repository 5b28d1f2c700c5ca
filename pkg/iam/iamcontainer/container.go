// Package iamcontainer wires the IAM bounded context: the realm client,
// login flows, token verification, user sync and the 2FA lifecycle.
package iamcontainer

import (
	"github.com/jmoiron/sqlx"
	"github.com/lumera/academy/pkg/config"
	"github.com/lumera/academy/pkg/iam/auth"
	"github.com/lumera/academy/pkg/iam/auth/authinfra"
	"github.com/lumera/academy/pkg/iam/auth/keycloak"
	"github.com/lumera/academy/pkg/iam/twofactor/twofactorapi"
	"github.com/lumera/academy/pkg/iam/twofactor/twofactorsrv"
	"github.com/lumera/academy/pkg/iam/user"
	"github.com/lumera/academy/pkg/iam/user/userinfra"
	"github.com/lumera/academy/pkg/iam/user/usersrv"
	"github.com/lumera/academy/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state, everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what other modules or cmd/ actually need.
// ---------------------------------------------------------------------------

type Container struct {
	// Services available for cross-module consumption
	SyncService      *usersrv.SyncService
	TwoFactorService *twofactorsrv.Service
	UserRepository   user.Repository

	// Handlers, needed by cmd/ to register routes
	AuthHandlers      *auth.AuthHandlers
	TwoFactorHandlers *twofactorapi.TwoFactorHandlers

	// Middleware, needed by cmd/ to protect route groups
	AuthMiddleware *auth.TokenMiddleware
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("Initializing IAM container...")

	c := &Container{}
	cfg := deps.Cfg

	// ── Repositories ─────────────────────────────────────────────────────

	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	c.UserRepository = userRepo

	// ── Infrastructure services ──────────────────────────────────────────

	var stateManager auth.StateManager
	if cfg.OAuth.StateBackend == "redis" {
		stateManager = authinfra.NewRedisStateManager(deps.Redis, cfg.OAuth.StateTTL)
		logx.Info("  using Redis state manager for OAuth")
	} else {
		stateManager = auth.NewInMemoryStateManager(cfg.OAuth.StateTTL)
		logx.Warn("  using in-memory state manager (single-instance only)")
	}

	kcClient := keycloak.NewClient(cfg.Keycloak)

	verifier := auth.NewVerifier(auth.VerifierConfig{
		Issuer:  cfg.Keycloak.Issuer(),
		JWKSURL: cfg.Keycloak.JWKSURL(),
	})

	cookies := auth.NewCookieService(cfg.Cookie)

	// ── Domain services ──────────────────────────────────────────────────

	c.SyncService = usersrv.NewSyncService(userRepo)

	flow := auth.NewAuthFlowService(
		kcClient,
		kcClient,
		stateManager,
		c.SyncService,
		cfg.Frontend,
	)

	c.TwoFactorService = twofactorsrv.NewService(kcClient, cfg.Server.AppName)

	// ── Middleware ───────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewTokenMiddleware(verifier, cookies.AccessCookieName())

	// ── Handlers ─────────────────────────────────────────────────────────

	c.AuthHandlers = auth.NewAuthHandlers(flow, cookies, c.AuthMiddleware)
	c.TwoFactorHandlers = twofactorapi.NewTwoFactorHandlers(c.TwoFactorService, c.AuthMiddleware)

	logx.Info("IAM container ready")
	return c
}
