// Package twofactorapi exposes the 2FA lifecycle over HTTP. Every route
// requires an authenticated principal; the acting account is always the
// caller's own, taken from the verified token, never from the request body.
package twofactorapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam"
	"github.com/lumera/academy/pkg/iam/auth"
	"github.com/lumera/academy/pkg/iam/twofactor/twofactorsrv"
	"github.com/lumera/academy/pkg/kernel"
)

// TwoFactorHandlers is the HTTP surface of the 2FA lifecycle
type TwoFactorHandlers struct {
	service *twofactorsrv.Service
	authMW  *auth.TokenMiddleware
}

func NewTwoFactorHandlers(service *twofactorsrv.Service, authMW *auth.TokenMiddleware) *TwoFactorHandlers {
	return &TwoFactorHandlers{service: service, authMW: authMW}
}

// RegisterRoutes mounts the 2FA endpoints on the app
func (h *TwoFactorHandlers) RegisterRoutes(app *fiber.App) {
	grp := app.Group("/v1/user/2fa", h.authMW.Authenticate())

	grp.Get("/setup", h.setup)
	grp.Post("/verify", h.verify)
	grp.Get("/status", h.status)
	grp.Delete("/", h.disable)
}

func (h *TwoFactorHandlers) setup(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}

	setup, err := h.service.GenerateSetup(c.Context(), principal.Email)
	if err != nil {
		return err
	}
	return c.JSON(setup)
}

type verifyRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func (h *TwoFactorHandlers) verify(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation)
	}
	if req.Secret == "" || req.Code == "" {
		return errx.New("secret and code are required", errx.TypeValidation)
	}

	if err := h.service.VerifyAndEnable(c.Context(), principal.Email, req.Secret, req.Code); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": true})
}

func (h *TwoFactorHandlers) status(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}

	enabled, err := h.service.IsEnabled(c.Context(), principal.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": enabled})
}

func (h *TwoFactorHandlers) disable(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}

	if err := h.service.Disable(c.Context(), principal.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": false})
}

func (h *TwoFactorHandlers) principal(c *fiber.Ctx) (*kernel.Principal, error) {
	principal := auth.PrincipalFromCtx(c)
	if !principal.IsValid() {
		return nil, iam.ErrUnauthorized()
	}
	if principal.Email == "" {
		return nil, errx.New("authenticated token carries no email claim", errx.TypeValidation)
	}
	return principal, nil
}
