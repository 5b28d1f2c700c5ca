package auth

import (
	"net/http"

	"github.com/lumera/academy/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeInvalidState        = ErrRegistry.Register("INVALID_STATE", errx.TypeValidation, http.StatusBadRequest, "Invalid or expired state parameter")
	CodeExchangeFailed      = ErrRegistry.Register("EXCHANGE_FAILED", errx.TypeExternal, http.StatusBadRequest, "Failed to exchange authorization code")
	CodeUserInfoFailed      = ErrRegistry.Register("USERINFO_FAILED", errx.TypeExternal, http.StatusBadRequest, "Failed to fetch identity claims")
	CodeInvalidCredentials  = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeValidation, http.StatusBadRequest, "Invalid email or password")
	CodeRefreshFailed       = ErrRegistry.Register("REFRESH_FAILED", errx.TypeValidation, http.StatusBadRequest, "Invalid or expired refresh token")
	CodeMissingRefreshToken = ErrRegistry.Register("MISSING_REFRESH_TOKEN", errx.TypeValidation, http.StatusBadRequest, "Refresh token is required")
	CodeCallbackError       = ErrRegistry.Register("CALLBACK_ERROR", errx.TypeValidation, http.StatusBadRequest, "Invalid OAuth callback")
	CodeEmailInUse          = ErrRegistry.Register("EMAIL_IN_USE", errx.TypeConflict, http.StatusConflict, "Email already in use")
	CodeRegistrationFailed  = ErrRegistry.Register("REGISTRATION_FAILED", errx.TypeExternal, http.StatusBadRequest, "Failed to create user")
)

// Helper functions
func ErrInvalidState() *errx.Error {
	return ErrRegistry.New(CodeInvalidState)
}

func ErrExchangeFailed() *errx.Error {
	return ErrRegistry.New(CodeExchangeFailed)
}

func ErrUserInfoFailed() *errx.Error {
	return ErrRegistry.New(CodeUserInfoFailed)
}

func ErrInvalidCredentials() *errx.Error {
	return ErrRegistry.New(CodeInvalidCredentials)
}

func ErrRefreshFailed() *errx.Error {
	return ErrRegistry.New(CodeRefreshFailed)
}

func ErrMissingRefreshToken() *errx.Error {
	return ErrRegistry.New(CodeMissingRefreshToken)
}

func ErrCallbackError() *errx.Error {
	return ErrRegistry.New(CodeCallbackError)
}

func ErrEmailInUse() *errx.Error {
	return ErrRegistry.New(CodeEmailInUse)
}

func ErrRegistrationFailed() *errx.Error {
	return ErrRegistry.New(CodeRegistrationFailed)
}
