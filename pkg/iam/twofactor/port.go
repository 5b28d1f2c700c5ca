package twofactor

import (
	"context"

	"github.com/lumera/academy/pkg/iam/auth/keycloak"
)

// CredentialStore is the identity-provider surface the 2FA lifecycle needs:
// resolving the realm user and managing stored otp credentials.
type CredentialStore interface {
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
	ListCredentials(ctx context.Context, userID string) ([]keycloak.Credential, error)
	AddTOTPCredential(ctx context.Context, userID, secret, label string) error
	DeleteCredential(ctx context.Context, userID, credentialID string) error
}
