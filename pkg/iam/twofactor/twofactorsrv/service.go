// Package twofactorsrv is the application service for the 2FA lifecycle:
// setup material generation, proof-of-possession enablement, status and
// disablement against the identity provider's credential store.
package twofactorsrv

import (
	"context"

	"github.com/lumera/academy/pkg/iam/auth/keycloak"
	"github.com/lumera/academy/pkg/iam/twofactor"
	"github.com/lumera/academy/pkg/logx"
)

// Setup is the provisioning material shown once during enrollment. The
// secret never persists server-side until the user proves possession.
type Setup struct {
	Secret          string `json:"secret"`
	FormattedSecret string `json:"formattedSecret"`
	ProvisioningURI string `json:"provisioningUri"`
}

// Service manages TOTP credentials for realm users
type Service struct {
	store  twofactor.CredentialStore
	issuer string
}

func NewService(store twofactor.CredentialStore, issuer string) *Service {
	return &Service{store: store, issuer: issuer}
}

// GenerateSetup mints fresh enrollment material for an existing user. The
// user must already exist at the IdP; nothing is stored yet.
func (s *Service) GenerateSetup(ctx context.Context, email string) (*Setup, error) {
	if _, err := s.store.FindUserIDByEmail(ctx, email); err != nil {
		return nil, err
	}

	secret, err := twofactor.GenerateSecret()
	if err != nil {
		return nil, err
	}

	return &Setup{
		Secret:          secret,
		FormattedSecret: twofactor.FormatSecret(secret),
		ProvisioningURI: twofactor.ProvisioningURI(s.issuer, email, secret),
	}, nil
}

// VerifyAndEnable checks the first code produced by the user's authenticator
// against the enrollment secret and, on success, stores the secret as an otp
// credential at the IdP. An already-enrolled user must disable first.
func (s *Service) VerifyAndEnable(ctx context.Context, email, secret, code string) error {
	userID, err := s.store.FindUserIDByEmail(ctx, email)
	if err != nil {
		return err
	}

	enabled, err := s.hasOTPCredential(ctx, userID)
	if err != nil {
		return err
	}
	if enabled {
		return twofactor.ErrRegistry.New(twofactor.CodeAlreadyEnabled)
	}

	if !twofactor.VerifyCode(secret, code) {
		return twofactor.ErrInvalidCode()
	}

	if err := s.store.AddTOTPCredential(ctx, userID, secret, "authenticator"); err != nil {
		return err
	}

	logx.WithField("user_id", userID).Info("two-factor authentication enabled")
	return nil
}

// IsEnabled reports whether the user has a stored otp credential
func (s *Service) IsEnabled(ctx context.Context, email string) (bool, error) {
	userID, err := s.store.FindUserIDByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return s.hasOTPCredential(ctx, userID)
}

// Disable removes every stored otp credential for the user
func (s *Service) Disable(ctx context.Context, email string) error {
	userID, err := s.store.FindUserIDByEmail(ctx, email)
	if err != nil {
		return err
	}

	creds, err := s.store.ListCredentials(ctx, userID)
	if err != nil {
		return err
	}

	removed := 0
	for _, cred := range creds {
		if cred.Type != keycloak.CredentialTypeOTP {
			continue
		}
		if err := s.store.DeleteCredential(ctx, userID, cred.ID); err != nil {
			return err
		}
		removed++
	}
	if removed == 0 {
		return twofactor.ErrRegistry.New(twofactor.CodeNotEnabled)
	}

	logx.WithField("user_id", userID).Info("two-factor authentication disabled")
	return nil
}

func (s *Service) hasOTPCredential(ctx context.Context, userID string) (bool, error) {
	creds, err := s.store.ListCredentials(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, cred := range creds {
		if cred.Type == keycloak.CredentialTypeOTP {
			return true, nil
		}
	}
	return false, nil
}
