package twofactorsrv_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/auth/keycloak"
	"github.com/lumera/academy/pkg/iam/twofactor"
	"github.com/lumera/academy/pkg/iam/twofactor/twofactorsrv"
)

// fakeStore is an in-memory stand-in for the realm credential API
type fakeStore struct {
	users       map[string]string // email -> user id
	credentials map[string][]keycloak.Credential
	added       []string // secrets passed to AddTOTPCredential
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]string{"ana@example.com": "kc-1"},
		credentials: make(map[string][]keycloak.Credential),
	}
}

func (f *fakeStore) FindUserIDByEmail(_ context.Context, email string) (string, error) {
	if id, ok := f.users[email]; ok {
		return id, nil
	}
	return "", keycloak.ErrRegistry.New(keycloak.CodeUserNotFound)
}

func (f *fakeStore) ListCredentials(_ context.Context, userID string) ([]keycloak.Credential, error) {
	return f.credentials[userID], nil
}

func (f *fakeStore) AddTOTPCredential(_ context.Context, userID, secret, label string) error {
	f.added = append(f.added, secret)
	f.credentials[userID] = append(f.credentials[userID], keycloak.Credential{
		ID:        "cred-" + secret[:4],
		Type:      keycloak.CredentialTypeOTP,
		UserLabel: label,
	})
	return nil
}

func (f *fakeStore) DeleteCredential(_ context.Context, userID, credentialID string) error {
	kept := f.credentials[userID][:0]
	for _, c := range f.credentials[userID] {
		if c.ID != credentialID {
			kept = append(kept, c)
		}
	}
	f.credentials[userID] = kept
	return nil
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := twofactor.GenerateCodeAt(secret, time.Now())
	if err != nil {
		t.Fatalf("failed to derive code: %v", err)
	}
	return code
}

func TestGenerateSetup(t *testing.T) {
	svc := twofactorsrv.NewService(newFakeStore(), "Lumera Academy")

	setup, err := svc.GenerateSetup(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(setup.Secret) != 32 {
		t.Fatalf("expected 32 character secret, got %d", len(setup.Secret))
	}
	if strings.ReplaceAll(setup.FormattedSecret, " ", "") != setup.Secret {
		t.Fatalf("formatted secret must match raw: %q vs %q", setup.FormattedSecret, setup.Secret)
	}
	if !strings.Contains(setup.ProvisioningURI, "ana@example.com") {
		t.Fatalf("provisioning URI missing account: %s", setup.ProvisioningURI)
	}
}

func TestGenerateSetup_UnknownUser(t *testing.T) {
	svc := twofactorsrv.NewService(newFakeStore(), "Lumera Academy")

	_, err := svc.GenerateSetup(context.Background(), "ghost@example.com")
	if !errx.IsCode(err, keycloak.CodeUserNotFound) {
		t.Fatalf("expected user-not-found, got %v", err)
	}
}

func TestVerifyAndEnable(t *testing.T) {
	store := newFakeStore()
	svc := twofactorsrv.NewService(store, "Lumera Academy")

	secret, _ := twofactor.GenerateSecret()
	code := currentCode(t, secret)

	if err := svc.VerifyAndEnable(context.Background(), "ana@example.com", secret, code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.added) != 1 || store.added[0] != secret {
		t.Fatalf("secret not stored: %v", store.added)
	}

	enabled, err := svc.IsEnabled(context.Background(), "ana@example.com")
	if err != nil || !enabled {
		t.Fatalf("expected enabled after verification, got %v %v", enabled, err)
	}
}

func TestVerifyAndEnable_WrongCode(t *testing.T) {
	store := newFakeStore()
	svc := twofactorsrv.NewService(store, "Lumera Academy")

	secret, _ := twofactor.GenerateSecret()
	wrong := currentCode(t, secret)
	// flip the last digit
	flipped := wrong[:5] + string('0'+(wrong[5]-'0'+1)%10)

	err := svc.VerifyAndEnable(context.Background(), "ana@example.com", secret, flipped)
	if !errx.IsCode(err, twofactor.CodeInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if len(store.added) != 0 {
		t.Fatal("failed verification must not store the secret")
	}
}

func TestVerifyAndEnable_AlreadyEnabled(t *testing.T) {
	store := newFakeStore()
	store.credentials["kc-1"] = []keycloak.Credential{{ID: "c1", Type: keycloak.CredentialTypeOTP}}
	svc := twofactorsrv.NewService(store, "Lumera Academy")

	secret, _ := twofactor.GenerateSecret()
	err := svc.VerifyAndEnable(context.Background(), "ana@example.com", secret, currentCode(t, secret))
	if !errx.IsCode(err, twofactor.CodeAlreadyEnabled) {
		t.Fatalf("expected already-enabled, got %v", err)
	}
}

func TestIsEnabled_IgnoresOtherCredentialTypes(t *testing.T) {
	store := newFakeStore()
	store.credentials["kc-1"] = []keycloak.Credential{{ID: "p1", Type: "password"}}
	svc := twofactorsrv.NewService(store, "Lumera Academy")

	enabled, err := svc.IsEnabled(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enabled {
		t.Fatal("password credentials must not count as 2FA")
	}
}

func TestDisable(t *testing.T) {
	store := newFakeStore()
	store.credentials["kc-1"] = []keycloak.Credential{
		{ID: "p1", Type: "password"},
		{ID: "o1", Type: keycloak.CredentialTypeOTP},
		{ID: "o2", Type: keycloak.CredentialTypeOTP},
	}
	svc := twofactorsrv.NewService(store, "Lumera Academy")

	if err := svc.Disable(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining := store.credentials["kc-1"]
	if len(remaining) != 1 || remaining[0].Type != "password" {
		t.Fatalf("expected only the password credential to survive, got %v", remaining)
	}
}

func TestDisable_NotEnabled(t *testing.T) {
	svc := twofactorsrv.NewService(newFakeStore(), "Lumera Academy")

	err := svc.Disable(context.Background(), "ana@example.com")
	if !errx.IsCode(err, twofactor.CodeNotEnabled) {
		t.Fatalf("expected not-enabled, got %v", err)
	}
}
