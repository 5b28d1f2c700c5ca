package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lumera/academy/pkg/logx"
)

// adminRequest performs an authenticated call against the realm admin API.
// The service-account token comes from the cached client-credentials source.
func (c *Client) adminRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	tok, err := c.admin.Token()
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeAdminFailed, fmt.Errorf("admin token: %w", err))
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, ErrRegistry.NewWithCause(CodeAdminFailed, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.AdminURL()+path, reader)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}
	return resp, nil
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

type adminUser struct {
	ID            string              `json:"id,omitempty"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
	Credentials   []adminCredential   `json:"credentials,omitempty"`
}

type adminCredential struct {
	ID             string `json:"id,omitempty"`
	Type           string `json:"type"`
	UserLabel      string `json:"userLabel,omitempty"`
	Temporary      bool   `json:"temporary"`
	Value          string `json:"value,omitempty"`
	SecretData     string `json:"secretData,omitempty"`
	CredentialData string `json:"credentialData,omitempty"`
}

type realmRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindUserIDByEmail resolves a realm user ID by exact email match
func (c *Client) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	path := "/users?exact=true&email=" + url.QueryEscape(email)
	resp, err := c.adminRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", adminStatusError(resp)
	}

	var users []adminUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return "", ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u.ID, nil
		}
	}
	return "", ErrRegistry.New(CodeUserNotFound)
}

// CreateUser registers a realm user with a permanent password credential and
// optionally assigns a realm role. Returns the new user's realm ID.
func (c *Client) CreateUser(ctx context.Context, input NewUser) (string, error) {
	payload := adminUser{
		Username:      input.Email,
		Email:         input.Email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Enabled:       true,
		EmailVerified: false,
		Attributes:    input.Attributes,
		Credentials: []adminCredential{{
			Type:      "password",
			Value:     input.Password,
			Temporary: false,
		}},
	}

	resp, err := c.adminRequest(ctx, http.MethodPost, "/users", payload)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", ErrRegistry.New(CodeUserExists)
	default:
		return "", adminStatusError(resp)
	}

	// Keycloak returns the new resource in the Location header
	userID := createdID(resp.Header.Get("Location"))
	if userID == "" {
		return "", ErrRegistry.NewWithCause(CodeAdminFailed,
			fmt.Errorf("create user: missing Location header"))
	}

	if input.RealmRole != "" {
		if err := c.AssignRealmRole(ctx, userID, input.RealmRole); err != nil {
			logx.WithError(err).WithField("user_id", userID).
				Warn("user created but role assignment failed")
			return userID, err
		}
	}
	return userID, nil
}

// AssignRealmRole grants a realm-level role to a user
func (c *Client) AssignRealmRole(ctx context.Context, userID, roleName string) error {
	resp, err := c.adminRequest(ctx, http.MethodGet, "/roles/"+url.PathEscape(roleName), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp)
		return adminStatusError(resp)
	}
	var role realmRole
	err = json.NewDecoder(resp.Body).Decode(&role)
	resp.Body.Close()
	if err != nil {
		return ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}

	path := "/users/" + url.PathEscape(userID) + "/role-mappings/realm"
	resp, err = c.adminRequest(ctx, http.MethodPost, path, []realmRole{role})
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusNoContent {
		return adminStatusError(resp)
	}
	return nil
}

// ListCredentials returns the stored credentials for a realm user
func (c *Client) ListCredentials(ctx context.Context, userID string) ([]Credential, error) {
	path := "/users/" + url.PathEscape(userID) + "/credentials"
	resp, err := c.adminRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, adminStatusError(resp)
	}

	var raw []adminCredential
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}

	creds := make([]Credential, 0, len(raw))
	for _, cr := range raw {
		creds = append(creds, Credential{ID: cr.ID, Type: cr.Type, UserLabel: cr.UserLabel})
	}
	return creds, nil
}

// AddTOTPCredential stores a verified TOTP secret as an otp credential on the
// user. Secret and device parameters go in the JSON shapes Keycloak expects.
func (c *Client) AddTOTPCredential(ctx context.Context, userID, secret, label string) error {
	secretData, err := json.Marshal(map[string]string{"value": secret})
	if err != nil {
		return ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}
	credentialData, err := json.Marshal(map[string]interface{}{
		"subType":   "totp",
		"digits":    6,
		"period":    30,
		"algorithm": "HmacSHA1",
	})
	if err != nil {
		return ErrRegistry.NewWithCause(CodeAdminFailed, err)
	}

	payload := adminCredential{
		Type:           CredentialTypeOTP,
		UserLabel:      label,
		SecretData:     string(secretData),
		CredentialData: string(credentialData),
	}

	path := "/users/" + url.PathEscape(userID) + "/credentials"
	resp, err := c.adminRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusCreated {
		return adminStatusError(resp)
	}
	return nil
}

// DeleteCredential removes a stored credential from a realm user
func (c *Client) DeleteCredential(ctx context.Context, userID, credentialID string) error {
	path := "/users/" + url.PathEscape(userID) + "/credentials/" + url.PathEscape(credentialID)
	resp, err := c.adminRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return adminStatusError(resp)
	}
	return nil
}

func adminStatusError(resp *http.Response) error {
	return ErrRegistry.New(CodeAdminFailed).
		WithDetail("status", resp.StatusCode).
		WithDetail("path", resp.Request.URL.Path)
}

func createdID(location string) string {
	if location == "" {
		return ""
	}
	idx := strings.LastIndex(location, "/")
	if idx < 0 || idx == len(location)-1 {
		return ""
	}
	return location[idx+1:]
}
