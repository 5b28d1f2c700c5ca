package kernel

import "strings"

// ============================================================================
// Principal - the resolved identity attached to each authenticated request
// ============================================================================

// Principal is derived from a verified bearer token and injected on every
// authenticated request. Authorities carry both scope-derived entries
// ("SCOPE_openid") and role entries ("ROLE_EDUCATOR").
type Principal struct {
	// Subject is the IdP subject identifier
	Subject string `json:"subject"`

	// Name is the resolved principal name: email, else preferred_username,
	// else the subject
	Name string `json:"name"`

	Email      string   `json:"email"`
	GivenName  string   `json:"given_name,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`

	// UserID is the local user record id, set after user sync. Nil on
	// requests where the local record was never resolved.
	UserID *UserID `json:"user_id,omitempty"`

	Authorities []string `json:"authorities"`
}

// IsValid verifies that the principal carries a usable identity
func (p *Principal) IsValid() bool {
	return p != nil && p.Name != ""
}

// HasAuthority checks for an exact authority entry
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// HasRole checks for a role authority; role is the bare name ("EDUCATOR")
func (p *Principal) HasRole(role string) bool {
	return p.HasAuthority("ROLE_" + strings.ToUpper(role))
}

// HasAnyRole checks whether the principal holds at least one of the roles
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool    { return p.HasRole("ADMIN") }
func (p *Principal) IsEducator() bool { return p.HasRole("EDUCATOR") }
func (p *Principal) IsStudent() bool  { return p.HasRole("STUDENT") }

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// PrincipalKey stores the request Principal in fiber locals
	PrincipalKey ContextKey = "principal"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)
