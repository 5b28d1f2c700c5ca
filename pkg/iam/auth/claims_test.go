package auth_test

import (
	"slices"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lumera/academy/pkg/iam/auth"
)

func TestMapClaims_ScopesAndRoles(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "subject-1",
		"scope": "openid profile email",
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"student", "offline_access"},
		},
	}

	p := auth.MapClaims(claims)

	for _, want := range []string{"SCOPE_openid", "SCOPE_profile", "SCOPE_email", "ROLE_STUDENT", "ROLE_OFFLINE_ACCESS"} {
		if !slices.Contains(p.Authorities, want) {
			t.Fatalf("missing authority %s in %v", want, p.Authorities)
		}
	}
}

func TestMapClaims_DeduplicatesAcrossClaimShapes(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "subject-1",
		"roles": []interface{}{"educator"},
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"educator", "EDUCATOR"},
		},
	}

	p := auth.MapClaims(claims)

	count := 0
	for _, a := range p.Authorities {
		if a == "ROLE_EDUCATOR" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one ROLE_EDUCATOR authority, got %d in %v", count, p.Authorities)
	}
}

func TestMapClaims_NamePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{
			name: "email wins",
			claims: jwt.MapClaims{
				"sub": "s", "preferred_username": "u", "email": "a@b.com",
			},
			want: "a@b.com",
		},
		{
			name: "username when no email",
			claims: jwt.MapClaims{
				"sub": "s", "preferred_username": "u",
			},
			want: "u",
		},
		{
			name:   "subject as last resort",
			claims: jwt.MapClaims{"sub": "s"},
			want:   "s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.MapClaims(tt.claims).Name; got != tt.want {
				t.Fatalf("expected name %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMapClaims_MissingClaimsYieldEmptyPrincipal(t *testing.T) {
	p := auth.MapClaims(jwt.MapClaims{})
	if len(p.Authorities) != 0 {
		t.Fatalf("expected no authorities, got %v", p.Authorities)
	}
	if p.Subject != "" || p.Name != "" {
		t.Fatalf("expected empty identity fields, got %+v", p)
	}
}

func TestExtractRoleClaims_Order(t *testing.T) {
	claims := jwt.MapClaims{
		"roles": []interface{}{"flat"},
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"nested"},
		},
	}

	roles := auth.ExtractRoleClaims(claims)
	if len(roles) != 2 || roles[0] != "flat" || roles[1] != "nested" {
		t.Fatalf("expected [flat nested], got %v", roles)
	}
}

func TestExtractRoleClaims_IgnoresNonStringEntries(t *testing.T) {
	claims := jwt.MapClaims{
		"roles": []interface{}{"valid", 42, nil},
	}
	roles := auth.ExtractRoleClaims(claims)
	if len(roles) != 1 || roles[0] != "valid" {
		t.Fatalf("expected [valid], got %v", roles)
	}
}
