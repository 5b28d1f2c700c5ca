package auth

import (
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lumera/academy/pkg/kernel"
)

// MapClaims converts a verified token's claims into the request Principal.
//
// Authorities are the union of scope-derived entries ("SCOPE_openid") and role
// entries synthesized from the two claim shapes Keycloak-style IdPs emit: a
// flat "roles" string array (custom mapper) and the nested
// "realm_access.roles" array (default realm roles). Role names are upper-cased
// and prefixed with "ROLE_"; the union is a set, so a role present in both
// shapes yields one authority.
//
// The principal name takes the first non-empty of email, preferred_username,
// sub.
func MapClaims(claims jwt.MapClaims) *kernel.Principal {
	authorities := make(map[string]struct{})

	for _, scope := range strings.Fields(stringClaim(claims, "scope")) {
		authorities["SCOPE_"+scope] = struct{}{}
	}

	for _, role := range ExtractRoleClaims(claims) {
		authorities["ROLE_"+strings.ToUpper(role)] = struct{}{}
	}

	list := make([]string, 0, len(authorities))
	for a := range authorities {
		list = append(list, a)
	}
	sort.Strings(list)

	return &kernel.Principal{
		Subject:     stringClaim(claims, "sub"),
		Name:        principalName(claims),
		Email:       stringClaim(claims, "email"),
		GivenName:   stringClaim(claims, "given_name"),
		FamilyName:  stringClaim(claims, "family_name"),
		Authorities: list,
	}
}

// ExtractRoleClaims collects raw role names from both known claim shapes, in
// a fixed order: flat "roles" first, then "realm_access.roles". Duplicates
// are preserved here; MapClaims de-duplicates at the authority level.
func ExtractRoleClaims(claims jwt.MapClaims) []string {
	var roles []string

	roles = append(roles, stringListClaim(claims["roles"])...)

	if realmAccess, ok := claims["realm_access"].(map[string]interface{}); ok {
		roles = append(roles, stringListClaim(realmAccess["roles"])...)
	}
	return roles
}

func principalName(claims jwt.MapClaims) string {
	if email := stringClaim(claims, "email"); email != "" {
		return email
	}
	if username := stringClaim(claims, "preferred_username"); username != "" {
		return username
	}
	return stringClaim(claims, "sub")
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// stringListClaim tolerates the two encodings JSON claims arrive in
func stringListClaim(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
