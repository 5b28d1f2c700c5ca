// Package user holds the local user projection of identity-provider
// accounts. The IdP owns credentials; this side owns the catalog-facing
// profile row that courses, enrollments and reviews reference.
package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeNotFound   = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailTaken = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email already registered")
	CodeSaveFailed = ErrRegistry.Register("SAVE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to persist user")
)

func ErrNotFound() *errx.Error {
	return ErrRegistry.New(CodeNotFound)
}

func ErrEmailTaken() *errx.Error {
	return ErrRegistry.New(CodeEmailTaken)
}

// ============================================================================
// Domain Types
// ============================================================================

// Role is the platform-level role mirrored from the realm role assignment
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleEducator Role = "EDUCATOR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalizes a role string, defaulting unknown values to student
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleEducator:
		return RoleEducator
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Status tracks account lifecycle on the platform side
type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
)

// User is the local profile row keyed by the IdP subject
type User struct {
	ID        kernel.UserID `db:"id" json:"id"`
	Subject   string        `db:"subject" json:"-"`
	Email     string        `db:"email" json:"email"`
	FirstName string        `db:"first_name" json:"firstName"`
	LastName  string        `db:"last_name" json:"lastName"`
	Role      Role          `db:"role" json:"role"`
	Status    Status        `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

// FullName joins the name parts, tolerating either being empty
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive reports whether the account may use the platform
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
