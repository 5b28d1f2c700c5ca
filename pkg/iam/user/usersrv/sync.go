// Package usersrv keeps the local user projection in step with the
// identity provider after each successful login.
package usersrv

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/auth/keycloak"
	"github.com/lumera/academy/pkg/iam/user"
	"github.com/lumera/academy/pkg/kernel"
	"github.com/lumera/academy/pkg/logx"
)

// SyncService upserts local users from identity-provider claims. The IdP is
// the source of truth for identity and roles; this side only mirrors.
type SyncService struct {
	repo user.Repository
	now  func() time.Time
}

func NewSyncService(repo user.Repository) *SyncService {
	return &SyncService{repo: repo, now: time.Now}
}

// Sync finds or creates the local row for an authenticated identity. Lookup
// prefers the stable subject and falls back to email for rows created before
// the subject column was populated. Profile fields and role are refreshed on
// every call so IdP-side edits land here without a migration.
func (s *SyncService) Sync(ctx context.Context, info keycloak.UserInfo) (*user.User, error) {
	existing, err := s.repo.FindBySubject(ctx, info.Subject)
	if err != nil {
		if !errx.IsCode(err, user.CodeNotFound) {
			return nil, err
		}
		existing, err = s.repo.FindByEmail(ctx, info.Email)
		if err != nil {
			if !errx.IsCode(err, user.CodeNotFound) {
				return nil, err
			}
			existing = nil
		}
	}

	role := roleFrom(info.Roles)

	if existing != nil {
		changed := s.refresh(existing, info, role)
		if changed {
			existing.UpdatedAt = s.now()
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	// Educators need a manual review before their courses go live, so a
	// fresh educator account starts out pending.
	status := user.StatusActive
	if role == user.RoleEducator && !info.EmailVerified {
		status = user.StatusPendingVerification
	}

	now := s.now()
	created := &user.User{
		ID:        kernel.NewUserID(uuid.NewString()),
		Subject:   info.Subject,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, created); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"user_id": created.ID.String(),
		"role":    string(created.Role),
		"status":  string(created.Status),
	}).Info("provisioned local user from identity provider")
	return created, nil
}

// refresh copies over IdP-owned fields, reporting whether anything moved
func (s *SyncService) refresh(u *user.User, info keycloak.UserInfo, role user.Role) bool {
	changed := false
	if u.Subject != info.Subject {
		u.Subject = info.Subject
		changed = true
	}
	if info.Email != "" && u.Email != info.Email {
		u.Email = info.Email
		changed = true
	}
	if info.GivenName != "" && u.FirstName != info.GivenName {
		u.FirstName = info.GivenName
		changed = true
	}
	if info.FamilyName != "" && u.LastName != info.FamilyName {
		u.LastName = info.FamilyName
		changed = true
	}
	if u.Role != role {
		u.Role = role
		changed = true
	}
	if u.Status == user.StatusPendingVerification && info.EmailVerified {
		u.Status = user.StatusActive
		changed = true
	}
	return changed
}

// roleFrom picks the highest platform role present in the realm roles
func roleFrom(roles []string) user.Role {
	role := user.RoleStudent
	for _, r := range roles {
		switch user.ParseRole(r) {
		case user.RoleAdmin:
			return user.RoleAdmin
		case user.RoleEducator:
			role = user.RoleEducator
		}
	}
	return role
}
