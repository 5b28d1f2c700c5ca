package userinfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/user"
	"github.com/lumera/academy/pkg/iam/user/userinfra"
)

func newMockRepo(t *testing.T) (user.Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return userinfra.NewPostgresUserRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func sampleUser() *user.User {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &user.User{
		ID:        "u-1",
		Subject:   "subject-1",
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "Quispe",
		Role:      user.RoleStudent,
		Status:    user.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func userRows(u *user.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject", "email", "first_name", "last_name", "role", "status", "created_at", "updated_at",
	}).AddRow(
		u.ID.String(), u.Subject, u.Email, u.FirstName, u.LastName,
		string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
}

func TestSave(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSave_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), sampleUser())
	if !errx.IsCode(err, user.CodeEmailTaken) {
		t.Fatalf("expected email-taken, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), sampleUser()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdate_MissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), sampleUser())
	if !errx.IsCode(err, user.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleUser()

	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("ana@example.com").
		WillReturnRows(userRows(want))

	got, err := repo.FindByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID || got.Role != want.Role {
		t.Fatalf("row mismatch: %+v", got)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	if !errx.IsCode(err, user.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestFindBySubject(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleUser()

	mock.ExpectQuery("SELECT \\* FROM users WHERE subject").
		WithArgs("subject-1").
		WillReturnRows(userRows(want))

	got, err := repo.FindBySubject(context.Background(), "subject-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Subject != "subject-1" {
		t.Fatalf("row mismatch: %+v", got)
	}
}
