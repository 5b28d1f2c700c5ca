package userinfra

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lumera/academy/pkg/errx"
	"github.com/lumera/academy/pkg/iam/user"
)

// PostgresUserRepository is the PostgreSQL implementation of user.Repository
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new repository instance
func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

// Save inserts a new user row
func (r *PostgresUserRepository) Save(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, subject, email, first_name, last_name, role, status,
			created_at, updated_at
		) VALUES (
			:id, :subject, :email, :first_name, :last_name, :role, :status,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return user.ErrEmailTaken().WithDetail("email", u.Email)
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}
	return nil
}

// Update rewrites the mutable profile columns
func (r *PostgresUserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			subject = :subject,
			email = :email,
			first_name = :first_name,
			last_name = :last_name,
			role = :role,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return user.ErrEmailTaken().WithDetail("email", u.Email)
		}
		return errx.Wrap(err, "failed to update user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrNotFound()
	}
	return nil
}

// FindByID looks a user up by platform ID
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by ID", errx.TypeInternal)
	}
	return &u, nil
}

// FindByEmail looks a user up by email
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &u, nil
}

// FindBySubject looks a user up by the identity-provider subject
func (r *PostgresUserRepository) FindBySubject(ctx context.Context, subject string) (*user.User, error) {
	var u user.User
	query := `SELECT * FROM users WHERE subject = $1`
	err := r.db.GetContext(ctx, &u, query, subject)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by subject", errx.TypeInternal)
	}
	return &u, nil
}
