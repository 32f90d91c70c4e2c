package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/platform/db"
	"github.com/revforge/revforge/internal/shared"
)

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = fmt.Errorf("%w: email already registered", shared.ErrDuplicate)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, is_staff, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsStaff, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: scan user: %w", err)
	}
	return u, nil
}

// CreateUser inserts the account and its empty profile row in one
// transaction so every user has a profile from the start.
func (r *PGRepository) CreateUser(ctx context.Context, u User) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash, first_name, last_name, is_staff, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+userColumns,
			u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsStaff, u.IsActive)
		var err error
		created, err = scanUser(row)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, created.ID)
		if err != nil {
			return fmt.Errorf("auth: create profile: %w", err)
		}
		return nil
	})
	if shared.IsUniqueViolation(err, "users_email_key") {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

var _ Repository = (*PGRepository)(nil)
