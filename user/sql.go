package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = errors.New("user not found")

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getUserQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const getUserQuery = "SELECT id, email, manager, created_at FROM users WHERE id = $1"

// IsManager reports whether the user carries the manager capability. A user
// without a row is not a manager.
func (r *Repository) IsManager(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return u.Manager, err
}

// Ensure creates the user row on first login and returns the stored user.
// An existing row is left untouched.
func (r *Repository) Ensure(ctx context.Context, id uuid.UUID, email string, manager bool) (User, error) {
	_, err := r.db.ExecContext(ctx, ensureUserQuery, id, email, manager)
	if err != nil {
		return User{}, err
	}
	return r.Get(ctx, id)
}

const ensureUserQuery = `
INSERT INTO users (id, email, manager, created_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO NOTHING
`

// List returns all users except the one given, ordered by email.
func (r *Repository) List(ctx context.Context, exceptID uuid.UUID) ([]User, error) {
	users := []User{}
	err := r.db.SelectContext(ctx, &users, listUsersQuery, exceptID)
	return users, err
}

const listUsersQuery = "SELECT id, email, manager, created_at FROM users WHERE id <> $1 ORDER BY email ASC"

func (r *Repository) Update(ctx context.Context, id uuid.UUID, email string, manager bool) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, updateUserQuery, email, manager, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const updateUserQuery = `UPDATE users SET email = $1, manager = $2 WHERE id = $3 RETURNING id, email, manager, created_at`

// Delete removes the user along with their reservations and reviews.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteUserQuery = "DELETE FROM users WHERE id = $1"
