package authprovider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/semanticallynull/bikerental-backend/internal/session"
)

const uniqueViolation = "23505"

// dummyHash is compared against when the email is unknown so both paths cost
// a bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// Local keeps accounts in the credentials table. It suits development and
// self-hosted setups without an external auth server.
type Local struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

func NewLocal(db *sqlx.DB, ttl time.Duration) *Local {
	return &Local{db: db, ttl: ttl, now: time.Now}
}

type credentialRow struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
}

func (l *Local) Login(ctx context.Context, email, password string) (session.Session, error) {
	var row credentialRow
	err := l.db.GetContext(ctx, &row, getCredentialQuery, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return session.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword(row.PasswordHash, []byte(password)); err != nil {
		return session.Session{}, ErrInvalidCredentials
	}

	return session.Session{
		UserID:      row.ID,
		Email:       row.Email,
		AccessToken: uuid.NewString(),
		ExpiresAt:   l.now().Add(l.ttl).UTC(),
	}, nil
}

const getCredentialQuery = `SELECT id, email, password_hash FROM credentials WHERE email = $1`

// Register creates an account that can log in right away.
func (l *Local) Register(ctx context.Context, email, password string) (uuid.UUID, error) {
	return l.CreateUser(ctx, email, password)
}

func (l *Local) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = l.db.GetContext(ctx, &id, createCredentialQuery, normalizeEmail(email), string(hash))
	if isUniqueViolation(err) {
		return uuid.Nil, ErrUserExists
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

const createCredentialQuery = `
INSERT INTO credentials (id, email, password_hash, created_at)
VALUES (gen_random_uuid(), $1, $2, now())
RETURNING id
`

func (l *Local) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := l.db.ExecContext(ctx, deleteCredentialQuery, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

const deleteCredentialQuery = `DELETE FROM credentials WHERE id = $1`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
