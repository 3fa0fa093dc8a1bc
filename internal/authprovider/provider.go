// Package authprovider delegates sign-in and account management to an
// external authentication service.
package authprovider

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUnavailable        = errors.New("auth provider unavailable")
)

// Provider is the auth service users sign in with.
type Provider interface {
	// Login checks the credentials and opens a provider session.
	Login(ctx context.Context, email, password string) (session.Session, error)
	// Register signs a user up. The account may need confirming before Login succeeds.
	Register(ctx context.Context, email, password string) (uuid.UUID, error)
	// CreateUser adds a confirmed account on behalf of a manager.
	CreateUser(ctx context.Context, email, password string) (uuid.UUID, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}
