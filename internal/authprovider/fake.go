package authprovider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/internal/session"
)

// Fake is an in-memory Provider for tests.
type Fake struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount

	// TTL is the lifetime of sessions opened by Login.
	TTL time.Duration
	Now func() time.Time
	// Err, when set, is returned by every call.
	Err error
}

type fakeAccount struct {
	id       uuid.UUID
	password string
}

func NewFake() *Fake {
	return &Fake{
		accounts: make(map[string]fakeAccount),
		TTL:      time.Hour,
		Now:      time.Now,
	}
}

// AddUser adds an account and returns its id.
func (f *Fake) AddUser(email, password string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.accounts[normalizeEmail(email)] = fakeAccount{id: id, password: password}
	return id
}

// HasUser reports whether an account with the email exists.
func (f *Fake) HasUser(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.accounts[normalizeEmail(email)]
	return ok
}

func (f *Fake) Login(_ context.Context, email, password string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return session.Session{}, f.Err
	}
	acc, ok := f.accounts[normalizeEmail(email)]
	if !ok || acc.password != password {
		return session.Session{}, ErrInvalidCredentials
	}
	return session.Session{
		UserID:      acc.id,
		Email:       normalizeEmail(email),
		AccessToken: "fake-" + acc.id.String(),
		ExpiresAt:   f.Now().Add(f.TTL).UTC(),
	}, nil
}

func (f *Fake) Register(ctx context.Context, email, password string) (uuid.UUID, error) {
	return f.CreateUser(ctx, email, password)
}

func (f *Fake) CreateUser(_ context.Context, email, password string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return uuid.Nil, f.Err
	}
	if _, ok := f.accounts[normalizeEmail(email)]; ok {
		return uuid.Nil, ErrUserExists
	}
	id := uuid.New()
	f.accounts[normalizeEmail(email)] = fakeAccount{id: id, password: password}
	return id, nil
}

func (f *Fake) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for email, acc := range f.accounts {
		if acc.id == id {
			delete(f.accounts, email)
		}
	}
	return nil
}
