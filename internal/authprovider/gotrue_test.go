package authprovider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoTrueServer(t *testing.T, handler http.HandlerFunc) *GoTrue {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoTrue(GoTrueConfig{URL: srv.URL + "/", AnonKey: "anon", ServiceKey: "service"})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestGoTrueLogin(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should open a session with the password grant", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "anon", r.Header.Get("apikey"))
			body := decodeBody(t, r)
			assert.Equal(t, "rider@example.com", body["email"])
			assert.Equal(t, "hunter22", body["password"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at","expires_in":3600,"expires_at":1717243200,
				"user":{"id":"` + userID.String() + `","email":"rider@example.com"}}`))
		})

		s, err := g.Login(ctx, "rider@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, "rider@example.com", s.Email)
		assert.Equal(t, "at", s.AccessToken)
		assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), s.ExpiresAt)
	})

	t.Run("Should map a rejected grant to invalid credentials", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		})

		_, err := g.Login(ctx, "rider@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Should report server failures as unavailable", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := g.Login(ctx, "rider@example.com", "hunter22")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestGoTrueAccounts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should read the user id of a signup", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"` + userID.String() + `","email":"new@example.com"}`))
		})

		id, err := g.Register(ctx, "new@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, userID, id)
	})

	t.Run("Should create confirmed users with the service key", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
			assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
			assert.Equal(t, true, decodeBody(t, r)["email_confirm"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"` + userID.String() + `"}`))
		})

		id, err := g.CreateUser(ctx, "staff@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, userID, id)
	})

	t.Run("Should report an existing account", func(t *testing.T) {
		g := newGoTrueServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
		})

		_, err := g.CreateUser(ctx, "staff@example.com", "hunter22")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("Should delete users and ignore missing ones", func(t *testing.T) {
		var calls int
		g := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/auth/v1/admin/users/"+userID.String(), r.URL.Path)
			if calls > 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, g.DeleteUser(ctx, userID))
		require.NoError(t, g.DeleteUser(ctx, userID))
		assert.Equal(t, 2, calls)
	})
}

func TestFake(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	id := f.AddUser("Rider@Example.com", "hunter22")

	s, err := f.Login(ctx, "rider@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, s.UserID)

	_, err = f.Login(ctx, "rider@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.Register(ctx, "rider@example.com", "other-pass")
	assert.ErrorIs(t, err, ErrUserExists)

	require.NoError(t, f.DeleteUser(ctx, id))
	assert.False(t, f.HasUser("rider@example.com"))
}
