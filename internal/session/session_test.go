package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec(Config{Secret: secret, Issuer: "bikerental", Audience: "bikerental-web"})
	require.NoError(t, err)
	return c
}

func TestCodec(t *testing.T) {
	ctx := context.Background()
	s := Session{
		UserID:      uuid.New(),
		Email:       "rider@example.com",
		AccessToken: "provider-token",
		ExpiresAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("Should decode what it encodes", func(t *testing.T) {
		c := testCodec(t, "secret")
		token, err := c.Encode(s)
		require.NoError(t, err)

		got, err := c.Decode(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, s, *got)
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		token, err := testCodec(t, "other").Encode(s)
		require.NoError(t, err)

		_, err = testCodec(t, "secret").Decode(ctx, token)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Should require a secret", func(t *testing.T) {
		_, err := NewCodec(Config{})
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}

func TestSessionExpired(t *testing.T) {
	s := Session{ExpiresAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	assert.False(t, s.Expired(s.ExpiresAt.Add(-time.Second)))
	assert.True(t, s.Expired(s.ExpiresAt))
	assert.True(t, s.Expired(s.ExpiresAt.Add(time.Hour)))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := testCodec(t, "secret")
	userID := uuid.New()

	r := gin.New()
	r.Use(c.Middleware()...)
	r.GET("/whoami", func(gc *gin.Context) {
		s, ok := FromContext(gc)
		if !ok {
			gc.String(http.StatusOK, "anonymous")
			return
		}
		gc.String(http.StatusOK, s.UserID.String())
	})

	do := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Should continue without a cookie", func(t *testing.T) {
		w := do(nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("Should expose a valid session", func(t *testing.T) {
		token, err := c.Encode(Session{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		w := do(&http.Cookie{Name: CookieName, Value: token})
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("Should keep the user id once the chain unwinds", func(t *testing.T) {
		var got uuid.UUID
		outer := gin.New()
		outer.Use(func(gc *gin.Context) {
			gc.Next()
			got, _ = UserID(gc)
		})
		outer.Use(c.Middleware()...)
		outer.GET("/whoami", func(gc *gin.Context) { gc.Status(http.StatusOK) })

		token, err := c.Encode(Session{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		outer.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, userID, got)
	})

	t.Run("Should treat a forged cookie as no session", func(t *testing.T) {
		token, err := testCodec(t, "forged").Encode(Session{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		w := do(&http.Cookie{Name: CookieName, Value: token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})
}
