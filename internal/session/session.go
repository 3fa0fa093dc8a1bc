// Package session carries the signed-in user between requests in a signed
// cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	adapter "github.com/gwatts/gin-adapter"
)

const CookieName = "__session"

// UserIDKey holds the session user id in the gin context. It outlives the
// request context the validated claims are attached to.
const UserIDKey = "session_user_id"

var (
	ErrInvalid        = errors.New("invalid session")
	ErrMissingSecret  = errors.New("session secret is required")
	errMissingExpires = errors.New("session has no expiry")
)

// Session is what the auth provider returned on login.
type Session struct {
	UserID      uuid.UUID
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the provider session is over at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Config struct {
	Secret   string
	Issuer   string
	Audience string
	// Secure restricts the cookie to HTTPS.
	Secure bool
}

// claims are the private claims of the cookie token. Expiry of the provider
// session is kept out of the registered exp claim so an expired session still
// decodes and can be told apart from a forged one.
type claims struct {
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (c *claims) Validate(context.Context) error {
	if c.ExpiresAt == 0 {
		return errMissingExpires
	}
	return nil
}

type signedClaims struct {
	jwt.RegisteredClaims
	claims
}

type Codec struct {
	cfg       Config
	validator *validator.Validator
}

func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	secret := []byte(cfg.Secret)

	v, err := validator.New(
		func(context.Context) (interface{}, error) { return secret, nil },
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims { return &claims{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("session: build validator: %w", err)
	}
	return &Codec{cfg: cfg, validator: v}, nil
}

// Encode signs s into a cookie value.
func (c *Codec) Encode(s Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  s.UserID.String(),
			Issuer:   c.cfg.Issuer,
			Audience: jwt.ClaimStrings{c.cfg.Audience},
		},
		claims: claims{
			Email:       s.Email,
			AccessToken: s.AccessToken,
			ExpiresAt:   s.ExpiresAt.Unix(),
		},
	})
	return token.SignedString([]byte(c.cfg.Secret))
}

// Decode verifies a cookie value and returns the session it carries.
func (c *Codec) Decode(ctx context.Context, token string) (*Session, error) {
	v, err := c.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	vc, _ := v.(*validator.ValidatedClaims)
	s, ok := fromClaims(vc)
	if !ok {
		return nil, ErrInvalid
	}
	return s, nil
}

// Middleware validates the session cookie when present. A request without a
// cookie, or with one that fails verification, continues without a session.
// Use it as r.Use(codec.Middleware()...).
func (c *Codec) Middleware() gin.HandlersChain {
	validate := func(ctx context.Context, token string) (interface{}, error) {
		v, err := c.validator.ValidateToken(ctx, token)
		if err != nil {
			slog.DebugContext(ctx, "discarding session cookie", "error", err)
			return nil, nil
		}
		return v, nil
	}

	mw := jwtmiddleware.New(validate,
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.CookieTokenExtractor(CookieName)),
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.WarnContext(r.Context(), "failed to read session cookie", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"INVALID_SESSION","message":"Invalid session cookie"}`))
		}),
	)
	return gin.HandlersChain{adapter.Wrap(mw.CheckJWT), rememberUserID}
}

func rememberUserID(gc *gin.Context) {
	if s, ok := FromContext(gc); ok {
		gc.Set(UserIDKey, s.UserID)
	}
}

// UserID returns the user id recorded by Middleware. Unlike FromContext it
// still answers after the middleware chain has unwound.
func UserID(gc *gin.Context) (uuid.UUID, bool) {
	v, ok := gc.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SetCookie stores s in the response.
func (c *Codec) SetCookie(gc *gin.Context, s Session) error {
	token, err := c.Encode(s)
	if err != nil {
		return err
	}
	gc.SetSameSite(http.SameSiteLaxMode)
	gc.SetCookie(CookieName, token, 0, "/", "", c.cfg.Secure, true)
	return nil
}

// ClearCookie removes the session cookie from the client.
func (c *Codec) ClearCookie(gc *gin.Context) {
	gc.SetSameSite(http.SameSiteLaxMode)
	gc.SetCookie(CookieName, "", -1, "/", "", c.cfg.Secure, true)
}

// FromContext returns the session validated by Middleware.
func FromContext(c *gin.Context) (*Session, bool) {
	vc, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return nil, false
	}
	return fromClaims(vc)
}

func fromClaims(vc *validator.ValidatedClaims) (*Session, bool) {
	if vc == nil {
		return nil, false
	}
	cl, ok := vc.CustomClaims.(*claims)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(vc.RegisteredClaims.Subject)
	if err != nil {
		return nil, false
	}
	return &Session{
		UserID:      id,
		Email:       cl.Email,
		AccessToken: cl.AccessToken,
		ExpiresAt:   time.Unix(cl.ExpiresAt, 0).UTC(),
	}, true
}
