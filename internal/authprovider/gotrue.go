package authprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/internal/session"
)

type GoTrueConfig struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL        string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

// GoTrue talks to a Supabase compatible GoTrue auth server.
type GoTrue struct {
	client     *resty.Client
	anonKey    string
	serviceKey string
}

func NewGoTrue(cfg GoTrueConfig) *GoTrue {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+"/auth/v1").
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &GoTrue{
		client:     client,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
	}
}

type credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm,omitempty"`
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	ExpiresAt   int64      `json:"expires_at"`
	User        gotrueUser `json:"user"`
}

// signupResponse is either a user or, with autoconfirm on, a session.
type signupResponse struct {
	gotrueUser
	User *gotrueUser `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) String() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

func (g *GoTrue) Login(ctx context.Context, email, password string) (session.Session, error) {
	var tok tokenResponse
	var apiErr errorResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("apikey", g.anonKey).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&tok).
		SetError(&apiErr).
		Post("/token")
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusBadRequest, resp.StatusCode() == http.StatusUnauthorized:
		return session.Session{}, ErrInvalidCredentials
	case resp.IsError():
		return session.Session{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode(), apiErr)
	}

	id, err := uuid.Parse(tok.User.ID)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: invalid user id %q", ErrUnavailable, tok.User.ID)
	}

	expiresAt := time.Unix(tok.ExpiresAt, 0).UTC()
	if tok.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
	}
	return session.Session{
		UserID:      id,
		Email:       tok.User.Email,
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresAt,
	}, nil
}

func (g *GoTrue) Register(ctx context.Context, email, password string) (uuid.UUID, error) {
	var out signupResponse
	req := g.client.R().
		SetContext(ctx).
		SetHeader("apikey", g.anonKey).
		SetBody(credentials{Email: email, Password: password})
	err := g.createUser(req, "/signup", &out)
	if err != nil {
		return uuid.Nil, err
	}
	u := out.gotrueUser
	if out.User != nil {
		u = *out.User
	}
	return parseUserID(u.ID)
}

func (g *GoTrue) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	var out gotrueUser
	req := g.client.R().
		SetContext(ctx).
		SetHeader("apikey", g.serviceKey).
		SetAuthToken(g.serviceKey).
		SetBody(credentials{Email: email, Password: password, EmailConfirm: true})
	err := g.createUser(req, "/admin/users", &out)
	if err != nil {
		return uuid.Nil, err
	}
	return parseUserID(out.ID)
}

func (g *GoTrue) createUser(req *resty.Request, path string, out any) error {
	var apiErr errorResponse
	resp, err := req.SetResult(out).SetError(&apiErr).Post(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnprocessableEntity,
		resp.StatusCode() == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.String()), "already"):
		return ErrUserExists
	case resp.IsError():
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode(), apiErr)
	}
	return nil
}

func (g *GoTrue) DeleteUser(ctx context.Context, id uuid.UUID) error {
	var apiErr errorResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("apikey", g.serviceKey).
		SetAuthToken(g.serviceKey).
		SetPathParam("id", id.String()).
		SetError(&apiErr).
		Delete("/admin/users/{id}")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Already gone
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode(), apiErr)
	}
	return nil
}

func parseUserID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id %q", ErrUnavailable, s)
	}
	return id, nil
}
