// Package access decides which requests may reach protected and
// manager-only routes.
package access

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/internal/middleware"
	"github.com/semanticallynull/bikerental-backend/internal/session"
)

const (
	LandingPath        = "/"
	UserHomePath       = "/bikes"
	ManagerHomePath    = "/manage/bikes"
	backendUnavailable = "Something went wrong, please try again"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
	Expired
)

func (s State) String() string {
	return [...]string{"unauthenticated", "authenticated", "expired"}[s]
}

// StateOf classifies a request's session at now.
func StateOf(s *session.Session, now time.Time) State {
	switch {
	case s == nil:
		return Unauthenticated
	case s.Expired(now):
		return Expired
	default:
		return Authenticated
	}
}

// ManagerLookup answers whether a user has the manager capability.
type ManagerLookup interface {
	IsManager(ctx context.Context, userID uuid.UUID) (bool, error)
}

// CookieClearer removes the session from the client.
type CookieClearer interface {
	ClearCookie(c *gin.Context)
}

type Controller struct {
	cookies  CookieClearer
	managers ManagerLookup
	now      func() time.Time
}

func NewController(cookies CookieClearer, managers ManagerLookup, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{cookies: cookies, managers: managers, now: now}
}

// State returns the state of the request's session.
func (a *Controller) State(c *gin.Context) State {
	s, _ := session.FromContext(c)
	return StateOf(s, a.now())
}

// Guard lets only requests with a valid session through. Others lose their
// session and are sent to the landing page.
func (a *Controller) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := a.State(c)
		if state == Authenticated {
			c.Next()
			return
		}

		middleware.GetLogger(c).DebugContext(c, "redirecting request without a valid session", "state", state.String())
		a.cookies.ClearCookie(c)
		c.Redirect(http.StatusFound, LandingPath)
		c.Abort()
	}
}

// RequireManager must run after Guard. Users without the manager capability
// are sent to the user landing route.
func (a *Controller) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session.FromContext(c)
		if !ok {
			c.Redirect(http.StatusFound, LandingPath)
			c.Abort()
			return
		}

		manager, err := a.managers.IsManager(c, s.UserID)
		if err != nil {
			middleware.GetLogger(c).ErrorContext(c, "failed to look up manager capability", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": "BACKEND_UNAVAILABLE", "message": backendUnavailable})
			return
		}
		if !manager {
			c.Redirect(http.StatusFound, UserHomePath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Logout ends the session from any state.
func (a *Controller) Logout(c *gin.Context) {
	a.cookies.ClearCookie(c)
	c.Redirect(http.StatusFound, LandingPath)
}

// HomePath is where a freshly signed-in user lands.
func HomePath(manager bool) string {
	if manager {
		return ManagerHomePath
	}
	return UserHomePath
}
