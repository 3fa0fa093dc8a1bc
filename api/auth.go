package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikerental-backend/internal/access"
	"github.com/semanticallynull/bikerental-backend/internal/authprovider"
	"github.com/semanticallynull/bikerental-backend/internal/middleware"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 30
)

type loginRequest struct {
	Action   string `form:"action" json:"action"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func validPassword(p string) bool {
	return len(p) >= minPasswordLength && len(p) <= maxPasswordLength
}

func (a *API) loginHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	if a.access.State(c) == access.Authenticated {
		c.Redirect(http.StatusSeeOther, access.UserHomePath)
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	switch {
	case email == "" || req.Password == "":
		validationError(c, "Missing email or password.")
		return
	case !validPassword(req.Password):
		validationError(c, "Password does not meet requirements")
		return
	}

	switch req.Action {
	case "login":
		s, err := a.auth.Login(c, email, req.Password)
		if errors.Is(err, authprovider.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_CREDENTIALS", "message": "Invalid email or password."})
			return
		}
		if err != nil {
			backendUnavailable(c, "failed to log in", err)
			return
		}

		u, err := a.users.Ensure(c, s.UserID, s.Email, a.managers[email])
		if err != nil {
			backendUnavailable(c, "failed to load user", err)
			return
		}
		if err := a.sessions.SetCookie(c, s); err != nil {
			backendUnavailable(c, "failed to set session cookie", err)
			return
		}

		logger.InfoContext(c, "user logged in", "user_id", u.ID, "manager", u.Manager)
		c.Redirect(http.StatusSeeOther, access.HomePath(u.Manager))

	case "register":
		id, err := a.auth.Register(c, email, req.Password)
		if errors.Is(err, authprovider.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"code": "USER_EXISTS", "message": "A user with this email already exists"})
			return
		}
		if err != nil {
			backendUnavailable(c, "failed to register user", err)
			return
		}
		if _, err := a.users.Ensure(c, id, email, a.managers[email]); err != nil {
			backendUnavailable(c, "failed to create user", err)
			return
		}

		logger.InfoContext(c, "user registered", "user_id", id)
		c.JSON(http.StatusCreated, gin.H{"registrationComplete": true})

	default:
		validationError(c, "Unknown action")
	}
}
