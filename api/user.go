package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/internal/authprovider"
	"github.com/semanticallynull/bikerental-backend/internal/middleware"
	"github.com/semanticallynull/bikerental-backend/user"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Manager   bool      `json:"manager"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Manager: u.Manager, CreatedAt: u.CreatedAt}
}

// usersHandler lists every user but the signed-in manager.
func (a *API) usersHandler(c *gin.Context) {
	s := currentSession(c)

	users, err := a.users.List(c, s.UserID)
	if err != nil {
		backendUnavailable(c, "failed to list users", err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

type createUserRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=6,max=30"`
	Manager  bool   `form:"manager" json:"manager"`
}

// createUserHandler opens a confirmed account with the auth provider and
// mirrors it in the users table.
func (a *API) createUserHandler(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	id, err := a.auth.CreateUser(c, email, req.Password)
	if errors.Is(err, authprovider.ErrUserExists) {
		c.JSON(http.StatusConflict, gin.H{"code": "USER_EXISTS", "message": "A user with this email already exists"})
		return
	}
	if err != nil {
		backendUnavailable(c, "failed to create provider account", err)
		return
	}

	u, err := a.users.Ensure(c, id, email, req.Manager)
	if err != nil {
		backendUnavailable(c, "failed to create user", err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

type updateUserRequest struct {
	Email   string `form:"email" json:"email" binding:"required,email"`
	Manager bool   `form:"manager" json:"manager"`
}

func (a *API) updateUserHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	u, err := a.users.Update(c, id, normalizeEmail(req.Email), req.Manager)
	if errors.Is(err, user.ErrNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		backendUnavailable(c, "failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// deleteUserHandler removes the user row, which takes their reservations and
// reviews with it, then the provider account.
func (a *API) deleteUserHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	s := currentSession(c)

	id, ok := pathID(c)
	if !ok {
		return
	}
	if id == s.UserID {
		validationError(c, "You cannot delete your own account")
		return
	}

	err := a.users.Delete(c, id)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		backendUnavailable(c, "failed to delete user", err)
		return
	}
	if err := a.auth.DeleteUser(c, id); err != nil {
		backendUnavailable(c, "failed to delete provider account", err)
		return
	}

	logger.InfoContext(c, "user deleted", "user_id", id)
	c.Status(http.StatusNoContent)
}
