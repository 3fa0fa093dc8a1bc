package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikerental-backend/internal/access"
	"github.com/semanticallynull/bikerental-backend/internal/middleware"
	"github.com/semanticallynull/bikerental-backend/rental"
)

const backendUnavailableMessage = "Something went wrong, please try again"

func validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": message})
}

func backendUnavailable(c *gin.Context, msg string, err error) {
	middleware.GetLogger(c).ErrorContext(c, msg, "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"code": "BACKEND_UNAVAILABLE", "message": backendUnavailableMessage})
}

// respondRentalError maps a rental error onto the response. Missing entities
// produce an empty result and ownership failures a redirect, so neither
// confirms whether a resource exists.
func respondRentalError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, rental.ErrValidation):
		validationError(c, err.Error())
	case errors.Is(err, rental.ErrNotAuthorized):
		c.Redirect(http.StatusSeeOther, access.UserHomePath)
	case errors.Is(err, rental.ErrNotFound):
		c.Status(http.StatusNoContent)
	case errors.Is(err, rental.ErrBikeUnavailable):
		c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "This bike is already reserved for these dates"})
	case errors.Is(err, rental.ErrNotRentable):
		c.JSON(http.StatusConflict, gin.H{"code": "BIKE_NOT_RENTABLE", "message": "This bike cannot be rented"})
	default:
		backendUnavailable(c, msg, err)
	}
}
