package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/rental"
	"github.com/semanticallynull/bikerental-backend/reservation"
)

type reservationResponse struct {
	ID        uuid.UUID            `json:"id"`
	BikeID    uuid.UUID            `json:"bikeId"`
	UserID    uuid.UUID            `json:"userId"`
	StartDate string               `json:"startDate"`
	EndDate   string               `json:"endDate"`
	CreatedAt time.Time            `json:"createdAt"`
	Bike      *bikeSummaryResponse `json:"bike,omitempty"`
	CanRate   *bool                `json:"canRate,omitempty"`
}

type bikeSummaryResponse struct {
	Model bike.Model `json:"model"`
	Color bike.Color `json:"color"`
	City  string     `json:"city"`
	State string     `json:"state"`
}

func toReservationResponse(r reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:        r.ID,
		BikeID:    r.BikeID,
		UserID:    r.UserID,
		StartDate: r.StartDate.Format(reservation.DateLayout),
		EndDate:   r.EndDate.Format(reservation.DateLayout),
		CreatedAt: r.CreatedAt,
	}
}

func toDetailResponse(d reservation.Detail) reservationResponse {
	resp := toReservationResponse(d.Reservation)
	resp.Bike = &bikeSummaryResponse{Model: d.Bike.Model, Color: d.Bike.Color, City: d.Bike.City, State: d.Bike.State}
	return resp
}

func (a *API) reservationsHandler(c *gin.Context) {
	s := currentSession(c)

	bookings, err := a.rental.Reservations(c, s.UserID)
	if err != nil {
		respondRentalError(c, "failed to get user reservations", err)
		return
	}

	responses := make([]reservationResponse, 0, len(bookings))
	for _, b := range bookings {
		resp := toDetailResponse(b.Detail)
		canRate := b.CanRate
		resp.CanRate = &canRate
		responses = append(responses, resp)
	}
	c.JSON(http.StatusOK, responses)
}

type reserveRequest struct {
	BikeID    string `form:"bikeId" json:"bikeId"`
	StartDate string `form:"startDate" json:"startDate"`
	EndDate   string `form:"endDate" json:"endDate"`
}

func (a *API) reserveHandler(c *gin.Context) {
	s := currentSession(c)

	var req reserveRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	res, err := a.rental.Reserve(c, s.UserID, rental.ReserveRequest{
		BikeID:    req.BikeID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondRentalError(c, "failed to create reservation", err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (a *API) cancelHandler(c *gin.Context) {
	s := currentSession(c)

	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.rental.Cancel(c, s.UserID, id); err != nil {
		respondRentalError(c, "failed to cancel reservation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rateRequest struct {
	BikeID string `form:"bikeId" json:"bikeId" binding:"required,uuid"`
	Rating int    `form:"rating" json:"rating" binding:"required"`
}

func (a *API) rateHandler(c *gin.Context) {
	s := currentSession(c)

	var req rateRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return
	}
	bikeID, err := uuid.Parse(req.BikeID)
	if err != nil {
		validationError(c, "Invalid bike id")
		return
	}

	if err := a.rental.Rate(c, s.UserID, bikeID, req.Rating); err != nil {
		respondRentalError(c, "failed to rate bike", err)
		return
	}
	c.Status(http.StatusNoContent)
}
