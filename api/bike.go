package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/reservation"
)

type bikeResponse struct {
	ID        uuid.UUID  `json:"id"`
	Model     bike.Model `json:"model"`
	Color     bike.Color `json:"color"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	Rentable  bool       `json:"rentable"`
	Rating    *int16     `json:"rating"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	br := bikeResponse{
		ID:        b.ID,
		Model:     b.Model,
		Color:     b.Color,
		City:      b.City,
		State:     b.State,
		Rentable:  b.Rentable,
		CreatedAt: b.CreatedAt,
	}
	if b.Rating.Valid {
		br.Rating = &b.Rating.Int16
	}
	return br
}

func toBikeResponses(bikes []bike.Bike) []bikeResponse {
	out := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		out = append(out, toBikeResponse(b))
	}
	return out
}

type availabilityResponse struct {
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Filter    filterResponse `json:"filter"`
	Bikes     []bikeResponse `json:"bikes"`
}

type filterResponse struct {
	Model  string `json:"model"`
	Color  string `json:"color"`
	Rating string `json:"rating"`
	City   string `json:"city"`
	State  string `json:"state"`
}

func toFilterResponse(f bike.Filter) filterResponse {
	fr := filterResponse{Model: "All", Color: "All", Rating: f.Rating.String(), City: f.City, State: f.State}
	if f.Model != nil {
		fr.Model = f.Model.String()
	}
	if f.Color != nil {
		fr.Color = f.Color.String()
	}
	return fr
}

// availableBikesHandler lists the rentable bikes free for the requested
// dates. Both dates default to today.
func (a *API) availableBikesHandler(c *gin.Context) {
	today := a.rental.Today().Start.Format(reservation.DateLayout)
	dr, err := reservation.ParseDateRange(c.DefaultQuery("startDate", today), c.DefaultQuery("endDate", today))
	if err != nil {
		validationError(c, err.Error())
		return
	}

	f := bike.ParseFilter(c.Request.URL.Query())
	bikes, err := a.rental.Available(c, f, dr)
	if err != nil {
		respondRentalError(c, "failed to list available bikes", err)
		return
	}

	c.JSON(http.StatusOK, availabilityResponse{
		StartDate: dr.Start.Format(reservation.DateLayout),
		EndDate:   dr.End.Format(reservation.DateLayout),
		Filter:    toFilterResponse(f),
		Bikes:     toBikeResponses(bikes),
	})
}

func (a *API) fleetHandler(c *gin.Context) {
	f := bike.ParseFilter(c.Request.URL.Query())
	bikes, err := a.rental.Fleet(c, f)
	if err != nil {
		respondRentalError(c, "failed to list bikes", err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponses(bikes))
}

type bikeRequest struct {
	Model    string `form:"model" json:"model" binding:"required,bikemodel"`
	Color    string `form:"color" json:"color" binding:"required,bikecolor"`
	City     string `form:"city" json:"city" binding:"required"`
	State    string `form:"state" json:"state" binding:"required"`
	Rentable *bool  `form:"rentable" json:"rentable"`
}

func (r bikeRequest) toBike() (bike.Bike, error) {
	m, err := bike.ParseModel(r.Model)
	if err != nil {
		return bike.Bike{}, err
	}
	col, err := bike.ParseColor(r.Color)
	if err != nil {
		return bike.Bike{}, err
	}
	b := bike.Bike{Model: m, Color: col, City: r.City, State: r.State, Rentable: true}
	if r.Rentable != nil {
		b.Rentable = *r.Rentable
	}
	return b, b.Validate()
}

func (a *API) bindBike(c *gin.Context) (bike.Bike, bool) {
	var req bikeRequest
	if err := c.ShouldBind(&req); err != nil {
		validationError(c, err.Error())
		return bike.Bike{}, false
	}
	b, err := req.toBike()
	if err != nil {
		validationError(c, err.Error())
		return bike.Bike{}, false
	}
	return b, true
}

func (a *API) createBikeHandler(c *gin.Context) {
	b, ok := a.bindBike(c)
	if !ok {
		return
	}
	if err := a.fleet.Create(c, &b); err != nil {
		backendUnavailable(c, "failed to create bike", err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

func (a *API) updateBikeHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, ok := a.bindBike(c)
	if !ok {
		return
	}
	b.ID = id

	err := a.fleet.Update(c, &b)
	if errors.Is(err, bike.ErrNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		backendUnavailable(c, "failed to update bike", err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) deleteBikeHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := a.fleet.Delete(c, id)
	if err != nil && !errors.Is(err, bike.ErrNotFound) {
		backendUnavailable(c, "failed to delete bike", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		validationError(c, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
