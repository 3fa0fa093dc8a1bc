package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type userReportResponse struct {
	UserID       uuid.UUID             `json:"userId"`
	Email        string                `json:"email"`
	Reservations []reservationResponse `json:"reservations"`
}

type bikeReportResponse struct {
	Bike         bikeResponse          `json:"bike"`
	Reservations []reservationResponse `json:"reservations"`
}

// reservationReportHandler groups every reservation by user, or by bike with
// ?type=bikes.
func (a *API) reservationReportHandler(c *gin.Context) {
	switch c.DefaultQuery("type", "users") {
	case "users":
		report, err := a.reports.ReportByUser(c)
		if err != nil {
			backendUnavailable(c, "failed to build reservation report", err)
			return
		}

		out := make([]userReportResponse, 0, len(report))
		for _, entry := range report {
			rs := make([]reservationResponse, 0, len(entry.Reservations))
			for _, d := range entry.Reservations {
				rs = append(rs, toDetailResponse(d))
			}
			out = append(out, userReportResponse{UserID: entry.UserID, Email: entry.Email, Reservations: rs})
		}
		c.JSON(http.StatusOK, out)

	case "bikes":
		report, err := a.reports.ReportByBike(c)
		if err != nil {
			backendUnavailable(c, "failed to build reservation report", err)
			return
		}

		out := make([]bikeReportResponse, 0, len(report))
		for _, entry := range report {
			rs := make([]reservationResponse, 0, len(entry.Reservations))
			for _, r := range entry.Reservations {
				rs = append(rs, toReservationResponse(r))
			}
			out = append(out, bikeReportResponse{Bike: toBikeResponse(entry.Bike), Reservations: rs})
		}
		c.JSON(http.StatusOK, out)

	default:
		validationError(c, "type must be users or bikes")
	}
}
