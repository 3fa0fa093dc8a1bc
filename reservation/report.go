package reservation

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/bike"
)

type userReportRow struct {
	UserID    uuid.UUID      `db:"user_id"`
	Email     string         `db:"email"`
	ID        uuid.NullUUID  `db:"id"`
	BikeID    uuid.NullUUID  `db:"bike_id"`
	StartDate sql.NullTime   `db:"start_date"`
	EndDate   sql.NullTime   `db:"end_date"`
	CreatedAt sql.NullTime   `db:"created_at"`
	Model     sql.NullString `db:"model"`
	Color     sql.NullString `db:"color"`
	City      sql.NullString `db:"city"`
	State     sql.NullString `db:"state"`
}

// ReportByUser lists every user with the reservations they made, including
// users without any.
func (r *Repository) ReportByUser(ctx context.Context) ([]UserReservations, error) {
	var rows []userReportRow
	if err := r.db.SelectContext(ctx, &rows, reportByUserQuery); err != nil {
		return nil, err
	}

	report := []UserReservations{}
	for _, row := range rows {
		if len(report) == 0 || report[len(report)-1].UserID != row.UserID {
			report = append(report, UserReservations{
				UserID:       row.UserID,
				Email:        row.Email,
				Reservations: []Detail{},
			})
		}
		if !row.ID.Valid {
			continue
		}

		d := Detail{
			Reservation: Reservation{
				ID:        row.ID.UUID,
				BikeID:    row.BikeID.UUID,
				UserID:    row.UserID,
				StartDate: row.StartDate.Time,
				EndDate:   row.EndDate.Time,
				CreatedAt: row.CreatedAt.Time,
			},
			Bike: BikeSummary{City: row.City.String, State: row.State.String},
		}
		// Enum columns are constrained by the schema; a parse failure leaves the zero value.
		d.Bike.Model, _ = bike.ParseModel(row.Model.String)
		d.Bike.Color, _ = bike.ParseColor(row.Color.String)

		last := &report[len(report)-1]
		last.Reservations = append(last.Reservations, d)
	}
	return report, nil
}

const reportByUserQuery = `
SELECT u.id AS user_id, u.email,
       r.id, r.bike_id, r.start_date, r.end_date, r.created_at,
       b.model, b.color, b.city, b.state
FROM users u
LEFT JOIN reservations r ON r.user_id = u.id
LEFT JOIN bikes b ON b.id = r.bike_id
ORDER BY u.email ASC, u.id, r.start_date ASC
`

type bikeReportRow struct {
	bike.Bike
	ReservationID uuid.NullUUID `db:"reservation_id"`
	UserID        uuid.NullUUID `db:"user_id"`
	StartDate     sql.NullTime  `db:"start_date"`
	EndDate       sql.NullTime  `db:"end_date"`
	ReservedAt    sql.NullTime  `db:"reserved_at"`
}

// ReportByBike lists every bike with its reservations, including bikes that
// were never reserved.
func (r *Repository) ReportByBike(ctx context.Context) ([]BikeReservations, error) {
	var rows []bikeReportRow
	if err := r.db.SelectContext(ctx, &rows, reportByBikeQuery); err != nil {
		return nil, err
	}

	report := []BikeReservations{}
	for _, row := range rows {
		if len(report) == 0 || report[len(report)-1].Bike.ID != row.ID {
			report = append(report, BikeReservations{Bike: row.Bike, Reservations: []Reservation{}})
		}
		if !row.ReservationID.Valid {
			continue
		}
		last := &report[len(report)-1]
		last.Reservations = append(last.Reservations, Reservation{
			ID:        row.ReservationID.UUID,
			BikeID:    row.ID,
			UserID:    row.UserID.UUID,
			StartDate: row.StartDate.Time,
			EndDate:   row.EndDate.Time,
			CreatedAt: row.ReservedAt.Time,
		})
	}
	return report, nil
}

const reportByBikeQuery = `
SELECT b.id, b.created_at, b.model, b.color, b.city, b.state, b.rentable, b.rating,
       r.id AS reservation_id, r.user_id, r.start_date, r.end_date, r.created_at AS reserved_at
FROM bikes b
LEFT JOIN reservations r ON r.bike_id = b.id
ORDER BY b.created_at ASC, b.id, r.start_date ASC
`
