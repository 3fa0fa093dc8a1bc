package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/bike"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = time.DateOnly

var (
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidDate    = errors.New("invalid date")
	ErrEndBeforeStart = errors.New("end date is before start date")
)

// DateRange is a closed interval of calendar dates. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, ErrMissingField
	}
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, ErrInvalidDate
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, ErrInvalidDate
	}
	return NewDateRange(s, e)
}

// NewDateRange truncates s and e to calendar dates and checks their order.
func NewDateRange(s, e time.Time) (DateRange, error) {
	r := DateRange{Start: Day(s), End: Day(e)}
	if r.End.Before(r.Start) {
		return DateRange{}, ErrEndBeforeStart
	}
	return r, nil
}

// Day returns the calendar date of t as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the single-day range containing now.
func Today(now time.Time) DateRange {
	d := Day(now)
	return DateRange{Start: d, End: d}
}

// Overlaps reports whether r and o share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Days is the number of calendar days covered by r.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

type Reservation struct {
	ID        uuid.UUID `db:"id"`
	BikeID    uuid.UUID `db:"bike_id"`
	UserID    uuid.UUID `db:"user_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	CreatedAt time.Time `db:"created_at"`
}

func (r Reservation) Range() DateRange {
	return DateRange{Start: Day(r.StartDate), End: Day(r.EndDate)}
}

// BikeSummary is the part of a bike shown alongside its reservations.
type BikeSummary struct {
	Model bike.Model `db:"model"`
	Color bike.Color `db:"color"`
	City  string     `db:"city"`
	State string     `db:"state"`
}

// Detail is a reservation joined with the bike it books.
type Detail struct {
	Reservation
	Bike BikeSummary `db:"bike"`
}

// UserReservations groups reservations under the user who made them.
type UserReservations struct {
	UserID       uuid.UUID
	Email        string
	Reservations []Detail
}

// BikeReservations groups reservations under the booked bike.
type BikeReservations struct {
	Bike         bike.Bike
	Reservations []Reservation
}
