// Package rental composes availability and the reservation lifecycle on top
// of the bike, reservation and review stores.
package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/reservation"
	"github.com/semanticallynull/bikerental-backend/review"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBikeUnavailable    = errors.New("bike is already reserved for these dates")
	ErrNotRentable        = errors.New("bike is not rentable")
)

type BikeStore interface {
	List(ctx context.Context, q bike.Query) ([]bike.Bike, error)
	Get(ctx context.Context, id uuid.UUID) (bike.Bike, error)
}

type ReservationStore interface {
	BookedBikeIDs(ctx context.Context, dr reservation.DateRange) ([]uuid.UUID, error)
	Create(ctx context.Context, res *reservation.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]reservation.Detail, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type ReviewStore interface {
	Create(ctx context.Context, rev *review.Review) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]review.Review, error)
}

var operationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rental_operations_total",
		Help: "Rental operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// RegisterMetrics adds the rental counters to reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(operationsTotal)
}

type Service struct {
	bikes        BikeStore
	reservations ReservationStore
	reviews      ReviewStore
	now          func() time.Time
	tracer       trace.Tracer
}

type Option func(*Service)

// WithTracerProvider takes the service spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("rental")
	}
}

// WithClock replaces time.Now, used to default the requested dates to today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(bikes BikeStore, reservations ReservationStore, reviews ReviewStore, opts ...Option) *Service {
	s := &Service{
		bikes:        bikes,
		reservations: reservations,
		reviews:      reviews,
		now:          time.Now,
		tracer:       otel.Tracer("rental"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the single-day range the availability search defaults to.
func (s *Service) Today() reservation.DateRange {
	return reservation.Today(s.now())
}

// Available returns the rentable bikes matching f that have no reservation
// sharing a day with dr.
func (s *Service) Available(ctx context.Context, f bike.Filter, dr reservation.DateRange) (bikes []bike.Bike, err error) {
	ctx, span := s.start(ctx, "Available", attribute.String("start", dr.Start.Format(reservation.DateLayout)),
		attribute.String("end", dr.End.Format(reservation.DateLayout)))
	defer func() { s.finish(span, "available", err) }()

	booked, err := s.reservations.BookedBikeIDs(ctx, dr)
	if err != nil {
		return nil, backend(err)
	}

	bikes, err = s.bikes.List(ctx, bike.Query{Filter: f, RentableOnly: true, ExcludeIDs: booked})
	if err != nil {
		return nil, backend(err)
	}
	return bikes, nil
}

// Fleet returns every bike matching f regardless of availability.
func (s *Service) Fleet(ctx context.Context, f bike.Filter) ([]bike.Bike, error) {
	bikes, err := s.bikes.List(ctx, bike.Query{Filter: f})
	if err != nil {
		return nil, backend(err)
	}
	return bikes, nil
}

type ReserveRequest struct {
	BikeID    string
	StartDate string
	EndDate   string
}

// Reserve books a bike for userID. The user id must come from the session.
func (s *Service) Reserve(ctx context.Context, userID uuid.UUID, req ReserveRequest) (res reservation.Reservation, err error) {
	ctx, span := s.start(ctx, "Reserve", attribute.String("bike_id", req.BikeID))
	defer func() { s.finish(span, "reserve", err) }()

	if userID == uuid.Nil {
		return res, ErrNotAuthorized
	}
	if strings.TrimSpace(req.BikeID) == "" {
		return res, fmt.Errorf("%w: bike is required", ErrValidation)
	}
	bikeID, err := uuid.Parse(req.BikeID)
	if err != nil {
		return res, fmt.Errorf("%w: invalid bike id", ErrValidation)
	}
	dr, err := reservation.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	span.SetAttributes(attribute.Int("days", dr.Days()))

	b, err := s.bikes.Get(ctx, bikeID)
	if errors.Is(err, bike.ErrNotFound) {
		return res, ErrNotFound
	}
	if err != nil {
		return res, backend(err)
	}
	if !b.Rentable {
		return res, ErrNotRentable
	}

	res = reservation.Reservation{
		BikeID:    b.ID,
		UserID:    userID,
		StartDate: dr.Start,
		EndDate:   dr.End,
	}
	err = s.reservations.Create(ctx, &res)
	switch {
	case errors.Is(err, reservation.ErrOverlap):
		return reservation.Reservation{}, ErrBikeUnavailable
	case errors.Is(err, reservation.ErrBikeNotFound):
		return reservation.Reservation{}, ErrNotFound
	case err != nil:
		return reservation.Reservation{}, backend(err)
	}
	return res, nil
}

// Cancel deletes a reservation owned by userID.
func (s *Service) Cancel(ctx context.Context, userID, reservationID uuid.UUID) (err error) {
	ctx, span := s.start(ctx, "Cancel", attribute.String("reservation_id", reservationID.String()))
	defer func() { s.finish(span, "cancel", err) }()

	if userID == uuid.Nil {
		return ErrNotAuthorized
	}

	res, err := s.reservations.Get(ctx, reservationID)
	if errors.Is(err, reservation.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return backend(err)
	}
	if res.UserID != userID {
		return ErrNotAuthorized
	}

	err = s.reservations.Delete(ctx, reservationID, userID)
	switch {
	case errors.Is(err, reservation.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, reservation.ErrNotAuthorized):
		return ErrNotAuthorized
	case err != nil:
		return backend(err)
	}
	return nil
}

// Rate records the user's rating of a bike. Rating a bike twice is a no-op.
func (s *Service) Rate(ctx context.Context, userID, bikeID uuid.UUID, rating int) (err error) {
	ctx, span := s.start(ctx, "Rate", attribute.String("bike_id", bikeID.String()), attribute.Int("rating", rating))
	defer func() { s.finish(span, "rate", err) }()

	if userID == uuid.Nil {
		return ErrNotAuthorized
	}
	if bikeID == uuid.Nil {
		return fmt.Errorf("%w: bike is required", ErrValidation)
	}
	if !review.ValidRating(rating) {
		return fmt.Errorf("%w: %v", ErrValidation, review.ErrInvalidRating)
	}

	_, err = s.bikes.Get(ctx, bikeID)
	if errors.Is(err, bike.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return backend(err)
	}

	_, err = s.reviews.Create(ctx, &review.Review{
		BikeID: bikeID,
		UserID: userID,
		Rating: int16(rating),
	})
	if err != nil {
		return backend(err)
	}
	return nil
}

// Booking is a reservation of the user with the bike it books.
type Booking struct {
	reservation.Detail
	CanRate bool
}

// Reservations lists the user's reservations. CanRate is false once the user
// has reviewed the bike.
func (s *Service) Reservations(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthorized
	}

	details, err := s.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, backend(err)
	}
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, backend(err)
	}

	rated := make(map[uuid.UUID]bool, len(reviews))
	for _, r := range reviews {
		rated[r.BikeID] = true
	}

	bookings := make([]Booking, 0, len(details))
	for _, d := range details {
		bookings = append(bookings, Booking{Detail: d, CanRate: !rated[d.BikeID]})
	}
	return bookings, nil
}

func backend(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "rental."+name, trace.WithAttributes(attrs...))
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrBackendUnavailable):
		outcome = "backend_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		outcome = "rejected"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
