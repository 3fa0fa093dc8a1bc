package reservation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("reservation not found")
	ErrOverlap       = errors.New("reservation overlaps with existing reservation")
	ErrBikeNotFound  = errors.New("bike not found")
	ErrNotAuthorized = errors.New("not authorized to modify this reservation")
)

// exclusionViolation is the SQLSTATE raised by reservations_no_overlap.
const exclusionViolation = "23P01"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// BookedBikeIDs returns the bikes with at least one reservation sharing a day with dr.
func (r *Repository) BookedBikeIDs(ctx context.Context, dr DateRange) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, bookedBikeIDsQuery, dr.Start, dr.End)
	return ids, err
}

const bookedBikeIDsQuery = `
SELECT DISTINCT bike_id FROM reservations
WHERE start_date <= $2
  AND end_date >= $1
`

// Create inserts a reservation after checking the bike is free for its dates.
func (r *Repository) Create(ctx context.Context, res *Reservation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the bike so concurrent reservations for it are serialized
	var bikeID uuid.UUID
	err = tx.GetContext(ctx, &bikeID, lockBikeQuery, res.BikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBikeNotFound
	}
	if err != nil {
		return err
	}

	var overlappingIDs []uuid.UUID
	err = tx.SelectContext(ctx, &overlappingIDs, checkOverlapQuery, bikeID, res.StartDate, res.EndDate)
	if err != nil {
		return err
	}
	if len(overlappingIDs) > 0 {
		return ErrOverlap
	}

	err = tx.GetContext(ctx, res, createReservationQuery, res.BikeID, res.UserID, res.StartDate, res.EndDate)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return err
	}

	return tx.Commit()
}

const lockBikeQuery = `SELECT id FROM bikes WHERE id = $1 FOR UPDATE`

const checkOverlapQuery = `
SELECT id FROM reservations
WHERE bike_id = $1
  AND start_date <= $3
  AND end_date >= $2
`

const createReservationQuery = `
INSERT INTO reservations (id, bike_id, user_id, start_date, end_date, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, now())
RETURNING id, bike_id, user_id, start_date, end_date, created_at
`

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}

// Get fetches a single reservation by its ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Reservation, error) {
	var res Reservation
	err := r.db.GetContext(ctx, &res, getQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	return res, err
}

const getQuery = `SELECT id, bike_id, user_id, start_date, end_date, created_at FROM reservations WHERE id = $1`

// ListByUser fetches the reservations of a user with the bike they book,
// sorted by start_date ASC.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Detail, error) {
	details := []Detail{}
	err := r.db.SelectContext(ctx, &details, listByUserQuery, userID)
	return details, err
}

const listByUserQuery = `
SELECT r.id, r.bike_id, r.user_id, r.start_date, r.end_date, r.created_at,
       b.model AS "bike.model", b.color AS "bike.color", b.city AS "bike.city", b.state AS "bike.state"
FROM reservations r
JOIN bikes b ON b.id = r.bike_id
WHERE r.user_id = $1
ORDER BY r.start_date ASC, r.created_at ASC
`

// Delete removes a reservation owned by userID.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteQuery, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing deleted: tell a missing reservation from someone else's
	_, err = r.Get(ctx, id)
	if err != nil {
		return err
	}
	return ErrNotAuthorized
}

const deleteQuery = `DELETE FROM reservations WHERE id = $1 AND user_id = $2`
