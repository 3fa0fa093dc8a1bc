package review

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create stores rev unless the user already reviewed the bike. The bike's
// rating is refreshed in the same transaction. It reports whether a row was
// written.
func (r *Repository) Create(ctx context.Context, rev *Review) (bool, error) {
	if !ValidRating(int(rev.Rating)) {
		return false, ErrInvalidRating
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, rev, createReviewQuery, rev.BikeID, rev.UserID, rev.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		// ON CONFLICT DO NOTHING returns no row
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, refreshBikeRatingQuery, rev.BikeID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

const createReviewQuery = `
INSERT INTO reviews (id, bike_id, user_id, rating, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, now())
ON CONFLICT (bike_id, user_id) DO NOTHING
RETURNING id, bike_id, user_id, rating, created_at
`

const refreshBikeRatingQuery = `
UPDATE bikes SET rating = (
    SELECT round(avg(rating))::smallint FROM reviews WHERE bike_id = $1
)
WHERE id = $1
`

// ListByUser returns every review written by a user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Review, error) {
	reviews := []Review{}
	err := r.db.SelectContext(ctx, &reviews, listByUserQuery, userID)
	return reviews, err
}

const listByUserQuery = `SELECT id, bike_id, user_id, rating, created_at FROM reviews WHERE user_id = $1 ORDER BY created_at ASC`
