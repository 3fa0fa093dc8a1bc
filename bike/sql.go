package bike

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("bike not found")

var bikeColumns = []string{"id", "created_at", "model", "color", "city", "state", "rentable", "rating"}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// List returns the bikes matching q ordered by creation time.
func (r *Repository) List(ctx context.Context, q Query) ([]Bike, error) {
	query, args, err := q.Builder().ToSql()
	if err != nil {
		return nil, err
	}

	bikes := []Bike{}
	err = r.db.SelectContext(ctx, &bikes, query, args...)
	return bikes, err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Bike, error) {
	var bike Bike
	err := r.db.GetContext(ctx, &bike, getBike, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bike, ErrNotFound
	}
	return bike, err
}

const getBike = `SELECT id, created_at, model, color, city, state, rentable, rating FROM bikes WHERE id = $1`

// Create inserts b and fills in its generated id and creation time.
func (r *Repository) Create(ctx context.Context, b *Bike) error {
	return r.db.GetContext(ctx, b, createBike, b.Model, b.Color, b.City, b.State, b.Rentable)
}

const createBike = `
INSERT INTO bikes (id, model, color, city, state, rentable, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now())
RETURNING id, created_at, model, color, city, state, rentable, rating
`

// Update changes the manager-editable fields of b. Rating is left alone.
func (r *Repository) Update(ctx context.Context, b *Bike) error {
	query, args, err := squirrel.Update("bikes").
		Set("model", b.Model.String()).
		Set("color", b.Color.String()).
		Set("city", b.City).
		Set("state", b.State).
		Set("rentable", b.Rentable).
		Where("id = ?", b.ID).
		Suffix("RETURNING " + returningColumns).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = r.db.GetContext(ctx, b, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const returningColumns = "id, created_at, model, color, city, state, rentable, rating"

// Delete removes a bike together with its reservations and reviews.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteBike, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const deleteBike = `DELETE FROM bikes WHERE id = $1`
