package review

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Review struct {
	ID        uuid.UUID `db:"id"`
	BikeID    uuid.UUID `db:"bike_id"`
	UserID    uuid.UUID `db:"user_id"`
	Rating    int16     `db:"rating"`
	CreatedAt time.Time `db:"created_at"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// AverageRating is the bike rating derived from a set of reviews: the mean
// rounded half away from zero. It reports false when there are no reviews.
func AverageRating(reviews []Review) (int16, bool) {
	if len(reviews) == 0 {
		return 0, false
	}
	var sum int
	for _, r := range reviews {
		sum += int(r.Rating)
	}
	n := len(reviews)
	return int16((2*sum + n) / (2 * n)), true
}
