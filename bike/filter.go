package bike

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// RatingFilter constrains a bike's rating. The zero value matches any rating.
type RatingFilter struct {
	kind  ratingKind
	value int16
}

type ratingKind int

const (
	ratingAny ratingKind = iota
	ratingNone
	ratingExact
)

const (
	allValue      = "All"
	noRatingValue = "No rating"
)

func AnyRating() RatingFilter { return RatingFilter{} }

// NoRating matches bikes that have not been rated yet.
func NoRating() RatingFilter { return RatingFilter{kind: ratingNone} }

// RatingOf matches bikes rated exactly r. Values outside 1..5 match any rating.
func RatingOf(r int) RatingFilter {
	if r < 1 || r > 5 {
		return RatingFilter{}
	}
	return RatingFilter{kind: ratingExact, value: int16(r)}
}

func ParseRating(s string) RatingFilter {
	switch s {
	case "", allValue:
		return AnyRating()
	case noRatingValue:
		return NoRating()
	}
	r, err := strconv.Atoi(s)
	if err != nil {
		return AnyRating()
	}
	return RatingOf(r)
}

func (r RatingFilter) String() string {
	switch r.kind {
	case ratingNone:
		return noRatingValue
	case ratingExact:
		return strconv.Itoa(int(r.value))
	}
	return allValue
}

// Filter is the set of optional criteria a user can browse bikes by. A nil
// enum or empty substring leaves that field unconstrained.
type Filter struct {
	Model  *Model
	Color  *Color
	Rating RatingFilter
	City   string
	State  string
}

// ParseFilter reads a Filter from query parameters. It never fails: "All",
// empty and unrecognised values impose no constraint.
func ParseFilter(v url.Values) Filter {
	var f Filter
	if m, err := ParseModel(v.Get("model")); err == nil {
		f.Model = &m
	}
	if c, err := ParseColor(v.Get("color")); err == nil {
		f.Color = &c
	}
	f.Rating = ParseRating(v.Get("rating"))
	f.City = strings.TrimSpace(v.Get("city"))
	f.State = strings.TrimSpace(v.Get("state"))
	return f
}

// Matches reports whether b satisfies every criterion of f. It mirrors the
// predicate built by Query.Builder.
func (f Filter) Matches(b Bike) bool {
	if f.Model != nil && b.Model != *f.Model {
		return false
	}
	if f.Color != nil && b.Color != *f.Color {
		return false
	}
	switch f.Rating.kind {
	case ratingNone:
		if b.Rating.Valid {
			return false
		}
	case ratingExact:
		if !b.Rating.Valid || b.Rating.Int16 != f.Rating.value {
			return false
		}
	}
	if f.City != "" && !containsFold(b.City, f.City) {
		return false
	}
	if f.State != "" && !containsFold(b.State, f.State) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Query is a Filter plus the constraints of the rental flow.
type Query struct {
	Filter
	// RentableOnly restricts the result to bikes users may rent.
	RentableOnly bool
	// ExcludeIDs drops bikes by id, typically those already booked.
	ExcludeIDs []uuid.UUID
}

// Matches is the in-memory equivalent of Builder.
func (q Query) Matches(b Bike) bool {
	if q.RentableOnly && !b.Rentable {
		return false
	}
	for _, id := range q.ExcludeIDs {
		if id == b.ID {
			return false
		}
	}
	return q.Filter.Matches(b)
}

func (q Query) Builder() squirrel.SelectBuilder {
	sb := squirrel.Select(bikeColumns...).
		From("bikes").
		PlaceholderFormat(squirrel.Dollar)

	if q.Model != nil {
		sb = sb.Where(squirrel.Eq{"model": q.Model.String()})
	}
	if q.Color != nil {
		sb = sb.Where(squirrel.Eq{"color": q.Color.String()})
	}
	switch q.Rating.kind {
	case ratingNone:
		sb = sb.Where(squirrel.Eq{"rating": nil})
	case ratingExact:
		sb = sb.Where(squirrel.Eq{"rating": q.Rating.value})
	}
	if q.City != "" {
		sb = sb.Where(squirrel.ILike{"city": "%" + escapeLike(q.City) + "%"})
	}
	if q.State != "" {
		sb = sb.Where(squirrel.ILike{"state": "%" + escapeLike(q.State) + "%"})
	}
	if q.RentableOnly {
		sb = sb.Where(squirrel.Eq{"rentable": true})
	}
	// An empty NOT IN list must not reach the database.
	if len(q.ExcludeIDs) > 0 {
		ids := make([]string, 0, len(q.ExcludeIDs))
		for _, id := range q.ExcludeIDs {
			ids = append(ids, id.String())
		}
		sb = sb.Where(squirrel.NotEq{"id": ids})
	}

	return sb.OrderBy("created_at ASC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
