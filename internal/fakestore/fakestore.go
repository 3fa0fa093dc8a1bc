// Package fakestore keeps bikes, users, reservations and reviews in memory.
// It implements the repository method sets for tests of the rental service
// and the HTTP handlers.
package fakestore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/reservation"
	"github.com/semanticallynull/bikerental-backend/review"
	"github.com/semanticallynull/bikerental-backend/user"
)

type Store struct {
	mu           sync.Mutex
	bikes        map[uuid.UUID]bike.Bike
	users        map[uuid.UUID]user.User
	reservations map[uuid.UUID]reservation.Reservation
	reviews      map[uuid.UUID]review.Review
	clock        time.Time

	// Err, when set, is returned by every operation.
	Err error
}

func New() *Store {
	return &Store{
		bikes:        make(map[uuid.UUID]bike.Bike),
		users:        make(map[uuid.UUID]user.User),
		reservations: make(map[uuid.UUID]reservation.Reservation),
		reviews:      make(map[uuid.UUID]review.Review),
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing creation times so ordering is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) Bikes() *Bikes               { return &Bikes{s} }
func (s *Store) Users() *Users               { return &Users{s} }
func (s *Store) Reservations() *Reservations { return &Reservations{s} }
func (s *Store) Reviews() *Reviews           { return &Reviews{s} }

// AddBike stores b as is, assigning an id and creation time when missing.
func (s *Store) AddBike(b bike.Bike) bike.Bike {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.tick()
	}
	s.bikes[b.ID] = b
	return b
}

func (s *Store) AddUser(email string, manager bool) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.User{ID: uuid.New(), Email: email, Manager: manager, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

// AddReservation stores a reservation without any overlap check.
func (s *Store) AddReservation(bikeID, userID uuid.UUID, dr reservation.DateRange) reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := reservation.Reservation{
		ID:        uuid.New(),
		BikeID:    bikeID,
		UserID:    userID,
		StartDate: dr.Start,
		EndDate:   dr.End,
		CreatedAt: s.tick(),
	}
	s.reservations[r.ID] = r
	return r
}

// ReviewCount is the number of stored reviews for the pair.
func (s *Store) ReviewCount(bikeID, userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reviews {
		if r.BikeID == bikeID && r.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Store) ReservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

type Bikes struct{ s *Store }

func (b *Bikes) List(_ context.Context, q bike.Query) ([]bike.Bike, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.Err != nil {
		return nil, b.s.Err
	}
	out := []bike.Bike{}
	for _, bk := range b.s.bikes {
		if q.Matches(bk) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *Bikes) Get(_ context.Context, id uuid.UUID) (bike.Bike, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.Err != nil {
		return bike.Bike{}, b.s.Err
	}
	bk, ok := b.s.bikes[id]
	if !ok {
		return bike.Bike{}, bike.ErrNotFound
	}
	return bk, nil
}

func (b *Bikes) Create(_ context.Context, bk *bike.Bike) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.Err != nil {
		return b.s.Err
	}
	bk.ID = uuid.New()
	bk.CreatedAt = b.s.tick()
	bk.Rating = sql.NullInt16{}
	b.s.bikes[bk.ID] = *bk
	return nil
}

func (b *Bikes) Update(_ context.Context, bk *bike.Bike) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.Err != nil {
		return b.s.Err
	}
	old, ok := b.s.bikes[bk.ID]
	if !ok {
		return bike.ErrNotFound
	}
	bk.CreatedAt = old.CreatedAt
	bk.Rating = old.Rating
	b.s.bikes[bk.ID] = *bk
	return nil
}

func (b *Bikes) Delete(_ context.Context, id uuid.UUID) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.Err != nil {
		return b.s.Err
	}
	if _, ok := b.s.bikes[id]; !ok {
		return bike.ErrNotFound
	}
	delete(b.s.bikes, id)
	for rid, r := range b.s.reservations {
		if r.BikeID == id {
			delete(b.s.reservations, rid)
		}
	}
	for rid, r := range b.s.reviews {
		if r.BikeID == id {
			delete(b.s.reviews, rid)
		}
	}
	return nil
}

type Users struct{ s *Store }

func (u *Users) Get(_ context.Context, id uuid.UUID) (user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return user.User{}, u.s.Err
	}
	usr, ok := u.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (u *Users) IsManager(ctx context.Context, id uuid.UUID) (bool, error) {
	usr, err := u.Get(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return false, nil
	}
	return usr.Manager, err
}

func (u *Users) Ensure(_ context.Context, id uuid.UUID, email string, manager bool) (user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return user.User{}, u.s.Err
	}
	if usr, ok := u.s.users[id]; ok {
		return usr, nil
	}
	usr := user.User{ID: id, Email: email, Manager: manager, CreatedAt: u.s.tick()}
	u.s.users[id] = usr
	return usr, nil
}

func (u *Users) List(_ context.Context, exceptID uuid.UUID) ([]user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return nil, u.s.Err
	}
	out := []user.User{}
	for _, usr := range u.s.users {
		if usr.ID != exceptID {
			out = append(out, usr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (u *Users) Update(_ context.Context, id uuid.UUID, email string, manager bool) (user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return user.User{}, u.s.Err
	}
	usr, ok := u.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Email = email
	usr.Manager = manager
	u.s.users[id] = usr
	return usr, nil
}

func (u *Users) Delete(_ context.Context, id uuid.UUID) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return u.s.Err
	}
	if _, ok := u.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(u.s.users, id)
	for rid, r := range u.s.reservations {
		if r.UserID == id {
			delete(u.s.reservations, rid)
		}
	}
	for rid, r := range u.s.reviews {
		if r.UserID == id {
			delete(u.s.reviews, rid)
		}
	}
	return nil
}

type Reservations struct{ s *Store }

func (r *Reservations) BookedBikeIDs(_ context.Context, dr reservation.DateRange) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, res := range r.s.reservations {
		if res.Range().Overlaps(dr) && !seen[res.BikeID] {
			seen[res.BikeID] = true
			ids = append(ids, res.BikeID)
		}
	}
	return ids, nil
}

func (r *Reservations) Create(_ context.Context, res *reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.bikes[res.BikeID]; !ok {
		return reservation.ErrBikeNotFound
	}
	for _, other := range r.s.reservations {
		if other.BikeID == res.BikeID && other.Range().Overlaps(res.Range()) {
			return reservation.ErrOverlap
		}
	}
	res.ID = uuid.New()
	res.CreatedAt = r.s.tick()
	r.s.reservations[res.ID] = *res
	return nil
}

func (r *Reservations) Get(_ context.Context, id uuid.UUID) (reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return reservation.Reservation{}, r.s.Err
	}
	res, ok := r.s.reservations[id]
	if !ok {
		return reservation.Reservation{}, reservation.ErrNotFound
	}
	return res, nil
}

func (r *Reservations) ListByUser(_ context.Context, userID uuid.UUID) ([]reservation.Detail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []reservation.Detail{}
	for _, res := range r.s.reservations {
		if res.UserID == userID {
			out = append(out, reservation.Detail{Reservation: res, Bike: r.s.summary(res.BikeID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *Reservations) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	res, ok := r.s.reservations[id]
	if !ok {
		return reservation.ErrNotFound
	}
	if res.UserID != userID {
		return reservation.ErrNotAuthorized
	}
	delete(r.s.reservations, id)
	return nil
}

func (r *Reservations) ReportByUser(_ context.Context) ([]reservation.UserReservations, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	users := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })

	report := []reservation.UserReservations{}
	for _, u := range users {
		entry := reservation.UserReservations{UserID: u.ID, Email: u.Email, Reservations: []reservation.Detail{}}
		for _, res := range r.s.sortedReservations() {
			if res.UserID == u.ID {
				entry.Reservations = append(entry.Reservations, reservation.Detail{Reservation: res, Bike: r.s.summary(res.BikeID)})
			}
		}
		report = append(report, entry)
	}
	return report, nil
}

func (r *Reservations) ReportByBike(_ context.Context) ([]reservation.BikeReservations, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	bikes := make([]bike.Bike, 0, len(r.s.bikes))
	for _, b := range r.s.bikes {
		bikes = append(bikes, b)
	}
	sort.Slice(bikes, func(i, j int) bool { return bikes[i].CreatedAt.Before(bikes[j].CreatedAt) })

	report := []reservation.BikeReservations{}
	for _, b := range bikes {
		entry := reservation.BikeReservations{Bike: b, Reservations: []reservation.Reservation{}}
		for _, res := range r.s.sortedReservations() {
			if res.BikeID == b.ID {
				entry.Reservations = append(entry.Reservations, res)
			}
		}
		report = append(report, entry)
	}
	return report, nil
}

func (s *Store) sortedReservations() []reservation.Reservation {
	out := make([]reservation.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (s *Store) summary(bikeID uuid.UUID) reservation.BikeSummary {
	b := s.bikes[bikeID]
	return reservation.BikeSummary{Model: b.Model, Color: b.Color, City: b.City, State: b.State}
}

type Reviews struct{ s *Store }

func (r *Reviews) Create(_ context.Context, rev *review.Review) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	if !review.ValidRating(int(rev.Rating)) {
		return false, review.ErrInvalidRating
	}
	var forBike []review.Review
	for _, other := range r.s.reviews {
		if other.BikeID == rev.BikeID {
			if other.UserID == rev.UserID {
				return false, nil
			}
			forBike = append(forBike, other)
		}
	}
	rev.ID = uuid.New()
	rev.CreatedAt = r.s.tick()
	r.s.reviews[rev.ID] = *rev

	if b, ok := r.s.bikes[rev.BikeID]; ok {
		avg, _ := review.AverageRating(append(forBike, *rev))
		b.Rating = sql.NullInt16{Int16: avg, Valid: true}
		r.s.bikes[b.ID] = b
	}
	return true, nil
}

func (r *Reviews) ListByUser(_ context.Context, userID uuid.UUID) ([]review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []review.Review{}
	for _, rev := range r.s.reviews {
		if rev.UserID == userID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
