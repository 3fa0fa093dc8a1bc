package acceptance

import (
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerental-backend/bike"
)

type reservationResponse struct {
	ID        uuid.UUID `json:"id"`
	BikeID    uuid.UUID `json:"bikeId"`
	UserID    uuid.UUID `json:"userId"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Bike      *struct {
		Model string `json:"model"`
		City  string `json:"city"`
	} `json:"bike"`
	CanRate *bool `json:"canRate"`
}

type reserveRequest struct {
	BikeID    string `json:"bikeId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func TestReserve_CreatesReservationForSessionUser(t *testing.T) {
	ts := NewTestServer(t)
	u, cookie := ts.CreateTestUser(t, "rider@example.com", false)
	b := ts.CreateTestBike(t, bike.Trek, bike.Red, "Oakland", true)

	w := ts.POST("/reservations", reserveRequest{BikeID: b.ID.String(), StartDate: "2024-06-01", EndDate: "2024-06-05"}, cookie)
	ts.requireStatus(t, http.StatusCreated, w)

	res := decode[reservationResponse](t, w)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, b.ID, res.BikeID)
	assert.Equal(t, "2024-06-01", res.StartDate)
	assert.Equal(t, "2024-06-05", res.EndDate)

	w = ts.GET("/reservations", cookie)
	ts.requireStatus(t, http.StatusOK, w)
	list := decode[[]reservationResponse](t, w)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Bike)
	assert.Equal(t, "Trek", list[0].Bike.Model)
	assert.Equal(t, "Oakland", list[0].Bike.City)
}

func TestReserve_RejectsOverlap(t *testing.T) {
	ts := NewTestServer(t)
	u, cookie := ts.CreateTestUser(t, "rider@example.com", false)
	b := ts.CreateTestBike(t, bike.Trek, bike.Red, "Oakland", true)
	ts.CreateTestReservation(t, b.ID, u.ID, "2024-06-01", "2024-06-05")

	for _, dates := range [][2]string{
		{"2024-06-05", "2024-06-07"},
		{"2024-05-28", "2024-06-01"},
		{"2024-06-02", "2024-06-03"},
		{"2024-05-01", "2024-07-01"},
	} {
		w := ts.POST("/reservations", reserveRequest{BikeID: b.ID.String(), StartDate: dates[0], EndDate: dates[1]}, cookie)
		ts.requireStatus(t, http.StatusConflict, w)
	}

	w := ts.POST("/reservations", reserveRequest{BikeID: b.ID.String(), StartDate: "2024-06-06", EndDate: "2024-06-06"}, cookie)
	ts.requireStatus(t, http.StatusCreated, w)
}

func TestReserve_ConcurrentRequestsBookOnce(t *testing.T) {
	ts := NewTestServer(t)
	b := ts.CreateTestBike(t, bike.Giant, bike.Blue, "Oakland", true)

	const riders = 8
	codes := make([]int, riders)
	var wg sync.WaitGroup
	for i := range riders {
		_, cookie := ts.CreateTestUser(t, uuid.NewString()+"@example.com", false)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := ts.POST("/reservations", reserveRequest{BikeID: b.ID.String(), StartDate: "2024-06-10", EndDate: "2024-06-12"}, cookie)
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, created)

	var n int
	require.NoError(t, ts.DB.Get(&n, "SELECT count(*) FROM reservations WHERE bike_id = $1", b.ID))
	assert.Equal(t, 1, n)
}

func TestReserve_NotRentable(t *testing.T) {
	ts := NewTestServer(t)
	_, cookie := ts.CreateTestUser(t, "rider@example.com", false)
	b := ts.CreateTestBike(t, bike.Huffy, bike.Black, "Oakland", false)

	w := ts.POST("/reservations", reserveRequest{BikeID: b.ID.String(), StartDate: "2024-06-01", EndDate: "2024-06-01"}, cookie)
	ts.requireStatus(t, http.StatusConflict, w)
	assert.Contains(t, w.Body.String(), "BIKE_NOT_RENTABLE")
}

func TestCancel_OnlyOwner(t *testing.T) {
	ts := NewTestServer(t)
	owner, ownerCookie := ts.CreateTestUser(t, "owner@example.com", false)
	_, otherCookie := ts.CreateTestUser(t, "other@example.com", false)
	b := ts.CreateTestBike(t, bike.Trek, bike.Red, "Oakland", true)
	res := ts.CreateTestReservation(t, b.ID, owner.ID, "2024-06-01", "2024-06-05")

	w := ts.Do(http.MethodDelete, "/reservations/"+res.ID.String(), nil, otherCookie)
	ts.requireStatus(t, http.StatusSeeOther, w)
	_, err := ts.Bookings.Get(t.Context(), res.ID)
	require.NoError(t, err)

	w = ts.Do(http.MethodDelete, "/reservations/"+res.ID.String(), nil, ownerCookie)
	ts.requireStatus(t, http.StatusNoContent, w)

	w = ts.GET("/reservations", ownerCookie)
	ts.requireStatus(t, http.StatusOK, w)
	assert.Empty(t, decode[[]reservationResponse](t, w))
}

func TestRate_IsIdempotentAndUpdatesBikeRating(t *testing.T) {
	ts := NewTestServer(t)
	u1, c1 := ts.CreateTestUser(t, "one@example.com", false)
	_, c2 := ts.CreateTestUser(t, "two@example.com", false)
	b := ts.CreateTestBike(t, bike.Trek, bike.Red, "Oakland", true)
	ts.CreateTestReservation(t, b.ID, u1.ID, "2024-06-01", "2024-06-02")

	ts.requireStatus(t, http.StatusNoContent, ts.POST("/reviews", map[string]any{"bikeId": b.ID, "rating": 5}, c1))
	ts.requireStatus(t, http.StatusNoContent, ts.POST("/reviews", map[string]any{"bikeId": b.ID, "rating": 1}, c1))
	ts.requireStatus(t, http.StatusNoContent, ts.POST("/reviews", map[string]any{"bikeId": b.ID, "rating": 2}, c2))

	var n int
	require.NoError(t, ts.DB.Get(&n, "SELECT count(*) FROM reviews WHERE bike_id = $1", b.ID))
	assert.Equal(t, 2, n)

	stored, err := ts.Bikes.Get(t.Context(), b.ID)
	require.NoError(t, err)
	require.True(t, stored.Rating.Valid)
	assert.EqualValues(t, 4, stored.Rating.Int16)

	w := ts.GET("/reservations", c1)
	ts.requireStatus(t, http.StatusOK, w)
	list := decode[[]reservationResponse](t, w)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CanRate)
	assert.False(t, *list[0].CanRate)
}
