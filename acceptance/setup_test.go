package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerental-backend/api"
	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/internal/authprovider"
	"github.com/semanticallynull/bikerental-backend/internal/migrations"
	"github.com/semanticallynull/bikerental-backend/internal/session"
	"github.com/semanticallynull/bikerental-backend/rental"
	"github.com/semanticallynull/bikerental-backend/reservation"
	"github.com/semanticallynull/bikerental-backend/review"
	"github.com/semanticallynull/bikerental-backend/user"
)

// today is the server clock in every acceptance test.
var today = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type TestServer struct {
	DB       *sqlx.DB
	Router   *gin.Engine
	Codec    *session.Codec
	Auth     *authprovider.Fake
	Bikes    *bike.Repository
	Users    *user.Repository
	Reviews  *review.Repository
	Bookings *reservation.Repository
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dbURL)
	require.NoError(t, err, "failed to connect to database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Apply(t.Context(), db.DB))
	cleanupTestData(t, db)

	codec, err := session.NewCodec(session.Config{Secret: "acceptance", Issuer: "bikerental", Audience: "bikerental"})
	require.NoError(t, err)

	ts := &TestServer{
		DB:       db,
		Codec:    codec,
		Auth:     authprovider.NewFake(),
		Bikes:    bike.NewRepository(db),
		Users:    user.NewRepository(db),
		Reviews:  review.NewRepository(db),
		Bookings: reservation.NewRepository(db),
	}
	ts.Auth.Now = func() time.Time { return today }

	clock := func() time.Time { return today }
	a, err := api.New(api.Deps{
		Rental:   rental.NewService(ts.Bikes, ts.Bookings, ts.Reviews, rental.WithClock(clock)),
		Fleet:    ts.Bikes,
		Users:    ts.Users,
		Reports:  ts.Bookings,
		Auth:     ts.Auth,
		Sessions: codec,
	}, api.Config{LoginRate: "1000-M", Now: clock})
	require.NoError(t, err)
	ts.Router = a.Router()

	return ts
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()

	// Delete in order of dependencies
	for _, table := range []string{"reviews", "reservations", "credentials", "bikes", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("warning: failed to clean %s: %v", table, err)
		}
	}
}

// CreateTestUser stores a user row and returns a session cookie for it.
func (ts *TestServer) CreateTestUser(t *testing.T, email string, manager bool) (user.User, *http.Cookie) {
	t.Helper()
	u, err := ts.Users.Ensure(t.Context(), uuid.New(), email, manager)
	require.NoError(t, err)

	token, err := ts.Codec.Encode(session.Session{
		UserID:      u.ID,
		Email:       u.Email,
		AccessToken: "acceptance",
		ExpiresAt:   today.Add(time.Hour),
	})
	require.NoError(t, err)
	return u, &http.Cookie{Name: session.CookieName, Value: token}
}

func (ts *TestServer) CreateTestBike(t *testing.T, m bike.Model, c bike.Color, city string, rentable bool) bike.Bike {
	t.Helper()
	b := bike.Bike{Model: m, Color: c, City: city, State: "CA", Rentable: rentable}
	require.NoError(t, ts.Bikes.Create(t.Context(), &b))
	return b
}

func (ts *TestServer) CreateTestReservation(t *testing.T, bikeID, userID uuid.UUID, start, end string) reservation.Reservation {
	t.Helper()
	dr, err := reservation.ParseDateRange(start, end)
	require.NoError(t, err)
	r := reservation.Reservation{BikeID: bikeID, UserID: userID, StartDate: dr.Start, EndDate: dr.End}
	require.NoError(t, ts.Bookings.Create(t.Context(), &r))
	return r
}

func (ts *TestServer) Do(method, path string, body any, c *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body) //nolint:errcheck
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c != nil {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) GET(path string, c *http.Cookie) *httptest.ResponseRecorder {
	return ts.Do(http.MethodGet, path, nil, c)
}

func (ts *TestServer) POST(path string, body any, c *http.Cookie) *httptest.ResponseRecorder {
	return ts.Do(http.MethodPost, path, body, c)
}

func (ts *TestServer) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

// requireStatus fails with the response and the current tables dumped.
func (ts *TestServer) requireStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code == want {
		return
	}
	var bookings []reservation.Reservation
	_ = ts.DB.Select(&bookings, "SELECT id, bike_id, user_id, start_date, end_date, created_at FROM reservations")
	t.Fatalf("expected status %d, got %d: %s\nreservations: %s", want, w.Code, w.Body.String(), spew.Sdump(bookings))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
