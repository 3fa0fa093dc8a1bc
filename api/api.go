package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/bikerental-backend/bike"
	"github.com/semanticallynull/bikerental-backend/internal/access"
	"github.com/semanticallynull/bikerental-backend/internal/authprovider"
	"github.com/semanticallynull/bikerental-backend/internal/middleware"
	"github.com/semanticallynull/bikerental-backend/internal/session"
	"github.com/semanticallynull/bikerental-backend/rental"
	"github.com/semanticallynull/bikerental-backend/reservation"
	"github.com/semanticallynull/bikerental-backend/user"
)

// FleetStore is the manager view of the bikes table.
type FleetStore interface {
	Create(ctx context.Context, b *bike.Bike) error
	Update(ctx context.Context, b *bike.Bike) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	IsManager(ctx context.Context, id uuid.UUID) (bool, error)
	Ensure(ctx context.Context, id uuid.UUID, email string, manager bool) (user.User, error)
	List(ctx context.Context, exceptID uuid.UUID) ([]user.User, error)
	Update(ctx context.Context, id uuid.UUID, email string, manager bool) (user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReportStore interface {
	ReportByUser(ctx context.Context) ([]reservation.UserReservations, error)
	ReportByBike(ctx context.Context) ([]reservation.BikeReservations, error)
}

type Deps struct {
	Rental   *rental.Service
	Fleet    FleetStore
	Users    UserStore
	Reports  ReportStore
	Auth     authprovider.Provider
	Sessions *session.Codec

	Logger   *slog.Logger
	Registry *prometheus.Registry
}

type Config struct {
	// LoginRate limits login attempts per client, e.g. "10-M".
	LoginRate string
	// ManagerEmails get the manager capability when their user row is first created.
	ManagerEmails   []string
	MetricsUsername string
	MetricsPassword string
	Now             func() time.Time
}

type API struct {
	r        *gin.Engine
	rental   *rental.Service
	fleet    FleetStore
	users    UserStore
	reports  ReportStore
	auth     authprovider.Provider
	sessions *session.Codec
	access   *access.Controller
	managers map[string]bool
}

func New(d Deps, cfg Config) (*API, error) {
	if err := registerValidations(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LoginRate == "" {
		cfg.LoginRate = "10-M"
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	a := &API{
		r:        gin.New(),
		rental:   d.Rental,
		fleet:    d.Fleet,
		users:    d.Users,
		reports:  d.Reports,
		auth:     d.Auth,
		sessions: d.Sessions,
		access:   access.NewController(d.Sessions, d.Users, cfg.Now),
		managers: make(map[string]bool, len(cfg.ManagerEmails)),
	}
	for _, email := range cfg.ManagerEmails {
		a.managers[normalizeEmail(email)] = true
	}

	loginLimit, err := middleware.RateLimit(cfg.LoginRate)
	if err != nil {
		return nil, err
	}

	a.r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logging(d.Logger))
	if d.Registry != nil {
		a.r.Use(middleware.Metrics(d.Registry))
		if cfg.MetricsUsername != "" {
			a.r.GET("/metrics",
				gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}),
				gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
		}
	}
	a.r.Use(d.Sessions.Middleware()...)

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	a.r.POST("/login", loginLimit, a.loginHandler)
	a.r.GET("/logout", a.access.Logout)

	protected := a.r.Group("/", a.access.Guard())
	protected.GET("/bikes", a.availableBikesHandler)
	protected.GET("/reservations", a.reservationsHandler)
	protected.POST("/reservations", a.reserveHandler)
	protected.DELETE("/reservations/:id", a.cancelHandler)
	protected.POST("/reviews", a.rateHandler)

	manage := protected.Group("/manage", a.access.RequireManager())
	manage.GET("/bikes", a.fleetHandler)
	manage.POST("/bikes", a.createBikeHandler)
	manage.PUT("/bikes/:id", a.updateBikeHandler)
	manage.DELETE("/bikes/:id", a.deleteBikeHandler)
	manage.GET("/users", a.usersHandler)
	manage.POST("/users", a.createUserHandler)
	manage.PUT("/users/:id", a.updateUserHandler)
	manage.DELETE("/users/:id", a.deleteUserHandler)
	manage.GET("/reservations", a.reservationReportHandler)

	return a, nil
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// currentSession returns the session of a request that passed the guard.
func currentSession(c *gin.Context) *session.Session {
	s, _ := session.FromContext(c)
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
