package api

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rossostudios/maidconnect-sub005/api/middleware"
	"github.com/rossostudios/maidconnect-sub005/res/store"
	"github.com/rossostudios/maidconnect-sub005/sys/booking"
)

// Config wires the HTTP server's collaborators
type Config struct {
	Logger  *log.Logger
	Store   store.Store
	Machine *booking.StateMachine

	JWTSecret string

	// Redis may be nil; the request throttle is disabled then
	Redis          *redis.Client
	ThrottleLimit  int64
	ThrottleWindow time.Duration
}

// Server exposes the booking lifecycle over REST
type Server struct {
	app     *fiber.App
	logger  *log.Logger
	store   store.Store
	machine *booking.StateMachine
}

// NewServer creates the fiber application with all routes registered
func NewServer(cfg *Config) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "maidconnect-api",
		DisableStartupMessage: true,
	})

	s := &Server{
		app:     app,
		logger:  cfg.Logger,
		store:   cfg.Store,
		machine: cfg.Machine,
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	throttle := middleware.NewThrottle(cfg.Redis, cfg.ThrottleLimit, cfg.ThrottleWindow, cfg.Logger)

	v1 := app.Group("/v1", middleware.Authenticate([]byte(cfg.JWTSecret)), throttle.Handler())

	v1.Get("/services", s.handleListServices)
	v1.Post("/quotes", s.handleQuote)

	v1.Post("/bookings", s.handleCreateBooking)
	v1.Get("/bookings", s.handleListBookings)
	v1.Get("/bookings/:id", s.handleGetBooking)
	v1.Post("/bookings/:id/accept", s.handleAccept)
	v1.Post("/bookings/:id/decline", s.handleDecline)
	v1.Post("/bookings/:id/cancel", s.handleCancel)
	v1.Post("/bookings/:id/check-in", s.handleCheckIn)
	v1.Post("/bookings/:id/check-out", s.handleCheckOut)
	v1.Post("/bookings/:id/extend-time", s.handleExtendTime)

	return s
}

// Listen serves HTTP on the given address until Shutdown is called
func (s *Server) Listen(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully drains in-flight requests
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// App exposes the fiber application for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// respondError maps domain errors onto HTTP status codes. Anything
// unclassified is a 500 with the detail kept server-side.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var (
		eligibility *booking.EligibilityError
		policy      *booking.PolicyError
		ownership   *booking.OwnershipError
		location    *booking.LocationError
		gateway     *booking.GatewayError
	)

	switch {
	case errors.Is(err, booking.ErrServiceNotFound), errors.Is(err, booking.ErrPricingTierNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, store.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	case errors.As(err, &ownership):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ownership.Detail})
	case errors.As(err, &eligibility):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": eligibility.Error()})
	case errors.As(err, &policy):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": policy.Reason})
	case errors.As(err, &location):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": location.Detail})
	case errors.As(err, &gateway):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider error, please retry"})
	default:
		s.logger.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
