package api

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rossostudios/maidconnect-sub005/api/middleware"
	"github.com/rossostudios/maidconnect-sub005/res/store"
	"github.com/rossostudios/maidconnect-sub005/sys/booking"
)

var validate = validator.New()

type createBookingRequest struct {
	ProfessionalID string   `json:"professional_id" validate:"required"`
	ServiceID      string   `json:"service_id" validate:"required"`
	TierID         *string  `json:"tier_id,omitempty"`
	AddOnIDs       []string `json:"addon_ids,omitempty"`
	AddressID      string   `json:"address_id" validate:"required"`
	ScheduledStart string   `json:"scheduled_start" validate:"required"`
	PaymentMethod  string   `json:"payment_method" validate:"required"`
}

type quoteRequest struct {
	ServiceID string   `json:"service_id" validate:"required"`
	TierID    *string  `json:"tier_id,omitempty"`
	AddOnIDs  []string `json:"addon_ids,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
	// Check-out only
	CompletionNotes string `json:"completion_notes,omitempty"`
}

type extendTimeRequest struct {
	AdditionalMinutes int `json:"additional_minutes" validate:"required,gt=0"`
}

type bookingResponse struct {
	ID             string   `json:"id"`
	CustomerID     string   `json:"customer_id"`
	ProfessionalID string   `json:"professional_id"`
	ServiceID      string   `json:"service_id"`
	TierID         *string  `json:"tier_id,omitempty"`
	AddOnIDs       []string `json:"addon_ids"`
	AddressID      string   `json:"address_id"`

	ScheduledStart       *time.Time `json:"scheduled_start,omitempty"`
	DurationMinutes      int        `json:"duration_minutes"`
	TimeExtensionMinutes int        `json:"time_extension_minutes"`

	BasePrice   int    `json:"base_price"`
	TierPrice   int    `json:"tier_price"`
	AddOnsPrice int    `json:"addons_price"`
	TotalPrice  int    `json:"total_price"`
	Currency    string `json:"currency"`

	AmountAuthorized int `json:"amount_authorized"`
	AmountCaptured   int `json:"amount_captured"`
	AmountRefunded   int `json:"amount_refunded"`
	ExtensionFee     int `json:"extension_fee"`

	Status           store.BookingStatus `json:"status"`
	RefundPercentage *int                `json:"refund_percentage,omitempty"`
	CanceledReason   string              `json:"canceled_reason,omitempty"`
	DeclineReason    string              `json:"decline_reason,omitempty"`
	CompletionNotes  string              `json:"completion_notes,omitempty"`

	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newBookingResponse(b *store.Booking) bookingResponse {
	var addOnIDs []string
	if b.AddOnIDs != "" {
		_ = json.Unmarshal([]byte(b.AddOnIDs), &addOnIDs)
	}
	if addOnIDs == nil {
		addOnIDs = []string{}
	}

	return bookingResponse{
		ID:                   b.ID,
		CustomerID:           b.CustomerID,
		ProfessionalID:       b.ProfessionalID,
		ServiceID:            b.ServiceID,
		TierID:               b.TierID,
		AddOnIDs:             addOnIDs,
		AddressID:            b.AddressID,
		ScheduledStart:       b.ScheduledStart,
		DurationMinutes:      b.DurationMinutes,
		TimeExtensionMinutes: b.TimeExtensionMinutes,
		BasePrice:            b.BasePrice,
		TierPrice:            b.TierPrice,
		AddOnsPrice:          b.AddOnsPrice,
		TotalPrice:           b.TotalPrice,
		Currency:             b.CurrencyOrDefault(),
		AmountAuthorized:     b.AmountAuthorized,
		AmountCaptured:       b.AmountCaptured,
		AmountRefunded:       b.AmountRefunded,
		ExtensionFee:         b.ExtensionFee,
		Status:               b.Status,
		RefundPercentage:     b.RefundPercentage,
		CanceledReason:       b.CanceledReason,
		DeclineReason:        b.DeclineReason,
		CompletionNotes:      b.CompletionNotes,
		AcceptedAt:           b.AcceptedAt,
		CheckInAt:            b.CheckInAt,
		CheckOutAt:           b.CheckOutAt,
		CanceledAt:           b.CanceledAt,
		CreatedAt:            b.CreatedAt,
	}
}

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	BasePrice       int    `json:"base_price"`
	Currency        string `json:"currency"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s *Server) handleListServices(c *fiber.Ctx) error {
	definitions, err := s.store.Services().ListServiceDefinitions(c.UserContext(), true)
	if err != nil {
		return s.respondError(c, err)
	}

	out := make([]serviceResponse, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, serviceResponse{
			ID:              d.ID,
			Name:            d.Name,
			Description:     d.Description,
			BasePrice:       d.BasePrice,
			Currency:        d.Currency,
			DurationMinutes: d.DurationMinutes,
		})
	}
	return c.JSON(fiber.Map{"services": out})
}

func (s *Server) handleQuote(c *fiber.Ctx) error {
	var req quoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	quote, err := s.machine.Calculator().Calculate(c.UserContext(), req.ServiceID, req.TierID, req.AddOnIDs)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(quote)
}

func (s *Server) handleCreateBooking(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	scheduledStart, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_start must be RFC 3339"})
	}

	b, err := s.machine.Create(c.UserContext(), &booking.CreateRequest{
		CustomerID:     middleware.ActorID(c),
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		TierID:         req.TierID,
		AddOnIDs:       req.AddOnIDs,
		AddressID:      req.AddressID,
		ScheduledStart: scheduledStart,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newBookingResponse(b))
}

func (s *Server) handleListBookings(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actorID := middleware.ActorID(c)

	actor, err := s.store.Users().Get(ctx, actorID)
	if err != nil {
		return s.respondError(c, err)
	}

	filters := store.BookingFilters{OrderBy: "scheduled_start DESC", Limit: 100}
	if status := c.Query("status"); status != "" {
		bookingStatus := store.BookingStatus(status)
		filters.Status = &bookingStatus
	}

	var bookings []*store.Booking
	if actor.IsProfessional() {
		bookings, err = s.store.Bookings().GetByProfessional(ctx, actorID, filters)
	} else {
		bookings, err = s.store.Bookings().GetByCustomer(ctx, actorID, filters)
	}
	if err != nil {
		return s.respondError(c, err)
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, newBookingResponse(b))
	}
	return c.JSON(fiber.Map{"bookings": out})
}

func (s *Server) handleGetBooking(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actorID := middleware.ActorID(c)

	b, err := s.store.Bookings().Get(ctx, c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}

	if b.CustomerID != actorID && b.ProfessionalID != actorID {
		actor, err := s.store.Users().Get(ctx, actorID)
		if err != nil || !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not your booking"})
		}
	}
	return c.JSON(newBookingResponse(b))
}

func (s *Server) handleAccept(c *fiber.Ctx) error {
	b, err := s.machine.Accept(c.UserContext(), c.Params("id"), middleware.ActorID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(newBookingResponse(b))
}

func (s *Server) handleDecline(c *fiber.Ctx) error {
	var req reasonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
		}
	}

	b, result, err := s.machine.Decline(c.UserContext(), c.Params("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"booking":        newBookingResponse(b),
		"payment_action": result.Action,
	})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	var req reasonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
		}
	}

	outcome, err := s.machine.Cancel(c.UserContext(), c.Params("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"booking":           newBookingResponse(outcome.Booking),
		"refund_percentage": outcome.RefundPercentage,
		"payment_action":    outcome.PaymentAction,
	})
}

func (s *Server) handleCheckIn(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	b, err := s.machine.CheckIn(c.UserContext(), c.Params("id"), middleware.ActorID(c), req.Latitude, req.Longitude)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(newBookingResponse(b))
}

func (s *Server) handleCheckOut(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	b, err := s.machine.CheckOut(c.UserContext(), c.Params("id"), middleware.ActorID(c), req.Latitude, req.Longitude, req.CompletionNotes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(newBookingResponse(b))
}

func (s *Server) handleExtendTime(c *fiber.Ctx) error {
	var req extendTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	b, err := s.machine.ExtendTime(c.UserContext(), c.Params("id"), middleware.ActorID(c), req.AdditionalMinutes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(newBookingResponse(b))
}
