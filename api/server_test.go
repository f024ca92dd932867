package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
	"github.com/rossostudios/maidconnect-sub005/sys/booking"
)

const testJWTSecret = "test-secret"

// stubStore is a minimal in-memory store.Store for handler tests
type stubStore struct {
	users    map[string]*store.User
	bookings map[string]*store.Booking
	services map[string]*store.ServiceDefinition
}

func (s *stubStore) Users() store.UserStore               { return (*stubUsers)(s) }
func (s *stubStore) Addresses() store.AddressStore        { return (*stubAddresses)(s) }
func (s *stubStore) Services() store.ServiceStore         { return (*stubServices)(s) }
func (s *stubStore) Bookings() store.BookingStore         { return (*stubBookings)(s) }
func (s *stubStore) Transactions() store.TransactionStore { return &stubTransactions{} }

type stubUsers stubStore

func (s *stubUsers) Get(_ context.Context, id string) (*store.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubUsers) GetByEmail(_ context.Context, _ string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (s *stubUsers) Create(_ context.Context, id, displayName, email string, role store.UserRole) (*store.User, error) {
	u := &store.User{ID: id, DisplayName: displayName, Email: email, Role: role}
	s.users[id] = u
	return u, nil
}

type stubAddresses stubStore

func (s *stubAddresses) Get(_ context.Context, _ string) (*store.Address, error) {
	return nil, store.ErrNotFound
}

func (s *stubAddresses) GetByUser(_ context.Context, _ string) ([]*store.Address, error) {
	return nil, nil
}

func (s *stubAddresses) Create(_ context.Context, _ *store.Address) error { return nil }

type stubServices stubStore

func (s *stubServices) GetServiceDefinition(_ context.Context, id string) (*store.ServiceDefinition, error) {
	if d, ok := s.services[id]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubServices) GetPricingTier(_ context.Context, _ string) (*store.PricingTier, error) {
	return nil, store.ErrNotFound
}

func (s *stubServices) GetAddOnDefinitions(_ context.Context, _ []string) ([]*store.ServiceAddOnDefinition, error) {
	return nil, nil
}

func (s *stubServices) ListServiceDefinitions(_ context.Context, _ bool) ([]*store.ServiceDefinition, error) {
	var out []*store.ServiceDefinition
	for _, d := range s.services {
		out = append(out, d)
	}
	return out, nil
}

type stubBookings stubStore

func (s *stubBookings) Create(_ context.Context, b *store.Booking) error {
	s.bookings[b.ID] = b
	return nil
}

func (s *stubBookings) Get(_ context.Context, id string) (*store.Booking, error) {
	if b, ok := s.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubBookings) UpdateStatusFrom(_ context.Context, bookingID string, from, to store.BookingStatus, _ map[string]interface{}) error {
	b, ok := s.bookings[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	if b.Status != from {
		return store.ErrStatusConflict
	}
	b.Status = to
	return nil
}

func (s *stubBookings) SetPaymentIntentRef(_ context.Context, _, _ string) error { return nil }

func (s *stubBookings) UpdateExtension(_ context.Context, _ string, _, _ int) error { return nil }

func (s *stubBookings) GetByCustomer(_ context.Context, customerID string, _ store.BookingFilters) ([]*store.Booking, error) {
	var out []*store.Booking
	for _, b := range s.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBookings) GetByProfessional(_ context.Context, professionalID string, _ store.BookingFilters) ([]*store.Booking, error) {
	var out []*store.Booking
	for _, b := range s.bookings {
		if b.ProfessionalID == professionalID {
			out = append(out, b)
		}
	}
	return out, nil
}

type stubTransactions struct{}

func (s *stubTransactions) Create(_ context.Context, _ *store.Transaction) error { return nil }
func (s *stubTransactions) Get(_ context.Context, _ string) (*store.Transaction, error) {
	return nil, store.ErrNotFound
}
func (s *stubTransactions) GetByBooking(_ context.Context, _ string) ([]*store.Transaction, error) {
	return nil, nil
}
func (s *stubTransactions) GetFailedReleases(_ context.Context, _ int) ([]*store.Transaction, error) {
	return nil, nil
}
func (s *stubTransactions) MarkCompleted(_ context.Context, _ string) error       { return nil }
func (s *stubTransactions) RecordRetryFailure(_ context.Context, _, _ string) error { return nil }

type stubGateway struct{}

func (g *stubGateway) Authorize(_ context.Context, amount int64, currency, _, _ string) (*payment.Intent, error) {
	return &payment.Intent{Ref: "pi_stub", Status: payment.IntentStatusRequiresCapture, Amount: amount, Currency: currency}, nil
}

func (g *stubGateway) Retrieve(_ context.Context, ref string) (*payment.Intent, error) {
	return &payment.Intent{Ref: ref, Status: payment.IntentStatusRequiresCapture}, nil
}

func (g *stubGateway) Cancel(_ context.Context, _ string) error { return nil }

func (g *stubGateway) Capture(_ context.Context, ref string, amount int64) (*payment.Intent, error) {
	return &payment.Intent{Ref: ref, Status: payment.IntentStatusSucceeded, Amount: amount}, nil
}

func (g *stubGateway) Refund(_ context.Context, _ string, _ int64, _ string) (string, error) {
	return "re_stub", nil
}

func newTestServer(t *testing.T) (*Server, *stubStore) {
	t.Helper()

	s := &stubStore{
		users: map[string]*store.User{
			"usr_ana":   {ID: "usr_ana", DisplayName: "Ana", Role: store.UserRoleCustomer},
			"usr_maria": {ID: "usr_maria", DisplayName: "Maria", Role: store.UserRoleProfessional},
		},
		bookings: map[string]*store.Booking{},
		services: map[string]*store.ServiceDefinition{
			"svc_general": {ID: "svc_general", Name: "General Cleaning", BasePrice: 15000, Currency: "RON", DurationMinutes: 180, IsActive: true},
		},
	}

	logger := log.New(io.Discard, "", 0)
	machine := booking.NewStateMachine(&booking.Config{
		Logger:  logger,
		Store:   s,
		Gateway: &stubGateway{},
	})

	server := NewServer(&Config{
		Logger:    logger,
		Store:     s,
		Machine:   machine,
		JWTSecret: testJWTSecret,
	})
	return server, s
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, server *Server, method, path, actorID string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != "" {
		req.Header.Set("Authorization", bearerToken(t, actorID))
	}

	resp, err := server.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "GET", "/v1/bookings", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHealthzIsPublic(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "GET", "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestQuoteEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "POST", "/v1/quotes", "usr_ana", fiber.Map{"service_id": "svc_general"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var quote booking.Quote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	assert.Equal(t, 15000, quote.TotalPrice)
	assert.Equal(t, "RON", quote.Currency)
}

func TestQuoteUnknownServiceIs404(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "POST", "/v1/quotes", "usr_ana", fiber.Map{"service_id": "svc_ghost"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Service not found", body["error"])
}

func TestGetUnknownBookingIs404(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "GET", "/v1/bookings/bkg_ghost", "usr_ana", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAcceptEndpoint(t *testing.T) {
	server, s := newTestServer(t)
	start := time.Now().Add(48 * time.Hour)
	ref := "pi_stub"
	s.bookings["bkg_1"] = &store.Booking{
		ID: "bkg_1", CustomerID: "usr_ana", ProfessionalID: "usr_maria",
		ScheduledStart: &start, Status: store.BookingStatusAuthorized,
		PaymentIntentRef: &ref, AmountAuthorized: 15000, Currency: "RON",
	}

	resp := doJSON(t, server, "POST", "/v1/bookings/bkg_1/accept", "usr_maria", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, store.BookingStatusConfirmed, body.Status)
}

func TestAcceptByWrongActorIs403(t *testing.T) {
	server, s := newTestServer(t)
	start := time.Now().Add(48 * time.Hour)
	s.bookings["bkg_1"] = &store.Booking{
		ID: "bkg_1", CustomerID: "usr_ana", ProfessionalID: "usr_maria",
		ScheduledStart: &start, Status: store.BookingStatusAuthorized,
	}

	resp := doJSON(t, server, "POST", "/v1/bookings/bkg_1/accept", "usr_ana", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAcceptConfirmedBookingIs409(t *testing.T) {
	server, s := newTestServer(t)
	start := time.Now().Add(48 * time.Hour)
	s.bookings["bkg_1"] = &store.Booking{
		ID: "bkg_1", CustomerID: "usr_ana", ProfessionalID: "usr_maria",
		ScheduledStart: &start, Status: store.BookingStatusConfirmed,
	}

	resp := doJSON(t, server, "POST", "/v1/bookings/bkg_1/accept", "usr_maria", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCancelPastServiceIs422(t *testing.T) {
	server, s := newTestServer(t)
	start := time.Now().Add(-time.Hour)
	s.bookings["bkg_1"] = &store.Booking{
		ID: "bkg_1", CustomerID: "usr_ana", ProfessionalID: "usr_maria",
		ScheduledStart: &start, Status: store.BookingStatusConfirmed,
	}

	resp := doJSON(t, server, "POST", "/v1/bookings/bkg_1/cancel", "usr_ana", fiber.Map{"reason": "too late"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Cannot cancel past services", body["error"])
}

func TestCancelReportsRefundDecision(t *testing.T) {
	server, s := newTestServer(t)
	start := time.Now().Add(48 * time.Hour)
	ref := "pi_stub"
	s.bookings["bkg_1"] = &store.Booking{
		ID: "bkg_1", CustomerID: "usr_ana", ProfessionalID: "usr_maria",
		ScheduledStart: &start, Status: store.BookingStatusConfirmed,
		PaymentIntentRef: &ref, AmountAuthorized: 15000, Currency: "RON",
	}

	resp := doJSON(t, server, "POST", "/v1/bookings/bkg_1/cancel", "usr_ana", fiber.Map{"reason": "plans changed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		RefundPercentage int    `json:"refund_percentage"`
		PaymentAction    string `json:"payment_action"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 100, body.RefundPercentage)
	assert.Equal(t, string(booking.ActionAuthorizationCanceled), body.PaymentAction)
}

func TestListServicesEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, server, "GET", "/v1/services", "usr_ana", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Services []serviceResponse `json:"services"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Services, 1)
	assert.Equal(t, "svc_general", body.Services[0].ID)
}
