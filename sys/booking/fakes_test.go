package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// memStore is an in-memory store.Store for exercising the state machine
// without a database
type memStore struct {
	users        *memUsers
	addresses    *memAddresses
	services     *memServices
	bookings     *memBookings
	transactions *memTransactions
}

func newMemStore() *memStore {
	return &memStore{
		users:        &memUsers{byID: map[string]*store.User{}},
		addresses:    &memAddresses{byID: map[string]*store.Address{}},
		services:     &memServices{definitions: map[string]*store.ServiceDefinition{}, tiers: map[string]*store.PricingTier{}, addOns: map[string]*store.ServiceAddOnDefinition{}},
		bookings:     &memBookings{byID: map[string]*store.Booking{}},
		transactions: &memTransactions{},
	}
}

func (s *memStore) Users() store.UserStore               { return s.users }
func (s *memStore) Addresses() store.AddressStore        { return s.addresses }
func (s *memStore) Services() store.ServiceStore         { return s.services }
func (s *memStore) Bookings() store.BookingStore         { return s.bookings }
func (s *memStore) Transactions() store.TransactionStore { return s.transactions }

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*store.User
}

func (s *memUsers) Get(_ context.Context, id string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memUsers) Create(_ context.Context, id, displayName, email string, role store.UserRole) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &store.User{ID: id, DisplayName: displayName, Email: email, Role: role}
	s.byID[id] = u
	return u, nil
}

type memAddresses struct {
	mu   sync.Mutex
	byID map[string]*store.Address
}

func (s *memAddresses) Get(_ context.Context, id string) (*store.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (s *memAddresses) GetByUser(_ context.Context, userID string) ([]*store.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Address
	for _, a := range s.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memAddresses) Create(_ context.Context, address *store.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[address.ID] = address
	return nil
}

type memServices struct {
	definitions map[string]*store.ServiceDefinition
	tiers       map[string]*store.PricingTier
	addOns      map[string]*store.ServiceAddOnDefinition
}

func (s *memServices) GetServiceDefinition(_ context.Context, id string) (*store.ServiceDefinition, error) {
	d, ok := s.definitions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (s *memServices) GetPricingTier(_ context.Context, id string) (*store.PricingTier, error) {
	t, ok := s.tiers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (s *memServices) GetAddOnDefinitions(_ context.Context, ids []string) ([]*store.ServiceAddOnDefinition, error) {
	var out []*store.ServiceAddOnDefinition
	for _, id := range ids {
		if a, ok := s.addOns[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memServices) ListServiceDefinitions(_ context.Context, activeOnly bool) ([]*store.ServiceDefinition, error) {
	var out []*store.ServiceDefinition
	for _, d := range s.definitions {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type memBookings struct {
	mu          sync.Mutex
	byID        map[string]*store.Booking
	createErr   error
	lastUpdates map[string]interface{}
}

func (s *memBookings) Create(_ context.Context, booking *store.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byID[booking.ID]; exists {
		return store.ErrUniqueViolation
	}
	s.byID[booking.ID] = booking
	return nil
}

func (s *memBookings) Get(_ context.Context, id string) (*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

// UpdateStatusFrom mirrors the conditional write: the transition applies only
// while the stored status still equals from
func (s *memBookings) UpdateStatusFrom(_ context.Context, bookingID string, from, to store.BookingStatus, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	if b.Status != from {
		return store.ErrStatusConflict
	}
	b.Status = to
	s.lastUpdates = updates
	return nil
}

func (s *memBookings) SetPaymentIntentRef(_ context.Context, bookingID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	if b.PaymentIntentRef != nil {
		return store.ErrIntentRefAlreadySet
	}
	b.PaymentIntentRef = &ref
	return nil
}

func (s *memBookings) UpdateExtension(_ context.Context, bookingID string, additionalMinutes, additionalFee int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	if b.Status != store.BookingStatusInProgress {
		return store.ErrStatusConflict
	}
	b.TimeExtensionMinutes += additionalMinutes
	b.ExtensionFee += additionalFee
	return nil
}

func (s *memBookings) GetByCustomer(_ context.Context, customerID string, _ store.BookingFilters) ([]*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Booking
	for _, b := range s.byID {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBookings) GetByProfessional(_ context.Context, professionalID string, _ store.BookingFilters) ([]*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Booking
	for _, b := range s.byID {
		if b.ProfessionalID == professionalID {
			out = append(out, b)
		}
	}
	return out, nil
}

type memTransactions struct {
	mu      sync.Mutex
	records []*store.Transaction
}

func (s *memTransactions) Create(_ context.Context, transaction *store.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, transaction)
	return nil
}

func (s *memTransactions) Get(_ context.Context, id string) (*store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.records {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memTransactions) GetByBooking(_ context.Context, bookingID string) ([]*store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Transaction
	for _, t := range s.records {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTransactions) GetFailedReleases(_ context.Context, limit int) ([]*store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Transaction
	for _, t := range s.records {
		if t.Type == store.TransactionTypeRelease && t.Status == store.TransactionStatusFailed {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memTransactions) MarkCompleted(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.records {
		if t.ID == transactionID {
			t.Status = store.TransactionStatusCompleted
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memTransactions) RecordRetryFailure(_ context.Context, transactionID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.records {
		if t.ID == transactionID {
			t.RetryCount++
			t.FailureReason = reason
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memTransactions) ofType(transactionType store.TransactionType) []*store.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Transaction
	for _, t := range s.records {
		if t.Type == transactionType {
			out = append(out, t)
		}
	}
	return out
}

// errGatewayDown simulates an unreachable payment provider
var errGatewayDown = errors.New("gateway timeout")

// fakeGateway is a scriptable payment.Gateway. Zero value authorizes into
// requires_capture and succeeds on every operation.
type fakeGateway struct {
	mu sync.Mutex

	intentStatus payment.IntentStatus // Status Retrieve reports; defaults to requires_capture

	authorizeErr error
	cancelErr    error
	captureErr   error
	refundErr    error
	retrieveErr  error

	authorized []int64
	canceled   []string
	captured   []int64
	refunded   []int64

	// Refunds dedupe on the idempotency key, as the real gateway does: a
	// repeated key returns the original refund without moving money again
	refundsByKey map[string]string
}

func (g *fakeGateway) status() payment.IntentStatus {
	if g.intentStatus == "" {
		return payment.IntentStatusRequiresCapture
	}
	return g.intentStatus
}

func (g *fakeGateway) Authorize(_ context.Context, amount int64, currency, _, _ string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authorizeErr != nil {
		return nil, g.authorizeErr
	}
	g.authorized = append(g.authorized, amount)
	return &payment.Intent{
		Ref:      fmt.Sprintf("pi_%s", xid.New().String()),
		Status:   g.status(),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (g *fakeGateway) Retrieve(_ context.Context, ref string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return &payment.Intent{Ref: ref, Status: g.status()}, nil
}

func (g *fakeGateway) Cancel(_ context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.canceled = append(g.canceled, ref)
	return nil
}

func (g *fakeGateway) Capture(_ context.Context, ref string, amount int64) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captured = append(g.captured, amount)
	return &payment.Intent{Ref: ref, Status: payment.IntentStatusSucceeded, Amount: amount}, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amount int64, idempotencyKey string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return "", g.refundErr
	}
	if id, ok := g.refundsByKey[idempotencyKey]; ok {
		return id, nil
	}
	g.refunded = append(g.refunded, amount)
	id := fmt.Sprintf("re_%s", xid.New().String())
	if g.refundsByKey == nil {
		g.refundsByKey = map[string]string{}
	}
	g.refundsByKey[idempotencyKey] = id
	return id, nil
}
