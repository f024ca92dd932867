package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rossostudios/maidconnect-sub005/res/notification"
	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// CreateRequest carries the client's booking intent. All prices are computed
// server-side from the referenced IDs; the client never submits amounts.
type CreateRequest struct {
	CustomerID     string
	ProfessionalID string
	ServiceID      string
	TierID         *string
	AddOnIDs       []string
	AddressID      string
	ScheduledStart time.Time
	PaymentMethod  string
}

// Create quotes, authorizes and persists a new booking. The payment hold is
// placed before the row is written; if the write then fails, the hold is
// released again so no money stays reserved behind a booking that does not
// exist.
func (m *StateMachine) Create(ctx context.Context, req *CreateRequest) (*store.Booking, error) {
	if req.ScheduledStart.Before(m.now()) {
		return nil, &PolicyError{Reason: "Cannot book services in the past"}
	}

	professional, err := m.store.Users().Get(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if !professional.IsProfessional() {
		return nil, &OwnershipError{Detail: fmt.Sprintf("user %s is not a professional", req.ProfessionalID)}
	}
	if _, err := m.store.Addresses().Get(ctx, req.AddressID); err != nil {
		return nil, err
	}

	quote, err := m.calculator.Calculate(ctx, req.ServiceID, req.TierID, req.AddOnIDs)
	if err != nil {
		return nil, err
	}

	bookingID := fmt.Sprintf("bkg_%s", xid.New().String())
	description := fmt.Sprintf("Booking %s", bookingID)

	intent, authResult := m.orchestrator.AuthorizePayment(ctx, bookingID, int64(quote.TotalPrice), quote.Currency, req.PaymentMethod, description)
	if authResult.Fatal() {
		return nil, &GatewayError{Op: "authorize", Detail: authResult.Detail}
	}

	status := store.BookingStatusAuthorized
	if intent.Status != payment.IntentStatusRequiresCapture {
		// Hold not settled yet (e.g. pending 3DS); the booking waits in
		// pending_payment until the authorization resolves
		status = store.BookingStatusPendingPayment
	}

	addOnIDs, err := json.Marshal(req.AddOnIDs)
	if err != nil {
		return nil, err
	}

	scheduledStart := req.ScheduledStart
	b := &store.Booking{
		ID:               bookingID,
		CustomerID:       req.CustomerID,
		ProfessionalID:   req.ProfessionalID,
		ServiceID:        req.ServiceID,
		TierID:           req.TierID,
		AddOnIDs:         string(addOnIDs),
		ScheduledStart:   &scheduledStart,
		DurationMinutes:  quote.DurationMinutes,
		AddressID:        req.AddressID,
		BasePrice:        quote.BasePrice,
		TierPrice:        quote.TierPrice,
		AddOnsPrice:      quote.AddOnsPrice,
		TotalPrice:       quote.TotalPrice,
		Currency:         quote.Currency,
		AmountAuthorized: quote.TotalPrice,
		Status:           status,
	}

	if err := m.store.Bookings().Create(ctx, b); err != nil {
		// Compensate: the hold was placed but the booking never existed
		if cancelErr := m.orchestrator.gateway.Cancel(ctx, intent.Ref); cancelErr != nil {
			m.logger.Printf("Could not release orphaned authorization %s after failed booking create: %v", intent.Ref, cancelErr)
		}
		return nil, err
	}

	// The intent ref goes through the write-once guard: a booking can never
	// point at two different holds
	if err := m.store.Bookings().SetPaymentIntentRef(ctx, bookingID, intent.Ref); err != nil {
		if cancelErr := m.orchestrator.gateway.Cancel(ctx, intent.Ref); cancelErr != nil {
			m.logger.Printf("Could not release authorization %s after failed intent-ref write: %v", intent.Ref, cancelErr)
		}
		return nil, err
	}
	b.PaymentIntentRef = &intent.Ref

	go m.notify(notification.EventBookingCreated, b, b.ProfessionalID, nil, "")
	return b, nil
}
