package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/rossostudios/maidconnect-sub005/monitoring"
	"github.com/rossostudios/maidconnect-sub005/res/geo"
	"github.com/rossostudios/maidconnect-sub005/res/notification"
	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// allowedTransitions is the closed transition table. Any (from, to) pair not
// listed here is rejected with an EligibilityError naming the current status.
var allowedTransitions = map[store.BookingStatus][]store.BookingStatus{
	store.BookingStatusPendingPayment: {store.BookingStatusDeclined, store.BookingStatusCanceled},
	store.BookingStatusAuthorized:     {store.BookingStatusConfirmed, store.BookingStatusDeclined, store.BookingStatusCanceled},
	store.BookingStatusConfirmed:      {store.BookingStatusInProgress, store.BookingStatusCanceled},
	store.BookingStatusInProgress:     {store.BookingStatusCompleted},
}

func transitionAllowed(from, to store.BookingStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Clock supplies the evaluation time; injectable for tests
type Clock func() time.Time

// Config wires the state machine's collaborators. Dispatcher and Verifier
// may be nil (disabled).
type Config struct {
	Logger     *log.Logger
	Store      store.Store
	Gateway    payment.Gateway
	Dispatcher notification.Dispatcher
	Verifier   geo.LocationVerifier
	Clock      Clock
}

// StateMachine validates and executes booking status transitions, delegating
// policy decisions to the cancellation policy and pricing calculator, and
// payment side effects to the orchestrator
type StateMachine struct {
	logger       *log.Logger
	store        store.Store
	orchestrator *Orchestrator
	calculator   *Calculator
	dispatcher   notification.Dispatcher
	verifier     geo.LocationVerifier
	now          Clock
}

// NewStateMachine creates a booking state machine from its collaborators
func NewStateMachine(cfg *Config) *StateMachine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &StateMachine{
		logger:       cfg.Logger,
		store:        cfg.Store,
		orchestrator: NewOrchestrator(cfg.Gateway, cfg.Store.Transactions(), cfg.Logger),
		calculator:   NewCalculator(cfg.Store.Services(), cfg.Logger),
		dispatcher:   cfg.Dispatcher,
		verifier:     cfg.Verifier,
		now:          clock,
	}
}

// Calculator exposes the pricing calculator for quote endpoints
func (m *StateMachine) Calculator() *Calculator {
	return m.calculator
}

// Accept transitions authorized → confirmed. No payment action.
func (m *StateMachine) Accept(ctx context.Context, bookingID, actorID string) (*store.Booking, error) {
	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := m.requireProfessional(ctx, b, actorID, "accept"); err != nil {
		return nil, err
	}
	if b.Status != store.BookingStatusAuthorized {
		monitoring.RecordTransition("accept", "rejected")
		return nil, &EligibilityError{Op: "accept", CurrentStatus: b.Status}
	}

	now := m.now()
	err = m.store.Bookings().UpdateStatusFrom(ctx, b.ID, store.BookingStatusAuthorized, store.BookingStatusConfirmed, map[string]interface{}{
		"accepted_at": now,
	})
	if err != nil {
		return nil, m.classifyWriteError(ctx, err, b.ID, "accept")
	}
	monitoring.RecordTransition("accept", "ok")

	b.Status = store.BookingStatusConfirmed
	b.AcceptedAt = &now

	go m.notify(notification.EventBookingAccepted, b, b.CustomerID, nil, "")
	return b, nil
}

// Decline transitions authorized|pending_payment → declined and releases the
// payment hold. A gateway failure during release is non-fatal: the decline
// commits and the failed release is retried by the reconciler.
func (m *StateMachine) Decline(ctx context.Context, bookingID, actorID, reason string) (*store.Booking, Result, error) {
	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, Result{}, err
	}
	if err := m.requireProfessional(ctx, b, actorID, "decline"); err != nil {
		return nil, Result{}, err
	}
	if b.Status != store.BookingStatusAuthorized && b.Status != store.BookingStatusPendingPayment {
		monitoring.RecordTransition("decline", "rejected")
		return nil, Result{}, &EligibilityError{Op: "decline", CurrentStatus: b.Status}
	}

	releaseResult := m.orchestrator.ReleaseAuthorization(ctx, b)

	err = m.store.Bookings().UpdateStatusFrom(ctx, b.ID, b.Status, store.BookingStatusDeclined, map[string]interface{}{
		"decline_reason": reason,
	})
	if err != nil {
		return nil, Result{}, m.classifyWriteError(ctx, err, b.ID, "decline")
	}
	monitoring.RecordTransition("decline", "ok")

	b.Status = store.BookingStatusDeclined
	b.DeclineReason = reason

	go m.notify(notification.EventBookingDeclined, b, b.CustomerID, nil, reason)
	return b, releaseResult, nil
}

// CancelOutcome reports a committed cancellation
type CancelOutcome struct {
	Booking          *store.Booking
	RefundPercentage int
	PaymentAction    Action
}

// Cancel transitions pending_payment|authorized|confirmed → canceled. The
// refund/release must succeed at the gateway before the status commits: a
// failed refund aborts the cancellation entirely.
func (m *StateMachine) Cancel(ctx context.Context, bookingID, actorID, reason string) (*CancelOutcome, error) {
	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := m.requireCustomer(ctx, b, actorID, "cancel"); err != nil {
		return nil, err
	}
	if !transitionAllowed(b.Status, store.BookingStatusCanceled) {
		monitoring.RecordTransition("cancel", "rejected")
		return nil, &EligibilityError{Op: "cancel", CurrentStatus: b.Status}
	}
	if b.ScheduledStart == nil {
		monitoring.RecordTransition("cancel", "rejected")
		return nil, &EligibilityError{Op: "cancel", MissingField: "scheduledStart"}
	}

	decision := EvaluateCancellation(*b.ScheduledStart, b.Status, m.now())
	if !decision.CanCancel {
		monitoring.RecordTransition("cancel", "rejected")
		return nil, &PolicyError{Reason: decision.Reason}
	}

	refundAmount := refundableAmount(b) * decision.RefundPercentage / 100

	// Gateway first: money must never be left uncancelled behind a booking
	// that already reads canceled. Races are safe both ways: the refund key
	// is deterministic per booking (a concurrent settle cannot move money
	// twice) and the conditional status write below picks the single winner.
	settleResult := m.orchestrator.SettleRefundOrCancel(ctx, b, refundAmount)
	if settleResult.Fatal() {
		monitoring.RecordTransition("cancel", "gateway_fatal")
		return nil, &GatewayError{Op: "refund", Detail: settleResult.Detail}
	}

	now := m.now()
	updates := map[string]interface{}{
		"canceled_at":       now,
		"canceled_by_id":    actorID,
		"canceled_reason":   reason,
		"refund_percentage": decision.RefundPercentage,
	}
	if settleResult.Action == ActionRefundIssued {
		updates["amount_refunded"] = refundAmount
	}

	err = m.store.Bookings().UpdateStatusFrom(ctx, b.ID, b.Status, store.BookingStatusCanceled, updates)
	if err != nil {
		return nil, m.classifyWriteError(ctx, err, b.ID, "cancel")
	}
	monitoring.RecordTransition("cancel", "ok")

	b.Status = store.BookingStatusCanceled
	b.CanceledAt = &now
	b.CanceledByID = &actorID
	b.CanceledReason = reason
	pct := decision.RefundPercentage
	b.RefundPercentage = &pct
	if settleResult.Action == ActionRefundIssued {
		b.AmountRefunded = refundAmount
	}

	go m.notify(notification.EventBookingCanceled, b, b.ProfessionalID, &pct, reason)

	return &CancelOutcome{
		Booking:          b,
		RefundPercentage: decision.RefundPercentage,
		PaymentAction:    settleResult.Action,
	}, nil
}

// CheckIn transitions confirmed → in_progress, gated on the professional's
// location matching the service address
func (m *StateMachine) CheckIn(ctx context.Context, bookingID, actorID string, lat, lng float64) (*store.Booking, error) {
	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := m.requireProfessional(ctx, b, actorID, "check in"); err != nil {
		return nil, err
	}
	if b.Status != store.BookingStatusConfirmed {
		monitoring.RecordTransition("check_in", "rejected")
		return nil, &EligibilityError{Op: "check in", CurrentStatus: b.Status}
	}
	if err := m.verifyLocation(ctx, b, lat, lng); err != nil {
		monitoring.RecordTransition("check_in", "rejected")
		return nil, err
	}

	now := m.now()
	err = m.store.Bookings().UpdateStatusFrom(ctx, b.ID, store.BookingStatusConfirmed, store.BookingStatusInProgress, map[string]interface{}{
		"check_in_at": now,
	})
	if err != nil {
		return nil, m.classifyWriteError(ctx, err, b.ID, "check in")
	}
	monitoring.RecordTransition("check_in", "ok")

	b.Status = store.BookingStatusInProgress
	b.CheckInAt = &now
	return b, nil
}

// CheckOut transitions in_progress → completed and captures the authorized
// amount plus any extension fee. Capture failure aborts the transition.
func (m *StateMachine) CheckOut(ctx context.Context, bookingID, actorID string, lat, lng float64, completionNotes string) (*store.Booking, error) {
	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := m.requireProfessional(ctx, b, actorID, "check out"); err != nil {
		return nil, err
	}
	if b.Status != store.BookingStatusInProgress {
		monitoring.RecordTransition("check_out", "rejected")
		return nil, &EligibilityError{Op: "check out", CurrentStatus: b.Status}
	}
	if err := m.verifyLocation(ctx, b, lat, lng); err != nil {
		monitoring.RecordTransition("check_out", "rejected")
		return nil, err
	}

	finalAmount := b.AmountAuthorized + b.ExtensionFee
	captureResult := m.orchestrator.CaptureFinalAmount(ctx, b, finalAmount)
	if captureResult.Fatal() {
		monitoring.RecordTransition("check_out", "gateway_fatal")
		return nil, &GatewayError{Op: "capture", Detail: captureResult.Detail}
	}

	now := m.now()
	err = m.store.Bookings().UpdateStatusFrom(ctx, b.ID, store.BookingStatusInProgress, store.BookingStatusCompleted, map[string]interface{}{
		"check_out_at":     now,
		"completion_notes": completionNotes,
		"amount_captured":  finalAmount,
	})
	if err != nil {
		return nil, m.classifyWriteError(ctx, err, b.ID, "check out")
	}
	monitoring.RecordTransition("check_out", "ok")

	b.Status = store.BookingStatusCompleted
	b.CheckOutAt = &now
	b.CompletionNotes = completionNotes
	b.AmountCaptured = finalAmount

	go m.notify(notification.EventBookingCompleted, b, b.CustomerID, nil, "")
	return b, nil
}

// ExtendTime adds minutes to an in-progress booking. The fee is pro-rated
// from the base price over the originally scheduled duration and is captured
// together with the authorized amount at check-out.
func (m *StateMachine) ExtendTime(ctx context.Context, bookingID, actorID string, additionalMinutes int) (*store.Booking, error) {
	if additionalMinutes <= 0 {
		return nil, store.ErrInvalidInput
	}

	b, err := m.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := m.requireProfessional(ctx, b, actorID, "extend"); err != nil {
		return nil, err
	}
	if b.Status != store.BookingStatusInProgress {
		return nil, &EligibilityError{Op: "extend", CurrentStatus: b.Status}
	}

	fee := extensionFee(b.BasePrice, b.DurationMinutes, additionalMinutes)

	err = m.store.Bookings().UpdateExtension(ctx, b.ID, additionalMinutes, fee)
	if err != nil {
		return nil, m.classifyWriteError(ctx, err, b.ID, "extend")
	}

	b.TimeExtensionMinutes += additionalMinutes
	b.ExtensionFee += fee
	return b, nil
}

// extensionFee pro-rates the base price over the scheduled duration,
// rounding to the nearest minor unit
func extensionFee(basePrice, durationMinutes, additionalMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	return (basePrice*additionalMinutes + durationMinutes/2) / durationMinutes
}

// refundableAmount is the base the refund percentage applies to: the captured
// amount once capture happened, the held amount before that
func refundableAmount(b *store.Booking) int {
	if b.AmountCaptured > 0 {
		return b.AmountCaptured
	}
	return b.AmountAuthorized
}

// requireProfessional rejects actors other than the assigned professional or an admin
func (m *StateMachine) requireProfessional(ctx context.Context, b *store.Booking, actorID, op string) error {
	if b.ProfessionalID == actorID {
		return nil
	}
	if m.actorIsAdmin(ctx, actorID) {
		return nil
	}
	return &OwnershipError{Detail: "only the assigned professional can " + op + " this booking"}
}

// requireCustomer rejects actors other than the booking's customer or an admin
func (m *StateMachine) requireCustomer(ctx context.Context, b *store.Booking, actorID, op string) error {
	if b.CustomerID == actorID {
		return nil
	}
	if m.actorIsAdmin(ctx, actorID) {
		return nil
	}
	return &OwnershipError{Detail: "only the customer can " + op + " this booking"}
}

func (m *StateMachine) actorIsAdmin(ctx context.Context, actorID string) bool {
	actor, err := m.store.Users().Get(ctx, actorID)
	if err != nil {
		return false
	}
	return actor.IsAdmin()
}

func (m *StateMachine) verifyLocation(ctx context.Context, b *store.Booking, lat, lng float64) error {
	if m.verifier == nil {
		return nil
	}

	address, err := m.store.Addresses().Get(ctx, b.AddressID)
	if err != nil {
		m.logger.Printf("Could not load address %s for booking %s: %v", b.AddressID, b.ID, err)
		return err
	}
	if address.Latitude == nil || address.Longitude == nil {
		// Address without coordinates cannot gate the transition
		return nil
	}

	if err := m.verifier.Verify(ctx, lat, lng, *address.Latitude, *address.Longitude); err != nil {
		return &LocationError{Detail: err.Error()}
	}
	return nil
}

// classifyWriteError converts a lost conditional write into the same
// invalid-transition rejection a stale request would get; other persistence
// errors surface verbatim
func (m *StateMachine) classifyWriteError(ctx context.Context, err error, bookingID, op string) error {
	label := strings.ReplaceAll(op, " ", "_")
	if !errors.Is(err, store.ErrStatusConflict) {
		monitoring.RecordTransition(label, "error")
		return err
	}
	monitoring.RecordTransition(label, "conflict")

	current, getErr := m.store.Bookings().Get(ctx, bookingID)
	if getErr != nil {
		return &EligibilityError{Op: op, CurrentStatus: "unknown"}
	}
	return &EligibilityError{Op: op, CurrentStatus: current.Status}
}

// notify dispatches a booking event to one recipient, after the transition
// has committed. Best-effort: called on its own goroutine, failures logged
// inside the dispatcher.
func (m *StateMachine) notify(event notification.Event, b *store.Booking, recipientID string, refundPct *int, reason string) {
	if m.dispatcher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	recipient, err := m.store.Users().Get(ctx, recipientID)
	if err != nil {
		m.logger.Printf("Could not load recipient %s for %s notification: %v", recipientID, event, err)
		return
	}

	m.dispatcher.Dispatch(ctx, event, notification.Payload{
		BookingID:        b.ID,
		RecipientID:      recipient.ID,
		RecipientName:    recipient.DisplayName,
		RecipientEmail:   recipient.Email,
		ScheduledStart:   b.ScheduledStart,
		Reason:           reason,
		RefundPercentage: refundPct,
	})
}
