package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rs/xid"

	"github.com/rossostudios/maidconnect-sub005/monitoring"
	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// Outcome classifies a payment orchestration result
type Outcome int

const (
	// OutcomeOK means the payment side effect completed (or none was required)
	OutcomeOK Outcome = iota
	// OutcomePartialFailure means the caller may proceed, but a compensating
	// retry is pending (failed release on the decline path)
	OutcomePartialFailure
	// OutcomeFatal means the caller must abort the transition
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Action names the payment side effect that was (or was not) performed
type Action string

const (
	ActionAuthorizationHeld     Action = "authorization_held"
	ActionAuthorizationCanceled Action = "authorization_canceled"
	ActionRefundIssued          Action = "refund_issued"
	ActionNoRefundNeeded        Action = "no_refund_needed"
	ActionNoPaymentRequired     Action = "no_payment_required"
	ActionReleaseFailed         Action = "release_failed"
	ActionAmountCaptured        Action = "amount_captured"
)

// Result is the discriminated outcome of a payment orchestration step.
// Callers branch on Outcome; Detail carries the raw gateway error for
// logging and client responses.
type Result struct {
	Outcome Outcome
	Action  Action
	Detail  string
}

// Fatal reports whether the caller must abort the state transition
func (r Result) Fatal() bool {
	return r.Outcome == OutcomeFatal
}

// Orchestrator wraps payment-gateway side effects, classifies their outcome
// and writes the gateway audit trail
type Orchestrator struct {
	gateway      payment.Gateway
	transactions store.TransactionStore
	logger       *log.Logger
}

// NewOrchestrator creates a payment orchestrator
func NewOrchestrator(gateway payment.Gateway, transactions store.TransactionStore, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:      gateway,
		transactions: transactions,
		logger:       logger,
	}
}

// AuthorizePayment places a manual-capture hold for a new booking
func (o *Orchestrator) AuthorizePayment(ctx context.Context, bookingID string, amount int64, currency, paymentMethod, description string) (*payment.Intent, Result) {
	start := time.Now()
	intent, err := o.gateway.Authorize(ctx, amount, currency, paymentMethod, description)
	if err != nil {
		monitoring.RecordGatewayOperation("authorize", "fatal", time.Since(start))
		return nil, Result{Outcome: OutcomeFatal, Detail: err.Error()}
	}
	monitoring.RecordGatewayOperation("authorize", "ok", time.Since(start))

	o.record(ctx, &store.Transaction{
		Type:             store.TransactionTypeAuthorize,
		Status:           store.TransactionStatusCompleted,
		BookingID:        bookingID,
		Amount:           int(amount),
		Currency:         currency,
		PaymentIntentRef: intent.Ref,
	})

	return intent, Result{Outcome: OutcomeOK, Action: ActionAuthorizationHeld}
}

// ReleaseAuthorization cancels the payment hold of a declined booking.
// Gateway failure is non-fatal: the decline commits anyway and the failed
// release is recorded for the reconciler to retry.
func (o *Orchestrator) ReleaseAuthorization(ctx context.Context, b *store.Booking) Result {
	if b.PaymentIntentRef == nil {
		return Result{Outcome: OutcomeOK, Action: ActionNoPaymentRequired}
	}
	ref := *b.PaymentIntentRef

	start := time.Now()
	err := o.gateway.Cancel(ctx, ref)
	if err != nil {
		monitoring.RecordGatewayOperation("release", "partial_failure", time.Since(start))
		o.logger.Printf("Release of authorization %s failed (booking %s), queued for retry: %v", ref, b.ID, err)

		o.record(ctx, &store.Transaction{
			Type:             store.TransactionTypeRelease,
			Status:           store.TransactionStatusFailed,
			BookingID:        b.ID,
			Currency:         b.CurrencyOrDefault(),
			PaymentIntentRef: ref,
			FailureReason:    err.Error(),
		})
		return Result{Outcome: OutcomePartialFailure, Action: ActionReleaseFailed, Detail: err.Error()}
	}
	monitoring.RecordGatewayOperation("release", "ok", time.Since(start))

	o.record(ctx, &store.Transaction{
		Type:             store.TransactionTypeRelease,
		Status:           store.TransactionStatusCompleted,
		BookingID:        b.ID,
		Currency:         b.CurrencyOrDefault(),
		PaymentIntentRef: ref,
	})
	return Result{Outcome: OutcomeOK, Action: ActionAuthorizationCanceled}
}

// SettleRefundOrCancel resolves the payment side of a cancellation. The
// gateway-side intent state decides the action: an uncaptured hold is canceled
// outright regardless of the refund amount; a captured payment is refunded for
// exactly refundAmount (or left alone at 0%). Any gateway failure is fatal,
// the cancellation must not commit while money is unaccounted for.
//
// The refund carries an idempotency key derived from the booking ID, so two
// racing cancels of the same booking move money at most once; the conditional
// status write then picks the single winner.
func (o *Orchestrator) SettleRefundOrCancel(ctx context.Context, b *store.Booking, refundAmount int) Result {
	if b.PaymentIntentRef == nil {
		return Result{Outcome: OutcomeOK, Action: ActionNoPaymentRequired}
	}
	ref := *b.PaymentIntentRef

	start := time.Now()
	intent, err := o.gateway.Retrieve(ctx, ref)
	if err != nil {
		monitoring.RecordGatewayOperation("settle", "fatal", time.Since(start))
		return Result{Outcome: OutcomeFatal, Detail: err.Error()}
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		if refundAmount > 0 {
			refundID, err := o.gateway.Refund(ctx, ref, int64(refundAmount), cancelRefundKey(b.ID))
			if err != nil {
				monitoring.RecordGatewayOperation("settle", "fatal", time.Since(start))
				return Result{Outcome: OutcomeFatal, Detail: err.Error()}
			}
			monitoring.RecordGatewayOperation("settle", "ok", time.Since(start))

			o.record(ctx, &store.Transaction{
				Type:             store.TransactionTypeRefund,
				Status:           store.TransactionStatusCompleted,
				BookingID:        b.ID,
				Amount:           refundAmount,
				Currency:         b.CurrencyOrDefault(),
				PaymentIntentRef: ref,
				GatewayRefundID:  &refundID,
			})
			return Result{Outcome: OutcomeOK, Action: ActionRefundIssued}
		}
		monitoring.RecordGatewayOperation("settle", "ok", time.Since(start))
		return Result{Outcome: OutcomeOK, Action: ActionNoRefundNeeded}

	case payment.IntentStatusCanceled:
		// Hold already released; nothing left to return
		monitoring.RecordGatewayOperation("settle", "ok", time.Since(start))
		return Result{Outcome: OutcomeOK, Action: ActionNoRefundNeeded}

	default:
		// Not captured (requires_capture or still settling): cancel the hold
		// outright, regardless of the refund percentage
		if err := o.gateway.Cancel(ctx, ref); err != nil {
			monitoring.RecordGatewayOperation("settle", "fatal", time.Since(start))
			return Result{Outcome: OutcomeFatal, Detail: err.Error()}
		}
		monitoring.RecordGatewayOperation("settle", "ok", time.Since(start))

		o.record(ctx, &store.Transaction{
			Type:             store.TransactionTypeRelease,
			Status:           store.TransactionStatusCompleted,
			BookingID:        b.ID,
			Currency:         b.CurrencyOrDefault(),
			PaymentIntentRef: ref,
		})
		return Result{Outcome: OutcomeOK, Action: ActionAuthorizationCanceled}
	}
}

// CaptureFinalAmount captures the held authorization (plus any extension fee)
// at check-out. Failure is fatal: the booking must not read completed while
// the capture did not happen.
func (o *Orchestrator) CaptureFinalAmount(ctx context.Context, b *store.Booking, amount int) Result {
	if b.PaymentIntentRef == nil {
		return Result{Outcome: OutcomeFatal, Detail: fmt.Sprintf("booking %s has no payment authorization to capture", b.ID)}
	}
	ref := *b.PaymentIntentRef

	start := time.Now()
	_, err := o.gateway.Capture(ctx, ref, int64(amount))
	if err != nil {
		monitoring.RecordGatewayOperation("capture", "fatal", time.Since(start))
		return Result{Outcome: OutcomeFatal, Detail: err.Error()}
	}
	monitoring.RecordGatewayOperation("capture", "ok", time.Since(start))

	o.record(ctx, &store.Transaction{
		Type:             store.TransactionTypeCapture,
		Status:           store.TransactionStatusCompleted,
		BookingID:        b.ID,
		Amount:           amount,
		Currency:         b.CurrencyOrDefault(),
		PaymentIntentRef: ref,
	})
	return Result{Outcome: OutcomeOK, Action: ActionAmountCaptured}
}

// cancelRefundKey is the idempotency key for the cancel-path refund. One key
// per booking: a booking refunds at most once over its lifetime.
func cancelRefundKey(bookingID string) string {
	return fmt.Sprintf("%s-cancel-refund", bookingID)
}

// record writes a gateway audit row. Audit failures are logged, not
// propagated: payment correctness rests on gateway-before-commit ordering,
// not on the audit trail. Failed-release rows matter more (the reconciler
// reads them), so those are logged at full volume too.
func (o *Orchestrator) record(ctx context.Context, transaction *store.Transaction) {
	transaction.ID = fmt.Sprintf("txn_%s", xid.New().String())
	transaction.ProcessedAt = time.Now()

	if err := o.transactions.Create(ctx, transaction); err != nil {
		o.logger.Printf("Failed to record %s transaction for booking %s: %v", transaction.Type, transaction.BookingID, err)
	}
}
