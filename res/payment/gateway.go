package payment

import "context"

// IntentStatus mirrors the gateway-side state of a payment authorization
type IntentStatus string

const (
	IntentStatusRequiresAction  IntentStatus = "requires_action"  // Customer action pending, booking stays pending_payment
	IntentStatusRequiresCapture IntentStatus = "requires_capture" // Funds held, not yet transferred
	IntentStatusSucceeded       IntentStatus = "succeeded"        // Funds captured
	IntentStatusCanceled        IntentStatus = "canceled"         // Hold released
)

// Intent is the gateway-side view of a payment authorization
type Intent struct {
	Ref      string
	Status   IntentStatus
	Amount   int64 // Minor currency units
	Currency string
}

// Gateway is the narrow interface over the external payment provider.
// All operations act on an opaque intent reference; implementations must be
// safe to retry (the reconciler re-issues Cancel for failed releases).
type Gateway interface {
	// Authorize places a hold for the given amount without capturing it
	Authorize(ctx context.Context, amount int64, currency, paymentMethod, description string) (*Intent, error)

	// Retrieve fetches the current gateway-side state of an intent
	Retrieve(ctx context.Context, ref string) (*Intent, error)

	// Cancel releases a held authorization
	Cancel(ctx context.Context, ref string) error

	// Capture transfers the given amount from a held authorization
	Capture(ctx context.Context, ref string, amount int64) (*Intent, error)

	// Refund returns previously captured funds; returns the gateway refund ID.
	// Unlike a cancellation, a partial refund is repeatable gateway-side, so
	// the caller supplies a deterministic idempotency key: two calls carrying
	// the same key must move money at most once.
	Refund(ctx context.Context, ref string, amount int64, idempotencyKey string) (string, error)
}
