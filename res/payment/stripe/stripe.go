package stripe

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	stripesdk "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/rossostudios/maidconnect-sub005/res/payment"
)

// gateway implements payment.Gateway on top of Stripe PaymentIntents.
// Authorizations are manual-capture intents; releases are intent cancellations.
type gateway struct {
	api    *client.API
	logger *log.Logger
}

// New creates a Stripe-backed payment gateway
func New(apiKey string, logger *log.Logger) payment.Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &gateway{
		api:    api,
		logger: logger,
	}
}

func (g *gateway) Authorize(ctx context.Context, amount int64, currency, paymentMethod, description string) (*payment.Intent, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:        stripesdk.Int64(amount),
		Currency:      stripesdk.String(strings.ToLower(currency)),
		CaptureMethod: stripesdk.String(string(stripesdk.PaymentIntentCaptureMethodManual)),
		PaymentMethod: stripesdk.String(paymentMethod),
		Confirm:       stripesdk.Bool(true),
		Description:   stripesdk.String(description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return intentFromStripe(pi), nil
}

func (g *gateway) Retrieve(ctx context.Context, ref string) (*payment.Intent, error) {
	params := &stripesdk.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(ref, params)
	if err != nil {
		return nil, err
	}
	return intentFromStripe(pi), nil
}

func (g *gateway) Cancel(ctx context.Context, ref string) error {
	params := &stripesdk.PaymentIntentCancelParams{}
	params.Context = ctx

	_, err := g.api.PaymentIntents.Cancel(ref, params)
	return err
}

func (g *gateway) Capture(ctx context.Context, ref string, amount int64) (*payment.Intent, error) {
	params := &stripesdk.PaymentIntentCaptureParams{
		AmountToCapture: stripesdk.Int64(amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := g.api.PaymentIntents.Capture(ref, params)
	if err != nil {
		return nil, err
	}
	return intentFromStripe(pi), nil
}

func (g *gateway) Refund(ctx context.Context, ref string, amount int64, idempotencyKey string) (string, error) {
	params := &stripesdk.RefundParams{
		PaymentIntent: stripesdk.String(ref),
		Amount:        stripesdk.Int64(amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return refund.ID, nil
}

func intentFromStripe(pi *stripesdk.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		Ref:      pi.ID,
		Status:   statusFromStripe(pi.Status),
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
	}
}

func statusFromStripe(status stripesdk.PaymentIntentStatus) payment.IntentStatus {
	switch status {
	case stripesdk.PaymentIntentStatusRequiresCapture:
		return payment.IntentStatusRequiresCapture
	case stripesdk.PaymentIntentStatusSucceeded:
		return payment.IntentStatusSucceeded
	case stripesdk.PaymentIntentStatusCanceled:
		return payment.IntentStatusCanceled
	default:
		// requires_payment_method, requires_confirmation, requires_action, processing
		return payment.IntentStatusRequiresAction
	}
}
