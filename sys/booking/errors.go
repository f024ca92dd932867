package booking

import (
	"errors"
	"fmt"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// Pricing lookup errors. Unknown add-on IDs are deliberately NOT errors:
// they are dropped from the sum (see Calculator).
var (
	ErrServiceNotFound     = errors.New("Service not found")
	ErrPricingTierNotFound = errors.New("Pricing tier not found")
)

// EligibilityError rejects a transition whose precondition does not hold.
// Client-facing and non-retryable; names the booking's current status.
type EligibilityError struct {
	Op            string
	CurrentStatus store.BookingStatus
	MissingField  string
}

func (e *EligibilityError) Error() string {
	if e.MissingField != "" {
		return fmt.Sprintf("cannot %s booking: required field %s is not set", e.Op, e.MissingField)
	}
	return fmt.Sprintf("cannot %s booking while status is %q", e.Op, e.CurrentStatus)
}

// PolicyError rejects a transition the cancellation policy forbids
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// OwnershipError rejects a transition requested by the wrong actor
type OwnershipError struct {
	Detail string
}

func (e *OwnershipError) Error() string {
	return e.Detail
}

// LocationError rejects a GPS-gated transition attempted away from the service address
type LocationError struct {
	Detail string
}

func (e *LocationError) Error() string {
	return e.Detail
}

// GatewayError surfaces a fatal payment-gateway failure; the transition did not commit
type GatewayError struct {
	Op     string
	Detail string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %s", e.Op, e.Detail)
}
