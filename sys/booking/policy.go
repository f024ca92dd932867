package booking

import (
	"fmt"
	"time"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// Cancellation refund tiers, measured against time remaining until the
// scheduled start. Boundaries are inclusive on the lower bound of each tier:
// exactly 24h remaining refunds 100%, exactly 12h refunds 50%.
const (
	fullRefundThreshold = 24 * time.Hour
	halfRefundThreshold = 12 * time.Hour
)

// PolicyDecision is the outcome of evaluating the cancellation policy
type PolicyDecision struct {
	CanCancel        bool
	RefundPercentage int // 0, 50 or 100
	Reason           string
}

// EvaluateCancellation maps (scheduled start, current status) to a refund
// decision at the given evaluation time. Pure: no I/O, no clock access.
// Cancellation is always allowed up until service start; only the refund
// percentage varies with how far out the booking is.
func EvaluateCancellation(scheduledStart time.Time, status store.BookingStatus, now time.Time) PolicyDecision {
	if status.IsTerminal() {
		return PolicyDecision{
			CanCancel: false,
			Reason:    fmt.Sprintf("Booking is already %s", status),
		}
	}

	remaining := scheduledStart.Sub(now)
	if remaining <= 0 {
		return PolicyDecision{
			CanCancel: false,
			Reason:    "Cannot cancel past services",
		}
	}

	switch {
	case remaining >= fullRefundThreshold:
		return PolicyDecision{CanCancel: true, RefundPercentage: 100}
	case remaining >= halfRefundThreshold:
		return PolicyDecision{CanCancel: true, RefundPercentage: 50}
	default:
		return PolicyDecision{CanCancel: true, RefundPercentage: 0}
	}
}
