package notification

import (
	"context"
	"time"
)

// Event identifies a booking lifecycle notification
type Event string

const (
	EventBookingCreated   Event = "booking_created"
	EventBookingAccepted  Event = "booking_accepted"
	EventBookingDeclined  Event = "booking_declined"
	EventBookingCanceled  Event = "booking_canceled"
	EventBookingCompleted Event = "booking_completed"
)

// Payload carries the recipient and booking details for a notification
type Payload struct {
	BookingID      string
	RecipientID    string
	RecipientName  string
	RecipientEmail string

	ScheduledStart   *time.Time
	Reason           string
	RefundPercentage *int
}

// Dispatcher defines the interface for transactional booking notifications.
// Dispatch is best-effort: it is invoked after the state transition commits
// and its failures are logged, never propagated.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event, payload Payload)
}
