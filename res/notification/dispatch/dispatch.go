package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rossostudios/maidconnect-sub005/res/notification"
)

// Mailer sends a single transactional email
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// Pusher sends a single push message to a user channel
type Pusher interface {
	Push(ctx context.Context, userID string, message map[string]interface{}) error
}

// dispatcher fans a booking event out to email and push concurrently.
// Either channel may be nil (disabled); delivery failures are logged only.
type dispatcher struct {
	mailer Mailer
	pusher Pusher
	logger *log.Logger
}

// New creates a notification Dispatcher over the given delivery channels
func New(mailer Mailer, pusher Pusher, logger *log.Logger) notification.Dispatcher {
	return &dispatcher{
		mailer: mailer,
		pusher: pusher,
		logger: logger,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, event notification.Event, payload notification.Payload) {
	subject, body := composeEmail(event, payload)

	var wg sync.WaitGroup

	if d.mailer != nil && payload.RecipientEmail != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.mailer.Send(ctx, payload.RecipientEmail, payload.RecipientName, subject, body); err != nil {
				d.logger.Printf("Failed to send %s email for booking %s: %v", event, payload.BookingID, err)
			}
		}()
	}

	if d.pusher != nil && payload.RecipientID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			message := map[string]interface{}{
				"type":       string(event),
				"booking_id": payload.BookingID,
			}
			if payload.RefundPercentage != nil {
				message["refund_percentage"] = *payload.RefundPercentage
			}
			if err := d.pusher.Push(ctx, payload.RecipientID, message); err != nil {
				d.logger.Printf("Failed to send %s push for booking %s: %v", event, payload.BookingID, err)
			}
		}()
	}

	wg.Wait()
}

func composeEmail(event notification.Event, payload notification.Payload) (subject, body string) {
	switch event {
	case notification.EventBookingCreated:
		return "New booking request",
			fmt.Sprintf("<h1>New Booking</h1><p>You have a new booking request (%s). Accept or decline it from your dashboard.</p>", payload.BookingID)
	case notification.EventBookingAccepted:
		return "Your booking is confirmed",
			fmt.Sprintf("<h1>Booking Confirmed</h1><p>Your booking (%s) has been accepted by the professional.</p>", payload.BookingID)
	case notification.EventBookingDeclined:
		return "Your booking was declined",
			fmt.Sprintf("<h1>Booking Declined</h1><p>Your booking (%s) was declined. The payment hold has been released.</p>", payload.BookingID)
	case notification.EventBookingCanceled:
		refundNote := ""
		if payload.RefundPercentage != nil {
			refundNote = fmt.Sprintf(" A %d%% refund applies.", *payload.RefundPercentage)
		}
		return "Booking canceled",
			fmt.Sprintf("<h1>Booking Canceled</h1><p>Booking %s was canceled.%s</p>", payload.BookingID, refundNote)
	case notification.EventBookingCompleted:
		return "Service completed",
			fmt.Sprintf("<h1>Service Completed</h1><p>Booking %s is complete. Thank you for using MaidConnect.</p>", payload.BookingID)
	default:
		return "Booking update", fmt.Sprintf("<p>Booking %s was updated.</p>", payload.BookingID)
	}
}
