package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

func TestEvaluateCancellationRefundTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		remaining time.Duration
		wantPct   int
	}{
		{"two days out", 48 * time.Hour, 100},
		{"exactly 24h", 24 * time.Hour, 100},
		{"one minute inside 24h", 24*time.Hour - time.Minute, 50},
		{"exactly 12h", 12 * time.Hour, 50},
		{"one minute inside 12h", 12*time.Hour - time.Minute, 0},
		{"one minute before start", time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := EvaluateCancellation(now.Add(tt.remaining), store.BookingStatusConfirmed, now)

			assert.True(t, decision.CanCancel)
			assert.Equal(t, tt.wantPct, decision.RefundPercentage)
			assert.Empty(t, decision.Reason)
		})
	}
}

func TestEvaluateCancellationPastStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// At the exact start instant the service counts as begun
	for _, remaining := range []time.Duration{0, -time.Minute, -48 * time.Hour} {
		decision := EvaluateCancellation(now.Add(remaining), store.BookingStatusConfirmed, now)

		assert.False(t, decision.CanCancel)
		assert.Equal(t, "Cannot cancel past services", decision.Reason)
		assert.Zero(t, decision.RefundPercentage)
	}
}

func TestEvaluateCancellationTerminalStatuses(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	farOut := now.Add(72 * time.Hour)

	tests := []struct {
		status     store.BookingStatus
		wantReason string
	}{
		{store.BookingStatusCompleted, "Booking is already completed"},
		{store.BookingStatusDeclined, "Booking is already declined"},
		{store.BookingStatusCanceled, "Booking is already canceled"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			decision := EvaluateCancellation(farOut, tt.status, now)

			assert.False(t, decision.CanCancel)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}
