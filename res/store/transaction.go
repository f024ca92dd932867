package store

import (
	"context"
	"time"
)

// TransactionType represents the kind of payment-gateway side effect recorded
type TransactionType string

const (
	TransactionTypeAuthorize TransactionType = "authorize" // Funds held at booking creation
	TransactionTypeCapture   TransactionType = "capture"   // Held funds transferred at check-out
	TransactionTypeRefund    TransactionType = "refund"    // Captured funds returned on cancellation
	TransactionTypeRelease   TransactionType = "release"   // Authorization canceled on decline
)

// TransactionStatus represents the status of a recorded gateway operation
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed" // Failed releases are retried by the reconciler
)

// Transaction is the audit record of a single payment-gateway side effect
type Transaction struct {
	ID     string            `gorm:"primaryKey;size:50;unique"`
	Type   TransactionType   `gorm:"size:20;not null;index:idx_transaction_type"`
	Status TransactionStatus `gorm:"size:20;not null;index:idx_transaction_status"`

	Booking   *Booking `gorm:"foreignKey:BookingID"`
	BookingID string   `gorm:"size:50;not null;index:idx_transaction_booking"`

	// Amount in minor currency units. Zero for releases.
	Amount   int    `gorm:"not null;default:0"`
	Currency string `gorm:"size:10;not null;default:'RON'"`

	// External payment provider data
	PaymentIntentRef string  `gorm:"size:256;index:idx_transaction_intent"`
	GatewayRefundID  *string `gorm:"size:256"`

	FailureReason string `gorm:"type:text"`
	RetryCount    int    `gorm:"not null;default:0"`

	ProcessedAt time.Time `gorm:"index:idx_transaction_processed"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:idx_transaction_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// TransactionStore defines the data access interface for gateway audit records
type TransactionStore interface {
	// Create creates a new transaction record
	Create(ctx context.Context, transaction *Transaction) error

	// Get retrieves a transaction by ID
	Get(ctx context.Context, id string) (*Transaction, error)

	// GetByBooking retrieves all transactions for a booking
	GetByBooking(ctx context.Context, bookingID string) ([]*Transaction, error)

	// GetFailedReleases retrieves failed release transactions awaiting retry
	GetFailedReleases(ctx context.Context, limit int) ([]*Transaction, error)

	// MarkCompleted marks a transaction as completed
	MarkCompleted(ctx context.Context, transactionID string) error

	// RecordRetryFailure increments the retry counter and records the latest failure
	RecordRetryFailure(ctx context.Context, transactionID, reason string) error
}
