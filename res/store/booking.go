package store

import (
	"context"
	"time"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment" // Created with a payment authorization still settling
	BookingStatusAuthorized     BookingStatus = "authorized"      // Payment held, awaiting professional response
	BookingStatusConfirmed      BookingStatus = "confirmed"       // Professional accepted
	BookingStatusInProgress     BookingStatus = "in_progress"     // Professional checked in, service running
	BookingStatusCompleted      BookingStatus = "completed"       // Service completed, payment captured
	BookingStatusDeclined       BookingStatus = "declined"        // Professional declined, authorization released
	BookingStatusCanceled       BookingStatus = "canceled"        // Customer canceled, refunded per policy
)

// IsTerminal reports whether no further transitions are allowed from the status
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusDeclined || s == BookingStatusCanceled
}

// DefaultCurrency is the platform's base currency, used when a booking carries none
const DefaultCurrency = "RON"

// Booking represents a service booking between a customer and a professional
type Booking struct {
	ID             string `gorm:"primaryKey;size:50;unique"`
	Customer       *User  `gorm:"foreignKey:CustomerID"`
	CustomerID     string `gorm:"size:50;not null;index:idx_booking_customer"`
	Professional   *User  `gorm:"foreignKey:ProfessionalID"`
	ProfessionalID string `gorm:"size:50;not null;index:idx_booking_professional"`

	// Service Details
	ServiceID string  `gorm:"size:50;not null"`
	TierID    *string `gorm:"size:50"`
	AddOnIDs  string  `gorm:"type:text"` // JSON array of add-on definition IDs

	// Scheduling
	ScheduledStart       *time.Time `gorm:"index:idx_booking_scheduled"`
	DurationMinutes      int        `gorm:"not null;default:0"`
	TimeExtensionMinutes int        `gorm:"not null;default:0"`

	// Service Address (used for GPS-gated check-in/out)
	Address   *Address `gorm:"foreignKey:AddressID"`
	AddressID string   `gorm:"size:50;not null"`

	// Pricing snapshot (all in minor currency units, computed server-side at creation)
	BasePrice   int `gorm:"not null"`
	TierPrice   int `gorm:"not null;default:0"`
	AddOnsPrice int `gorm:"not null;default:0"`
	TotalPrice  int `gorm:"not null"`

	// Payment state
	Currency         string  `gorm:"size:10;not null;default:'RON'"`
	AmountAuthorized int     `gorm:"not null;default:0"`
	AmountCaptured   int     `gorm:"not null;default:0"`
	AmountRefunded   int     `gorm:"not null;default:0"`
	ExtensionFee     int     `gorm:"not null;default:0"`
	PaymentIntentRef *string `gorm:"size:256;unique;index:idx_booking_intent"` // Set at most once per booking lifetime

	// Status and cancellation record
	Status           BookingStatus `gorm:"size:20;not null;default:'pending_payment';index:idx_booking_status"`
	RefundPercentage *int
	CanceledBy       *User   `gorm:"foreignKey:CanceledByID"`
	CanceledByID     *string `gorm:"size:50"`
	CanceledReason   string  `gorm:"type:text"`
	CanceledAt       *time.Time
	DeclineReason    string `gorm:"type:text"`

	// Operational timestamps
	AcceptedAt *time.Time
	CheckInAt  *time.Time
	CheckOutAt *time.Time

	CompletionNotes string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:idx_booking_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// CurrencyOrDefault returns the booking currency, falling back to the platform default
func (b *Booking) CurrencyOrDefault() string {
	if b.Currency == "" {
		return DefaultCurrency
	}
	return b.Currency
}

// BookingStore defines the data access interface for bookings
type BookingStore interface {
	// Create creates a new booking
	Create(ctx context.Context, booking *Booking) error

	// Get retrieves a booking by ID
	Get(ctx context.Context, id string) (*Booking, error)

	// UpdateStatusFrom performs the conditional status transition write:
	// the update only applies while the stored status equals `from`.
	// Returns ErrStatusConflict when the row exists but its status moved on,
	// so two concurrent transition attempts resolve to exactly one winner.
	UpdateStatusFrom(ctx context.Context, bookingID string, from, to BookingStatus, updates map[string]interface{}) error

	// SetPaymentIntentRef records the external payment reference. The ref is
	// write-once: a second call for the same booking fails.
	SetPaymentIntentRef(ctx context.Context, bookingID, ref string) error

	// UpdateExtension accumulates a time extension and its fee on an in-progress booking
	UpdateExtension(ctx context.Context, bookingID string, additionalMinutes, additionalFee int) error

	// GetByCustomer retrieves all bookings for a customer
	GetByCustomer(ctx context.Context, customerID string, filters BookingFilters) ([]*Booking, error)

	// GetByProfessional retrieves all bookings for a professional
	GetByProfessional(ctx context.Context, professionalID string, filters BookingFilters) ([]*Booking, error)
}

// BookingFilters contains filter options for listing bookings
type BookingFilters struct {
	Status    *BookingStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
	OrderBy   string // e.g., "scheduled_start DESC"
}
