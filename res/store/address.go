package store

import (
	"context"
	"time"
)

// Address represents a service address where bookings take place
type Address struct {
	ID     string `gorm:"primaryKey;size:50;unique"`
	User   *User  `gorm:"foreignKey:UserID"`
	UserID string `gorm:"size:50;not null;index:idx_address_user"`

	Street     string `gorm:"size:256;not null"`
	City       string `gorm:"size:100;not null"`
	PostalCode string `gorm:"size:20"`
	Country    string `gorm:"size:100;not null"`

	// Coordinates gate the professional's check-in/check-out
	Latitude  *float64
	Longitude *float64

	IsDefault bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// AddressStore defines the data access interface for addresses
type AddressStore interface {
	Get(ctx context.Context, id string) (*Address, error)
	GetByUser(ctx context.Context, userID string) ([]*Address, error)
	Create(ctx context.Context, address *Address) error
}
