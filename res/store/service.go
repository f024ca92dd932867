package store

import (
	"context"
	"time"
)

// ServiceDefinition represents a bookable service with its base price
type ServiceDefinition struct {
	ID string `gorm:"primaryKey;size:50;unique"`

	Name        string `gorm:"size:100;not null"` // e.g., "General Cleaning", "Deep Cleaning"
	Description string `gorm:"type:text"`

	// Pricing (minor currency units)
	BasePrice       int    `gorm:"not null"`
	Currency        string `gorm:"size:10;not null;default:'RON'"`
	DurationMinutes int    `gorm:"not null"` // Scheduled duration of the base service

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// PricingTier represents an optional tier of a service (e.g., apartment size bands)
type PricingTier struct {
	ID        string             `gorm:"primaryKey;size:50;unique"`
	Service   *ServiceDefinition `gorm:"foreignKey:ServiceID"`
	ServiceID string             `gorm:"size:50;not null;index:idx_tier_service"`

	Name  string `gorm:"size:100;not null"`
	Price int    `gorm:"not null"` // Added on top of the base price, minor units

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// ServiceAddOnDefinition represents an add-on that can be attached to a booking
type ServiceAddOnDefinition struct {
	ID string `gorm:"primaryKey;size:50;unique"`

	Name        string `gorm:"size:100;not null"` // e.g., "Oven Cleaning"
	Description string `gorm:"type:text"`

	FixedPrice int `gorm:"not null"` // Minor units

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// ServiceStore defines the data access interface for service pricing data
type ServiceStore interface {
	// GetServiceDefinition retrieves a service definition by ID
	GetServiceDefinition(ctx context.Context, id string) (*ServiceDefinition, error)

	// GetPricingTier retrieves a pricing tier by ID
	GetPricingTier(ctx context.Context, id string) (*PricingTier, error)

	// GetAddOnDefinitions retrieves the add-on definitions matching the given IDs.
	// IDs with no matching definition are omitted from the result, not errors.
	GetAddOnDefinitions(ctx context.Context, ids []string) ([]*ServiceAddOnDefinition, error)

	// ListServiceDefinitions retrieves all active service definitions
	ListServiceDefinitions(ctx context.Context, activeOnly bool) ([]*ServiceDefinition, error)
}
