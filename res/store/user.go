package store

import (
	"context"
	"time"
)

type UserRole string

const (
	UserRoleCustomer     UserRole = "CUSTOMER"     // Books services
	UserRoleProfessional UserRole = "PROFESSIONAL" // Performs services
	UserRoleAdmin        UserRole = "ADMIN"        // Platform administrator
)

type User struct {
	ID          string   `gorm:"primaryKey;size:50;unique"`
	DisplayName string   `gorm:"size:50;not null"`
	Role        UserRole `gorm:"size:50;not null;default:'CUSTOMER'"`

	Email string `gorm:"size:256;not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
}

// IsAdmin checks if the user has platform admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsProfessional checks if the user performs services
func (u *User) IsProfessional() bool {
	return u.Role == UserRoleProfessional
}

// IsCustomer checks if the user is a booking customer
func (u *User) IsCustomer() bool {
	return u.Role == UserRoleCustomer
}

type UserStore interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	Create(ctx context.Context, ID, displayName, email string, role UserRole) (*User, error)
}
