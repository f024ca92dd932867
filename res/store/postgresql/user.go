package postgresql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

type userStore struct {
	*storeImpl
}

func NewUserStore(rootStore *storeImpl) *userStore {
	return &userStore{storeImpl: rootStore}
}

func (us *userStore) Get(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	result := us.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (us *userStore) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	result := us.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (us *userStore) Create(ctx context.Context, ID, displayName, email string, role store.UserRole) (*store.User, error) {
	user := &store.User{
		ID:          ID,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
	}

	result := us.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, fmt.Errorf("failed to create user")
	}
	return user, nil
}
