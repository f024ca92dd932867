package postgresql

import (
	"gorm.io/gorm"

	"context"
	"errors"
	"fmt"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

type bookingStore struct {
	*storeImpl
}

func NewBookingStore(rootStore *storeImpl) *bookingStore {
	return &bookingStore{storeImpl: rootStore}
}

func (bs *bookingStore) Create(ctx context.Context, booking *store.Booking) error {
	result := bs.db.WithContext(ctx).Create(booking)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("failed to create booking")
	}
	return nil
}

func (bs *bookingStore) Get(ctx context.Context, id string) (*store.Booking, error) {
	var booking store.Booking
	result := bs.db.WithContext(ctx).Where("id = ?", id).First(&booking)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &booking, nil
}

// UpdateStatusFrom is the optimistic transition write: the status column is part
// of the WHERE clause, so of two racing transitions exactly one sees RowsAffected == 1.
func (bs *bookingStore) UpdateStatusFrom(ctx context.Context, bookingID string, from, to store.BookingStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := bs.db.WithContext(ctx).Model(&store.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		var count int64
		if err := bs.db.WithContext(ctx).Model(&store.Booking{}).Where("id = ?", bookingID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrStatusConflict
	}
	return nil
}

func (bs *bookingStore) SetPaymentIntentRef(ctx context.Context, bookingID, ref string) error {
	result := bs.db.WithContext(ctx).Model(&store.Booking{}).
		Where("id = ? AND payment_intent_ref IS NULL", bookingID).
		Update("payment_intent_ref", ref)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		var count int64
		if err := bs.db.WithContext(ctx).Model(&store.Booking{}).Where("id = ?", bookingID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrIntentRefAlreadySet
	}
	return nil
}

func (bs *bookingStore) UpdateExtension(ctx context.Context, bookingID string, additionalMinutes, additionalFee int) error {
	result := bs.db.WithContext(ctx).Model(&store.Booking{}).
		Where("id = ? AND status = ?", bookingID, store.BookingStatusInProgress).
		Updates(map[string]interface{}{
			"time_extension_minutes": gorm.Expr("time_extension_minutes + ?", additionalMinutes),
			"extension_fee":          gorm.Expr("extension_fee + ?", additionalFee),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return store.ErrStatusConflict
	}
	return nil
}

func (bs *bookingStore) GetByCustomer(ctx context.Context, customerID string, filters store.BookingFilters) ([]*store.Booking, error) {
	query := bs.db.WithContext(ctx).Where("customer_id = ?", customerID)
	query = bs.applyFilters(query, filters)

	var bookings []*store.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (bs *bookingStore) GetByProfessional(ctx context.Context, professionalID string, filters store.BookingFilters) ([]*store.Booking, error) {
	query := bs.db.WithContext(ctx).Where("professional_id = ?", professionalID)
	query = bs.applyFilters(query, filters)

	var bookings []*store.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// Helper method to apply filters
func (bs *bookingStore) applyFilters(query *gorm.DB, filters store.BookingFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StartDate != nil {
		query = query.Where("scheduled_start >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("scheduled_start <= ?", *filters.EndDate)
	}

	if filters.OrderBy != "" {
		query = query.Order(filters.OrderBy)
	} else {
		query = query.Order("scheduled_start DESC, created_at DESC")
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	return query
}
