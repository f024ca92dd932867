package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

type transactionStore struct {
	*storeImpl
}

func NewTransactionStore(rootStore *storeImpl) *transactionStore {
	return &transactionStore{storeImpl: rootStore}
}

func (ts *transactionStore) Create(ctx context.Context, transaction *store.Transaction) error {
	result := ts.db.WithContext(ctx).Create(transaction)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("failed to create transaction")
	}
	return nil
}

func (ts *transactionStore) Get(ctx context.Context, id string) (*store.Transaction, error) {
	var transaction store.Transaction
	result := ts.db.WithContext(ctx).Where("id = ?", id).First(&transaction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &transaction, nil
}

func (ts *transactionStore) GetByBooking(ctx context.Context, bookingID string) ([]*store.Transaction, error) {
	var transactions []*store.Transaction
	err := ts.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (ts *transactionStore) GetFailedReleases(ctx context.Context, limit int) ([]*store.Transaction, error) {
	query := ts.db.WithContext(ctx).
		Where("type = ? AND status = ?", store.TransactionTypeRelease, store.TransactionStatusFailed).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var transactions []*store.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (ts *transactionStore) MarkCompleted(ctx context.Context, transactionID string) error {
	result := ts.db.WithContext(ctx).Model(&store.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]interface{}{
			"status":       store.TransactionStatusCompleted,
			"processed_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("transaction not found (id: %s)", transactionID)
	}
	return nil
}

func (ts *transactionStore) RecordRetryFailure(ctx context.Context, transactionID, reason string) error {
	result := ts.db.WithContext(ctx).Model(&store.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]interface{}{
			"retry_count":    gorm.Expr("retry_count + 1"),
			"failure_reason": reason,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("transaction not found (id: %s)", transactionID)
	}
	return nil
}
