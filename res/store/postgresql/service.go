package postgresql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

type serviceStore struct {
	*storeImpl
}

func NewServiceStore(rootStore *storeImpl) *serviceStore {
	return &serviceStore{storeImpl: rootStore}
}

func (ss *serviceStore) GetServiceDefinition(ctx context.Context, id string) (*store.ServiceDefinition, error) {
	var definition store.ServiceDefinition
	result := ss.db.WithContext(ctx).Where("id = ?", id).First(&definition)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &definition, nil
}

func (ss *serviceStore) GetPricingTier(ctx context.Context, id string) (*store.PricingTier, error) {
	var tier store.PricingTier
	result := ss.db.WithContext(ctx).Where("id = ?", id).First(&tier)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &tier, nil
}

// GetAddOnDefinitions returns the definitions that exist for the given IDs.
// Missing IDs simply shrink the result set.
func (ss *serviceStore) GetAddOnDefinitions(ctx context.Context, ids []string) ([]*store.ServiceAddOnDefinition, error) {
	if len(ids) == 0 {
		return []*store.ServiceAddOnDefinition{}, nil
	}

	var addOns []*store.ServiceAddOnDefinition
	err := ss.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Find(&addOns).Error
	if err != nil {
		return nil, err
	}
	return addOns, nil
}

func (ss *serviceStore) ListServiceDefinitions(ctx context.Context, activeOnly bool) ([]*store.ServiceDefinition, error) {
	query := ss.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var definitions []*store.ServiceDefinition
	if err := query.Order("name ASC").Find(&definitions).Error; err != nil {
		return nil, err
	}
	return definitions, nil
}
