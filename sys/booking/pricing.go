package booking

import (
	"context"
	"errors"
	"log"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

// Quote is an authoritative server-side price breakdown in minor currency units
type Quote struct {
	BasePrice       int    `json:"base_price"`
	TierPrice       int    `json:"tier_price"`
	AddOnsPrice     int    `json:"addons_price"`
	TotalPrice      int    `json:"total_price"`
	Currency        string `json:"currency"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Calculator computes booking totals from stored prices. Every component price
// is fetched fresh from the store; client-submitted totals are never trusted.
type Calculator struct {
	services store.ServiceStore
	logger   *log.Logger
}

// NewCalculator creates a pricing calculator over the given service store
func NewCalculator(services store.ServiceStore, logger *log.Logger) *Calculator {
	return &Calculator{services: services, logger: logger}
}

// Calculate resolves the price of a service with an optional tier and add-ons.
// Unknown service or tier IDs are hard errors; unknown add-on IDs are silently
// dropped from the sum. The asymmetry is intentional policy.
func (c *Calculator) Calculate(ctx context.Context, serviceID string, tierID *string, addOnIDs []string) (*Quote, error) {
	definition, err := c.services.GetServiceDefinition(ctx, serviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if !definition.IsActive {
		return nil, ErrServiceNotFound
	}

	tierPrice := 0
	if tierID != nil && *tierID != "" {
		tier, err := c.services.GetPricingTier(ctx, *tierID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrPricingTierNotFound
			}
			return nil, err
		}
		if tier.ServiceID != serviceID || !tier.IsActive {
			return nil, ErrPricingTierNotFound
		}
		tierPrice = tier.Price
	}

	addOnsPrice := 0
	if len(addOnIDs) > 0 {
		addOns, err := c.services.GetAddOnDefinitions(ctx, addOnIDs)
		if err != nil {
			return nil, err
		}
		if len(addOns) < len(addOnIDs) {
			c.logger.Printf("Dropped %d unknown add-on IDs from quote for service %s", len(addOnIDs)-len(addOns), serviceID)
		}
		for _, addOn := range addOns {
			addOnsPrice += addOn.FixedPrice
		}
	}

	return &Quote{
		BasePrice:       definition.BasePrice,
		TierPrice:       tierPrice,
		AddOnsPrice:     addOnsPrice,
		TotalPrice:      definition.BasePrice + tierPrice + addOnsPrice,
		Currency:        definition.Currency,
		DurationMinutes: definition.DurationMinutes,
	}, nil
}
