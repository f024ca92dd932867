package booking

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossostudios/maidconnect-sub005/res/store"
)

func newTestCalculator() (*Calculator, *memServices) {
	services := &memServices{
		definitions: map[string]*store.ServiceDefinition{
			"svc_general": {ID: "svc_general", Name: "General Cleaning", BasePrice: 15000, Currency: "RON", DurationMinutes: 180, IsActive: true},
			"svc_retired": {ID: "svc_retired", Name: "Retired Service", BasePrice: 9000, Currency: "RON", DurationMinutes: 60, IsActive: false},
		},
		tiers: map[string]*store.PricingTier{
			"tier_large":    {ID: "tier_large", ServiceID: "svc_general", Name: "Large apartment", Price: 5000, IsActive: true},
			"tier_inactive": {ID: "tier_inactive", ServiceID: "svc_general", Name: "Old band", Price: 3000, IsActive: false},
			"tier_other":    {ID: "tier_other", ServiceID: "svc_retired", Name: "Other service tier", Price: 2000, IsActive: true},
		},
		addOns: map[string]*store.ServiceAddOnDefinition{
			"addon_oven":    {ID: "addon_oven", Name: "Oven Cleaning", FixedPrice: 4000, IsActive: true},
			"addon_windows": {ID: "addon_windows", Name: "Window Cleaning", FixedPrice: 2500, IsActive: true},
		},
	}
	logger := log.New(io.Discard, "", 0)
	return NewCalculator(services, logger), services
}

func TestCalculateFullBreakdown(t *testing.T) {
	calc, _ := newTestCalculator()
	tierID := "tier_large"

	quote, err := calc.Calculate(context.Background(), "svc_general", &tierID, []string{"addon_oven", "addon_windows"})
	require.NoError(t, err)

	assert.Equal(t, 15000, quote.BasePrice)
	assert.Equal(t, 5000, quote.TierPrice)
	assert.Equal(t, 6500, quote.AddOnsPrice)
	assert.Equal(t, 26500, quote.TotalPrice)
	assert.Equal(t, "RON", quote.Currency)
	assert.Equal(t, 180, quote.DurationMinutes)
}

func TestCalculateBaseServiceOnly(t *testing.T) {
	calc, _ := newTestCalculator()

	quote, err := calc.Calculate(context.Background(), "svc_general", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 15000, quote.TotalPrice)
	assert.Zero(t, quote.TierPrice)
	assert.Zero(t, quote.AddOnsPrice)
}

func TestCalculateUnknownServiceIsHardError(t *testing.T) {
	calc, _ := newTestCalculator()

	_, err := calc.Calculate(context.Background(), "svc_missing", nil, nil)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.EqualError(t, err, "Service not found")
}

func TestCalculateInactiveServiceIsHardError(t *testing.T) {
	calc, _ := newTestCalculator()

	_, err := calc.Calculate(context.Background(), "svc_retired", nil, nil)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestCalculateUnknownTierIsHardError(t *testing.T) {
	calc, _ := newTestCalculator()

	for _, tierID := range []string{"tier_missing", "tier_inactive", "tier_other"} {
		id := tierID
		_, err := calc.Calculate(context.Background(), "svc_general", &id, nil)
		assert.ErrorIs(t, err, ErrPricingTierNotFound, "tier %s", tierID)
		assert.EqualError(t, err, "Pricing tier not found")
	}
}

// Unknown add-on IDs are dropped from the sum, unlike unknown tiers
func TestCalculateUnknownAddOnsSilentlyDropped(t *testing.T) {
	calc, _ := newTestCalculator()

	quote, err := calc.Calculate(context.Background(), "svc_general", nil, []string{"addon_oven", "addon_ghost"})
	require.NoError(t, err)

	assert.Equal(t, 4000, quote.AddOnsPrice)
	assert.Equal(t, 19000, quote.TotalPrice)
}
