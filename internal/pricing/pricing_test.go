package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
)

func sampleCart() []domain.CartItem {
	return []domain.CartItem{
		{ProductID: "prod-1", Name: "Gauze Pads", Price: 51.98, Quantity: 2, ShippingCost: 5.99},
		{ProductID: "prod-2", Name: "Nitrile Gloves", Price: 77.50, Quantity: 5, ShippingCost: 9.50},
		{ProductID: "prod-3", Name: "Thermometer", Price: 45.00, Quantity: 1, ShippingCost: 4.00},
	}
}

func TestComputeMatchesDirectArithmetic(t *testing.T) {
	totals := Compute(sampleCart(), Config{TaxPercent: 8}, nil)

	assert.Equal(t, 174.48, totals.Subtotal)
	assert.Equal(t, 13.96, totals.Tax)
	assert.Equal(t, 9.50, totals.Shipping, "shipping is the max item cost, not the sum")
	assert.Equal(t, 197.94, totals.Total)
	assert.Equal(t, 197.94, totals.FinalTotal)
	assert.Empty(t, totals.Discounts)
}

func TestComputeDoesNotMultiplyQuantity(t *testing.T) {
	totals := Compute([]domain.CartItem{{ProductID: "p", Price: 10.99, Quantity: 2}}, Config{}, nil)
	assert.Equal(t, 10.99, totals.Subtotal)
}

func TestComputeFreeShipping(t *testing.T) {
	totals := Compute(sampleCart(), Config{TaxPercent: 8, FreeShipping: true}, nil)
	assert.Equal(t, 0.0, totals.Shipping)
	assert.Equal(t, 188.44, totals.Total)
}

func TestComputeClampsFinalTotalAtZero(t *testing.T) {
	discounts := []domain.AppliedDiscount{{Type: domain.DiscountPromo, Name: "huge", Amount: 10000}}
	totals := Compute(sampleCart(), Config{TaxPercent: 8}, discounts)
	assert.Equal(t, 0.0, totals.FinalTotal)
	assert.Equal(t, 10000.0, totals.DiscountTotal)
}

func TestComputeEmptyCart(t *testing.T) {
	totals := Compute(nil, Config{TaxPercent: 8}, nil)
	assert.Equal(t, Totals{Discounts: []domain.AppliedDiscount{}}, totals)
}

func TestValidatePromoRules(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	limit := 5

	base := domain.Offer{ID: "off-1", Code: "save10", Title: "Save 10%", OfferType: domain.OfferTypePercentage, Value: 10, Active: true}

	tests := []struct {
		name   string
		mutate func(o *domain.Offer)
		sub    float64
		want   error
	}{
		{name: "inactive", mutate: func(o *domain.Offer) { o.Active = false }, sub: 100, want: ErrPromoInactive},
		{name: "not started", mutate: func(o *domain.Offer) { o.StartDate = &future }, sub: 100, want: ErrPromoNotStarted},
		{name: "expired", mutate: func(o *domain.Offer) { o.EndDate = &past }, sub: 100, want: ErrPromoExpired},
		{name: "usage exhausted", mutate: func(o *domain.Offer) { o.UsageLimit = &limit; o.UsedCount = 5 }, sub: 100, want: ErrPromoUsageExceeded},
		{name: "below minimum", mutate: func(o *domain.Offer) { o.MinOrderAmount = 150 }, sub: 100, want: ErrPromoMinimumNotMet},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			offer := base
			tc.mutate(&offer)
			_, err := ValidatePromo(&offer, tc.sub, now)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	_, err := ValidatePromo(nil, 100, now)
	assert.ErrorIs(t, err, ErrPromoNotFound)

	offer := base
	offer.StartDate = &past
	offer.EndDate = &future
	offer.UsageLimit = &limit
	discount, err := ValidatePromo(&offer, 200, now)
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountPromo, discount.Type)
	assert.Equal(t, "SAVE10", discount.PromoCode)
	assert.Equal(t, 20.0, discount.Amount)
}

func TestOfferAmountCaps(t *testing.T) {
	maxDiscount := 15.0
	pct := domain.Offer{OfferType: domain.OfferTypePercentage, Value: 25, MaxDiscount: &maxDiscount}
	assert.Equal(t, 15.0, OfferAmount(pct, 200))

	flat := domain.Offer{OfferType: domain.OfferTypeFlat, Value: 50}
	assert.Equal(t, 30.0, OfferAmount(flat, 30))
}

func TestBestOfferSkipsCodedAndPicksLargest(t *testing.T) {
	now := time.Now()
	offers := []domain.Offer{
		{ID: "a", Title: "5 off", OfferType: domain.OfferTypeFlat, Value: 5, Active: true},
		{ID: "b", Title: "10%", OfferType: domain.OfferTypePercentage, Value: 10, Active: true},
		{ID: "c", Code: "VIP", Title: "VIP 50%", OfferType: domain.OfferTypePercentage, Value: 50, Active: true},
		{ID: "d", Title: "inactive", OfferType: domain.OfferTypeFlat, Value: 90, Active: false},
	}
	best := BestOffer(offers, 100, now)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.OfferID)
	assert.Equal(t, domain.DiscountOffer, best.Type)

	assert.Nil(t, BestOffer(nil, 100, now))
}

func TestRewardsDiscountCappedBySubtotalMinusPromo(t *testing.T) {
	cfg := domain.RewardsConfig{Enabled: true, PointValue: 0.10, MinRedeemPoints: 100}

	d, err := RewardsDiscount(500, 1000, cfg, 100, 20)
	require.NoError(t, err)
	assert.Equal(t, 50.0, d.Amount)
	assert.Equal(t, 500, d.PointsUsed)

	d, err = RewardsDiscount(1000, 1000, cfg, 100, 20)
	require.NoError(t, err)
	assert.Equal(t, 80.0, d.Amount)
	assert.Equal(t, 800, d.PointsUsed)
}

func TestRewardsDiscountRejections(t *testing.T) {
	cfg := domain.RewardsConfig{Enabled: true, PointValue: 0.10, MinRedeemPoints: 100}

	_, err := RewardsDiscount(50, 1000, cfg, 100, 0)
	assert.ErrorIs(t, err, ErrPointsBelowMinimum)

	_, err = RewardsDiscount(500, 200, cfg, 100, 0)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = RewardsDiscount(0, 200, cfg, 100, 0)
	assert.ErrorIs(t, err, ErrInvalidPoints)

	_, err = RewardsDiscount(500, 1000, domain.RewardsConfig{}, 100, 0)
	assert.ErrorIs(t, err, ErrRewardsDisabled)
}

func TestStackPrefersPromoOverOffer(t *testing.T) {
	promo := &domain.AppliedDiscount{Type: domain.DiscountPromo, Amount: 10}
	offer := &domain.AppliedDiscount{Type: domain.DiscountOffer, Amount: 15}
	rewards := &domain.AppliedDiscount{Type: domain.DiscountRewards, Amount: 5}

	stacked := Stack(promo, offer, rewards)
	require.Len(t, stacked, 2)
	assert.Equal(t, domain.DiscountPromo, stacked[0].Type)
	assert.Equal(t, domain.DiscountRewards, stacked[1].Type)

	stacked = Stack(nil, offer, nil)
	require.Len(t, stacked, 1)
	assert.Equal(t, domain.DiscountOffer, stacked[0].Type)
}

func TestEarnedPoints(t *testing.T) {
	cfg := domain.RewardsConfig{Enabled: true, PointsPerDollar: 1}
	assert.Equal(t, 197, EarnedPoints(197.94, cfg))
	assert.Equal(t, 0, EarnedPoints(197.94, domain.RewardsConfig{}))
}
