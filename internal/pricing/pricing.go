package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/money"
)

var (
	ErrPromoNotFound      = errors.New("promo code not found")
	ErrPromoInactive      = errors.New("promo code is not active")
	ErrPromoNotStarted    = errors.New("promo code is not valid yet")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrPromoUsageExceeded = errors.New("promo code usage limit reached")
	ErrPromoMinimumNotMet = errors.New("order subtotal is below the promo minimum")

	ErrRewardsDisabled    = errors.New("rewards are not enabled")
	ErrInvalidPoints      = errors.New("points must be positive")
	ErrPointsBelowMinimum = errors.New("points are below the minimum redeemable amount")
	ErrInsufficientPoints = errors.New("not enough reward points")
)

// Config carries the per-customer inputs of a price computation.
type Config struct {
	TaxPercent   float64 `json:"tax_percent"`
	FreeShipping bool    `json:"free_shipping"`
}

type Totals struct {
	Subtotal      float64                  `json:"subtotal"`
	Tax           float64                  `json:"tax"`
	Shipping      float64                  `json:"shipping"`
	Total         float64                  `json:"total"`
	DiscountTotal float64                  `json:"discount_total"`
	FinalTotal    float64                  `json:"final_total"`
	Discounts     []domain.AppliedDiscount `json:"discounts"`
}

// Compute aggregates a cart. Item prices are line totals and are summed as-is.
// Shipping is charged once per order at the highest item shipping cost. Tax
// applies to the subtotal only. Discounts reduce the total, which is floored at zero.
func Compute(items []domain.CartItem, cfg Config, discounts []domain.AppliedDiscount) Totals {
	prices := make([]float64, 0, len(items))
	shipping := 0.0
	for _, item := range items {
		prices = append(prices, item.Price)
		if item.ShippingCost > shipping {
			shipping = item.ShippingCost
		}
	}
	if cfg.FreeShipping {
		shipping = 0
	}

	subtotal := money.Sum(prices...)
	tax := money.Percent(subtotal, cfg.TaxPercent)
	shipping = money.Round2(shipping)
	total := money.Sum(subtotal, tax, shipping)

	amounts := make([]float64, 0, len(discounts))
	for _, d := range discounts {
		amounts = append(amounts, d.Amount)
	}
	discountTotal := money.Sum(amounts...)

	finalTotal := money.Sub(total, discountTotal)
	if finalTotal < 0 {
		finalTotal = 0
	}

	applied := make([]domain.AppliedDiscount, len(discounts))
	copy(applied, discounts)

	return Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		Shipping:      shipping,
		Total:         total,
		DiscountTotal: discountTotal,
		FinalTotal:    finalTotal,
		Discounts:     applied,
	}
}

// Subtotal is the sum of line totals.
func Subtotal(items []domain.CartItem) float64 {
	prices := make([]float64, 0, len(items))
	for _, item := range items {
		prices = append(prices, item.Price)
	}
	return money.Sum(prices...)
}

// ValidatePromo checks an offer looked up by code against the current cart
// and returns the discount it grants.
func ValidatePromo(offer *domain.Offer, subtotal float64, now time.Time) (domain.AppliedDiscount, error) {
	if offer == nil {
		return domain.AppliedDiscount{}, ErrPromoNotFound
	}
	if err := checkOffer(*offer, subtotal, now); err != nil {
		return domain.AppliedDiscount{}, err
	}

	return domain.AppliedDiscount{
		Type:      domain.DiscountPromo,
		Name:      offer.Title,
		Amount:    OfferAmount(*offer, subtotal),
		OfferID:   offer.ID,
		PromoCode: strings.ToUpper(offer.Code),
	}, nil
}

func checkOffer(offer domain.Offer, subtotal float64, now time.Time) error {
	if !offer.Active {
		return ErrPromoInactive
	}
	if offer.StartDate != nil && now.Before(*offer.StartDate) {
		return ErrPromoNotStarted
	}
	if offer.EndDate != nil && now.After(*offer.EndDate) {
		return ErrPromoExpired
	}
	if offer.UsageLimit != nil && offer.UsedCount >= *offer.UsageLimit {
		return ErrPromoUsageExceeded
	}
	if offer.MinOrderAmount > 0 && subtotal < offer.MinOrderAmount {
		return fmt.Errorf("%w: minimum is %.2f", ErrPromoMinimumNotMet, offer.MinOrderAmount)
	}
	return nil
}

// OfferAmount is the discount an offer grants on subtotal. Percentage offers
// honour MaxDiscount; no offer discounts more than the subtotal.
func OfferAmount(offer domain.Offer, subtotal float64) float64 {
	amount := 0.0
	switch offer.OfferType {
	case domain.OfferTypePercentage:
		amount = money.Percent(subtotal, offer.Value)
		if offer.MaxDiscount != nil && *offer.MaxDiscount > 0 && amount > *offer.MaxDiscount {
			amount = *offer.MaxDiscount
		}
	case domain.OfferTypeFlat:
		amount = offer.Value
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return money.Round2(amount)
}

// BestOffer picks the most valuable automatic offer (one without a code)
// that the cart qualifies for. It returns nil when none applies.
func BestOffer(offers []domain.Offer, subtotal float64, now time.Time) *domain.AppliedDiscount {
	candidates := make([]domain.AppliedDiscount, 0, len(offers))
	for _, offer := range offers {
		if offer.Code != "" {
			continue
		}
		if err := checkOffer(offer, subtotal, now); err != nil {
			continue
		}
		amount := OfferAmount(offer, subtotal)
		if amount <= 0 {
			continue
		}
		candidates = append(candidates, domain.AppliedDiscount{
			Type:    domain.DiscountOffer,
			Name:    offer.Title,
			Amount:  amount,
			OfferID: offer.ID,
		})
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Amount > candidates[j].Amount
	})
	best := candidates[0]
	return &best
}

// RewardsDiscount converts points into a discount capped at what is left of
// the subtotal after the promo amount. Points beyond the cap are not spent.
func RewardsDiscount(points int, balance int, cfg domain.RewardsConfig, subtotal float64, promoAmount float64) (domain.AppliedDiscount, error) {
	if !cfg.Enabled || cfg.PointValue <= 0 {
		return domain.AppliedDiscount{}, ErrRewardsDisabled
	}
	if points < 1 {
		return domain.AppliedDiscount{}, ErrInvalidPoints
	}
	if cfg.MinRedeemPoints > 0 && points < cfg.MinRedeemPoints {
		return domain.AppliedDiscount{}, fmt.Errorf("%w: minimum is %d", ErrPointsBelowMinimum, cfg.MinRedeemPoints)
	}
	if points > balance {
		return domain.AppliedDiscount{}, fmt.Errorf("%w: balance is %d", ErrInsufficientPoints, balance)
	}

	amount := money.Mul(float64(points), cfg.PointValue)
	ceiling := money.Sub(subtotal, promoAmount)
	if ceiling < 0 {
		ceiling = 0
	}
	used := points
	if amount > ceiling {
		amount = ceiling
		used = money.DivCeil(ceiling, cfg.PointValue)
		if used > points {
			used = points
		}
	}

	return domain.AppliedDiscount{
		Type:       domain.DiscountRewards,
		Name:       fmt.Sprintf("Reward points (%d)", used),
		Amount:     amount,
		PointsUsed: used,
	}, nil
}

// Stack orders the discounts that may coexist on one order. An automatic
// offer is only kept when no promo code has been applied.
func Stack(promo *domain.AppliedDiscount, offer *domain.AppliedDiscount, rewards *domain.AppliedDiscount) []domain.AppliedDiscount {
	stacked := make([]domain.AppliedDiscount, 0, 2)
	switch {
	case promo != nil:
		stacked = append(stacked, *promo)
	case offer != nil:
		stacked = append(stacked, *offer)
	}
	if rewards != nil && rewards.Amount > 0 {
		stacked = append(stacked, *rewards)
	}
	return stacked
}

// EarnedPoints is the number of reward points an order total earns.
func EarnedPoints(finalTotal float64, cfg domain.RewardsConfig) int {
	if !cfg.Enabled || cfg.PointsPerDollar <= 0 || finalTotal <= 0 {
		return 0
	}
	return int(math.Floor(finalTotal * cfg.PointsPerDollar))
}
