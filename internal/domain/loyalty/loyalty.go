// Package loyalty computes tier-based discounts and reward points.
package loyalty

import (
	"github.com/shopspring/decimal"

	"github.com/threadline/backoffice/internal/domain/customer"
)

// discountRates is the tier-keyed discount rate table. Tiers missing from
// the table earn no discount.
var discountRates = map[customer.Tier]decimal.Decimal{
	customer.TierBronze:   decimal.Zero,
	customer.TierSilver:   decimal.NewFromFloat(0.05),
	customer.TierGold:     decimal.NewFromFloat(0.10),
	customer.TierPlatinum: decimal.NewFromFloat(0.15),
}

// Discount returns the discount in cents for the given tier and total.
// The product of total and rate is rounded half-to-even, so the .5-cent
// boundary rounds towards the even cent.
func Discount(tier customer.Tier, totalCents int64) int64 {
	rate, ok := discountRates[tier]
	if !ok || rate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(totalCents).Mul(rate).RoundBank(0).IntPart()
}

// Strategy computes the points earned for an order total.
type Strategy interface {
	Compute(totalCents int64) int64
}

// BaseReward earns one point per whole dollar spent.
type BaseReward struct{}

// Compute returns floor(totalCents / 100).
func (BaseReward) Compute(totalCents int64) int64 {
	if totalCents < 0 {
		return 0
	}
	return totalCents / 100
}

// Multiplied scales another strategy's result. Composing strategies keeps
// the multiplier independent of how the inner points are computed.
type Multiplied struct {
	Inner  Strategy
	Factor int64
}

// Compute returns Factor times the inner strategy's points.
func (m Multiplied) Compute(totalCents int64) int64 {
	inner := m.Inner
	if inner == nil {
		inner = BaseReward{}
	}
	return inner.Compute(totalCents) * m.Factor
}

// ForTier returns the reward strategy for a tier: base points for Bronze and
// Silver, doubled for Gold, tripled for Platinum. Unknown tiers earn base
// points.
func ForTier(tier customer.Tier) Strategy {
	switch tier {
	case customer.TierGold:
		return Multiplied{Inner: BaseReward{}, Factor: 2}
	case customer.TierPlatinum:
		return Multiplied{Inner: BaseReward{}, Factor: 3}
	default:
		return BaseReward{}
	}
}
