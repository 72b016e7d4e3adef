// Package pricing computes order amounts from line items and a discount. It
// has no side effects: the same input always gives the same result.
package pricing

import (
	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/models"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision money amounts are rounded to.
const MoneyPlaces = 2

type TierRule string

const (
	// SmallestEligible picks the tier with the smallest threshold not above
	// the quantity.
	SmallestEligible TierRule = "smallest_eligible"
	// LargestEligible picks the tier with the largest threshold not above the
	// quantity, the usual quantity-break behavior.
	LargestEligible TierRule = "largest_eligible"
)

type OutOfRange string

const (
	// LowestTier prices a quantity below every threshold at the tier with the
	// lowest threshold.
	LowestTier OutOfRange = "lowest_tier"
	Reject     OutOfRange = "reject"
)

type Policy struct {
	TierRule   TierRule
	OutOfRange OutOfRange
}

func DefaultPolicy() Policy {
	return Policy{TierRule: SmallestEligible, OutOfRange: LowestTier}
}

type Discount struct {
	Type  models.DiscountType
	Value decimal.Decimal
}

type Result struct {
	Gross            decimal.Decimal
	DiscountedAmount decimal.Decimal
	FinalAmount      decimal.Decimal
	// Lines are the input lines with UnitPrice and LineAmount filled in.
	Lines []models.DesignLineItem
}

type Engine struct {
	policy Policy
}

func New(p Policy) *Engine {
	if p.TierRule == "" {
		p.TierRule = SmallestEligible
	}
	if p.OutOfRange == "" {
		p.OutOfRange = LowestTier
	}
	return &Engine{policy: p}
}

func (e *Engine) Price(lines []models.DesignLineItem, d Discount) (Result, error) {
	const op = "pricing.Price"

	if err := checkDiscount(d); err != nil {
		return Result{}, err
	}

	gross := decimal.Zero
	out := make([]models.DesignLineItem, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return Result{}, apperr.Validation(op, "quantity for design %s must be positive", line.DesignNumber)
		}
		tier, err := e.SelectTier(line.PriceTiers, line.Quantity)
		if err != nil {
			return Result{}, apperr.Validation(op, "design %s: %s", line.DesignNumber, apperr.Message(err))
		}
		line.UnitPrice = tier.UnitPrice
		line.LineAmount = tier.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(MoneyPlaces)
		gross = gross.Add(tier.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		out[i] = line
	}
	gross = gross.Round(MoneyPlaces)

	var discounted decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		discounted = gross.Mul(d.Value).Div(decimal.NewFromInt(100))
	case models.DiscountFlat:
		discounted = d.Value
	}
	discounted = clamp(discounted.Round(MoneyPlaces), decimal.Zero, gross)

	return Result{
		Gross:            gross,
		DiscountedAmount: discounted,
		FinalAmount:      gross.Sub(discounted),
		Lines:            out,
	}, nil
}

// SelectTier picks the tier that prices qty under the engine's policy. Among
// tiers with equal thresholds the first declared wins.
func (e *Engine) SelectTier(tiers []models.PriceTier, qty int) (models.PriceTier, error) {
	const op = "pricing.SelectTier"
	if len(tiers) == 0 {
		return models.PriceTier{}, apperr.Validation(op, "no price tiers")
	}

	best, lowest := -1, 0
	for i, t := range tiers {
		if t.UnitPrice.IsNegative() {
			return models.PriceTier{}, apperr.Validation(op, "negative unit price in tier %d", i)
		}
		if t.MinQuantity < tiers[lowest].MinQuantity {
			lowest = i
		}
		if t.MinQuantity > qty {
			continue
		}
		switch {
		case best < 0:
			best = i
		case e.policy.TierRule == LargestEligible && t.MinQuantity > tiers[best].MinQuantity:
			best = i
		case e.policy.TierRule != LargestEligible && t.MinQuantity < tiers[best].MinQuantity:
			best = i
		}
	}
	if best >= 0 {
		return tiers[best], nil
	}
	if e.policy.OutOfRange == Reject {
		return models.PriceTier{}, apperr.Validation(op, "no price tier for quantity %d", qty)
	}
	return tiers[lowest], nil
}

func checkDiscount(d Discount) error {
	const op = "pricing.Price"
	switch d.Type {
	case models.DiscountPercentage, models.DiscountFlat:
	default:
		return apperr.New(apperr.KindInvalidDiscount, op, "unknown discount type %q", d.Type)
	}
	if d.Value.IsNegative() {
		return apperr.New(apperr.KindInvalidDiscount, op, "discount must not be negative")
	}
	if d.Type == models.DiscountPercentage && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return apperr.New(apperr.KindInvalidDiscount, op, "percentage discount above 100")
	}
	return nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
