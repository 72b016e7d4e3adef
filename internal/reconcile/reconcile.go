// Package reconcile compares the weight an order should have, derived from
// its recipes, with the weight reported for it.
package reconcile

import (
	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/units"

	"github.com/shopspring/decimal"
)

const (
	WeightPlaces     = 4
	PercentagePlaces = 2
)

var hundred = decimal.NewFromInt(100)

// Result weights are in grams. WeightDiscrepancy is reported minus
// calculated, so a positive value means the order weighed more than expected.
type Result struct {
	CalculatedWeight      decimal.Decimal `json:"calculated_weight"`
	ReportedWeight        decimal.Decimal `json:"reported_weight"`
	WeightDiscrepancy     decimal.Decimal `json:"weight_discrepancy"`
	DiscrepancyPercentage decimal.Decimal `json:"discrepancy_percentage"`
}

// Reconcile sums each line's recipe, multiplied by the line quantity, in
// grams. The percentage is 0 when nothing was expected.
func Reconcile(lines []models.DesignLineItem, reported decimal.Decimal) (Result, error) {
	const op = "reconcile.Reconcile"

	calculated := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, m := range line.Materials {
			g, err := units.ToGrams(m.Quantity, m.Unit, m.WeightPerPiece)
			if err != nil {
				return Result{}, apperr.Validation(op, "design %s: %s", line.DesignNumber, apperr.Message(err))
			}
			calculated = calculated.Add(g.Mul(qty))
		}
	}
	calculated = calculated.Round(WeightPlaces)
	reported = reported.Round(WeightPlaces)
	diff := reported.Sub(calculated)

	pct := decimal.Zero
	if !calculated.IsZero() {
		pct = diff.Mul(hundred).Div(calculated).Round(PercentagePlaces)
	}

	return Result{
		CalculatedWeight:      calculated,
		ReportedWeight:        reported,
		WeightDiscrepancy:     diff,
		DiscrepancyPercentage: pct,
	}, nil
}

// Exceeds reports whether the absolute discrepancy percentage is above limit.
// A non-positive limit never triggers.
func Exceeds(r Result, limit decimal.Decimal) bool {
	if !limit.IsPositive() {
		return false
	}
	return r.DiscrepancyPercentage.Abs().GreaterThan(limit)
}
