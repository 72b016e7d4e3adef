package units

import (
	"designhouse-backend/internal/apperr"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	Gram     Unit = "g"
	Kilogram Unit = "kg"
	Piece    Unit = "pcs"
)

var gramsPerKilogram = decimal.NewFromInt(1000)

func (u Unit) Valid() bool {
	switch u {
	case Gram, Kilogram, Piece:
		return true
	}
	return false
}

func (u Unit) IsMass() bool {
	return u == Gram || u == Kilogram
}

// Convert expresses q (measured in from) in the unit to. Mass units convert
// between each other; pieces only convert to pieces.
func Convert(q decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	const op = "units.Convert"
	if !from.Valid() {
		return decimal.Zero, apperr.Validation(op, "unknown unit %q", from)
	}
	if !to.Valid() {
		return decimal.Zero, apperr.Validation(op, "unknown unit %q", to)
	}
	if from == to {
		return q, nil
	}
	switch {
	case from == Gram && to == Kilogram:
		return q.Div(gramsPerKilogram), nil
	case from == Kilogram && to == Gram:
		return q.Mul(gramsPerKilogram), nil
	}
	return decimal.Zero, apperr.Validation(op, "cannot convert %s to %s", from, to)
}

// ToGrams normalizes a quantity to grams. Pieces are weighed with
// weightPerPiece, which is itself in grams.
func ToGrams(q decimal.Decimal, unit Unit, weightPerPiece decimal.Decimal) (decimal.Decimal, error) {
	if unit == Piece {
		return q.Mul(weightPerPiece), nil
	}
	return Convert(q, unit, Gram)
}
