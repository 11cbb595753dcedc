// Package pricing turns a menu price and a selected portion into line prices.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"pickup-kitchen/apperr"

	"github.com/shopspring/decimal"
)

const (
	LabelHalf    = "Half"
	LabelQuarter = "Quarter"
)

// ErrInvalidQuantity is returned for negative sub-quantities and
// non-positive integer labels.
var ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", apperr.ErrInvalidInput)

var (
	two  = decimal.NewFromInt(2)
	four = decimal.NewFromInt(4)
)

// Price computes unit and total price for one cart line. No rounding is
// applied here; callers round at the storage boundary.
//
//	"3"       -> total = price * 3
//	"Half"    -> total = price / 2 * subQty
//	"Quarter" -> total = price / 4 * subQty
//	other     -> total = price
func Price(price decimal.Decimal, label string, subQty int) (unit, total decimal.Decimal, err error) {
	if subQty < 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: sub-quantity %d", ErrInvalidQuantity, subQty)
	}
	label = strings.TrimSpace(label)
	unit = price

	if n, convErr := strconv.Atoi(label); convErr == nil {
		if n <= 0 {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: quantity %d", ErrInvalidQuantity, n)
		}
		return unit, price.Mul(decimal.NewFromInt(int64(n))), nil
	}

	sub := decimal.NewFromInt(int64(subQty))
	switch label {
	case LabelHalf:
		return unit, price.Div(two).Mul(sub), nil
	case LabelQuarter:
		return unit, price.Div(four).Mul(sub), nil
	default:
		return unit, price, nil
	}
}

// RoundMoney rounds to the two fractional digits stored for every amount.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
