// Package pricing turns a cart snapshot into the monetary fields of an order.
package pricing

import (
	"errors"
	"fmt"

	"food-market/internal/model"

	"github.com/shopspring/decimal"
)

// minorUnitPlaces is the number of decimal places in the currency minor unit.
const minorUnitPlaces = 2

// ErrNegativeTotal is returned when the discount exceeds subtotal plus delivery fee.
var ErrNegativeTotal = errors.New("order total cannot be negative")

// Line is a priced cart line. UnitPrice already includes selected extras.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Input is everything the engine needs to price one order.
type Input struct {
	Lines            []Line
	DeliveryType     model.DeliveryType
	StoreDeliveryFee decimal.Decimal
	Discount         decimal.Decimal
}

// Breakdown holds the derived monetary fields of an order.
type Breakdown struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Compute prices an order. The store fee only applies to delivery orders; an
// unset delivery type prices as pickup.
func Compute(in Input) (Breakdown, error) {
	subtotal := decimal.Zero
	for _, line := range in.Lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(minorUnitPlaces)

	fee := decimal.Zero
	if in.DeliveryType == model.DeliveryTypeDelivery {
		fee = in.StoreDeliveryFee.Round(minorUnitPlaces)
	}

	discount := in.Discount.Round(minorUnitPlaces)
	total := subtotal.Add(fee).Sub(discount)
	if total.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: subtotal %s, delivery fee %s, discount %s",
			ErrNegativeTotal, subtotal.StringFixed(minorUnitPlaces), fee.StringFixed(minorUnitPlaces), discount.StringFixed(minorUnitPlaces))
	}

	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       total,
	}, nil
}
