package model

import "github.com/shopspring/decimal"

// Store holds the pricing settings of a merchant that orders are placed against.
type Store struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount" db:"min_order_amount"`
}
