package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers on every boundary.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodDigital PaymentMethod = "digital"
)

// IsValid reports whether p is a known payment method.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodDigital:
		return true
	}
	return false
}

// DeliveryType is how the order reaches the customer.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// IsValid reports whether d is a known delivery type.
func (d DeliveryType) IsValid() bool {
	return d == DeliveryTypeDelivery || d == DeliveryTypePickup
}

// Order represents a customer order together with its priced items.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	CustomerID      *string         `json:"customerId,omitempty" db:"customer_id"`
	StoreID         string          `json:"storeId" db:"store_id"`
	PaymentMethod   *PaymentMethod  `json:"paymentMethod,omitempty" db:"payment_method"`
	DeliveryType    *DeliveryType   `json:"deliveryType,omitempty" db:"delivery_type"`
	DeliveryAddress *string         `json:"deliveryAddress,omitempty" db:"delivery_address"`
	CustomerNotes   *string         `json:"customerNotes,omitempty" db:"customer_notes"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	Discount        decimal.Decimal `json:"discount" db:"discount"`
	Total           decimal.Decimal `json:"total" db:"total"`
	Status          Status          `json:"status" db:"status"`
	Version         int             `json:"version" db:"version"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	Items           []OrderItem     `json:"items"`
}

// OrderItem is a priced snapshot of a cart line. Name and price are copied at
// creation and never resynchronised with the catalogue.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"orderId" db:"order_id"`
	ProductID   *string         `json:"productId,omitempty" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Notes       *string         `json:"notes,omitempty" db:"notes"`
}

// CreateOrderRequest represents the request payload for creating an order.
type CreateOrderRequest struct {
	CustomerID      *string            `json:"customerId,omitempty"`
	StoreID         string             `json:"storeId"`
	PaymentMethod   *PaymentMethod     `json:"paymentMethod,omitempty"`
	DeliveryType    *DeliveryType      `json:"deliveryType,omitempty"`
	DeliveryAddress *string            `json:"deliveryAddress,omitempty"`
	CustomerNotes   *string            `json:"customerNotes,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single cart line in an order request.
// Price already includes any extras selected when the line was added.
type OrderItemRequest struct {
	ProductID   *string         `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Notes       *string         `json:"notes,omitempty"`
}

// UpdateStatusRequest is the body of a status change. Version, when present,
// must match the order's current version.
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Version *int   `json:"version,omitempty"`
}

// OrderFilter narrows an order listing. Zero values mean "any".
type OrderFilter struct {
	StoreID    string
	CustomerID string
	Status     Status
	Limit      int
	Offset     int
}

// Order event names pushed to store channels.
const (
	EventNewOrder     = "new-order"
	EventOrderUpdated = "order-updated"
)

// OrderEvent announces a change to an order inside its store's channel.
type OrderEvent struct {
	Event   string `json:"event"`
	StoreID string `json:"storeId"`
	Order   *Order `json:"order"`
}

// NewOrderEvent builds an event for the order's own store.
func NewOrderEvent(name string, order *Order) OrderEvent {
	return OrderEvent{Event: name, StoreID: order.StoreID, Order: order}
}
