// Package realtime fans order events out to websocket subscribers grouped in
// rooms keyed by store id.
package realtime

import "food-market/internal/model"

// Client message types.
const (
	MessageJoin  = "join"
	MessageLeave = "leave"
)

// Server replies to client messages.
const (
	EventJoined = "joined"
	EventLeft   = "left"
	EventError  = "error"
)

// ClientMessage is sent by a subscriber to enter or leave a store room.
type ClientMessage struct {
	Type    string `json:"type"`
	StoreID string `json:"storeId"`
	Token   string `json:"token,omitempty"`
}

// ServerMessage is every frame the server pushes: order events and replies.
type ServerMessage struct {
	Event   string       `json:"event"`
	StoreID string       `json:"storeId,omitempty"`
	Order   *model.Order `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// IsOrderEvent reports whether the frame carries an order.
func (m ServerMessage) IsOrderEvent() bool {
	return (m.Event == model.EventNewOrder || m.Event == model.EventOrderUpdated) && m.Order != nil
}

// OrderEvent converts an order frame back into the domain event.
func (m ServerMessage) OrderEvent() model.OrderEvent {
	return model.OrderEvent{Event: m.Event, StoreID: m.StoreID, Order: m.Order}
}
