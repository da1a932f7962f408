// Package reconcile keeps a client-side view of orders converged with the
// server, fed either by pushed events or by polling.
package reconcile

import (
	"slices"
	"strings"
	"sync"

	"food-market/internal/model"

	"github.com/google/uuid"
)

// View holds orders keyed by id. Writes are last-write-wins on the order
// version: a strictly older version never replaces a newer one.
type View struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]model.Order
}

// NewView creates an empty view.
func NewView() *View {
	return &View{orders: make(map[uuid.UUID]model.Order)}
}

// Upsert inserts the order or replaces the held copy unless that copy is newer.
// It reports whether the order was stored.
func (v *View) Upsert(order model.Order) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.apply(order, true)
}

// Replace is Upsert for orders already in the view. Unknown ids are ignored.
func (v *View) Replace(order model.Order) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.apply(order, false)
}

func (v *View) apply(order model.Order, insert bool) bool {
	held, ok := v.orders[order.ID]
	if !ok && !insert {
		return false
	}
	if ok && order.Version < held.Version {
		return false
	}
	v.orders[order.ID] = order
	return true
}

// Reset replaces the whole view with a fresh snapshot.
func (v *View) Reset(orders []model.Order) {
	fresh := make(map[uuid.UUID]model.Order, len(orders))
	for _, o := range orders {
		fresh[o.ID] = o
	}

	v.mu.Lock()
	v.orders = fresh
	v.mu.Unlock()
}

// Get returns the held copy of an order.
func (v *View) Get(id uuid.UUID) (model.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	o, ok := v.orders[id]
	return o, ok
}

// List returns the orders newest first, the same order the API lists them in.
func (v *View) List() []model.Order {
	v.mu.RLock()
	out := make([]model.Order, 0, len(v.orders))
	for _, o := range v.orders {
		out = append(out, o)
	}
	v.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	return out
}

// Len returns the number of orders held.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.orders)
}
