package reconcile

import (
	"context"
	"fmt"
	"sync"

	"food-market/internal/client"
	"food-market/internal/model"

	"github.com/rs/zerolog"
)

// refreshLimit is the page size of a full refresh.
const refreshLimit = 200

// Lister loads the persisted orders of a store.
type Lister interface {
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

// Subscription delivers the push stream of one store.
type Subscription interface {
	Run(ctx context.Context, h client.EventHandler) error
}

// Merchant keeps the order board of one store current from pushed events,
// falling back to a full refresh after every (re)connect.
type Merchant struct {
	storeID string
	lister  Lister
	view    *View

	mu       sync.Mutex
	onChange func(orders []model.Order)

	logger zerolog.Logger
}

// NewMerchant creates a reconciler for storeID.
func NewMerchant(storeID string, lister Lister, logger zerolog.Logger) *Merchant {
	return &Merchant{
		storeID: storeID,
		lister:  lister,
		view:    NewView(),
		logger:  logger.With().Str("component", "merchant-reconciler").Str("store_id", storeID).Logger(),
	}
}

// OnChange registers fn to receive the board after every change.
func (m *Merchant) OnChange(fn func(orders []model.Order)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// HandleEvent merges one pushed event. A new-order event inserts or replaces
// the order; an order-updated event only replaces an order already on the
// board. It reports whether the board changed.
func (m *Merchant) HandleEvent(event model.OrderEvent) bool {
	if event.Order == nil || event.StoreID != m.storeID || event.Order.StoreID != m.storeID {
		m.logger.Debug().Str("event", event.Event).Msg("ignoring event for another store")
		return false
	}

	var applied bool
	switch event.Event {
	case model.EventNewOrder:
		applied = m.view.Upsert(*event.Order)
	case model.EventOrderUpdated:
		applied = m.view.Replace(*event.Order)
	default:
		m.logger.Warn().Str("event", event.Event).Msg("unknown order event")
		return false
	}

	m.logger.Debug().
		Str("event", event.Event).
		Str("order_id", event.Order.ID.String()).
		Int("version", event.Order.Version).
		Bool("applied", applied).
		Msg("order event merged")

	if applied {
		m.notify()
	}
	return applied
}

// Refresh replaces the board with the store's persisted orders.
func (m *Merchant) Refresh(ctx context.Context) error {
	orders, err := m.lister.ListOrders(ctx, model.OrderFilter{StoreID: m.storeID, Limit: refreshLimit})
	if err != nil {
		return fmt.Errorf("failed to refresh orders: %w", err)
	}

	m.view.Reset(orders)
	m.logger.Info().Int("order_count", len(orders)).Msg("order board refreshed")
	m.notify()
	return nil
}

// OnConnect refreshes the board so events missed while disconnected are recovered.
func (m *Merchant) OnConnect(ctx context.Context) error {
	return m.Refresh(ctx)
}

// OnEvent merges a pushed event.
func (m *Merchant) OnEvent(event model.OrderEvent) {
	m.HandleEvent(event)
}

// Run consumes sub until ctx is cancelled.
func (m *Merchant) Run(ctx context.Context, sub Subscription) error {
	return sub.Run(ctx, m)
}

// Orders returns the board newest first.
func (m *Merchant) Orders() []model.Order {
	return m.view.List()
}

func (m *Merchant) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(m.view.List())
	}
}
