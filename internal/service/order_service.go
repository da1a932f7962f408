package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"food-market/internal/metrics"
	"food-market/internal/model"
	"food-market/internal/pricing"
	"food-market/internal/repository"
	"food-market/internal/storedir"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// maxOrderNumberAttempts bounds regeneration after an order number collision.
	maxOrderNumberAttempts = 3

	publishTimeout = 5 * time.Second

	defaultListLimit = 50
	maxListLimit     = 200
)

// Limits of the order columns.
const (
	moneyPlaces     = 2
	maxItemQuantity = math.MaxInt32
)

var (
	maxItemPrice   = decimal.RequireFromString("99999999.99")   // NUMERIC(10,2)
	maxOrderAmount = decimal.RequireFromString("9999999999.99") // NUMERIC(12,2)
)

// Transition outcomes recorded in metrics.
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	stores    storedir.Directory
	numbers   OrderNumberGenerator
	publisher Publisher
	metrics   *metrics.Registry
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	stores storedir.Directory,
	numbers OrderNumberGenerator,
	publisher Publisher,
	m *metrics.Registry,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		stores:    stores,
		numbers:   numbers,
		publisher: publisher,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates the cart, prices it against the store and persists the
// order with its items in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	store, err := s.stores.Lookup(ctx, req.StoreID)
	if err != nil {
		if errors.Is(err, model.ErrStoreNotFound) {
			s.logger.Warn().Str("store_id", req.StoreID).Msg("order placed against unknown store")
			return nil, model.NewValidationError(model.FieldError{Field: "storeId", Message: "store does not exist"})
		}
		s.logger.Error().Err(err).Str("store_id", req.StoreID).Msg("failed to look up store")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	lines := make([]pricing.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}

	var deliveryType model.DeliveryType
	if req.DeliveryType != nil {
		deliveryType = *req.DeliveryType
	}

	breakdown, err := pricing.Compute(pricing.Input{
		Lines:            lines,
		DeliveryType:     deliveryType,
		StoreDeliveryFee: store.DeliveryFee,
		Discount:         decimal.Zero,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrNegativeTotal) {
			return nil, model.NewValidationError(model.FieldError{Field: "total", Message: "order total cannot be negative"})
		}
		return nil, fmt.Errorf("failed to price order: %w", err)
	}

	if breakdown.Subtotal.GreaterThan(maxOrderAmount) || breakdown.Total.GreaterThan(maxOrderAmount) {
		return nil, model.NewValidationError(model.FieldError{
			Field:   "total",
			Message: "must not exceed " + maxOrderAmount.StringFixed(moneyPlaces),
		})
	}

	if store.MinOrderAmount.IsPositive() && breakdown.Subtotal.LessThan(store.MinOrderAmount) {
		s.logger.Debug().
			Str("store_id", store.ID).
			Str("subtotal", breakdown.Subtotal.StringFixed(2)).
			Str("min_order_amount", store.MinOrderAmount.StringFixed(2)).
			Msg("order below store minimum")
		return nil, model.NewValidationError(model.FieldError{
			Field:   "items",
			Message: fmt.Sprintf("subtotal must be at least %s", store.MinOrderAmount.StringFixed(2)),
		})
	}

	now := s.now()
	order := &model.Order{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		StoreID:         req.StoreID,
		PaymentMethod:   req.PaymentMethod,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		CustomerNotes:   req.CustomerNotes,
		Subtotal:        breakdown.Subtotal,
		DeliveryFee:     breakdown.DeliveryFee,
		Discount:        breakdown.Discount,
		Total:           breakdown.Total,
		Status:          model.StatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	order.Items = make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		order.Items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: strings.TrimSpace(item.ProductName),
			Price:       item.Price,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		}
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.numbers.Next()

		err = s.persistOrder(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateOrderNumber) && attempt < maxOrderNumberAttempts {
			s.logger.Warn().
				Str("order_number", order.OrderNumber).
				Int("attempt", attempt).
				Msg("order number collision, regenerating")
			continue
		}
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.metrics.OrderCreated()
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("store_id", order.StoreID).
		Int("item_count", len(order.Items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order created successfully")

	s.publish(ctx, model.NewOrderEvent(model.EventNewOrder, order))
	return order, nil
}

// persistOrder writes the order and its items in one transaction.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return err
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an order by its ID with all items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// List returns orders matching the filter, newest first.
func (s *orderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var details []model.FieldError
	if filter.Status != "" && !filter.Status.IsValid() {
		details = append(details, model.FieldError{Field: "status", Message: "unknown status " + string(filter.Status)})
	}
	if filter.Limit < 0 {
		details = append(details, model.FieldError{Field: "limit", Message: "must not be negative"})
	}
	if filter.Offset < 0 {
		details = append(details, model.FieldError{Field: "offset", Message: "must not be negative"})
	}
	if len(details) > 0 {
		return nil, model.NewValidationError(details...)
	}

	switch {
	case filter.Limit == 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("store_id", filter.StoreID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// TransitionStatus applies one step of the order state machine. The write is
// conditional on the version that was read, so concurrent changes surface as
// model.ErrConflict instead of overwriting each other.
func (s *orderService) TransitionStatus(ctx context.Context, id uuid.UUID, target model.Status, expectedVersion *int) (*model.Order, error) {
	if !target.IsValid() {
		return nil, model.NewValidationError(model.FieldError{Field: "status", Message: "unknown status " + string(target)})
	}

	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With().
		Str("order_id", id.String()).
		Str("from", string(order.Status)).
		Str("to", string(target)).
		Logger()

	if expectedVersion != nil && *expectedVersion != order.Version {
		s.metrics.Transition(string(target), outcomeConflict)
		logger.Info().Int("expected_version", *expectedVersion).Int("version", order.Version).Msg("stale status change")
		return nil, model.ErrConflict
	}

	readVersion := order.Version
	if err := order.Transition(target, s.now()); err != nil {
		s.metrics.Transition(string(target), outcomeRejected)
		logger.Info().Msg("status change rejected")
		return nil, err
	}

	newVersion, err := s.orderRepo.UpdateStatus(ctx, repository.StatusUpdate{
		OrderID:         order.ID,
		Status:          order.Status,
		DeliveredAt:     order.DeliveredAt,
		UpdatedAt:       order.UpdatedAt,
		ExpectedVersion: readVersion,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			s.metrics.Transition(string(target), outcomeConflict)
			logger.Info().Int("version", readVersion).Msg("order changed concurrently")
			return nil, model.ErrConflict
		}
		logger.Error().Err(err).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Version = newVersion

	s.metrics.Transition(string(target), outcomeApplied)
	logger.Info().Int("version", newVersion).Msg("order status updated")

	s.publish(ctx, model.NewOrderEvent(model.EventOrderUpdated, order))
	return order, nil
}

// publish is best-effort: the order is already committed, so failures are only
// logged and counted.
func (s *orderService) publish(ctx context.Context, event model.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.PublishFailed()
		s.logger.Error().
			Err(err).
			Str("event", event.Event).
			Str("store_id", event.StoreID).
			Str("order_id", event.Order.ID.String()).
			Msg("failed to publish order event")
	}
}

// validateCreateRequest collects every field problem of the request.
func (s *orderService) validateCreateRequest(req *model.CreateOrderRequest) error {
	if req == nil {
		return model.NewValidationError(model.FieldError{Field: "body", Message: "order request is required"})
	}

	var details []model.FieldError
	add := func(field, message string) {
		details = append(details, model.FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(req.StoreID) == "" {
		add("storeId", "is required")
	}
	if req.PaymentMethod != nil && !req.PaymentMethod.IsValid() {
		add("paymentMethod", "must be card, cash or digital")
	}
	if req.DeliveryType != nil && !req.DeliveryType.IsValid() {
		add("deliveryType", "must be delivery or pickup")
	}
	if len(req.Items) == 0 {
		add("items", "at least one item is required")
	}

	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(item.ProductName) == "" {
			add(prefix+"productName", "is required")
		}
		switch {
		case item.Quantity <= 0:
			add(prefix+"quantity", "must be greater than 0")
		case item.Quantity > maxItemQuantity:
			add(prefix+"quantity", fmt.Sprintf("must not exceed %d", maxItemQuantity))
		}
		switch {
		case !item.Price.IsPositive():
			add(prefix+"price", "must be greater than 0")
		case !item.Price.Equal(item.Price.Round(moneyPlaces)):
			add(prefix+"price", "must have at most 2 decimal places")
		case item.Price.GreaterThan(maxItemPrice):
			add(prefix+"price", "must not exceed "+maxItemPrice.StringFixed(moneyPlaces))
		}
	}

	if len(details) > 0 {
		s.logger.Warn().Int("problem_count", len(details)).Str("store_id", req.StoreID).Msg("invalid order request")
		return model.NewValidationError(details...)
	}
	return nil
}
