package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-market/internal/model"
	"food-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, update repository.StatusUpdate) (int, error) {
	args := m.Called(ctx, update)
	return args.Int(0), args.Error(1)
}

// MockDirectory is a mock implementation of storedir.Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Lookup(ctx context.Context, storeID string) (*model.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Store), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// sequenceGenerator hands out fixed order numbers in order.
type sequenceGenerator struct {
	numbers []string
	calls   int
}

func (g *sequenceGenerator) Next() string {
	n := g.numbers[g.calls%len(g.numbers)]
	g.calls++
	return n
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type serviceMocks struct {
	orders    *MockOrderRepository
	stores    *MockDirectory
	publisher *MockPublisher
	numbers   *sequenceGenerator
}

func newTestService(numbers ...string) (*orderService, serviceMocks) {
	if len(numbers) == 0 {
		numbers = []string{"ORD-1772366400000-AB12CD"}
	}
	mocks := serviceMocks{
		orders:    new(MockOrderRepository),
		stores:    new(MockDirectory),
		publisher: new(MockPublisher),
		numbers:   &sequenceGenerator{numbers: numbers},
	}
	svc := NewOrderService(mocks.orders, mocks.stores, mocks.numbers, mocks.publisher, nil, zerolog.Nop()).(*orderService)
	svc.now = func() time.Time { return fixedNow }
	return svc, mocks
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func testStore() *model.Store {
	return &model.Store{ID: "store-1", Name: "Corner Pizza", DeliveryFee: dec("2.00"), MinOrderAmount: decimal.Zero}
}

func validRequest(deliveryType model.DeliveryType) *model.CreateOrderRequest {
	payment := model.PaymentMethodCard
	return &model.CreateOrderRequest{
		CustomerID:    strPtr("customer-1"),
		StoreID:       "store-1",
		PaymentMethod: &payment,
		DeliveryType:  &deliveryType,
		Items: []model.OrderItemRequest{
			{ProductID: strPtr("P001"), ProductName: "Margherita", Quantity: 2, Price: dec("5.00")},
			{ProductName: "Lemonade", Quantity: 1, Price: dec("3.50"), Notes: strPtr("no ice")},
		},
	}
}

func storedOrder(status model.Status, version int) *model.Order {
	return &model.Order{
		ID:        uuid.New(),
		StoreID:   "store-1",
		Status:    status,
		Version:   version,
		Subtotal:  dec("13.50"),
		Total:     dec("13.50"),
		CreatedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow.Add(-time.Hour),
	}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Total.Equal(dec("15.50")) && o.OrderNumber == "ORD-1772366400000-AB12CD"
	})).Return(nil)
	m.orders.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e model.OrderEvent) bool {
		return e.Event == model.EventNewOrder && e.StoreID == "store-1"
	})).Return(nil)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, 1, order.Version)
	assert.True(t, order.Subtotal.Equal(dec("13.50")))
	assert.True(t, order.DeliveryFee.Equal(dec("2.00")))
	assert.True(t, order.Discount.IsZero())
	assert.True(t, order.Total.Equal(dec("15.50")))
	assert.Equal(t, fixedNow, order.CreatedAt)
	assert.Nil(t, order.DeliveredAt)

	require.Len(t, order.Items, 2)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.Equal(t, "Margherita", order.Items[0].ProductName)
	assert.Nil(t, order.Items[1].ProductID)
	assert.Equal(t, "no ice", *order.Items[1].Notes)

	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledBack)
	m.stores.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PickupHasNoDeliveryFee(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.Anything).Return(nil)
	m.orders.On("CreateOrderItems", ctx, mockTx, mock.Anything).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypePickup))

	require.NoError(t, err)
	assert.True(t, order.DeliveryFee.IsZero())
	assert.True(t, order.Total.Equal(dec("13.50")))
}

func TestOrderService_CreateOrder_ValidationErrors(t *testing.T) {
	badPayment := model.PaymentMethod("cheque")

	tests := []struct {
		name      string
		mutate    func(r *model.CreateOrderRequest)
		wantField string
	}{
		{
			name:      "no items",
			mutate:    func(r *model.CreateOrderRequest) { r.Items = nil },
			wantField: "items",
		},
		{
			name:      "zero quantity",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[0].Quantity = 0 },
			wantField: "items[0].quantity",
		},
		{
			name:      "negative quantity",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[1].Quantity = -1 },
			wantField: "items[1].quantity",
		},
		{
			name:      "zero price",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[1].Price = decimal.Zero },
			wantField: "items[1].price",
		},
		{
			name:      "price below one cent",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[0].Price = dec("0.001") },
			wantField: "items[0].price",
		},
		{
			name:      "price with sub-cent fraction",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[1].Price = dec("1.005") },
			wantField: "items[1].price",
		},
		{
			name:      "price above column limit",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[0].Price = dec("100000000.00") },
			wantField: "items[0].price",
		},
		{
			name: "quantity above column limit",
			mutate: func(r *model.CreateOrderRequest) {
				r.Items[0].Quantity = maxItemQuantity
				r.Items[0].Quantity++
			},
			wantField: "items[0].quantity",
		},
		{
			name:      "missing product name",
			mutate:    func(r *model.CreateOrderRequest) { r.Items[0].ProductName = "  " },
			wantField: "items[0].productName",
		},
		{
			name:      "missing store",
			mutate:    func(r *model.CreateOrderRequest) { r.StoreID = "" },
			wantField: "storeId",
		},
		{
			name:      "unknown payment method",
			mutate:    func(r *model.CreateOrderRequest) { r.PaymentMethod = &badPayment },
			wantField: "paymentMethod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			req := validRequest(model.DeliveryTypeDelivery)
			tt.mutate(req)

			order, err := svc.CreateOrder(context.Background(), req)

			require.Error(t, err)
			assert.Nil(t, order)
			assert.True(t, errors.Is(err, model.ErrValidation))

			var domainErr *model.DomainError
			require.True(t, errors.As(err, &domainErr))
			require.NotEmpty(t, domainErr.Details)
			assert.Equal(t, tt.wantField, domainErr.Details[0].Field)

			m.stores.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
			m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_PriceMessages(t *testing.T) {
	tests := []struct {
		price   string
		message string
	}{
		{price: "1.005", message: "must have at most 2 decimal places"},
		{price: "0.001", message: "must have at most 2 decimal places"},
		{price: "100000000", message: "must not exceed 99999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			svc, _ := newTestService()
			req := validRequest(model.DeliveryTypePickup)
			req.Items = req.Items[:1]
			req.Items[0].Price = dec(tt.price)

			_, err := svc.CreateOrder(context.Background(), req)

			var domainErr *model.DomainError
			require.True(t, errors.As(err, &domainErr))
			require.Len(t, domainErr.Details, 1)
			assert.Equal(t, model.FieldError{Field: "items[0].price", Message: tt.message}, domainErr.Details[0])
		})
	}
}

func TestOrderService_CreateOrder_AcceptsTrailingZeros(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	tx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(tx, nil)
	m.orders.On("CreateOrder", ctx, tx, mock.Anything).Return(nil)
	m.orders.On("CreateOrderItems", ctx, tx, mock.Anything).Return(nil)
	tx.On("Commit", ctx).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := validRequest(model.DeliveryTypePickup)
	req.Items[0].Price = dec("5.0000")

	order, err := svc.CreateOrder(ctx, req)

	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(dec("13.50")))
}

func TestOrderService_CreateOrder_TotalAboveColumnLimit(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)

	req := validRequest(model.DeliveryTypeDelivery)
	req.Items[0].Price = dec("99999999.99")
	req.Items[0].Quantity = 200

	_, err := svc.CreateOrder(ctx, req)

	var domainErr *model.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
	require.Len(t, domainErr.Details, 1)
	assert.Equal(t, "total", domainErr.Details[0].Field)
	m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestNewOrderService_ClockMatchesStoragePrecision(t *testing.T) {
	svc := NewOrderService(nil, nil, nil, nil, nil, zerolog.Nop()).(*orderService)

	now := svc.now()

	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Microsecond))
}

func TestOrderService_CreateOrder_UnknownStore(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()

	m.stores.On("Lookup", ctx, "store-1").Return(nil, model.ErrStoreNotFound)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "storeId")
	m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_CreateOrder_DirectoryFailure(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()

	m.stores.On("Lookup", ctx, "store-1").Return(nil, errors.New("connection refused"))

	_, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOrderService_CreateOrder_BelowStoreMinimum(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()

	store := testStore()
	store.MinOrderAmount = dec("20.00")
	m.stores.On("Lookup", ctx, "store-1").Return(store, nil)

	_, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "20.00")
	m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_CreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService("ORD-1-AAAAAA", "ORD-1-BBBBBB")
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.OrderNumber == "ORD-1-AAAAAA"
	})).Return(repository.ErrDuplicateOrderNumber).Once()
	m.orders.On("CreateOrder", ctx, mockTx, mock.MatchedBy(func(o *model.Order) bool {
		return o.OrderNumber == "ORD-1-BBBBBB"
	})).Return(nil).Once()
	m.orders.On("CreateOrderItems", ctx, mockTx, mock.Anything).Return(nil).Once()
	mockTx.On("Rollback", ctx).Return(nil).Once()
	mockTx.On("Commit", ctx).Return(nil).Once()
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.NoError(t, err)
	assert.Equal(t, "ORD-1-BBBBBB", order.OrderNumber)
	assert.Equal(t, 2, m.numbers.calls)
	m.orders.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestOrderService_CreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService("ORD-1-AAAAAA")
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.Anything).Return(repository.ErrDuplicateOrderNumber)
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, repository.ErrDuplicateOrderNumber))
	assert.Equal(t, maxOrderNumberAttempts, m.numbers.calls)
	m.orders.AssertNumberOfCalls(t, "CreateOrder", maxOrderNumberAttempts)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_ItemsFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.Anything).Return(nil)
	m.orders.On("CreateOrderItems", ctx, mockTx, mock.Anything).Return(errors.New("batch failed"))
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.Error(t, err)
	assert.Nil(t, order)
	assert.Contains(t, err.Error(), "failed to create order")
	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	mockTx := new(MockTx)

	m.stores.On("Lookup", ctx, "store-1").Return(testStore(), nil)
	m.orders.On("BeginTx", ctx).Return(mockTx, nil)
	m.orders.On("CreateOrder", ctx, mockTx, mock.Anything).Return(nil)
	m.orders.On("CreateOrderItems", ctx, mockTx, mock.Anything).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	order, err := svc.CreateOrder(ctx, validRequest(model.DeliveryTypeDelivery))

	require.NoError(t, err)
	assert.NotNil(t, order)
	m.publisher.AssertExpectations(t)
}

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()
	existing := storedOrder(model.StatusPending, 1)
	missingID := uuid.New()
	brokenID := uuid.New()

	svc, m := newTestService()
	m.orders.On("GetByID", ctx, existing.ID).Return(existing, nil)
	m.orders.On("GetByID", ctx, missingID).Return(nil, nil)
	m.orders.On("GetByID", ctx, brokenID).Return(nil, errors.New("database unavailable"))

	order, err := svc.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, order.ID)

	_, err = svc.GetByID(ctx, missingID)
	assert.True(t, errors.Is(err, model.ErrOrderNotFound))

	_, err = svc.GetByID(ctx, brokenID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrOrderNotFound))
	assert.Contains(t, err.Error(), "failed to get order")
}

func TestOrderService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("applies default limit", func(t *testing.T) {
		svc, m := newTestService()
		expected := []model.Order{*storedOrder(model.StatusPending, 1)}
		m.orders.On("List", ctx, model.OrderFilter{StoreID: "store-1", Limit: defaultListLimit}).Return(expected, nil)

		orders, err := svc.List(ctx, model.OrderFilter{StoreID: "store-1"})

		require.NoError(t, err)
		assert.Equal(t, expected, orders)
		m.orders.AssertExpectations(t)
	})

	t.Run("caps large limit", func(t *testing.T) {
		svc, m := newTestService()
		m.orders.On("List", ctx, model.OrderFilter{Limit: maxListLimit}).Return([]model.Order{}, nil)

		_, err := svc.List(ctx, model.OrderFilter{Limit: 10000})

		require.NoError(t, err)
		m.orders.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc, m := newTestService()

		_, err := svc.List(ctx, model.OrderFilter{Status: "shipped", Offset: -1})

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrValidation))
		assert.Contains(t, err.Error(), "status")
		assert.Contains(t, err.Error(), "offset")
		m.orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestOrderService_TransitionStatus_Success(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	existing := storedOrder(model.StatusReady, 3)

	m.orders.On("GetByID", ctx, existing.ID).Return(existing, nil)
	m.orders.On("UpdateStatus", ctx, mock.MatchedBy(func(u repository.StatusUpdate) bool {
		return u.OrderID == existing.ID &&
			u.Status == model.StatusCompleted &&
			u.ExpectedVersion == 3 &&
			u.DeliveredAt != nil && u.DeliveredAt.Equal(fixedNow) &&
			u.UpdatedAt.Equal(fixedNow)
	})).Return(4, nil)
	m.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e model.OrderEvent) bool {
		return e.Event == model.EventOrderUpdated && e.Order.Status == model.StatusCompleted && e.Order.Version == 4
	})).Return(nil)

	version := 3
	order, err := svc.TransitionStatus(ctx, existing.ID, model.StatusCompleted, &version)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, order.Status)
	assert.Equal(t, 4, order.Version)
	require.NotNil(t, order.DeliveredAt)
	m.orders.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestOrderService_TransitionStatus_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		current         model.Status
		target          model.Status
		expectedVersion *int
		updateErr       error
		wantErr         error
		wantUpdate      bool
	}{
		{
			name:    "completed cannot go back to preparing",
			current: model.StatusCompleted,
			target:  model.StatusPreparing,
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:    "pending cannot skip to ready",
			current: model.StatusPending,
			target:  model.StatusReady,
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:            "stale expected version",
			current:         model.StatusPending,
			target:          model.StatusPreparing,
			expectedVersion: func() *int { v := 1; return &v }(),
			wantErr:         model.ErrConflict,
		},
		{
			name:       "concurrent writer wins",
			current:    model.StatusPending,
			target:     model.StatusCancelled,
			updateErr:  repository.ErrVersionMismatch,
			wantErr:    model.ErrConflict,
			wantUpdate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			existing := storedOrder(tt.current, 2)

			m.orders.On("GetByID", ctx, existing.ID).Return(existing, nil)
			if tt.wantUpdate {
				m.orders.On("UpdateStatus", ctx, mock.Anything).Return(0, tt.updateErr)
			}

			order, err := svc.TransitionStatus(ctx, existing.ID, tt.target, tt.expectedVersion)

			require.Error(t, err)
			assert.Nil(t, order)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			if !tt.wantUpdate {
				m.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
			}
			m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_TransitionStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	id := uuid.New()

	m.orders.On("GetByID", ctx, id).Return(nil, nil)

	_, err := svc.TransitionStatus(ctx, id, model.StatusPreparing, nil)

	assert.True(t, errors.Is(err, model.ErrOrderNotFound))
}

func TestOrderService_TransitionStatus_UnknownTarget(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.TransitionStatus(context.Background(), uuid.New(), "shipped", nil)

	assert.True(t, errors.Is(err, model.ErrValidation))
	m.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
