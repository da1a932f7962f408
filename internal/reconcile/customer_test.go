package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-market/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher answers successive fetches from a script and repeats the last step.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
}

type fetchStep struct {
	order *model.Order
	err   error
}

func (f *scriptedFetcher) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	if step.err != nil {
		return nil, step.err
	}
	o := *step.order
	return &o, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastConfig() CustomerConfig {
	return CustomerConfig{Interval: 5 * time.Millisecond, FetchTimeout: time.Second, MaxBackoff: 20 * time.Millisecond}
}

func orderAt(id uuid.UUID, status model.Status, version int) *model.Order {
	o := order(id, status, version, 0)
	return &o
}

func TestCustomer_PollsUntilTerminal(t *testing.T) {
	id := uuid.New()
	fetcher := &scriptedFetcher{steps: []fetchStep{
		{order: orderAt(id, model.StatusPending, 1)},
		{order: orderAt(id, model.StatusPending, 1)},
		{order: orderAt(id, model.StatusPreparing, 2)},
		{err: errors.New("timeout")},
		{order: orderAt(id, model.StatusReady, 3)},
		{order: orderAt(id, model.StatusCompleted, 4)},
	}}

	c := NewCustomer(id, fetcher, fastConfig(), zerolog.Nop())
	var seen []model.Status
	c.OnChange(func(o model.Order) { seen = append(seen, o.Status) })

	require.NoError(t, c.Run(context.Background()))

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, current.Status)
	assert.Equal(t, []model.Status{model.StatusPending, model.StatusPreparing, model.StatusReady, model.StatusCompleted}, seen)
	assert.Equal(t, 6, fetcher.callCount())
}

func TestCustomer_KeepsLastKnownOnFailure(t *testing.T) {
	id := uuid.New()
	fetcher := &scriptedFetcher{steps: []fetchStep{
		{order: orderAt(id, model.StatusPreparing, 2)},
		{err: errors.New("connection refused")},
	}}

	c := NewCustomer(id, fetcher, fastConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return fetcher.callCount() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, model.StatusPreparing, current.Status)
}

func TestCustomer_IgnoresStaleSnapshot(t *testing.T) {
	id := uuid.New()
	fetcher := &scriptedFetcher{steps: []fetchStep{
		{order: orderAt(id, model.StatusReady, 3)},
		{order: orderAt(id, model.StatusPreparing, 2)},
		{order: orderAt(id, model.StatusCancelled, 4)},
	}}

	c := NewCustomer(id, fetcher, fastConfig(), zerolog.Nop())
	var seen []model.Status
	c.OnChange(func(o model.Order) { seen = append(seen, o.Status) })

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []model.Status{model.StatusReady, model.StatusCancelled}, seen)
}

func TestCustomer_UnknownOrderStops(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []fetchStep{{err: model.ErrOrderNotFound}}}

	err := NewCustomer(uuid.New(), fetcher, fastConfig(), zerolog.Nop()).Run(context.Background())

	assert.True(t, errors.Is(err, model.ErrOrderNotFound))
	assert.Equal(t, 1, fetcher.callCount())
}

func TestCustomer_CancelStopsPolling(t *testing.T) {
	id := uuid.New()
	fetcher := &scriptedFetcher{steps: []fetchStep{{order: orderAt(id, model.StatusPending, 1)}}}

	c := NewCustomer(id, fetcher, CustomerConfig{Interval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop")
	}
}

func TestNewCustomer_Defaults(t *testing.T) {
	c := NewCustomer(uuid.New(), &scriptedFetcher{}, CustomerConfig{}, zerolog.Nop())

	assert.Equal(t, 3*time.Second, c.cfg.Interval)
	assert.Equal(t, 5*time.Second, c.cfg.FetchTimeout)
	assert.Equal(t, 30*time.Second, c.cfg.MaxBackoff)
}
